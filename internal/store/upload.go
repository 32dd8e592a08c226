package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/roster"
)

// Upload replaces the finished schedule of a cycle with rows and marks the
// cycle finished, all in one transaction.
func Upload(db *gorm.DB, cycleID uint, rows []grid.UploadRow) error {
	for _, r := range rows {
		if r.EmployeeID <= 0 {
			return roster.Errorf(roster.ErrMissingIdentity, "row for %q on %s", r.EmployeeName, r.WorkDate.Format(grid.DateLayout))
		}
	}
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScheduleCycle{}).Where("id = ?", cycleID).Update("status", models.CycleFinished)
		if res.Error != nil {
			return fmt.Errorf("store: finish cycle %d: %w", cycleID, res.Error)
		}
		if res.RowsAffected == 0 {
			return roster.Errorf(roster.ErrNotFound, "cycle %d", cycleID)
		}
		if err := tx.Where("cycle_id = ?", cycleID).Delete(&models.EmployeeSchedule{}).Error; err != nil {
			return fmt.Errorf("store: clear schedule of cycle %d: %w", cycleID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		out := make([]models.EmployeeSchedule, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.EmployeeSchedule{
				CycleID:      cycleID,
				EmployeeID:   uint(r.EmployeeID),
				EmployeeName: r.EmployeeName,
				WorkDate:     r.WorkDate,
				ShiftType:    r.ShiftType,
				ShiftSubtype: r.ShiftSubtype,
			})
		}
		if err := tx.CreateInBatches(out, 200).Error; err != nil {
			return fmt.Errorf("store: upload schedule of cycle %d: %w", cycleID, err)
		}
		return nil
	})
}

// ListSchedule returns the uploaded rows of a cycle ordered by employee then date.
func ListSchedule(db *gorm.DB, cycleID uint) ([]models.EmployeeSchedule, error) {
	var rows []models.EmployeeSchedule
	if err := db.Where("cycle_id = ?", cycleID).Order("employee_id").Order("work_date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list schedule of cycle %d: %w", cycleID, err)
	}
	return rows, nil
}
