package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/models"
)

// LoadLeaves returns the persisted leaves of a cycle. The stored offtype
// decides the state; rows with an unknown offtype come back empty and are
// skipped when replayed.
func LoadLeaves(db *gorm.DB, cycleID uint) ([]grid.LeaveMark, error) {
	var rows []models.CycleLeave
	if err := db.Where("cycle_id = ?", cycleID).Order("employee_name").Order("date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: load leaves of cycle %d: %w", cycleID, err)
	}
	marks := make([]grid.LeaveMark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, grid.LeaveMark{
			Name:  r.EmployeeName,
			Date:  grid.Day(r.Date),
			State: cell.ParseOfftype(r.Offtype),
		})
	}
	return marks, nil
}

// SaveLeaves replaces every persisted leave of a cycle with marks.
func SaveLeaves(db *gorm.DB, cycleID uint, marks []grid.LeaveMark) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cycle_id = ?", cycleID).Delete(&models.CycleLeave{}).Error; err != nil {
			return fmt.Errorf("store: clear leaves of cycle %d: %w", cycleID, err)
		}
		if len(marks) == 0 {
			return nil
		}
		rows := make([]models.CycleLeave, 0, len(marks))
		for _, m := range marks {
			rows = append(rows, models.CycleLeave{
				CycleID:      cycleID,
				EmployeeName: m.Name,
				Date:         m.Date,
				LeaveState:   m.State.Index(),
				LeaveWeight:  m.Weight(),
				Offtype:      m.State.Offtype(),
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("store: save leaves of cycle %d: %w", cycleID, err)
		}
		return nil
	})
}

// ClearLeaves deletes every persisted leave of a cycle and reports how many
// rows were removed.
func ClearLeaves(db *gorm.DB, cycleID uint) (int64, error) {
	res := db.Where("cycle_id = ?", cycleID).Delete(&models.CycleLeave{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: clear leaves of cycle %d: %w", cycleID, res.Error)
	}
	return res.RowsAffected, nil
}
