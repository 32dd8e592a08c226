package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/models"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ScheduleCycle{},
		&models.CycleMember{},
		&models.CycleLeave{},
		&models.CycleEvent{},
		&models.ShiftType{},
		&models.ShiftGroupSlot{},
		&models.EmployeeSchedule{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropTables drops every table, used to reset a SQLite database.
func DropTables(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return nil
}

// SeedCatalog upserts the shift types of a catalog file and replaces the
// weekday slots of its shift group. It returns the number of slots written.
func SeedCatalog(db *gorm.DB, cat *config.CatalogFile) (int, error) {
	slots := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_name = ?", cat.Group).Delete(&models.ShiftGroupSlot{}).Error; err != nil {
			return fmt.Errorf("db: clear slots of %q: %w", cat.Group, err)
		}
		for _, sc := range cat.ShiftTypes {
			st := models.ShiftType{
				Name:      sc.Name,
				Subname:   sc.Subname,
				Group:     sc.Group,
				StartTime: sc.Start,
				EndTime:   sc.End,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}, {Name: "subname"}},
				DoUpdates: clause.AssignmentColumns([]string{"shift_group", "start_time", "end_time"}),
			}).Create(&st)
			if result.Error != nil {
				return fmt.Errorf("db: seed shift type %q: %w", sc.Name, result.Error)
			}
			// The upsert does not report the id of an updated row on every driver.
			var saved models.ShiftType
			if err := tx.Where("name = ? AND subname = ?", sc.Name, sc.Subname).First(&saved).Error; err != nil {
				return fmt.Errorf("db: reload shift type %q: %w", sc.Name, err)
			}
			for _, wd := range sc.Weekdays {
				slot := models.ShiftGroupSlot{GroupName: cat.Group, Weekday: wd, ShiftTypeID: saved.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&slot).Error; err != nil {
					return fmt.Errorf("db: seed slot %q/%d: %w", sc.Name, wd, err)
				}
				slots++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return slots, nil
}
