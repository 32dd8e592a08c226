package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/models"
)

// Event outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// RecordEvent appends one entry to a cycle's activity log.
func RecordEvent(db *gorm.DB, ev models.CycleEvent) error {
	if ev.Action == "" {
		return fmt.Errorf("store: record event: action is required")
	}
	if err := db.Create(&ev).Error; err != nil {
		return fmt.Errorf("store: record event %s for cycle %d: %w", ev.Action, ev.CycleID, err)
	}
	return nil
}

// ListEvents returns the latest limit events of a cycle, newest first.
// A non-positive limit returns all.
func ListEvents(db *gorm.DB, cycleID uint, limit int) ([]models.CycleEvent, error) {
	q := db.Where("cycle_id = ?", cycleID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var events []models.CycleEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("store: list events of cycle %d: %w", cycleID, err)
	}
	return events, nil
}

// EventsSince returns the events of a cycle with an id above afterID, oldest first.
func EventsSince(db *gorm.DB, cycleID, afterID uint) ([]models.CycleEvent, error) {
	var events []models.CycleEvent
	if err := db.Where("cycle_id = ? AND id > ?", cycleID, afterID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("store: events of cycle %d since %d: %w", cycleID, afterID, err)
	}
	return events, nil
}
