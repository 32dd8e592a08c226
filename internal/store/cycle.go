// Package store provides roster persistence operations over GORM.
package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/roster"
)

// MemberInput is one employee added to a new cycle with their required days
// per shift letter.
type MemberInput struct {
	EmployeeID *uint
	Name       string
	Required   map[string]int
}

// CreateCycleOpts holds parameters for creating a cycle.
type CreateCycleOpts struct {
	Start      time.Time
	End        time.Time
	ShiftGroup string
	Members    []MemberInput
}

// CreateCycle creates a draft cycle with its member rows, one per member and
// work category.
func CreateCycle(db *gorm.DB, opts CreateCycleOpts) (*models.ScheduleCycle, error) {
	if opts.End.Before(opts.Start) {
		return nil, roster.Errorf(roster.ErrInvalidRange, "cycle ends %s before it starts %s",
			opts.End.Format(time.DateOnly), opts.Start.Format(time.DateOnly))
	}
	cycle := models.ScheduleCycle{
		StartDate:  opts.Start,
		EndDate:    opts.End,
		ShiftGroup: opts.ShiftGroup,
		Status:     models.CycleDraft,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cycle).Error; err != nil {
			return fmt.Errorf("store: create cycle: %w", err)
		}
		for _, m := range opts.Members {
			if m.Name == "" {
				return fmt.Errorf("store: create cycle: member name is required")
			}
			for _, cat := range cell.WorkCategories {
				row := models.CycleMember{
					CycleID:      cycle.ID,
					EmployeeID:   m.EmployeeID,
					SnapshotName: m.Name,
					ShiftType:    cat.Letter(),
					RequiredDays: m.Required[cat.Letter()],
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("store: add member %q: %w", m.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// GetCycle retrieves a cycle by ID.
func GetCycle(db *gorm.DB, id uint) (*models.ScheduleCycle, error) {
	var cycle models.ScheduleCycle
	if err := db.Where("id = ?", id).First(&cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, roster.Errorf(roster.ErrNotFound, "cycle %d", id)
		}
		return nil, fmt.Errorf("store: get cycle %d: %w", id, err)
	}
	return &cycle, nil
}

// ListCycles returns cycles, newest first. An empty status lists all.
func ListCycles(db *gorm.DB, status string) ([]models.ScheduleCycle, error) {
	q := db.Order("start_date DESC").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var cycles []models.ScheduleCycle
	if err := q.Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("store: list cycles: %w", err)
	}
	return cycles, nil
}

// ListMembers returns the member rows of a cycle in insertion order.
func ListMembers(db *gorm.DB, cycleID uint) ([]models.CycleMember, error) {
	var members []models.CycleMember
	if err := db.Where("cycle_id = ?", cycleID).Order("id").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("store: list members of cycle %d: %w", cycleID, err)
	}
	return members, nil
}

// Requirement is one persisted required-days value.
type Requirement struct {
	Member string
	Letter string
	Days   int
}

// SaveRequirements writes changed required days. A category row missing for
// a member is created, inheriting the member's employee id.
func SaveRequirements(db *gorm.DB, cycleID uint, reqs []Requirement) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, r := range reqs {
			res := tx.Model(&models.CycleMember{}).
				Where("cycle_id = ? AND snapshot_name = ? AND shift_type = ?", cycleID, r.Member, r.Letter).
				Update("required_days", r.Days)
			if res.Error != nil {
				return fmt.Errorf("store: save requirement %s/%s: %w", r.Member, r.Letter, res.Error)
			}
			if res.RowsAffected > 0 {
				continue
			}
			var existing models.CycleMember
			if err := tx.Where("cycle_id = ? AND snapshot_name = ?", cycleID, r.Member).First(&existing).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return roster.Errorf(roster.ErrNotFound, "member %q in cycle %d", r.Member, cycleID)
				}
				return fmt.Errorf("store: find member %q: %w", r.Member, err)
			}
			row := models.CycleMember{
				CycleID:      cycleID,
				EmployeeID:   existing.EmployeeID,
				SnapshotName: r.Member,
				ShiftType:    r.Letter,
				RequiredDays: r.Days,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("store: add requirement %s/%s: %w", r.Member, r.Letter, err)
			}
		}
		return nil
	})
}

// GetComment returns the free-text note of a cycle.
func GetComment(db *gorm.DB, cycleID uint) (string, error) {
	cycle, err := GetCycle(db, cycleID)
	if err != nil {
		return "", err
	}
	return cycle.Comment, nil
}

// SetComment replaces the free-text note of a cycle.
func SetComment(db *gorm.DB, cycleID uint, comment string) error {
	res := db.Model(&models.ScheduleCycle{}).Where("id = ?", cycleID).Update("comment", comment)
	if res.Error != nil {
		return fmt.Errorf("store: set comment of cycle %d: %w", cycleID, res.Error)
	}
	if res.RowsAffected == 0 {
		return roster.Errorf(roster.ErrNotFound, "cycle %d", cycleID)
	}
	return nil
}
