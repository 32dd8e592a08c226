package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/roster"
	"github.com/zulandar/shiftyard/internal/subtype"
)

// LoadCatalog builds the 7-bucket subtype catalog of a shift group. Buckets
// without slots are present and empty.
func LoadCatalog(db *gorm.DB, group string) (*subtype.Catalog, error) {
	var slots []models.ShiftGroupSlot
	err := db.Preload("ShiftType").
		Where("group_name = ?", group).
		Order("weekday").Order("id").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("store: load catalog %q: %w", group, err)
	}
	buckets := make(map[int][]subtype.Entry, subtype.Weekdays)
	for wd := range subtype.Weekdays {
		buckets[wd] = nil
	}
	for _, s := range slots {
		if _, ok := buckets[s.Weekday]; !ok {
			return nil, fmt.Errorf("store: load catalog %q: %w", group,
				roster.Errorf(roster.ErrInvalidCatalog, "slot %d has weekday %d", s.ID, s.Weekday))
		}
		buckets[s.Weekday] = append(buckets[s.Weekday], subtype.Entry{
			Weekday: s.Weekday,
			Name:    s.ShiftType.Name,
			Subname: s.ShiftType.Subname,
			Group:   subtype.Group(s.ShiftType.Group),
		})
	}
	cat, err := subtype.NewCatalog(buckets)
	if err != nil {
		return nil, fmt.Errorf("store: load catalog %q: %w", group, err)
	}
	return cat, nil
}
