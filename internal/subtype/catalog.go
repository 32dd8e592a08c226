// Package subtype assigns concrete task labels (subtypes) to the worked cells
// of a finished roster, drawing from a weekday-indexed shift catalog.
package subtype

import (
	"fmt"
	"time"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/roster"
)

// Weekdays is the number of catalog buckets.
const Weekdays = 7

// Group is the catalog's name for a work category.
type Group string

const (
	GroupDay     Group = "day"
	GroupEvening Group = "evening"
	GroupNight   Group = "night"
)

// ParseGroup validates a stored shift group.
func ParseGroup(s string) (Group, error) {
	switch g := Group(s); g {
	case GroupDay, GroupEvening, GroupNight:
		return g, nil
	}
	return "", roster.Errorf(roster.ErrInvalidCatalog, "unknown shift group %q", s)
}

// GroupFor returns the catalog group of a work category.
func GroupFor(cat cell.Category) Group {
	switch cat {
	case cell.CategoryMorning:
		return GroupDay
	case cell.CategoryAfternoon:
		return GroupEvening
	case cell.CategoryNight:
		return GroupNight
	}
	return ""
}

// Weekday maps a date to its bucket index, 0 = Monday through 6 = Sunday.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Entry is one shift catalog row.
type Entry struct {
	Weekday int    `json:"weekday" yaml:"weekday"`
	Name    string `json:"shift_name" yaml:"shift_name"`
	Subname string `json:"shift_subname" yaml:"shift_subname"`
	Group   Group  `json:"shift_group" yaml:"shift_group"`
}

// Identity is the key under which an entry is tracked as used.
func (e Entry) Identity() string {
	return e.Name + "-" + e.Subname
}

// Catalog is an immutable 7-bucket table of entries.
type Catalog struct {
	buckets [Weekdays]map[Group][]Entry
}

// NewCatalog builds a catalog from buckets keyed 0..6. Every key must be
// present (an empty bucket is allowed) and every entry needs a name and a
// known group.
func NewCatalog(buckets map[int][]Entry) (*Catalog, error) {
	if len(buckets) != Weekdays {
		return nil, roster.Errorf(roster.ErrInvalidCatalog, "want %d weekday buckets, got %d", Weekdays, len(buckets))
	}
	c := &Catalog{}
	for wd := range Weekdays {
		entries, ok := buckets[wd]
		if !ok {
			return nil, roster.Errorf(roster.ErrInvalidCatalog, "missing weekday bucket %d", wd)
		}
		c.buckets[wd] = make(map[Group][]Entry)
		for _, e := range entries {
			if e.Name == "" {
				return nil, roster.Errorf(roster.ErrInvalidCatalog, "weekday %d: entry without shift name", wd)
			}
			if _, err := ParseGroup(string(e.Group)); err != nil {
				return nil, fmt.Errorf("weekday %d: %w", wd, err)
			}
			e.Weekday = wd
			c.buckets[wd][e.Group] = append(c.buckets[wd][e.Group], e)
		}
	}
	return c, nil
}

// Group returns the entries of weekday wd in group g.
func (c *Catalog) Group(wd int, g Group) []Entry {
	if wd < 0 || wd >= Weekdays {
		return nil
	}
	return c.buckets[wd][g]
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	n := 0
	for _, b := range c.buckets {
		for _, entries := range b {
			n += len(entries)
		}
	}
	return n
}
