package cell

import "fmt"

// Category is the coarse classification of a cell derived from its state.
type Category int

const (
	CategoryNone Category = iota
	CategoryMorning
	CategoryAfternoon
	CategoryNight
	CategoryDayOff
)

// WorkCategories lists the categories that count as a worked shift, in A, B, C order.
var WorkCategories = [3]Category{CategoryMorning, CategoryAfternoon, CategoryNight}

func (c Category) String() string {
	switch c {
	case CategoryMorning:
		return "morning"
	case CategoryAfternoon:
		return "afternoon"
	case CategoryNight:
		return "night"
	case CategoryDayOff:
		return "day-off"
	}
	return "none"
}

// Letter returns the shift letter used on the wire: A, B, C, O or "".
func (c Category) Letter() string {
	switch c {
	case CategoryMorning:
		return "A"
	case CategoryAfternoon:
		return "B"
	case CategoryNight:
		return "C"
	case CategoryDayOff:
		return "O"
	}
	return ""
}

// Class returns the display class surfaces use for the category.
func (c Category) Class() string {
	switch c {
	case CategoryMorning:
		return "morning-shift"
	case CategoryAfternoon:
		return "afternoon-shift"
	case CategoryNight:
		return "night-shift"
	case CategoryDayOff:
		return "day-off"
	}
	return ""
}

// IsWork reports whether the category is one of morning, afternoon or night.
func (c Category) IsWork() bool {
	return c == CategoryMorning || c == CategoryAfternoon || c == CategoryNight
}

// ParseWorkLetter maps a requirement shift type (A, B or C) to its category.
func ParseWorkLetter(s string) (Category, error) {
	switch s {
	case "A":
		return CategoryMorning, nil
	case "B":
		return CategoryAfternoon, nil
	case "C":
		return CategoryNight, nil
	}
	return CategoryNone, fmt.Errorf("cell: unknown shift type %q", s)
}

// Counts holds one integer per work category.
type Counts struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Night     int `json:"night"`
}

// Get returns the count for a work category; other categories read as 0.
func (c Counts) Get(cat Category) int {
	switch cat {
	case CategoryMorning:
		return c.Morning
	case CategoryAfternoon:
		return c.Afternoon
	case CategoryNight:
		return c.Night
	}
	return 0
}

// Add increments the count for cat when it is a work category.
func (c *Counts) Add(cat Category) {
	switch cat {
	case CategoryMorning:
		c.Morning++
	case CategoryAfternoon:
		c.Afternoon++
	case CategoryNight:
		c.Night++
	}
}

// Total is the number of worked days across all three categories.
func (c Counts) Total() int { return c.Morning + c.Afternoon + c.Night }
