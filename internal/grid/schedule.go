package grid

import (
	"fmt"
	"time"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/roster"
)

// Assignment is a remote auto-scheduling result: one shift letter per date for
// each member name, Dates giving the date of each position.
type Assignment struct {
	Schedule map[string][]string
	Dates    []string
}

// ApplyExternalSchedule switches the grid to post-schedule mode and replaces
// every cell from the assignment. Cells the assignment does not cover become
// empty. Leaves are not kept; replay them with ReplayLeaves afterwards.
//
// The whole assignment is validated first, so a malformed one leaves the
// grid untouched.
func (g *Grid) ApplyExternalSchedule(a Assignment) error {
	cols := make([]int, len(a.Dates))
	for k, s := range a.Dates {
		d, err := ParseDate(s)
		if err != nil {
			return err
		}
		j, err := g.dateIndex(d)
		if err != nil {
			return fmt.Errorf("grid: apply schedule: %w", err)
		}
		cols[k] = j
	}

	next := make([][]cell.ShiftState, len(g.members))
	for i := range next {
		next[i] = make([]cell.ShiftState, len(g.dates))
	}
	for name, letters := range a.Schedule {
		i, ok := g.byName[name]
		if !ok {
			return fmt.Errorf("grid: apply schedule: %w", roster.Errorf(roster.ErrNotFound, "member %q", name))
		}
		if len(letters) > len(cols) {
			return fmt.Errorf("grid: apply schedule: member %q has %d shifts for %d dates", name, len(letters), len(cols))
		}
		for k, letter := range letters {
			s, err := cell.ParseShiftLetter(letter)
			if err != nil {
				return fmt.Errorf("grid: apply schedule: member %q on %s: %w", name, a.Dates[k], err)
			}
			next[i][cols[k]] = s
		}
	}

	g.mode = cell.ModePostSchedule
	for i, row := range g.cells {
		for j, c := range row {
			c.Set(next[i][j])
		}
	}
	g.RecountActuals()
	return nil
}

// LeaveMark is one requested leave as persisted.
type LeaveMark struct {
	Name  string
	Date  time.Time
	State cell.LeaveState
}

// Weight is the leave's priority weight.
func (m LeaveMark) Weight() int { return m.State.Weight() }

// ReplayLeaves writes persisted leaves onto the grid in its current mode.
// Marks for members or dates outside the grid are skipped; the number
// applied is returned.
func (g *Grid) ReplayLeaves(marks []LeaveMark) int {
	applied := 0
	for _, m := range marks {
		if m.State == cell.LeaveEmpty {
			continue
		}
		c, err := g.CellAt(m.Name, m.Date)
		if err != nil {
			continue
		}
		if g.mode == cell.ModePostSchedule {
			c.Set(m.State.Shift())
		} else {
			c.Set(m.State)
		}
		applied++
	}
	g.RecountActuals()
	return applied
}

// LeaveMarks exports every cell carrying a requested leave, in member then
// date order.
func (g *Grid) LeaveMarks() []LeaveMark {
	var out []LeaveMark
	for i, row := range g.cells {
		for j, c := range row {
			if leave, ok := c.Leave(); ok {
				out = append(out, LeaveMark{Name: g.members[i].Name, Date: g.dates[j], State: leave})
			}
		}
	}
	return out
}

// ShiftLetters exports the grid as {name: [letter per date]} for the remote
// verifier. Empty cells export as "".
func (g *Grid) ShiftLetters() map[string][]string {
	out := make(map[string][]string, len(g.members))
	for i, row := range g.cells {
		letters := make([]string, len(row))
		for j, c := range row {
			letters[j] = c.Category().Letter()
		}
		out[g.members[i].Name] = letters
	}
	return out
}

// UploadRow is one finished cell ready for the employee schedule table.
type UploadRow struct {
	EmployeeID   int       `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	WorkDate     time.Time `json:"work_date"`
	ShiftType    string    `json:"shift_type"`
	ShiftSubtype string    `json:"shift_subtype"`
}

// ExtractUpload exports every non-empty cell. It fails with
// ErrMissingIdentity before producing anything if a member has no employee id.
func (g *Grid) ExtractUpload() ([]UploadRow, error) {
	for _, m := range g.members {
		if m.ID == 0 {
			return nil, roster.Errorf(roster.ErrMissingIdentity, "member %q has no employee id", m.Name)
		}
	}
	var rows []UploadRow
	for i, row := range g.cells {
		for j, c := range row {
			letter := c.Category().Letter()
			if letter == "" {
				continue
			}
			sub := c.Subtype()
			label := sub.Name
			if sub.Subname != "" {
				label = sub.Name + "-" + sub.Subname
			}
			rows = append(rows, UploadRow{
				EmployeeID:   g.members[i].ID,
				EmployeeName: g.members[i].Name,
				WorkDate:     g.dates[j],
				ShiftType:    letter,
				ShiftSubtype: label,
			})
		}
	}
	return rows, nil
}
