// Package grid provides the schedule grid aggregate: an ordered range of dates
// crossed with an ordered list of members, one cell per intersection.
package grid

import (
	"fmt"
	"time"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/roster"
)

// DateLayout is the ISO date format used by every external record.
const DateLayout = "2006-01-02"

// Member is one row of the grid. ID is the employee id; 0 means the snapshot
// could not be resolved to an employee.
type Member struct {
	ID   int    `json:"employee_id"`
	Name string `json:"name"`
}

// Grid owns every cell of a cycle. It is not safe for concurrent use.
type Grid struct {
	dates   []time.Time
	dateIdx map[string]int
	members []Member
	byName  map[string]int
	byID    map[int]int
	cells   [][]*cell.Cell // [member][date]
	mode    cell.Mode
	actuals []cell.Counts
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("grid: parse date %q: %w", s, err)
	}
	return t, nil
}

// New builds an empty pre-schedule grid covering start..end inclusive.
// Members are deduplicated in load order: rows sharing an employee id, or
// id-less rows sharing a name, collapse into one. Two different employees
// with the same snapshot name are rejected.
func New(start, end time.Time, members []Member) (*Grid, error) {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil, roster.Errorf(roster.ErrInvalidRange, "end %s precedes start %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}

	g := &Grid{
		dateIdx: make(map[string]int),
		byName:  make(map[string]int),
		byID:    make(map[int]int),
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		g.dateIdx[d.Format(DateLayout)] = len(g.dates)
		g.dates = append(g.dates, d)
	}

	for _, m := range members {
		if i, ok := g.byName[m.Name]; ok {
			prev := g.members[i]
			if prev.ID == m.ID || m.ID == 0 || prev.ID == 0 {
				if prev.ID == 0 && m.ID != 0 {
					g.members[i].ID = m.ID
					g.byID[m.ID] = i
				}
				continue
			}
			return nil, roster.Errorf(roster.ErrAmbiguousName, "%q is shared by employees %d and %d", m.Name, prev.ID, m.ID)
		}
		if _, ok := g.byID[m.ID]; ok && m.ID != 0 {
			continue
		}
		i := len(g.members)
		g.members = append(g.members, m)
		g.byName[m.Name] = i
		if m.ID != 0 {
			g.byID[m.ID] = i
		}
		row := make([]*cell.Cell, len(g.dates))
		for j := range row {
			row[j] = cell.New(cell.ModePreSchedule)
		}
		g.cells = append(g.cells, row)
	}

	g.RecountActuals()
	return g, nil
}

// Dates returns the cycle's dates in order.
func (g *Grid) Dates() []time.Time { return append([]time.Time(nil), g.dates...) }

// DateStrings returns the cycle's dates as ISO strings.
func (g *Grid) DateStrings() []string {
	out := make([]string, len(g.dates))
	for i, d := range g.dates {
		out[i] = d.Format(DateLayout)
	}
	return out
}

// Members returns the rows in load order.
func (g *Grid) Members() []Member { return append([]Member(nil), g.members...) }

// Mode returns the grid-wide state table in use.
func (g *Grid) Mode() cell.Mode { return g.mode }

func (g *Grid) dateIndex(date time.Time) (int, error) {
	key := Day(date).Format(DateLayout)
	j, ok := g.dateIdx[key]
	if !ok {
		return 0, roster.Errorf(roster.ErrNotFound, "date %s", key)
	}
	return j, nil
}

// CellAt returns the cell of the named member on date.
func (g *Grid) CellAt(name string, date time.Time) (*cell.Cell, error) {
	i, ok := g.byName[name]
	if !ok {
		return nil, roster.Errorf(roster.ErrNotFound, "member %q", name)
	}
	j, err := g.dateIndex(date)
	if err != nil {
		return nil, err
	}
	return g.cells[i][j], nil
}

// Advance cycles one cell to its next state and recounts actuals.
func (g *Grid) Advance(name string, date time.Time) (cell.State, error) {
	c, err := g.CellAt(name, date)
	if err != nil {
		return nil, err
	}
	s := c.Advance()
	g.RecountActuals()
	return s, nil
}

// ClearLeaves rewinds the grid to pre-schedule mode with every cell empty.
func (g *Grid) ClearLeaves() {
	g.mode = cell.ModePreSchedule
	for _, row := range g.cells {
		for _, c := range row {
			c.Reset(cell.ModePreSchedule)
		}
	}
	g.RecountActuals()
}

// RecountActuals rescans every cell and rebuilds the per-member counts of
// morning, afternoon and night days.
func (g *Grid) RecountActuals() {
	actuals := make([]cell.Counts, len(g.members))
	for i, row := range g.cells {
		for _, c := range row {
			actuals[i].Add(c.Category())
		}
	}
	g.actuals = actuals
}

// Actuals returns the last recounted work days of the named member.
func (g *Grid) Actuals(name string) cell.Counts {
	i, ok := g.byName[name]
	if !ok {
		return cell.Counts{}
	}
	return g.actuals[i]
}

// WorkCell pairs a worked cell with its row.
type WorkCell struct {
	Member Member
	Cell   *cell.Cell
}

// WorkCells returns the worked cells of the date at index j, in member order.
func (g *Grid) WorkCells(j int) []WorkCell {
	if j < 0 || j >= len(g.dates) {
		return nil
	}
	var out []WorkCell
	for i, row := range g.cells {
		if row[j].Category().IsWork() {
			out = append(out, WorkCell{Member: g.members[i], Cell: row[j]})
		}
	}
	return out
}

// ClearSubtypes drops every assigned subtype.
func (g *Grid) ClearSubtypes() {
	for _, row := range g.cells {
		for _, c := range row {
			c.ClearSubtype()
		}
	}
}

// HasSubtypes reports whether every worked cell carries a subtype.
func (g *Grid) HasSubtypes() bool {
	for _, row := range g.cells {
		for _, c := range row {
			if c.Category().IsWork() && c.Subtype().IsZero() {
				return false
			}
		}
	}
	return true
}
