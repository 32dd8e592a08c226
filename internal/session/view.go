package session

import (
	"time"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/ledger"
	"github.com/zulandar/shiftyard/internal/workflow"
)

// CellView is one rendered cell.
type CellView struct {
	State   string       `json:"state"`
	Text    string       `json:"text"`
	Class   string       `json:"class"`
	Weight  int          `json:"weight"`
	Subtype *cell.Subtype `json:"subtype,omitempty"`
}

// RowView is one member row with its requirements and actual work days.
type RowView struct {
	Member       grid.Member              `json:"member"`
	Cells        []CellView               `json:"cells"`
	Actuals      cell.Counts              `json:"actuals"`
	Requirements map[string]ledger.Record `json:"requirements"`
}

// View is a point-in-time copy of the whole editing state.
type View struct {
	CycleID    uint                   `json:"cycle_id"`
	Start      string                 `json:"start"`
	End        string                 `json:"end"`
	ShiftGroup string                 `json:"shift_group"`
	Mode       string                 `json:"mode"`
	Dates      []string               `json:"dates"`
	Rows       []RowView              `json:"rows"`
	Stages     []workflow.StageStatus `json:"stages"`
}

// Snapshot copies the current state for rendering.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		CycleID:    s.cycle.ID,
		Start:      s.cycle.StartDate.Format(grid.DateLayout),
		End:        s.cycle.EndDate.Format(grid.DateLayout),
		ShiftGroup: s.cycle.ShiftGroup,
		Mode:       s.grid.Mode().String(),
		Dates:      s.grid.DateStrings(),
		Stages:     s.timeline.Stages(),
	}
	dates := s.grid.Dates()
	for _, m := range s.grid.Members() {
		row := RowView{
			Member:       m,
			Cells:        make([]CellView, 0, len(dates)),
			Actuals:      s.ledger.ActualsFor(m.Name),
			Requirements: make(map[string]ledger.Record, len(cell.WorkCategories)),
		}
		for _, d := range dates {
			row.Cells = append(row.Cells, cellView(s.grid, m.Name, d))
		}
		for _, cat := range cell.WorkCategories {
			if rec, err := s.ledger.Get(m.Name, cat); err == nil {
				row.Requirements[cat.Letter()] = rec
			}
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func cellView(g *grid.Grid, name string, d time.Time) CellView {
	c, err := g.CellAt(name, d)
	if err != nil {
		return CellView{}
	}
	st := c.State()
	cv := CellView{State: st.String(), Text: st.Text(), Class: st.Class(), Weight: st.Weight()}
	if sub := c.Subtype(); !sub.IsZero() {
		cv.Subtype = &sub
	}
	return cv
}
