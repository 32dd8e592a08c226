// Package cell implements the state machine of one (member, date) roster cell.
package cell

// Subtype is the concrete task label written onto a worked cell.
type Subtype struct {
	Name    string `json:"name"`
	Subname string `json:"subname"`
	Class   string `json:"class"`
}

// IsZero reports whether no subtype has been assigned.
func (s Subtype) IsZero() bool { return s.Name == "" && s.Subname == "" }

// Cell holds the state of one grid intersection. The zero value is an empty
// pre-schedule cell.
type Cell struct {
	state   State
	subtype Subtype
}

// New returns an empty cell in the given mode.
func New(mode Mode) *Cell {
	c := &Cell{}
	c.Reset(mode)
	return c
}

// State returns the current state.
func (c *Cell) State() State {
	if c.state == nil {
		return LeaveEmpty
	}
	return c.state
}

// Mode returns the table the cell's state belongs to.
func (c *Cell) Mode() Mode { return c.State().Mode() }

// Weight is the numeric payload reported to persistence.
func (c *Cell) Weight() int { return c.State().Weight() }

// Category is derived from the state.
func (c *Cell) Category() Category { return c.State().Category() }

// Advance moves the cell to the next state of its own table and returns it.
// Any subtype becomes stale and is dropped.
func (c *Cell) Advance() State {
	switch s := c.State().(type) {
	case LeaveState:
		c.state = s.Next()
	case ShiftState:
		c.state = s.Next()
	}
	c.subtype = Subtype{}
	return c.state
}

// Set replaces the state.
func (c *Cell) Set(s State) {
	c.state = s
	c.subtype = Subtype{}
}

// Reset empties the cell under mode.
func (c *Cell) Reset(mode Mode) {
	if mode == ModePostSchedule {
		c.Set(ShiftEmpty)
		return
	}
	c.Set(LeaveEmpty)
}

// Leave returns the requested leave the cell carries in either mode.
func (c *Cell) Leave() (LeaveState, bool) {
	switch s := c.State().(type) {
	case LeaveState:
		return s, s != LeaveEmpty
	case ShiftState:
		return s.Leave()
	}
	return LeaveEmpty, false
}

// Subtype returns the assigned subtype, zero when none.
func (c *Cell) Subtype() Subtype { return c.subtype }

// SetSubtype records an assigned subtype.
func (c *Cell) SetSubtype(s Subtype) { c.subtype = s }

// ClearSubtype drops any assigned subtype.
func (c *Cell) ClearSubtype() { c.subtype = Subtype{} }
