package cell

import "fmt"

// Mode selects which state table the whole grid is using.
type Mode int

const (
	// ModePreSchedule is the leave-marking mode before auto-scheduling.
	ModePreSchedule Mode = iota
	// ModePostSchedule is the shift mode entered once a remote schedule is applied.
	ModePostSchedule
)

func (m Mode) String() string {
	if m == ModePostSchedule {
		return "post-schedule"
	}
	return "pre-schedule"
}

// State is implemented by LeaveState and ShiftState only.
type State interface {
	Mode() Mode
	Index() int
	String() string
	Text() string
	Weight() int
	Category() Category
	Class() string

	sealed()
}

// LeaveState is a pre-schedule cell value.
type LeaveState int

const (
	LeaveEmpty LeaveState = iota
	LeaveHigh
	LeaveLow
	LeaveSpecial
)

// LeaveStateCount is the size of the pre-schedule table.
const LeaveStateCount = 4

type stateInfo struct {
	name     string
	text     string
	class    string
	weight   int
	category Category
}

var leaveInfo = [LeaveStateCount]stateInfo{
	LeaveEmpty:   {"empty", "", "", 0, CategoryNone},
	LeaveHigh:    {"leave-high", "O", "leave-high", 2, CategoryDayOff},
	LeaveLow:     {"leave-low", "O", "leave-low", 1, CategoryDayOff},
	LeaveSpecial: {"leave-special", "特", "leave-special", 3, CategoryDayOff},
}

func (s LeaveState) info() stateInfo {
	if s < 0 || int(s) >= LeaveStateCount {
		return leaveInfo[LeaveEmpty]
	}
	return leaveInfo[s]
}

func (LeaveState) Mode() Mode { return ModePreSchedule }
func (s LeaveState) Index() int { return int(s) }
func (s LeaveState) String() string { return s.info().name }
func (s LeaveState) Text() string { return s.info().text }
func (s LeaveState) Weight() int { return s.info().weight }
func (s LeaveState) Category() Category { return s.info().category }
func (s LeaveState) Class() string { return s.info().class }
func (LeaveState) sealed() {}

// Next returns the state that follows s when a cell is clicked.
func (s LeaveState) Next() LeaveState {
	switch s {
	case LeaveEmpty:
		return LeaveHigh
	case LeaveHigh:
		return LeaveLow
	case LeaveLow:
		return LeaveSpecial
	}
	return LeaveEmpty
}

// Offtype returns the stored leave type label, empty for LeaveEmpty.
func (s LeaveState) Offtype() string {
	switch s {
	case LeaveHigh:
		return "紅O"
	case LeaveLow:
		return "藍O"
	case LeaveSpecial:
		return "特休"
	}
	return ""
}

// Shift returns the post-schedule counterpart of a leave.
func (s LeaveState) Shift() ShiftState {
	switch s {
	case LeaveHigh:
		return ShiftLeaveHigh
	case LeaveLow:
		return ShiftLeaveLow
	case LeaveSpecial:
		return ShiftLeaveSpecial
	}
	return ShiftEmpty
}

// ParseOfftype maps a stored leave type back to its state. Unknown or empty
// labels map to LeaveEmpty.
func ParseOfftype(offtype string) LeaveState {
	switch offtype {
	case "紅O":
		return LeaveHigh
	case "藍O":
		return LeaveLow
	case "特休":
		return LeaveSpecial
	}
	return LeaveEmpty
}

// ShiftState is a post-schedule cell value.
type ShiftState int

const (
	ShiftEmpty ShiftState = iota
	ShiftMorning
	ShiftAfternoon
	ShiftNight
	ShiftLeaveHigh
	ShiftLeaveLow
	ShiftLeaveSpecial
	ShiftDayOff
)

// ShiftStateCount is the size of the post-schedule table.
const ShiftStateCount = 8

var shiftInfo = [ShiftStateCount]stateInfo{
	ShiftEmpty:        {"empty", "", "", 0, CategoryNone},
	ShiftMorning:      {"morning", "A", "morning-shift", 1, CategoryMorning},
	ShiftAfternoon:    {"afternoon", "B", "afternoon-shift", 2, CategoryAfternoon},
	ShiftNight:        {"night", "C", "night-shift", 3, CategoryNight},
	ShiftLeaveHigh:    {"leave-high", "O", "leave-high", 4, CategoryDayOff},
	ShiftLeaveLow:     {"leave-low", "O", "leave-low", 5, CategoryDayOff},
	ShiftLeaveSpecial: {"leave-special", "特", "leave-special", 6, CategoryDayOff},
	ShiftDayOff:       {"auto-day-off", "O", "day-off", 7, CategoryDayOff},
}

func (s ShiftState) info() stateInfo {
	if s < 0 || int(s) >= ShiftStateCount {
		return shiftInfo[ShiftEmpty]
	}
	return shiftInfo[s]
}

func (ShiftState) Mode() Mode { return ModePostSchedule }
func (s ShiftState) Index() int { return int(s) }
func (s ShiftState) String() string { return s.info().name }
func (s ShiftState) Text() string { return s.info().text }
func (s ShiftState) Weight() int { return s.info().weight }
func (s ShiftState) Category() Category { return s.info().category }
func (s ShiftState) Class() string { return s.info().class }
func (ShiftState) sealed() {}

// Next returns the state that follows s when a cell is clicked.
func (s ShiftState) Next() ShiftState {
	switch s {
	case ShiftEmpty:
		return ShiftMorning
	case ShiftMorning:
		return ShiftAfternoon
	case ShiftAfternoon:
		return ShiftNight
	case ShiftNight:
		return ShiftLeaveHigh
	case ShiftLeaveHigh:
		return ShiftLeaveLow
	case ShiftLeaveLow:
		return ShiftLeaveSpecial
	case ShiftLeaveSpecial:
		return ShiftDayOff
	}
	return ShiftEmpty
}

// Leave returns the pre-schedule leave a shift state represents, if any.
func (s ShiftState) Leave() (LeaveState, bool) {
	switch s {
	case ShiftLeaveHigh:
		return LeaveHigh, true
	case ShiftLeaveLow:
		return LeaveLow, true
	case ShiftLeaveSpecial:
		return LeaveSpecial, true
	}
	return LeaveEmpty, false
}

// ParseShiftLetter maps a remote schedule letter to its post-schedule state.
// O is the optimizer's own day off, not a requested leave.
func ParseShiftLetter(letter string) (ShiftState, error) {
	switch letter {
	case "A":
		return ShiftMorning, nil
	case "B":
		return ShiftAfternoon, nil
	case "C":
		return ShiftNight, nil
	case "O":
		return ShiftDayOff, nil
	}
	return ShiftEmpty, fmt.Errorf("cell: unknown shift letter %q", letter)
}
