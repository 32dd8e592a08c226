// Package workflow implements the six-stage editing timeline that gates which
// roster operations are currently permitted.
package workflow

import (
	"fmt"

	"github.com/zulandar/shiftyard/internal/roster"
)

// Stage is one step of the editing pipeline, in pipeline order.
type Stage int

const (
	StageCreateCycle Stage = iota
	StageSetLeaves
	StageAutoSchedule
	StageVerifySchedule
	StageAddSubtype
	StageComplete
)

// AllStages lists every stage in pipeline order.
var AllStages = [...]Stage{
	StageCreateCycle, StageSetLeaves, StageAutoSchedule,
	StageVerifySchedule, StageAddSubtype, StageComplete,
}

var stageNames = [...]string{
	StageCreateCycle:    "create-cycle",
	StageSetLeaves:      "set-leaves",
	StageAutoSchedule:   "auto-schedule",
	StageVerifySchedule: "verify-schedule",
	StageAddSubtype:     "add-subtype",
	StageComplete:       "complete",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Status is the progress of one stage.
type Status int

const (
	Pending Status = iota
	Current
	Completed
)

func (s Status) String() string {
	switch s {
	case Current:
		return "current"
	case Completed:
		return "completed"
	}
	return "pending"
}

type move struct {
	from, to Status
}

// ValidTransitions maps each stage to the status moves it may make. Moves to
// Pending are rewinds, used by a reset or by re-running an earlier stage.
// Staying in the same status is always allowed.
var ValidTransitions = map[Stage][]move{
	StageSetLeaves: {
		{Current, Completed},
		{Completed, Current},
	},
	StageAutoSchedule: {
		{Pending, Current},
		{Current, Completed},
		{Current, Pending},
		{Completed, Pending},
	},
	StageVerifySchedule: {
		{Pending, Current},
		{Current, Completed},
		{Completed, Current},
		{Current, Pending},
		{Completed, Pending},
	},
	StageAddSubtype: {
		{Pending, Current},
		{Current, Completed},
		{Current, Pending},
		{Completed, Pending},
	},
	StageComplete: {
		{Pending, Current},
		{Current, Completed},
		{Current, Pending},
	},
}

// Checks is the outcome of the three remote verification checks.
type Checks struct {
	DailyStaffing   bool
	ContinuousWork  bool
	ShiftConnection bool
}

// Passed reports whether all three checks passed.
func (c Checks) Passed() bool {
	return c.DailyStaffing && c.ContinuousWork && c.ShiftConnection
}

// StageStatus is one row of the timeline as exposed to surfaces.
type StageStatus struct {
	Stage  Stage  `json:"-"`
	Name   string `json:"stage"`
	Status string `json:"status"`
}

// Timeline holds the status of every stage. It is the single source of
// truth consulted before invoking gated operations.
type Timeline struct {
	status [len(stageNames)]Status
}

// New returns the timeline of a freshly opened cycle: create-cycle completed,
// set-leaves current, everything else pending.
func New() *Timeline {
	t := &Timeline{}
	t.status[StageCreateCycle] = Completed
	t.status[StageSetLeaves] = Current
	return t
}

// Status returns the status of stage.
func (t *Timeline) Status(stage Stage) Status {
	if stage < 0 || int(stage) >= len(t.status) {
		return Pending
	}
	return t.status[stage]
}

// Current returns the first stage whose status is Current, or StageComplete
// once the pipeline has finished.
func (t *Timeline) Current() Stage {
	for _, s := range AllStages {
		if t.status[s] == Current {
			return s
		}
	}
	return StageComplete
}

// Stages returns every stage with its status, in pipeline order.
func (t *Timeline) Stages() []StageStatus {
	out := make([]StageStatus, 0, len(AllStages))
	for _, s := range AllStages {
		out = append(out, StageStatus{Stage: s, Name: s.String(), Status: t.status[s].String()})
	}
	return out
}

// Finished reports whether the upload stage has completed.
func (t *Timeline) Finished() bool { return t.status[StageComplete] == Completed }

// Require reports whether the operation that completes stage may run now.
func (t *Timeline) Require(stage Stage) error {
	ok := false
	switch stage {
	case StageSetLeaves:
		ok = !t.Finished()
	case StageAutoSchedule:
		ok = t.status[StageSetLeaves] == Completed && t.status[StageAddSubtype] != Completed
	case StageVerifySchedule:
		ok = t.status[StageAutoSchedule] == Completed && t.status[StageVerifySchedule] == Current
	case StageAddSubtype:
		ok = t.status[StageVerifySchedule] == Completed && !t.Finished()
	case StageComplete:
		ok = t.status[StageAddSubtype] == Completed && t.status[StageComplete] == Current
	}
	if !ok {
		return roster.Errorf(roster.ErrPreconditionViolation, "%s not allowed while %s is %s",
			stage, t.Current(), t.status[t.Current()])
	}
	return nil
}

type step struct {
	stage Stage
	to    Status
}

// apply checks every step against ValidTransitions before changing anything.
func (t *Timeline) apply(steps ...step) error {
	for _, st := range steps {
		from := t.status[st.stage]
		if !isValidTransition(st.stage, from, st.to) {
			return roster.Errorf(roster.ErrPreconditionViolation, "%s cannot move from %s to %s", st.stage, from, st.to)
		}
	}
	for _, st := range steps {
		t.status[st.stage] = st.to
	}
	return nil
}

func isValidTransition(stage Stage, from, to Status) bool {
	if from == to {
		return true
	}
	for _, m := range ValidTransitions[stage] {
		if m.from == from && m.to == to {
			return true
		}
	}
	return false
}

// CompleteLeaves records a successful leave save. The first save completes
// set-leaves and makes auto-schedule current; later saves change nothing.
func (t *Timeline) CompleteLeaves() error {
	if err := t.Require(StageSetLeaves); err != nil {
		return err
	}
	if t.status[StageSetLeaves] != Current {
		return nil
	}
	return t.apply(
		step{StageSetLeaves, Completed},
		step{StageAutoSchedule, Current},
	)
}

// CompleteAutoSchedule records a successful remote auto-schedule. Running it
// again rewinds verification and subtype assignment.
func (t *Timeline) CompleteAutoSchedule() error {
	if err := t.Require(StageAutoSchedule); err != nil {
		return err
	}
	return t.apply(
		step{StageAutoSchedule, Completed},
		step{StageVerifySchedule, Current},
		step{StageAddSubtype, Pending},
	)
}

// CompleteVerification records a verification result. Only a full pass
// completes verify-schedule and makes add-subtype current; a partial pass
// leaves the timeline unchanged and returns false.
func (t *Timeline) CompleteVerification(c Checks) (bool, error) {
	if err := t.Require(StageVerifySchedule); err != nil {
		return false, err
	}
	if !c.Passed() {
		return false, nil
	}
	return true, t.apply(
		step{StageVerifySchedule, Completed},
		step{StageAddSubtype, Current},
	)
}

// CompleteSubtypes records a finished subtype assignment run.
func (t *Timeline) CompleteSubtypes() error {
	if err := t.Require(StageAddSubtype); err != nil {
		return err
	}
	if t.status[StageAddSubtype] == Pending {
		if err := t.apply(step{StageAddSubtype, Current}); err != nil {
			return err
		}
	}
	return t.apply(
		step{StageAddSubtype, Completed},
		step{StageComplete, Current},
	)
}

// CompleteUpload records a successful upload; the timeline is then finished.
func (t *Timeline) CompleteUpload() error {
	if err := t.Require(StageComplete); err != nil {
		return err
	}
	return t.apply(step{StageComplete, Completed})
}

// ScheduleEdited records a hand edit of an applied schedule. Verification
// becomes current again and subtypes must be reassigned before upload.
// Before auto-schedule completes an edit changes nothing.
func (t *Timeline) ScheduleEdited() error {
	if t.Finished() {
		return roster.Errorf(roster.ErrPreconditionViolation, "cycle already uploaded")
	}
	if t.status[StageAutoSchedule] != Completed {
		return nil
	}
	return t.apply(
		step{StageVerifySchedule, Current},
		step{StageAddSubtype, Pending},
		step{StageComplete, Pending},
	)
}

// Reset is the hard reset of clearing all leaves: set-leaves becomes current
// and every later stage pending. A finished timeline cannot be reset.
func (t *Timeline) Reset() error {
	if t.Finished() {
		return roster.Errorf(roster.ErrPreconditionViolation, "cycle already uploaded")
	}
	return t.apply(
		step{StageSetLeaves, Current},
		step{StageAutoSchedule, Pending},
		step{StageVerifySchedule, Pending},
		step{StageAddSubtype, Pending},
		step{StageComplete, Pending},
	)
}
