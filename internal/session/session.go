// Package session owns the editing state of one scheduling cycle: its grid,
// requirement ledger and workflow timeline, plus the persistence and remote
// calls that move the cycle through the pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/ledger"
	"github.com/zulandar/shiftyard/internal/logging"
	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/notify"
	"github.com/zulandar/shiftyard/internal/remote"
	"github.com/zulandar/shiftyard/internal/roster"
	"github.com/zulandar/shiftyard/internal/store"
	"github.com/zulandar/shiftyard/internal/subtype"
	"github.com/zulandar/shiftyard/internal/workflow"
)

// Scheduler is the remote optimizer and verifier.
type Scheduler interface {
	AutoSchedule(ctx context.Context, cycleID uint) (grid.Assignment, error)
	Verify(ctx context.Context, cycleID uint, letters map[string][]string, dates []string) (remote.Report, error)
}

// Notifier announces a published cycle.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notice) error
}

// Deps are the collaborators of a session.
type Deps struct {
	DB       *gorm.DB
	Remote   Scheduler
	Engine   *subtype.Engine
	Notifier Notifier // optional
	Log      *zap.Logger
}

// Session serialises every operation on one cycle with a single mutex.
// Remote calls run outside the mutex and are deduplicated per operation.
type Session struct {
	db       *gorm.DB
	remote   Scheduler
	engine   *subtype.Engine
	notifier Notifier
	log      *zap.Logger
	flight   singleflight.Group

	mu       sync.Mutex
	cycle    models.ScheduleCycle
	grid     *grid.Grid
	ledger   *ledger.Ledger
	timeline *workflow.Timeline
	edits    uint64 // bumped on every change to the grid's states
}

// Open loads a draft cycle and builds its editing state. Persisted leaves
// are replayed onto the grid and the timeline starts at set-leaves.
func Open(ctx context.Context, deps Deps, cycleID uint) (*Session, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("session: db is required")
	}
	if deps.Remote == nil {
		return nil, fmt.Errorf("session: remote is required")
	}
	if deps.Engine == nil {
		deps.Engine = subtype.New()
	}

	var (
		cycle   *models.ScheduleCycle
		members []models.CycleMember
		leaves  []grid.LeaveMark
	)
	g, gctx := errgroup.WithContext(ctx)
	tx := deps.DB.WithContext(gctx)
	g.Go(func() (err error) {
		cycle, err = store.GetCycle(tx, cycleID)
		return err
	})
	g.Go(func() (err error) {
		members, err = store.ListMembers(tx, cycleID)
		return err
	})
	g.Go(func() (err error) {
		leaves, err = store.LoadLeaves(tx, cycleID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("session: open cycle %d: %w", cycleID, err)
	}
	if cycle.Status == models.CycleFinished {
		return nil, roster.Errorf(roster.ErrPreconditionViolation, "cycle %d is already uploaded", cycleID)
	}

	rows, reqs := splitMembers(members)
	gr, err := grid.New(cycle.StartDate, cycle.EndDate, rows)
	if err != nil {
		return nil, fmt.Errorf("session: open cycle %d: %w", cycleID, err)
	}
	gr.ReplayLeaves(leaves)

	names := make([]string, 0, len(rows))
	for _, m := range gr.Members() {
		names = append(names, m.Name)
	}
	led := ledger.New(gr)
	led.Load(names, reqs)

	s := &Session{
		db:       deps.DB,
		remote:   deps.Remote,
		engine:   deps.Engine,
		notifier: deps.Notifier,
		log:      logging.OrNop(deps.Log).With(zap.Uint("cycle", cycleID)),
		cycle:    *cycle,
		grid:     gr,
		ledger:   led,
		timeline: workflow.New(),
	}
	s.log.Info("session opened", zap.Int("members", len(names)), zap.Int("leaves", len(leaves)))
	return s, nil
}

// splitMembers turns per-category member rows into grid rows and
// requirement records. Rows with an unknown shift letter carry no requirement.
func splitMembers(members []models.CycleMember) ([]grid.Member, []ledger.Requirement) {
	rows := make([]grid.Member, 0, len(members))
	reqs := make([]ledger.Requirement, 0, len(members))
	for _, m := range members {
		id := 0
		if m.EmployeeID != nil {
			id = int(*m.EmployeeID)
		}
		rows = append(rows, grid.Member{ID: id, Name: m.SnapshotName})
		cat, err := cell.ParseWorkLetter(m.ShiftType)
		if err != nil {
			continue
		}
		reqs = append(reqs, ledger.Requirement{Member: m.SnapshotName, Category: cat, Days: m.RequiredDays})
	}
	return rows, reqs
}

// CycleID returns the id of the cycle being edited.
func (s *Session) CycleID() uint { return s.cycle.ID }

// Stages returns the timeline in order.
func (s *Session) Stages() []workflow.StageStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Stages()
}

// Advance cycles one cell of the named member. Editing an applied schedule
// invalidates its verification and subtypes.
func (s *Session) Advance(name string, date time.Time) (cell.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline.Finished() {
		return nil, roster.Errorf(roster.ErrPreconditionViolation, "cycle %d is already uploaded", s.cycle.ID)
	}
	st, err := s.grid.Advance(name, date)
	if err != nil {
		return nil, err
	}
	s.edits++
	if s.grid.Mode() == cell.ModePostSchedule {
		if err := s.timeline.ScheduleEdited(); err != nil {
			return st, err
		}
	}
	return st, nil
}

// AdjustRequirement moves one requirement by delta and returns its new value.
func (s *Session) AdjustRequirement(name string, cat cell.Category, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Adjust(name, cat, delta)
}

// Requirement returns one requirement record.
func (s *Session) Requirement(name string, cat cell.Category) (ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(name, cat)
}

// SaveLeaves persists every leave on the grid, replacing what was stored,
// and completes set-leaves. It returns the number of leaves saved.
func (s *Session) SaveLeaves(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timeline.Require(workflow.StageSetLeaves); err != nil {
		return 0, err
	}
	if s.grid.Mode() != cell.ModePreSchedule {
		return 0, roster.Errorf(roster.ErrPreconditionViolation, "leaves are fixed once a schedule is applied")
	}
	marks := s.grid.LeaveMarks()
	if err := store.SaveLeaves(s.db.WithContext(ctx), s.cycle.ID, marks); err != nil {
		s.record(ctx, workflow.StageSetLeaves, "save-leaves", err)
		return 0, fmt.Errorf("session: save leaves: %w", err)
	}
	if err := s.timeline.CompleteLeaves(); err != nil {
		return 0, err
	}
	s.record(ctx, workflow.StageSetLeaves, "save-leaves", nil, zap.Int("leaves", len(marks)))
	return len(marks), nil
}

// SaveRequirements persists every requirement that changed since the last
// save. An empty diff touches nothing and returns 0.
func (s *Session) SaveRequirements(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	diff := s.ledger.Diff()
	if len(diff) == 0 {
		return 0, nil
	}
	reqs := make([]store.Requirement, 0, len(diff))
	for _, c := range diff {
		reqs = append(reqs, store.Requirement{Member: c.Member, Letter: c.Category.Letter(), Days: c.Value})
	}
	if err := store.SaveRequirements(s.db.WithContext(ctx), s.cycle.ID, reqs); err != nil {
		s.record(ctx, s.timeline.Current(), "save-requirements", err)
		return 0, fmt.Errorf("session: save requirements: %w", err)
	}
	s.ledger.Commit()
	s.record(ctx, s.timeline.Current(), "save-requirements", nil, zap.Int("changes", len(diff)))
	return len(diff), nil
}

// ClearLeaves deletes every persisted leave, empties the grid and resets
// the timeline to set-leaves. It returns the number of rows deleted.
func (s *Session) ClearLeaves(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline.Finished() {
		return 0, roster.Errorf(roster.ErrPreconditionViolation, "cycle %d is already uploaded", s.cycle.ID)
	}
	n, err := store.ClearLeaves(s.db.WithContext(ctx), s.cycle.ID)
	if err != nil {
		s.record(ctx, workflow.StageSetLeaves, "clear-leaves", err)
		return 0, fmt.Errorf("session: clear leaves: %w", err)
	}
	s.grid.ClearLeaves()
	s.edits++
	if err := s.timeline.Reset(); err != nil {
		return n, err
	}
	s.record(ctx, workflow.StageSetLeaves, "clear-leaves", nil, zap.Int64("deleted", n))
	return n, nil
}

// RunAutoSchedule fetches a schedule from the remote optimizer, applies it
// and replays the persisted leaves over it. A remote failure or a malformed
// result leaves the grid and timeline untouched.
func (s *Session) RunAutoSchedule(ctx context.Context) error {
	s.mu.Lock()
	err := s.timeline.Require(workflow.StageAutoSchedule)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	v, err, _ := s.flight.Do("auto-schedule", func() (any, error) {
		return s.remote.AutoSchedule(ctx, s.cycle.ID)
	})
	if err != nil {
		s.recordLocked(ctx, workflow.StageAutoSchedule, "auto-schedule", err)
		return err
	}
	assignment := v.(grid.Assignment)

	leaves, err := store.LoadLeaves(s.db.WithContext(ctx), s.cycle.ID)
	if err != nil {
		return fmt.Errorf("session: auto-schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timeline.Require(workflow.StageAutoSchedule); err != nil {
		return err
	}
	if err := s.grid.ApplyExternalSchedule(assignment); err != nil {
		rerr := roster.Remote("auto-schedule", "unusable schedule", err)
		s.record(ctx, workflow.StageAutoSchedule, "auto-schedule", rerr)
		return rerr
	}
	replayed := s.grid.ReplayLeaves(leaves)
	s.edits++
	if err := s.timeline.CompleteAutoSchedule(); err != nil {
		return err
	}
	s.record(ctx, workflow.StageAutoSchedule, "auto-schedule", nil, zap.Int("leaves_replayed", replayed))
	return nil
}

// Verify submits the grid to the remote verifier. Verification completes
// only when every check passed and the grid was not edited while the
// verifier ran; the report is returned either way.
func (s *Session) Verify(ctx context.Context) (remote.Report, bool, error) {
	s.mu.Lock()
	if err := s.timeline.Require(workflow.StageVerifySchedule); err != nil {
		s.mu.Unlock()
		return remote.Report{}, false, err
	}
	letters := s.grid.ShiftLetters()
	dates := s.grid.DateStrings()
	edits := s.edits
	s.mu.Unlock()

	v, err, _ := s.flight.Do(fmt.Sprintf("verify-%d", edits), func() (any, error) {
		return s.remote.Verify(ctx, s.cycle.ID, letters, dates)
	})
	if err != nil {
		s.recordLocked(ctx, workflow.StageVerifySchedule, "verify", err)
		return remote.Report{}, false, err
	}
	report := v.(remote.Report)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edits != edits {
		err := roster.Errorf(roster.ErrPreconditionViolation, "schedule changed during verification")
		s.record(ctx, workflow.StageVerifySchedule, "verify", err)
		return report, false, err
	}
	passed, err := s.timeline.CompleteVerification(report.Checks())
	if err != nil {
		return report, false, err
	}
	s.record(ctx, workflow.StageVerifySchedule, "verify", nil, zap.Bool("passed", passed))
	return report, passed, nil
}

// AssignSubtypes labels every worked cell from the cycle's shift group
// catalog and completes add-subtype.
func (s *Session) AssignSubtypes(ctx context.Context) (subtype.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timeline.Require(workflow.StageAddSubtype); err != nil {
		return subtype.Result{}, err
	}
	if s.cycle.ShiftGroup == "" {
		return subtype.Result{}, roster.Errorf(roster.ErrInvalidCatalog, "cycle %d has no shift group", s.cycle.ID)
	}
	catalog, err := store.LoadCatalog(s.db.WithContext(ctx), s.cycle.ShiftGroup)
	if err != nil {
		s.record(ctx, workflow.StageAddSubtype, "assign-subtypes", err)
		return subtype.Result{}, fmt.Errorf("session: assign subtypes: %w", err)
	}
	res, err := s.engine.Assign(s.cycle.ID, s.grid, catalog)
	if err != nil {
		s.record(ctx, workflow.StageAddSubtype, "assign-subtypes", err)
		return subtype.Result{}, err
	}
	if err := s.timeline.CompleteSubtypes(); err != nil {
		return res, err
	}
	s.record(ctx, workflow.StageAddSubtype, "assign-subtypes", nil, zap.Int("assigned", res.Assigned))
	return res, nil
}

// UploadPreview returns the rows an upload would write.
func (s *Session) UploadPreview() ([]grid.UploadRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.ExtractUpload()
}

// Upload writes the finished schedule, marks the cycle finished and sends a
// publication notice. A failed notice is logged, not returned.
func (s *Session) Upload(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timeline.Require(workflow.StageComplete); err != nil {
		return 0, err
	}
	if !s.grid.HasSubtypes() {
		err := roster.Errorf(roster.ErrPreconditionViolation, "worked shifts are missing subtypes")
		s.record(ctx, workflow.StageComplete, "upload", err)
		return 0, err
	}
	rows, err := s.grid.ExtractUpload()
	if err != nil {
		s.record(ctx, workflow.StageComplete, "upload", err)
		return 0, err
	}
	if err := store.Upload(s.db.WithContext(ctx), s.cycle.ID, rows); err != nil {
		s.record(ctx, workflow.StageComplete, "upload", err)
		return 0, fmt.Errorf("session: upload: %w", err)
	}
	if err := s.timeline.CompleteUpload(); err != nil {
		return len(rows), err
	}
	s.cycle.Status = models.CycleFinished
	s.record(ctx, workflow.StageComplete, "upload", nil, zap.Int("rows", len(rows)))

	if s.notifier != nil {
		notice := notify.Notice{
			CycleID:    s.cycle.ID,
			Start:      s.cycle.StartDate,
			End:        s.cycle.EndDate,
			ShiftGroup: s.cycle.ShiftGroup,
			Members:    len(s.grid.Members()),
			Rows:       len(rows),
		}
		if err := s.notifier.Notify(ctx, notice); err != nil {
			s.log.Warn("publication notice failed", zap.Error(err))
		}
	}
	return len(rows), nil
}

// Comment returns the cycle note.
func (s *Session) Comment(ctx context.Context) (string, error) {
	return store.GetComment(s.db.WithContext(ctx), s.cycle.ID)
}

// SetComment replaces the cycle note.
func (s *Session) SetComment(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := store.SetComment(s.db.WithContext(ctx), s.cycle.ID, text); err != nil {
		return err
	}
	s.cycle.Comment = text
	return nil
}

// Events returns the latest activity of the cycle, newest first.
func (s *Session) Events(ctx context.Context, limit int) ([]models.CycleEvent, error) {
	return store.ListEvents(s.db.WithContext(ctx), s.cycle.ID, limit)
}

// EventsSince returns activity recorded after the event afterID, oldest first.
func (s *Session) EventsSince(ctx context.Context, afterID uint) ([]models.CycleEvent, error) {
	return store.EventsSince(s.db.WithContext(ctx), s.cycle.ID, afterID)
}

// recordLocked is record for callers not holding the mutex.
func (s *Session) recordLocked(ctx context.Context, stage workflow.Stage, action string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(ctx, stage, action, err)
}

// record logs an action and appends it to the cycle's activity log.
// Failing to write the log entry never fails the action.
func (s *Session) record(ctx context.Context, stage workflow.Stage, action string, err error, fields ...zap.Field) {
	ev := models.CycleEvent{CycleID: s.cycle.ID, Stage: stage.String(), Action: action, Outcome: store.OutcomeOK}
	fields = append(fields, zap.String("action", action), zap.Stringer("stage", stage))
	if err != nil {
		ev.Outcome = store.OutcomeFailed
		ev.Message = err.Error()
		level := s.log.Warn
		if !isUserError(err) {
			level = s.log.Error
		}
		level("action failed", append(fields, zap.Error(err))...)
	} else {
		s.log.Info("action done", fields...)
	}
	if rerr := store.RecordEvent(s.db.WithContext(context.WithoutCancel(ctx)), ev); rerr != nil {
		s.log.Warn("record event", zap.Error(rerr))
	}
}

// isUserError reports errors caused by the request or an upstream rather
// than by this process.
func isUserError(err error) bool {
	for _, target := range []error{
		roster.ErrRemoteFailure,
		roster.ErrPreconditionViolation,
		roster.ErrInvalidCatalog,
		roster.ErrMissingIdentity,
		roster.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
