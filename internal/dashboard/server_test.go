package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/db"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/remote"
	"github.com/zulandar/shiftyard/internal/roster"
	"github.com/zulandar/shiftyard/internal/session"
	"github.com/zulandar/shiftyard/internal/store"
	"github.com/zulandar/shiftyard/internal/subtype"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRemote struct {
	mu          sync.Mutex
	scheduleErr error
}

func (f *fakeRemote) AutoSchedule(context.Context, uint) (grid.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return grid.Assignment{}, f.scheduleErr
	}
	return grid.Assignment{
		Schedule: map[string][]string{
			"Alice": {"A", "B"},
			"Bob":   {"A", "O"},
		},
		Dates: []string{"2025-06-02", "2025-06-03"},
	}, nil
}

func (f *fakeRemote) Verify(context.Context, uint, map[string][]string, []string) (remote.Report, error) {
	return remote.Report{
		DailyStaffing:   remote.CheckResult{Passed: true},
		ContinuousWork:  remote.CheckResult{Passed: true},
		ShiftConnection: remote.CheckResult{Passed: true},
	}, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

type testServer struct {
	db     *gorm.DB
	cycle  *models.ScheduleCycle
	remote *fakeRemote
	reg    *registry
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb := testDB(t)
	cat, err := config.ParseCatalog([]byte(`
group: ward-7
shift_types:
  - {name: Desk, group: day, weekdays: [0, 1, 2, 3, 4, 5, 6]}
  - {name: Ward, group: evening, weekdays: [0, 1, 2, 3, 4, 5, 6]}
  - {name: ICU, group: night, weekdays: [0, 1, 2, 3, 4, 5, 6]}
`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if _, err := db.SeedCatalog(gdb, cat); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	alice, bob := uint(11), uint(12)
	start, _ := grid.ParseDate("2025-06-02")
	end, _ := grid.ParseDate("2025-06-03")
	cycle, err := store.CreateCycle(gdb, store.CreateCycleOpts{
		Start:      start,
		End:        end,
		ShiftGroup: "ward-7",
		Members: []store.MemberInput{
			{EmployeeID: &alice, Name: "Alice", Required: map[string]int{"A": 1}},
			{EmployeeID: &bob, Name: "Bob"},
		},
	})
	if err != nil {
		t.Fatalf("CreateCycle: %v", err)
	}

	r := &fakeRemote{}
	reg := newRegistry(session.Deps{DB: gdb, Remote: r, Engine: subtype.New(subtype.WithSeed(3))}, zap.NewNop())
	return &testServer{
		db:     gdb,
		cycle:  cycle,
		remote: r,
		reg:    reg,
		router: newRouter(gdb, reg, zap.NewNop()),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func (s *testServer) open(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/sessions", gin.H{"cycle_id": s.cycle.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("open session: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	decode(t, w, &resp)
	return resp.SessionID
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

func TestStart_RequiresDeps(t *testing.T) {
	tests := []struct {
		name string
		opts StartOpts
		want string
	}{
		{"nil db", StartOpts{}, "db is required"},
		{"nil remote", StartOpts{DB: &gorm.DB{}}, "remote is required"},
		{"bad sweep", StartOpts{DB: &gorm.DB{}, Remote: &fakeRemote{}, Sweep: "every minute"}, "sweep schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Start(context.Background(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want to contain %q", err, tt.want)
			}
		})
	}
}

func TestStartOpts_Defaults(t *testing.T) {
	opts := StartOpts{}
	opts.applyDefaults()
	if opts.Port != DefaultPort || opts.IdleTimeout != DefaultIdleTimeout || opts.Sweep != DefaultSweep {
		t.Errorf("defaults = %+v", opts)
	}
	if opts.Engine == nil || opts.Log == nil {
		t.Error("engine and log should default")
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.open(t)
	w := s.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, w, http.StatusOK)
	var resp struct {
		Sessions int `json:"sessions"`
	}
	decode(t, w, &resp)
	if resp.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", resp.Sessions)
	}
}

func TestCycleList(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/cycles?status=draft", nil)
	expectStatus(t, w, http.StatusOK)
	var cycles []map[string]any
	decode(t, w, &cycles)
	if len(cycles) != 1 || cycles[0]["start"] != "2025-06-02" || cycles[0]["shift_group"] != "ward-7" {
		t.Errorf("cycles = %v", cycles)
	}
}

func TestOpenSession(t *testing.T) {
	s := newTestServer(t)
	first := s.open(t)
	if second := s.open(t); second != first {
		t.Errorf("reopening gave %q, want existing %q", second, first)
	}

	w := s.do(t, http.MethodPost, "/api/sessions", gin.H{"cycle_id": 999})
	expectStatus(t, w, http.StatusNotFound)

	w = s.do(t, http.MethodPost, "/api/sessions", gin.H{})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/sessions/nope", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestCloseSession(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/sessions/"+id, nil), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodGet, "/api/sessions/"+id, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/sessions/"+id, nil), http.StatusNotFound)
}

func TestPipelineOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	base := "/api/sessions/" + id

	w := s.do(t, http.MethodPost, base+"/cells/advance", gin.H{"member": "Bob", "date": "2025-06-03"})
	expectStatus(t, w, http.StatusOK)
	var adv struct {
		State  string `json:"state"`
		Weight int    `json:"weight"`
	}
	decode(t, w, &adv)
	if adv.State != "leave-high" || adv.Weight != 2 {
		t.Errorf("advance = %+v", adv)
	}

	expectStatus(t, s.do(t, http.MethodPost, base+"/leaves/save", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, base+"/auto-schedule", nil), http.StatusOK)

	w = s.do(t, http.MethodPost, base+"/verify", nil)
	expectStatus(t, w, http.StatusOK)
	var ver struct {
		Passed bool `json:"passed"`
	}
	decode(t, w, &ver)
	if !ver.Passed {
		t.Error("verify did not pass")
	}

	w = s.do(t, http.MethodPost, base+"/subtypes", nil)
	expectStatus(t, w, http.StatusOK)
	var sub struct {
		Assigned int                       `json:"assigned"`
		Usage    map[string]map[string]int `json:"usage"`
	}
	decode(t, w, &sub)
	if sub.Assigned != 3 || sub.Usage["A"]["Desk-"] != 2 {
		t.Errorf("subtypes = %+v", sub)
	}

	w = s.do(t, http.MethodGet, base+"/upload", nil)
	expectStatus(t, w, http.StatusOK)
	var preview []grid.UploadRow
	decode(t, w, &preview)
	if len(preview) != 4 {
		t.Errorf("preview rows = %d, want 4", len(preview))
	}

	w = s.do(t, http.MethodPost, base+"/upload", nil)
	expectStatus(t, w, http.StatusOK)
	rows, _ := store.ListSchedule(s.db, s.cycle.ID)
	if len(rows) != 4 {
		t.Errorf("stored rows = %d, want 4", len(rows))
	}

	w = s.do(t, http.MethodGet, base+"/stages", nil)
	expectStatus(t, w, http.StatusOK)
	var stages []struct {
		Stage  string `json:"stage"`
		Status string `json:"status"`
	}
	decode(t, w, &stages)
	if last := stages[len(stages)-1]; last.Stage != "complete" || last.Status != "completed" {
		t.Errorf("last stage = %+v", last)
	}

	w = s.do(t, http.MethodGet, base+"/events?limit=2", nil)
	expectStatus(t, w, http.StatusOK)
	var events []eventBody
	decode(t, w, &events)
	if len(events) != 2 || events[0].Action != "upload" || events[0].Outcome != store.OutcomeOK {
		t.Errorf("events = %+v", events)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	base := "/api/sessions/" + id

	// Auto-scheduling before leaves are saved.
	expectStatus(t, s.do(t, http.MethodPost, base+"/auto-schedule", nil), http.StatusConflict)

	expectStatus(t, s.do(t, http.MethodPost, base+"/cells/advance", gin.H{"member": "Bob", "date": "June 3rd"}), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPost, base+"/cells/advance", gin.H{"member": "Mallory", "date": "2025-06-03"}), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPost, base+"/cells/advance", gin.H{"member": "Bob", "date": "2025-07-01"}), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPost, base+"/requirements/adjust", gin.H{"member": "Bob", "shift_type": "D", "delta": 1}), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodGet, base+"/events?limit=many", nil), http.StatusBadRequest)

	// Upload before subtypes.
	expectStatus(t, s.do(t, http.MethodPost, base+"/upload", nil), http.StatusConflict)
}

func TestAutoSchedule_RemoteFailure(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	base := "/api/sessions/" + id
	s.remote.scheduleErr = roster.Remote("auto-schedule", "solver infeasible", nil)

	expectStatus(t, s.do(t, http.MethodPost, base+"/leaves/save", nil), http.StatusOK)
	w := s.do(t, http.MethodPost, base+"/auto-schedule", nil)
	expectStatus(t, w, http.StatusBadGateway)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	if resp.Message != "solver infeasible" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestRequirements(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	base := "/api/sessions/" + id

	w := s.do(t, http.MethodPost, base+"/requirements/adjust", gin.H{"member": "Alice", "shift_type": "A", "delta": 40})
	expectStatus(t, w, http.StatusOK)
	var adj struct {
		Value int `json:"value"`
	}
	decode(t, w, &adj)
	if adj.Value != 30 {
		t.Errorf("value = %d, want 30", adj.Value)
	}

	w = s.do(t, http.MethodPost, base+"/requirements/save", nil)
	expectStatus(t, w, http.StatusOK)
	var saved struct {
		Saved int `json:"saved"`
	}
	decode(t, w, &saved)
	if saved.Saved != 1 {
		t.Errorf("saved = %d, want 1", saved.Saved)
	}
}

func TestClearLeaves(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	base := "/api/sessions/" + id
	s.do(t, http.MethodPost, base+"/cells/advance", gin.H{"member": "Alice", "date": "2025-06-02"})
	expectStatus(t, s.do(t, http.MethodPost, base+"/leaves/save", nil), http.StatusOK)

	w := s.do(t, http.MethodDelete, base+"/leaves", nil)
	expectStatus(t, w, http.StatusOK)
	var resp struct {
		Deleted int `json:"deleted"`
	}
	decode(t, w, &resp)
	if resp.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", resp.Deleted)
	}
}

func TestComment(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t)
	base := "/api/sessions/" + id

	expectStatus(t, s.do(t, http.MethodPut, base+"/comment", gin.H{"comment": "short staffed in June"}), http.StatusOK)
	w := s.do(t, http.MethodGet, base+"/comment", nil)
	expectStatus(t, w, http.StatusOK)
	var resp struct {
		Comment string `json:"comment"`
	}
	decode(t, w, &resp)
	if resp.Comment != "short staffed in June" {
		t.Errorf("comment = %q", resp.Comment)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	s := newTestServer(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.reg.now = func() time.Time { return now }
	id := s.open(t)

	now = now.Add(10 * time.Minute)
	if got := s.reg.sweep(30 * time.Minute); len(got) != 0 {
		t.Errorf("evicted %v after 10m", got)
	}
	// Use refreshes the idle clock.
	expectStatus(t, s.do(t, http.MethodGet, "/api/sessions/"+id, nil), http.StatusOK)

	now = now.Add(31 * time.Minute)
	if got := s.reg.sweep(30 * time.Minute); len(got) != 1 || got[0] != id {
		t.Errorf("evicted %v, want [%s]", got, id)
	}
	if s.reg.len() != 0 {
		t.Errorf("registry still holds %d sessions", s.reg.len())
	}
	// The cycle can be opened again.
	if again := s.open(t); again == id {
		t.Error("reopen reused an evicted session id")
	}
}

func TestStartSweeper(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := startSweeper(ctx, s.reg, "61 * * * *", time.Minute); err == nil {
		t.Error("expected error for invalid minute")
	}
	c, err := startSweeper(ctx, s.reg, "*/5 * * * *", time.Minute)
	if err != nil {
		t.Fatalf("startSweeper: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(c.Entries()))
	}
}

func TestEventStream(t *testing.T) {
	streamPoll, streamHeartbeat = 10*time.Millisecond, time.Hour
	defer func() { streamPoll, streamHeartbeat = 3*time.Second, 15*time.Second }()

	s := newTestServer(t)
	id := s.open(t)
	sess, err := s.reg.get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/events/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if _, err := sess.SaveLeaves(context.Background()); err != nil {
		t.Fatalf("SaveLeaves: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	for _, want := range []string{"event: connected", "event: activity", `"action":"save-leaves"`, "event: stages"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("store: load catalog %q: %w", "ward-7", roster.Errorf(roster.ErrInvalidCatalog, "slot 3 has weekday 9")), http.StatusUnprocessableEntity},
		{roster.Errorf(roster.ErrNotFound, "member %q", "Zed"), http.StatusNotFound},
		{roster.Errorf(roster.ErrPreconditionViolation, "worked shifts are missing subtypes"), http.StatusConflict},
		{roster.Remote("verify", "malformed response", nil), http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
