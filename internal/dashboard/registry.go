package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/zulandar/shiftyard/internal/roster"
	"github.com/zulandar/shiftyard/internal/session"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type entry struct {
	sess     *session.Session
	lastUsed time.Time
}

// registry tracks open editing sessions by id. A cycle has at most one
// open session; opening it again returns the existing one.
type registry struct {
	deps session.Deps
	log  *zap.Logger
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	byCycle  map[uint]string
}

func newRegistry(deps session.Deps, log *zap.Logger) *registry {
	return &registry{
		deps:     deps,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
		byCycle:  make(map[uint]string),
	}
}

// open returns the session id for cycleID, loading the cycle if no session
// has it open.
func (r *registry) open(ctx context.Context, cycleID uint) (string, *session.Session, error) {
	r.mu.Lock()
	if id, ok := r.byCycle[cycleID]; ok {
		e := r.sessions[id]
		e.lastUsed = r.now()
		r.mu.Unlock()
		return id, e.sess, nil
	}
	r.mu.Unlock()

	sess, err := session.Open(ctx, r.deps, cycleID)
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have opened the cycle meanwhile.
	if id, ok := r.byCycle[cycleID]; ok {
		return id, r.sessions[id].sess, nil
	}
	id := uuid.NewString()
	r.sessions[id] = &entry{sess: sess, lastUsed: r.now()}
	r.byCycle[cycleID] = id
	r.log.Info("session registered", zap.String("session", id), zap.Uint("cycle", cycleID))
	return id, sess, nil
}

// get returns an open session and marks it used.
func (r *registry) get(id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, roster.Errorf(roster.ErrNotFound, "session %s", id)
	}
	e.lastUsed = r.now()
	return e.sess, nil
}

// close forgets a session. Unsaved edits are dropped.
func (r *registry) close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return roster.Errorf(roster.ErrNotFound, "session %s", id)
	}
	delete(r.sessions, id)
	delete(r.byCycle, e.sess.CycleID())
	return nil
}

// len returns the number of open sessions.
func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// sweep closes every session unused for longer than idle and returns their ids.
func (r *registry) sweep(idle time.Duration) []string {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []string
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			delete(r.byCycle, e.sess.CycleID())
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		r.log.Info("idle sessions evicted", zap.Strings("sessions", evicted))
	}
	return evicted
}

// startSweeper runs sweep on the cron schedule expr until ctx is done.
func startSweeper(ctx context.Context, r *registry, expr string, idle time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(expr, func() { r.sweep(idle) }); err != nil {
		return nil, err
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
