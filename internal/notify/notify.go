// Package notify announces published rosters on chat platforms.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/logging"
)

// colorPublished is the sidebar color of a publication notice.
const colorPublished = "#36a64f"

// Notice describes one uploaded cycle.
type Notice struct {
	CycleID    uint
	Start      time.Time
	End        time.Time
	ShiftGroup string
	Members    int
	Rows       int
}

// Title is the headline of the notice.
func (n Notice) Title() string {
	return fmt.Sprintf("Roster %s to %s published", n.Start.Format(time.DateOnly), n.End.Format(time.DateOnly))
}

// Field is a key-value pair shown with the notice.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Fields lists the notice details in display order.
func (n Notice) Fields() []Field {
	group := n.ShiftGroup
	if group == "" {
		group = "-"
	}
	return []Field{
		{Name: "Cycle", Value: fmt.Sprintf("%d", n.CycleID), Short: true},
		{Name: "Shift group", Value: group, Short: true},
		{Name: "Members", Value: fmt.Sprintf("%d", n.Members), Short: true},
		{Name: "Shifts", Value: fmt.Sprintf("%d", n.Rows), Short: true},
	}
}

// Notifier delivers a notice to one platform.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notice) error
}

// Fanout sends every notice to all its notifiers.
type Fanout struct {
	notifiers []Notifier
	log       *zap.Logger
}

// New returns a Fanout over notifiers.
func New(log *zap.Logger, notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers, log: logging.OrNop(log)}
}

// FromConfig builds a Fanout with a notifier for each configured target.
func FromConfig(cfg config.NotifyConfig, log *zap.Logger) (*Fanout, error) {
	var ns []Notifier
	if cfg.SlackWebhook != "" {
		ns = append(ns, NewSlack(cfg.SlackWebhook))
	}
	if cfg.DiscordWebhookID != "" {
		d, err := NewDiscord(cfg.DiscordWebhookID, cfg.DiscordWebhookToken)
		if err != nil {
			return nil, err
		}
		ns = append(ns, d)
	}
	return New(log, ns...), nil
}

// Len returns the number of notifiers.
func (f *Fanout) Len() int { return len(f.notifiers) }

// Notify sends n to every notifier and joins their errors. One failing
// platform does not stop the others.
func (f *Fanout) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, nt := range f.notifiers {
		if err := nt.Notify(ctx, n); err != nil {
			f.log.Warn("publication notice failed", zap.String("notifier", nt.Name()), zap.Uint("cycle", n.CycleID), zap.Error(err))
			errs = append(errs, fmt.Errorf("notify: %s: %w", nt.Name(), err))
			continue
		}
		f.log.Info("publication notice sent", zap.String("notifier", nt.Name()), zap.Uint("cycle", n.CycleID))
	}
	return errors.Join(errs...)
}
