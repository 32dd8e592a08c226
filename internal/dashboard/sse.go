package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/session"
)

// Stream polling intervals. Variables so tests can shorten them.
var (
	streamPoll      = 3 * time.Second
	streamHeartbeat = 15 * time.Second
)

// eventBody is one activity log entry as sent to clients.
type eventBody struct {
	ID      uint   `json:"id"`
	Stage   string `json:"stage"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
	At      string `json:"at"`
}

func toEventBody(e models.CycleEvent) eventBody {
	return eventBody{
		ID:      e.ID,
		Stage:   e.Stage,
		Action:  e.Action,
		Outcome: e.Outcome,
		Message: e.Message,
		At:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleEventStream pushes every activity entry recorded after the stream
// opened, plus the stage list, as server-sent events.
func handleEventStream(c *gin.Context, s *session.Session) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()

	// Only entries newer than the stream are sent.
	var lastSeenID uint
	if latest, err := s.Events(ctx, 1); err == nil && len(latest) == 1 {
		lastSeenID = latest[0].ID
	}

	writeSSE(c.Writer, "connected", map[string]any{"cycle_id": s.CycleID()})
	c.Writer.Flush()

	ticker := time.NewTicker(streamPoll)
	heartbeat := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case <-ticker.C:
			events, err := s.EventsSince(ctx, lastSeenID)
			if err != nil || len(events) == 0 {
				continue
			}
			lastSeenID = events[len(events)-1].ID
			for _, e := range events {
				writeSSE(c.Writer, "activity", toEventBody(e))
			}
			writeSSE(c.Writer, "stages", s.Stages())
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
