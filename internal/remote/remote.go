// Package remote calls the external auto-scheduling optimizer and roster
// verifier over HTTP. Every failure is returned as a *roster.RemoteError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/roster"
	"github.com/zulandar/shiftyard/internal/workflow"
)

const (
	opAutoSchedule = "auto-schedule"
	opVerify       = "verify"

	statusSuccess = "success"

	// DefaultTimeout bounds one remote call; the optimizer can be slow.
	DefaultTimeout = 2 * time.Minute
)

// Client talks to the scheduler and verifier endpoints.
type Client struct {
	schedulerURL string
	verifierURL  string
	http         *http.Client
	validate     *validator.Validate
}

// New returns a Client. A zero timeout uses DefaultTimeout.
func New(schedulerURL, verifierURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		schedulerURL: schedulerURL,
		verifierURL:  verifierURL,
		http:         &http.Client{Timeout: timeout},
		validate:     validator.New(),
	}
}

type scheduleRequest struct {
	CycleID uint `json:"cycle_id"`
}

// scheduleResponse is the bare {schedule, dates} answer. The status envelope
// is optional; only an explicit failure status is an error.
type scheduleResponse struct {
	Status   string              `json:"status"`
	Message  string              `json:"message"`
	Schedule map[string][]string `json:"schedule" validate:"required"`
	Dates    []string            `json:"dates" validate:"required,dive,datetime=2006-01-02"`
}

// AutoSchedule asks the optimizer for a full assignment of cycleID.
func (c *Client) AutoSchedule(ctx context.Context, cycleID uint) (grid.Assignment, error) {
	var resp scheduleResponse
	if err := c.post(ctx, opAutoSchedule, c.schedulerURL, scheduleRequest{CycleID: cycleID}, &resp); err != nil {
		return grid.Assignment{}, err
	}
	return grid.Assignment{Schedule: resp.Schedule, Dates: resp.Dates}, nil
}

// CheckResult is the outcome of one verifier check.
type CheckResult struct {
	Passed  bool     `json:"passed"`
	Details []string `json:"details"`
}

// Report is the verifier's full answer.
type Report struct {
	DailyStaffing   CheckResult `json:"daily_staffing"`
	ContinuousWork  CheckResult `json:"continuous_work"`
	ShiftConnection CheckResult `json:"shift_connection"`
}

// Checks reduces the report to the three pass flags.
func (r Report) Checks() workflow.Checks {
	return workflow.Checks{
		DailyStaffing:   r.DailyStaffing.Passed,
		ContinuousWork:  r.ContinuousWork.Passed,
		ShiftConnection: r.ShiftConnection.Passed,
	}
}

// Passed reports whether every check passed.
func (r Report) Passed() bool { return r.Checks().Passed() }

type scheduleData struct {
	Schedule map[string][]string `json:"schedule"`
	Dates    []string            `json:"dates"`
}

type verifyRequest struct {
	CycleID      uint         `json:"cycle_id"`
	ScheduleData scheduleData `json:"schedule_data"`
}

// verifyResponse is the flat verifier answer: one pass flag and one list of
// detail lines per check.
type verifyResponse struct {
	Status                 string   `json:"status"`
	Message                string   `json:"message"`
	DailyStaffingPassed    *bool    `json:"daily_staffing_passed" validate:"required"`
	DailyStaffingDetails   []string `json:"daily_staffing_details"`
	ContinuousWorkPassed   *bool    `json:"continuous_work_passed" validate:"required"`
	ContinuousWorkDetails  []string `json:"continuous_work_details"`
	ShiftConnectionPassed  *bool    `json:"shift_connection_passed" validate:"required"`
	ShiftConnectionDetails []string `json:"shift_connection_details"`
}

func (r *verifyResponse) report() Report {
	return Report{
		DailyStaffing:   CheckResult{Passed: *r.DailyStaffingPassed, Details: r.DailyStaffingDetails},
		ContinuousWork:  CheckResult{Passed: *r.ContinuousWorkPassed, Details: r.ContinuousWorkDetails},
		ShiftConnection: CheckResult{Passed: *r.ShiftConnectionPassed, Details: r.ShiftConnectionDetails},
	}
}

// Verify submits the current letters of a cycle for verification. A report
// with failed checks is a normal answer, not an error.
func (c *Client) Verify(ctx context.Context, cycleID uint, letters map[string][]string, dates []string) (Report, error) {
	req := verifyRequest{CycleID: cycleID, ScheduleData: scheduleData{Schedule: letters, Dates: dates}}
	var resp verifyResponse
	if err := c.post(ctx, opVerify, c.verifierURL, req, &resp); err != nil {
		return Report{}, err
	}
	return resp.report(), nil
}

// envelope is what post needs from every response.
type envelope interface {
	status() (string, string)
}

func (r *scheduleResponse) status() (string, string) { return r.Status, r.Message }
func (r *verifyResponse) status() (string, string)   { return r.Status, r.Message }

func (c *Client) post(ctx context.Context, op, url string, body any, out envelope) error {
	if url == "" {
		return roster.Remote(op, "endpoint not configured", nil)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return roster.Remote(op, "", fmt.Errorf("marshal request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return roster.Remote(op, "", fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return roster.Remote(op, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return roster.Remote(op, "", fmt.Errorf("read response: %w", err))
	}
	// Failed runs still answer with a JSON envelope carrying the message.
	if err := json.Unmarshal(raw, out); err != nil {
		return roster.Remote(op, fmt.Sprintf("status %d", resp.StatusCode), fmt.Errorf("decode response: %w", err))
	}
	status, message := out.status()
	if resp.StatusCode != http.StatusOK || (status != "" && status != statusSuccess) {
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return roster.Remote(op, message, nil)
	}
	if err := c.validate.Struct(out); err != nil {
		return roster.Remote(op, "malformed response", err)
	}
	return nil
}
