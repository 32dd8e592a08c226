package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/roster"
)

func serve(t *testing.T, status int, body string, capture *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAutoSchedule_Success(t *testing.T) {
	var got map[string]any
	srv := serve(t, http.StatusOK, `{"status":"success","message":"ok",
		"schedule":{"Alice":["A","O","A"]},"dates":["2025-06-01","2025-06-02","2025-06-03"]}`, &got)

	a, err := New(srv.URL, "", time.Second).AutoSchedule(context.Background(), 7)
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	want := grid.Assignment{
		Schedule: map[string][]string{"Alice": {"A", "O", "A"}},
		Dates:    []string{"2025-06-01", "2025-06-02", "2025-06-03"},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
	if got["cycle_id"] != float64(7) {
		t.Errorf("request = %v, want cycle_id 7", got)
	}
}

func TestAutoSchedule_BareResult(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"schedule":{"Alice":["A","O","A"]},
		"dates":["2025-06-01","2025-06-02","2025-06-03"]}`, nil)

	a, err := New(srv.URL, "", time.Second).AutoSchedule(context.Background(), 7)
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if !cmp.Equal(a.Schedule["Alice"], []string{"A", "O", "A"}) || len(a.Dates) != 3 {
		t.Errorf("assignment = %+v", a)
	}
}

func TestAutoSchedule_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"upstream error message", http.StatusInternalServerError, `{"status":"error","message":"no feasible solution"}`, "no feasible solution"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "status 502"},
		{"error status with 200", http.StatusOK, `{"status":"error","message":"infeasible"}`, "infeasible"},
		{"missing schedule", http.StatusOK, `{"dates":["2025-06-01"]}`, "malformed response"},
		{"missing dates", http.StatusOK, `{"schedule":{"Alice":["A"]}}`, "malformed response"},
		{"bad date", http.StatusOK, `{"status":"success","schedule":{},"dates":["06/01/2025"]}`, "malformed response"},
		{"unknown status", http.StatusOK, `{"status":"maybe"}`, "status 200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body, nil)
			_, err := New(srv.URL, "", time.Second).AutoSchedule(context.Background(), 1)
			if !errors.Is(err, roster.ErrRemoteFailure) {
				t.Fatalf("err = %v, want ErrRemoteFailure", err)
			}
			var re *roster.RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("err %T is not *RemoteError", err)
			}
			if re.Op != opAutoSchedule || re.Message != tt.wantMsg {
				t.Errorf("RemoteError = {%s %q}, want {%s %q}", re.Op, re.Message, opAutoSchedule, tt.wantMsg)
			}
		})
	}
}

func TestAutoSchedule_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "", time.Second).AutoSchedule(context.Background(), 1)
	if !errors.Is(err, roster.ErrRemoteFailure) {
		t.Fatalf("err = %v, want ErrRemoteFailure", err)
	}
}

func TestAutoSchedule_NotConfigured(t *testing.T) {
	_, err := New("", "", 0).AutoSchedule(context.Background(), 1)
	if !errors.Is(err, roster.ErrRemoteFailure) || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("err = %v, want not configured RemoteFailure", err)
	}
}

func TestVerify_Report(t *testing.T) {
	var got map[string]any
	srv := serve(t, http.StatusOK, `{
		"daily_staffing_passed":true,"daily_staffing_details":[],
		"continuous_work_passed":false,"continuous_work_details":["Alice works 8 days in a row"],
		"shift_connection_passed":true,"shift_connection_details":[]}`, &got)

	letters := map[string][]string{"Alice": {"A", "", "C"}}
	dates := []string{"2025-06-01", "2025-06-02", "2025-06-03"}
	rep, err := New("", srv.URL, time.Second).Verify(context.Background(), 3, letters, dates)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rep.Passed() {
		t.Error("Passed() = true, want false")
	}
	checks := rep.Checks()
	if !checks.DailyStaffing || checks.ContinuousWork || !checks.ShiftConnection {
		t.Errorf("Checks() = %+v", checks)
	}
	if !cmp.Equal(rep.ContinuousWork.Details, []string{"Alice works 8 days in a row"}) {
		t.Errorf("details = %v", rep.ContinuousWork.Details)
	}

	data, ok := got["schedule_data"].(map[string]any)
	if !ok {
		t.Fatalf("request missing schedule_data: %v", got)
	}
	if _, ok := data["schedule"].(map[string]any)["Alice"]; !ok {
		t.Errorf("schedule_data.schedule = %v, want Alice row", data["schedule"])
	}
	if len(data["dates"].([]any)) != 3 {
		t.Errorf("schedule_data.dates = %v", data["dates"])
	}
}

func TestVerify_AllPassed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"flat", `{"daily_staffing_passed":true,"continuous_work_passed":true,"shift_connection_passed":true}`},
		{"with status", `{"status":"success","daily_staffing_passed":true,"daily_staffing_details":[],
			"continuous_work_passed":true,"continuous_work_details":[],
			"shift_connection_passed":true,"shift_connection_details":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body, nil)
			rep, err := New("", srv.URL, time.Second).Verify(context.Background(), 3, nil, nil)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if !rep.Passed() {
				t.Errorf("Passed() = false, report %+v", rep)
			}
		})
	}
}

func TestVerify_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty object", `{}`, "malformed response"},
		{"missing one flag", `{"daily_staffing_passed":true,"continuous_work_passed":true}`, "malformed response"},
		{"error status", `{"status":"error","message":"schedule_data missing"}`, "schedule_data missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body, nil)
			_, err := New("", srv.URL, time.Second).Verify(context.Background(), 3, nil, nil)
			var re *roster.RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want *RemoteError", err)
			}
			if re.Op != opVerify || re.Message != tt.wantMsg {
				t.Errorf("RemoteError = {%s %q}, want {%s %q}", re.Op, re.Message, opVerify, tt.wantMsg)
			}
		})
	}
}

func TestVerify_ContextCanceled(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"status":"success"}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("", srv.URL, time.Second).Verify(ctx, 3, nil, nil)
	if !errors.Is(err, roster.ErrRemoteFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want RemoteFailure wrapping context.Canceled", err)
	}
}
