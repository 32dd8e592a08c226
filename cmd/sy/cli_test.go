package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// optimizer fakes the scheduler and verifier endpoints.
func optimizer(t *testing.T, staffingPassed bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/schedule", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"schedule": map[string][]string{
				"Alice": {"A", "B"},
				"Bob":   {"A", "O"},
			},
			"dates": []string{"2025-06-02", "2025-06-03"},
		})
	})
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		details := []string{}
		if !staffingPassed {
			details = []string{"2025-06-03: night shift unstaffed"}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"daily_staffing_passed":    staffingPassed,
			"daily_staffing_details":   details,
			"continuous_work_passed":   true,
			"continuous_work_details":  []string{},
			"shift_connection_passed":  true,
			"shift_connection_details": []string{},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// workspace writes a sqlite config, a catalog and a members file into a
// temp dir and returns the config path.
func workspace(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "shiftyard.yaml")
	writeTestFile(t, cfgPath, fmt.Sprintf(`database:
  driver: sqlite
  path: %s
remote:
  scheduler_url: %s/schedule
  verifier_url: %s/verify
subtype:
  seed: 7
log:
  level: error
`, filepath.Join(dir, "shiftyard.db"), srv.URL, srv.URL))
	writeTestFile(t, filepath.Join(dir, "catalog.yaml"), `group: ward-7
shift_types:
  - {name: Desk, subname: "1", group: day, weekdays: [0, 1, 2, 3, 4, 5, 6]}
  - {name: Ward, subname: "A", group: evening, weekdays: [0, 1, 2, 3, 4, 5, 6]}
  - {name: ICU, group: night, weekdays: [0, 1, 2, 3, 4, 5, 6]}
`)
	writeTestFile(t, filepath.Join(dir, "members.yaml"), `members:
  - {employee_id: 11, name: Alice, required: {A: 1, B: 1}}
  - {employee_id: 12, name: Bob, required: {A: 1}}
`)
	return cfgPath
}

// sy runs one command line against cfgPath.
func sy(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", cfgPath))
	err := cmd.Execute()
	return buf.String(), err
}

func mustSy(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := sy(t, cfgPath, "", args...)
	if err != nil {
		t.Fatalf("sy %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// draftCycle initializes the database and creates cycle 1 with Bob on a
// high-priority leave on the second day.
func draftCycle(t *testing.T, cfgPath string) {
	t.Helper()
	dir := filepath.Dir(cfgPath)
	mustSy(t, cfgPath, "db", "init")
	mustSy(t, cfgPath, "catalog", "import", filepath.Join(dir, "catalog.yaml"))
	mustSy(t, cfgPath, "cycle", "create", "--start", "2025-06-02", "--end", "2025-06-03",
		"--group", "ward-7", "--members", filepath.Join(dir, "members.yaml"))
	mustSy(t, cfgPath, "leave", "set", "1", "Bob", "2025-06-03", "--type", "high")
}

func TestEndToEnd_Publish(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	out := mustSy(t, cfgPath, "catalog", "show", "ward-7")
	if !strings.Contains(out, "Desk-1") || !strings.Contains(out, "Mon") {
		t.Errorf("catalog show = %s", out)
	}

	out = mustSy(t, cfgPath, "leave", "list", "1")
	if !strings.Contains(out, "Bob") || !strings.Contains(out, "leave-high") {
		t.Errorf("leave list = %s", out)
	}

	out = mustSy(t, cfgPath, "publish", "1")
	for _, want := range []string{"Saved 1 leaves", "Schedule applied", "PASS  daily staffing", "Assigned 3 subtypes", "Uploaded 4 shifts"} {
		if !strings.Contains(out, want) {
			t.Errorf("publish output missing %q:\n%s", want, out)
		}
	}

	out = mustSy(t, cfgPath, "cycle", "list", "--status", "finished")
	if !strings.Contains(out, "2025-06-02") || !strings.Contains(out, "finished") {
		t.Errorf("cycle list = %s", out)
	}

	out = mustSy(t, cfgPath, "cycle", "events", "1")
	for _, action := range []string{"save-leaves", "auto-schedule", "verify", "assign-subtypes", "upload"} {
		if !strings.Contains(out, action) {
			t.Errorf("events missing %q:\n%s", action, out)
		}
	}

	// A finished cycle cannot be reopened for editing.
	if _, err := sy(t, cfgPath, "", "publish", "1"); err == nil {
		t.Error("second publish succeeded, want error")
	}
}

func TestPublish_DryRunKeepsDraft(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	out := mustSy(t, cfgPath, "publish", "1", "--dry-run")
	if !strings.Contains(out, "EMPLOYEE") || !strings.Contains(out, "Alice") {
		t.Errorf("dry run output = %s", out)
	}
	if strings.Contains(out, "Uploaded") {
		t.Errorf("dry run uploaded:\n%s", out)
	}

	out = mustSy(t, cfgPath, "cycle", "list", "--status", "draft")
	if !strings.Contains(out, "draft") {
		t.Errorf("cycle list = %s", out)
	}
}

func TestPublish_FailedVerification(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, false))
	draftCycle(t, cfgPath)

	out, err := sy(t, cfgPath, "", "publish", "1")
	if err == nil || !strings.Contains(err.Error(), "failed verification") {
		t.Fatalf("err = %v, want failed verification", err)
	}
	if !strings.Contains(out, "FAIL  daily staffing") || !strings.Contains(out, "night shift unstaffed") {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "Assigned") {
		t.Errorf("subtypes assigned after failed verification:\n%s", out)
	}
}

func TestCycleShowAndComment(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	mustSy(t, cfgPath, "cycle", "comment", "1", "Bob swaps with Carol on Friday")
	out := mustSy(t, cfgPath, "cycle", "comment", "1")
	if strings.TrimSpace(out) != "Bob swaps with Carol on Friday" {
		t.Errorf("comment = %q", out)
	}

	out = mustSy(t, cfgPath, "cycle", "show", "1")
	for _, want := range []string{"Cycle 1: 2025-06-02 to 2025-06-03", "Shift group: ward-7", "Alice", "Leaves (1)", "Bob swaps"} {
		if !strings.Contains(out, want) {
			t.Errorf("cycle show missing %q:\n%s", want, out)
		}
	}

	if _, err := sy(t, cfgPath, "", "cycle", "show", "9"); err == nil {
		t.Error("show of unknown cycle succeeded")
	}
}

func TestLeaveSet_None(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	out := mustSy(t, cfgPath, "leave", "set", "1", "Bob", "2025-06-03", "--type", "none")
	if !strings.Contains(out, "0 leaves saved") {
		t.Errorf("leave set none = %s", out)
	}
	out = mustSy(t, cfgPath, "leave", "list", "1")
	if !strings.Contains(out, "No leaves saved.") {
		t.Errorf("leave list = %s", out)
	}
}

func TestLeaveSet_Errors(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown type", []string{"leave", "set", "1", "Bob", "2025-06-03", "--type", "sick"}, "unknown leave type"},
		{"bad date", []string{"leave", "set", "1", "Bob", "03/06/2025"}, "parse date"},
		{"unknown member", []string{"leave", "set", "1", "Dave", "2025-06-03"}, "Dave"},
		{"unknown cycle", []string{"leave", "set", "7", "Bob", "2025-06-03"}, "cycle 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sy(t, cfgPath, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want to contain %q", err, tt.want)
			}
		})
	}
}

func TestLeaveClear(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	out, err := sy(t, cfgPath, "no\n", "leave", "clear", "1")
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("declined clear: out=%s err=%v", out, err)
	}

	out = mustSy(t, cfgPath, "leave", "clear", "1", "--yes")
	if !strings.Contains(out, "Deleted 1 leaves") {
		t.Errorf("clear = %s", out)
	}
}

func TestDBReset(t *testing.T) {
	cfgPath := workspace(t, optimizer(t, true))
	draftCycle(t, cfgPath)

	out, err := sy(t, cfgPath, "nope\n", "db", "reset")
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("declined reset: out=%s err=%v", out, err)
	}

	out, err = sy(t, cfgPath, "yes\n", "db", "reset")
	if err != nil {
		t.Fatalf("reset: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Migrated") {
		t.Errorf("reset output = %s", out)
	}
	out = mustSy(t, cfgPath, "cycle", "list")
	if !strings.Contains(out, "No cycles found.") {
		t.Errorf("cycles survived reset: %s", out)
	}
}

func TestLoadMembers(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "members: []\n", "no members"},
		{"bad letter", "members:\n  - {name: Alice, required: {D: 2}}\n", "unknown shift type"},
		{"malformed", "members: [\n", "parse members"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			writeTestFile(t, path, tt.content)
			_, err := loadMembers(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want to contain %q", err, tt.want)
			}
		})
	}

	if _, err := loadMembers(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
}
