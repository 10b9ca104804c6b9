package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/4nozen/NymNodeInstall/internal/history"
	"github.com/4nozen/NymNodeInstall/internal/types"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func sampleResult() *update.Result {
	active := true
	return &update.Result{
		State:            types.StateDone,
		Trail:            []types.State{types.StateCompared, types.StateUpdateAvailable, types.StateDone},
		BinaryPath:       "/usr/local/bin/nym-node",
		InstalledVersion: "2025-01-15T10:30:00Z",
		LatestVersion:    "2025-01-20T14:45:00Z",
		ReleaseTag:       "nym-binaries-v2025.2",
		ReleaseNotes:     "# Notes",
		BackupPath:       "/usr/local/bin/nym-node.backup",
		Changed:          true,
		Restarted:        true,
		ServiceActive:    &active,
	}
}

func TestWriteResultText(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, FormatText).Write(ResultReport{sampleResult()}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"State:",
		"done",
		"/usr/local/bin/nym-node.backup",
		"2025-01-20T14:45:00Z (nym-binaries-v2025.2)",
		"restarted",
		"Service active:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Process running") {
		t.Errorf("text output should omit unknown process state:\n%s", out)
	}
}

func TestWriteResultRestartFailure(t *testing.T) {
	res := sampleResult()
	res.Restarted = false
	res.RestartError = "exit status 5"

	out := ResultReport{res}.String()
	if !strings.Contains(out, "failed: exit status 5") {
		t.Errorf("String() = %q", out)
	}
}

func TestWriteResultJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, FormatJSON).Write(ResultReport{sampleResult()}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["state"] != "done" {
		t.Errorf("state = %v, want done", got["state"])
	}
	if _, ok := got["ReleaseNotes"]; ok {
		t.Error("release notes must not be serialized")
	}
	if _, ok := got["process_running"]; ok {
		t.Error("nil process_running should be omitted")
	}
	if !strings.Contains(buf.String(), "\n  \"state\"") {
		t.Errorf("JSON output should be indented:\n%s", buf.String())
	}
}

func TestWriteResultYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, FormatYAML).Write(ResultReport{sampleResult()}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got["binary_path"] != "/usr/local/bin/nym-node" {
		t.Errorf("binary_path = %v", got["binary_path"])
	}
	if got["changed"] != true {
		t.Errorf("changed = %v, want true", got["changed"])
	}
}

func TestReleaseTable(t *testing.T) {
	if got := (ReleaseTable{}).String(); got != "No stable releases found." {
		t.Errorf("empty table = %q", got)
	}

	table := ReleaseTable{
		{Tag: "nym-binaries-v2025.2", AssetName: "nym-node", PublishedAt: time.Date(2025, 1, 20, 14, 45, 0, 0, time.UTC)},
		{Tag: "nym-binaries-v2025.1", AssetName: "nym-node"},
	}
	out := table.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "TAG") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2025-01-20 14:45:00") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.Contains(lines[2], " - ") {
		t.Errorf("missing publish date should render as '-': %q", lines[2])
	}
}

func TestHistoryTable(t *testing.T) {
	if got := (HistoryTable{}).String(); got != "No updates recorded." {
		t.Errorf("empty table = %q", got)
	}

	out := HistoryTable{{
		ID:          "2025-03-04-100000",
		AppliedAt:   time.Now(),
		FromVersion: "2025-01-15T10:30:00Z",
		ToVersion:   "2025-01-20T14:45:00Z",
		Restarted:   true,
	}}.String()

	if !strings.Contains(out, "2025-03-04-100000") || !strings.Contains(out, "yes") {
		t.Errorf("String() = %q", out)
	}
}

func TestRollbackReport(t *testing.T) {
	done := RollbackReport{&update.RollbackResult{
		BinaryPath: "/usr/local/bin/nym-node",
		BackupPath: "/usr/local/bin/nym-node.backup",
		Version:    "2025-01-15T10:30:00Z",
	}}
	if !strings.Contains(done.String(), "Restored /usr/local/bin/nym-node") {
		t.Errorf("String() = %q", done.String())
	}

	declined := RollbackReport{&update.RollbackResult{BinaryPath: "/x", Declined: true}}
	if !strings.Contains(declined.String(), "declined") {
		t.Errorf("String() = %q", declined.String())
	}
}

func TestPruneReportJSON(t *testing.T) {
	var buf bytes.Buffer
	report := PruneReport{&history.PruneResult{Deleted: []history.Record{{ID: "a"}}, Kept: 2}}
	if err := NewWriter(&buf, FormatJSON).Write(report); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"kept": 2`) {
		t.Errorf("JSON = %s", buf.String())
	}
	if report.String() != "Deleted 1 history entries, kept 2." {
		t.Errorf("String() = %q", report.String())
	}
}
