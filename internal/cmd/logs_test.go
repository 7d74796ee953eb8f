package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/logging"
	"github.com/Iron-Ham/svcdeck/internal/render"
)

// setLogFlags sets the logs command flags for one test and restores them.
func setLogFlags(t *testing.T, tail int, level, since, service, grep string) {
	t.Helper()
	oldTail, oldLevel, oldSince, oldService, oldGrep := logsTail, logsLevel, logsSince, logsService, logsGrep
	t.Cleanup(func() {
		logsTail, logsLevel, logsSince, logsService, logsGrep = oldTail, oldLevel, oldSince, oldService, oldGrep
	})
	logsTail, logsLevel, logsSince, logsService, logsGrep = tail, level, since, service, grep
}

func TestBuildLogQuery(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	setLogFlags(t, 10, "warn", "30m", "auth", "exit(ed)?")

	q, err := buildLogQuery(now)
	if err != nil {
		t.Fatalf("buildLogQuery() error = %v", err)
	}
	if q.filter.Level != logging.LevelWarn {
		t.Errorf("Level = %q, want %q", q.filter.Level, logging.LevelWarn)
	}
	if want := now.Add(-30 * time.Minute); !q.filter.Since.Equal(want) {
		t.Errorf("Since = %v, want %v", q.filter.Since, want)
	}
	if q.filter.Service != "auth" || q.tail != 10 || q.grep == nil {
		t.Errorf("query = %+v", q)
	}
}

func TestBuildLogQuery_Invalid(t *testing.T) {
	setLogFlags(t, 0, "", "soon", "", "")
	if _, err := buildLogQuery(time.Now()); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("bad --since error = %v", err)
	}

	setLogFlags(t, 0, "", "", "", "(")
	if _, err := buildLogQuery(time.Now()); err == nil || !strings.Contains(err.Error(), "invalid grep") {
		t.Errorf("bad --grep error = %v", err)
	}
}

func sampleEntries() []logging.LogEntry {
	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	return []logging.LogEntry{
		{Timestamp: base, Level: "INFO", Message: "session started", Component: "supervisor"},
		{Timestamp: base.Add(time.Second), Level: "INFO", Message: "service spawned", Service: "auth", Attrs: map[string]any{"pid": float64(42)}},
		{Timestamp: base.Add(2 * time.Second), Level: "WARN", Message: "service exited", Service: "auth", Attrs: map[string]any{"exit_code": float64(3)}},
		{Timestamp: base.Add(3 * time.Second), Level: "WARN", Message: "service exited", Service: "web", Attrs: map[string]any{"exit_code": float64(1)}},
	}
}

func TestLogQueryApply(t *testing.T) {
	setLogFlags(t, 0, "", "", "", "exit")
	q, err := buildLogQuery(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got := q.apply(sampleEntries()); len(got) != 2 {
		t.Errorf("grep exit kept %d entries, want 2", len(got))
	}

	// grep also sees attribute values
	setLogFlags(t, 0, "", "", "", " 42")
	q, _ = buildLogQuery(time.Now())
	if got := q.apply(sampleEntries()); len(got) != 1 || got[0].Message != "service spawned" {
		t.Errorf("attribute grep = %+v", got)
	}

	setLogFlags(t, 1, "warn", "", "", "")
	q, _ = buildLogQuery(time.Now())
	got := q.apply(sampleEntries())
	if len(got) != 1 || got[0].Service != "web" {
		t.Errorf("tail 1 of warnings = %+v", got)
	}
}

func TestDisplayLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), logging.LogFileName)
	lines := []string{
		`{"time":"2026-01-02T12:00:00Z","level":"INFO","msg":"session started","component":"supervisor"}`,
		`{"time":"2026-01-02T12:00:01Z","level":"WARN","msg":"service exited","service":"auth","exit_code":3}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	setLogFlags(t, 0, "", "", "auth", "")
	q, _ := buildLogQuery(time.Now())
	var buf bytes.Buffer
	if err := displayLogs(&buf, path, q, render.Plain()); err != nil {
		t.Fatalf("displayLogs() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[WARN] service exited") || !strings.Contains(out, "exit_code=3") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "session started") {
		t.Errorf("service filter not applied: %q", out)
	}

	setLogFlags(t, 0, "", "", "billing", "")
	q, _ = buildLogQuery(time.Now())
	buf.Reset()
	if err := displayLogs(&buf, path, q, render.Plain()); err != nil {
		t.Fatalf("displayLogs() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No matching log entries found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	want := []string{"run", "services", "resolve", "tree", "logs", "config"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
