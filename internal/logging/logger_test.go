package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// entries decodes one JSON object per line.
func entries(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func messages(es []map[string]any) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i], _ = e["msg"].(string)
	}
	return out
}

func TestLogger_LevelThreshold(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"dequeued", "session started", "pool pressure", "suite panicked"}},
		{"INFO", []string{"session started", "pool pressure", "suite panicked"}},
		{"warn", []string{"pool pressure", "suite panicked"}},
		{"error", []string{"suite panicked"}},
		{"verbose", []string{"session started", "pool pressure", "suite panicked"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLoggerWithWriter(&buf, tt.level, FormatJSON)
			l.Debug("dequeued")
			l.Info("session started")
			l.Warn("pool pressure")
			l.Error("suite panicked")

			got := messages(entries(t, buf.Bytes()))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("messages = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger_SessionContextChain(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithWriter(&buf, LevelDebug, FormatJSON)
	orch := root.WithComponent("orchestrator")
	suite := orch.WithSession("sess-1").WithPhase("phase-0-1").WithSuite("api")

	suite.Info("suite finished", "status", "passed", "tests", 3)
	orch.Info("dispatcher idle")

	es := entries(t, buf.Bytes())
	if len(es) != 2 {
		t.Fatalf("got %d entries, want 2", len(es))
	}

	want := map[string]any{
		"component":  "orchestrator",
		"session_id": "sess-1",
		"phase":      "phase-0-1",
		"suite_id":   "api",
		"status":     "passed",
		"tests":      float64(3),
	}
	for k, v := range want {
		if es[0][k] != v {
			t.Errorf("suite entry %s = %v, want %v", k, es[0][k], v)
		}
	}

	// Children do not leak attributes into their parent.
	for _, k := range []string{"session_id", "phase", "suite_id"} {
		if _, ok := es[1][k]; ok {
			t.Errorf("parent entry has %s", k)
		}
	}
	if es[1]["component"] != "orchestrator" {
		t.Errorf("parent component = %v, want orchestrator", es[1]["component"])
	}
}

func TestLogger_WithNoArgsReturnsReceiver(t *testing.T) {
	l := NopLogger()
	if l.With() != l {
		t.Error("With() should return the receiver when given no attributes")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, LevelInfo, "TEXT").WithComponent("queue")
	l.Info("item requeued", "retry", 2)

	out := buf.String()
	for _, want := range []string{"component=queue", "retry=2", `msg="item requeued"`} {
		if !strings.Contains(out, want) {
			t.Errorf("text output %q missing %q", out, want)
		}
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Error("text format produced JSON")
	}
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, LevelInfo, FormatJSON).WithSession("sess-9")
	l.Slog().Info("from slog")

	es := entries(t, buf.Bytes())
	if len(es) != 1 || es[0]["session_id"] != "sess-9" {
		t.Errorf("entries = %v, want one entry carrying session_id", es)
	}
}

func TestNewLogger_WritesUnderNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nightly")

	l, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	l.WithComponent("pool").Warn("pressure", "dimension", "memory_mb")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	es := entries(t, data)
	if len(es) != 1 || es[0]["dimension"] != "memory_mb" || es[0]["level"] != LevelWarn {
		t.Errorf("entries = %v", es)
	}
}

func TestNewLogger_DirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogger(file, LevelInfo); err == nil {
		t.Error("NewLogger() should fail when dir is a regular file")
	}
}

func TestNewLogger_EmptyDirOwnsNoFile(t *testing.T) {
	l, err := NewLogger("", LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if l.closer != nil {
		t.Error("stderr logger should not own a file")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestLogger_ChildCloseReleasesFile(t *testing.T) {
	dir := t.TempDir()
	root, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	child := root.WithSession("sess-2")
	child.Info("session finished")

	if err := child.Close(); err != nil {
		t.Fatalf("child Close() error = %v", err)
	}
	if err := root.Close(); err != nil {
		t.Errorf("root Close() after child error = %v, want nil", err)
	}
	if root.closer.file != nil {
		t.Error("file still open after child Close")
	}
}

func TestLogger_ConcurrentSessions(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	const sessions, perSession = 6, 40
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sl := l.WithSession(id)
			for n := range perSession {
				sl.Info("progress", "completed", n)
			}
		}(fmt.Sprintf("sess-%d", i))
	}
	wg.Wait()
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	counts := map[any]int{}
	for _, e := range entries(t, data) {
		counts[e["session_id"]]++
	}
	if len(counts) != sessions {
		t.Errorf("distinct sessions = %d, want %d", len(counts), sessions)
	}
	for id, n := range counts {
		if n != perSession {
			t.Errorf("%v logged %d lines, want %d", id, n, perSession)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"debug", LevelDebug},
		{"Warn", LevelWarn},
		{"ERROR", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, lvl := range ValidLevels() {
		if got := ParseLevel(strings.ToLower(lvl)); got != lvl {
			t.Errorf("ParseLevel(%q) = %q, want %q", strings.ToLower(lvl), got, lvl)
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger().WithComponent("runner").WithSuite("api")
	l.Error("discarded")
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
