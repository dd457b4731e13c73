package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(t *testing.T, format Format) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := NewLogger(&Config{Level: DebugLevel, Format: format, Writer: buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return l, buf
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"debug", *DebugConfig(), false},
		{"bad level", Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"bad output", Config{Level: InfoLevel, Format: TextFormat, Output: "syslog"}, true},
		{"file without path", Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}, true},
		{"writer overrides output", Config{Level: InfoLevel, Format: TextFormat, Writer: &bytes.Buffer{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig("WARNING", "json")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if config.Level != WarnLevel || config.Format != JSONFormat {
		t.Errorf("unexpected config %+v", config)
	}

	config, err = ParseConfig("", "")
	if err != nil {
		t.Fatalf("ParseConfig with empty values: %v", err)
	}
	if config.Level != InfoLevel || config.Format != TextFormat {
		t.Errorf("expected defaults, got %+v", config)
	}

	if _, err := ParseConfig("verbose", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestWithFieldsArePreserved(t *testing.T) {
	l, buf := newBufferLogger(t, JSONFormat)

	l.WithComponent("matcher").WithField("run_id", "abc").Info("matched")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != "matcher" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
	if entry["run_id"] != "abc" {
		t.Errorf("expected run_id field, got %v", entry["run_id"])
	}
	if entry["msg"] != "matched" {
		t.Errorf("expected msg 'matched', got %v", entry["msg"])
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := NewLogger(&Config{Level: WarnLevel, Format: TextFormat, Writer: buf})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message should be written")
	}
}

func TestProgressTracker(t *testing.T) {
	l, buf := newBufferLogger(t, TextFormat)

	tracker := NewProgressTracker(ProgressConfig{
		Operation:   "reconcile",
		Total:       4,
		LogInterval: time.Hour,
		Logger:      l,
	})
	clock := tracker.startTime
	tracker.now = func() time.Time { return clock }

	hook := tracker.Hook()
	hook(1, 4)
	if strings.Contains(buf.String(), "Progress update") {
		t.Error("progress should not be logged before the interval elapses")
	}

	clock = clock.Add(2 * time.Hour)
	hook(2, 4)
	if !strings.Contains(buf.String(), "Progress update") {
		t.Error("expected a progress update once the interval elapsed")
	}

	stats := tracker.GetStats()
	if stats.Current != 2 || stats.Percentage != 50 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if !strings.HasPrefix(stats.String(), "reconcile: 2/4 (50.0%)") {
		t.Errorf("unexpected stats string %q", stats.String())
	}

	tracker.Complete()
	if !strings.Contains(buf.String(), "Operation completed") {
		t.Error("expected completion log")
	}
}

func TestOperationLogger(t *testing.T) {
	l, buf := newBufferLogger(t, JSONFormat)

	ol := NewOperationLogger("reconcile", l).WithField("run_id", "r-1")
	ol.Step("normalize", Fields{"records": 3})
	ol.Error(errors.New("boom"), "reconcile failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %s", len(lines), buf.String())
	}

	var last map[string]interface{}
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if last["status"] != "error" || last["run_id"] != "r-1" || last["error"] != "boom" {
		t.Errorf("unexpected error entry %v", last)
	}
}
