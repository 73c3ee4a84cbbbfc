package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")

		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		logger.Info("hello")
		if err := logger.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		content, err := os.ReadFile(filepath.Join(dir, FileName))
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		recs := decodeLines(t, content)
		if len(recs) != 1 || recs[0]["msg"] != "hello" {
			t.Errorf("records = %v, want one record with msg=hello", recs)
		}
	})

	t.Run("writes to stderr when dir is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.sink.file != nil {
			t.Error("expected no file when dir is empty")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() = %v, want nil", err)
		}
	})
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{LevelDebug, 4},
		{LevelInfo, 3},
		{LevelWarn, 2},
		{LevelError, 1},
		{"bogus", 3},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWriterLogger(&buf, tt.level)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			if got := len(decodeLines(t, buf.Bytes())); got != tt.want {
				t.Errorf("records = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLogger_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, LevelDebug)

	child := base.WithSession("session-1").WithPhase("running").WithRound(2).With("step", 3)
	child.Info("step applied")
	base.Info("untagged")

	recs := decodeLines(t, buf.Bytes())
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}

	got := recs[0]
	if got["session_id"] != "session-1" {
		t.Errorf("session_id = %v, want session-1", got["session_id"])
	}
	if got["phase"] != "running" {
		t.Errorf("phase = %v, want running", got["phase"])
	}
	if got["round"] != float64(2) {
		t.Errorf("round = %v, want 2", got["round"])
	}
	if got["step"] != float64(3) {
		t.Errorf("step = %v, want 3", got["step"])
	}

	if _, ok := recs[1]["session_id"]; ok {
		t.Error("parent logger should not inherit child attributes")
	}
}

func TestLogger_WithNoArgsReturnsSame(t *testing.T) {
	l := NopLogger()
	if l.With() != l {
		t.Error("With() with no args should return the receiver")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidLevels(t *testing.T) {
	levels := ValidLevels()
	if len(levels) != 4 {
		t.Fatalf("ValidLevels() returned %d levels, want 4", len(levels))
	}
	for _, l := range levels {
		if ParseLevel(l) != l {
			t.Errorf("ParseLevel(%q) should round-trip", l)
		}
	}
}
