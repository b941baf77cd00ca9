package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestSetLevelFilters(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(log.Writer())

	SetLevel(LevelWarn)

	Debug("should not appear")
	Info("should not appear either")
	Warn("warning message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("debug/info output leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] warning message") {
		t.Errorf("warn output missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("error output missing: %q", out)
	}
}

func TestIsDebugEnabled(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false at debug level")
	}

	SetLevel(LevelInfo)
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at info level")
	}
}
