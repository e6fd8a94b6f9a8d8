package sched

import (
	"bytes"
	"strings"
	"testing"
)

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	l := NewNoOpLogger()
	if l.IsEnabled(LevelError) {
		t.Fatal("NoOpLogger must report every level as disabled")
	}
	l.Log(Event{Level: LevelError, Message: "should be discarded"})
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)

	l.Log(Event{Level: LevelDebug, Category: "switch", Message: "filtered out"})
	if buf.Len() != 0 {
		t.Fatalf("debug entry should have been filtered, got %q", buf.String())
	}

	l.Log(Event{Level: LevelError, Category: "guard", Task: 3, HasTask: true, Message: "corrupted"})
	out := buf.String()
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "task=3") || !strings.Contains(out, "corrupted") {
		t.Fatalf("unexpected log line: %q", out)
	}
}

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{LevelDebug: "DEBUG", LevelInfo: "INFO", LevelWarn: "WARN", LevelError: "ERROR"}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}
