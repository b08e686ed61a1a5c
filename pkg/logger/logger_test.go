package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// TestStandardLogger_Prefixes verifies that each level gets its prefix.
func TestStandardLogger_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewStandardLogger(log.New(&buf, "", 0))

	l.Info("hello %s", "world")
	l.Warning("watch out")
	l.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "[INFO] hello world") {
		t.Fatalf("missing info line, got %q", out)
	}
	if !strings.Contains(out, "[WARNING] watch out") {
		t.Fatalf("missing warning line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] boom") {
		t.Fatalf("missing error line, got %q", out)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// TestMultiLogger_Broadcast verifies fan-out to every backend.
func TestMultiLogger_Broadcast(t *testing.T) {
	a := NewMockLogger()
	b := NewMockLogger()
	m := NewMultiLogger(a, b)

	m.Info("one")
	m.Error("two")

	for _, mock := range []*MockLogger{a, b} {
		if len(mock.InfoCalls) != 1 || mock.InfoCalls[0] != "one" {
			t.Fatalf("expected info call 'one', got %v", mock.InfoCalls)
		}
		if len(mock.ErrorCalls) != 1 || mock.ErrorCalls[0] != "two" {
			t.Fatalf("expected error call 'two', got %v", mock.ErrorCalls)
		}
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.CloseCalled || !b.CloseCalled {
		t.Fatal("expected Close to propagate to all backends")
	}
}
