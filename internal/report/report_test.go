package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

func init() {
	color.NoColor = true
}

func TestReporterSeverities(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, logr.Discard())

	r.Inform("publishing URL")
	r.Warn("submission not found", errors.New("no match"))
	r.Fault("comment failed", errors.New("403 forbidden"))
	r.Warn("no cause", nil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"Info: publishing URL",
		"Warning: submission not found: no match",
		"Error: comment failed: 403 forbidden",
		"Warning: no cause",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	if r.Count(SeverityInfo) != 1 || r.Count(SeverityWarning) != 2 || r.Count(SeverityFault) != 1 {
		t.Errorf("unexpected counts: info=%d warning=%d fault=%d",
			r.Count(SeverityInfo), r.Count(SeverityWarning), r.Count(SeverityFault))
	}
}

func TestNewLoggerVerbosity(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, 0)
	log.V(1).Info("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("V(1) message should be filtered at verbosity 0")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message in output")
	}

	buf.Reset()
	log = NewLogger(&buf, 1)
	log.V(1).Info("debug detail")
	if !strings.Contains(buf.String(), "debug detail") {
		t.Error("V(1) message should be shown at verbosity 1")
	}
}

func TestZeroLoggerDiscards(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, logr.Logger{})
	r.Fault("boom", errors.New("x"))
	if !strings.Contains(out.String(), "boom") {
		t.Error("expected operator message even with a zero logger")
	}
}

func TestVerboseLoggerDoesNotRepeatMessages(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, NewLogger(&out, 1))

	r.Inform("publishing URL")
	r.Warn("submission not found", errors.New("no match"))
	r.Fault("comment failed", errors.New("403 forbidden"))

	for _, msg := range []string{"publishing URL", "submission not found", "comment failed"} {
		if n := strings.Count(out.String(), msg); n != 1 {
			t.Errorf("%q printed %d times:\n%s", msg, n, out.String())
		}
	}
}

func TestTraceLoggerMirrorsMessages(t *testing.T) {
	var out, trace bytes.Buffer
	r := New(&out, NewLogger(&trace, TraceLevel))

	r.Fault("comment failed", errors.New("403 forbidden"))

	if !strings.Contains(trace.String(), "comment failed") || !strings.Contains(trace.String(), "severity=fault") {
		t.Errorf("trace log = %q", trace.String())
	}
}
