// Package report emits operator-facing messages at three severities and
// mirrors them to a structured logger at trace verbosity.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

// Severity of an operator message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityFault   Severity = "fault"
)

// Reporter writes one line per message. It is safe for concurrent use.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	log    logr.Logger
	counts map[Severity]int
}

// TraceLevel is the logger verbosity at which operator messages are mirrored.
// Below it only out carries them.
const TraceLevel = 2

// New returns a Reporter writing to out. A zero logr.Logger discards.
func New(out io.Writer, log logr.Logger) *Reporter {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Reporter{
		out:    out,
		log:    log,
		counts: make(map[Severity]int),
	}
}

// Discard returns a Reporter that drops everything.
func Discard() *Reporter {
	return New(io.Discard, logr.Discard())
}

// Inform reports progress the operator should see.
func (r *Reporter) Inform(msg string) {
	r.emit(SeverityInfo, msg, nil)
	r.log.V(TraceLevel).Info(msg, "severity", SeverityInfo)
}

// Warn reports a problem that stops part of an operation but is expected to
// happen from time to time.
func (r *Reporter) Warn(msg string, err error) {
	r.emit(SeverityWarning, msg, err)
	r.log.V(TraceLevel).Info(msg, "severity", SeverityWarning, "error", errString(err))
}

// Fault reports a failure the operator has to act on.
func (r *Reporter) Fault(msg string, err error) {
	r.emit(SeverityFault, msg, err)
	r.log.V(TraceLevel).Info(msg, "severity", SeverityFault, "error", errString(err))
}

// Count returns how many messages of the given severity were emitted.
func (r *Reporter) Count(s Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[s]
}

func (r *Reporter) emit(s Severity, msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[s]++

	line := msg
	if err != nil {
		line = fmt.Sprintf("%s: %v", msg, err)
	}
	fmt.Fprintf(r.out, "%s %s\n", prefix(s), line)
}

func prefix(s Severity) string {
	switch s {
	case SeverityWarning:
		return color.YellowString("Warning:")
	case SeverityFault:
		return color.HiRedString("Error:")
	default:
		return color.CyanString("Info:")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
