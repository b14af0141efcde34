// Package progress shows how far a batch of repositories has got.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// Outcome summarizes what happened to one repository.
type Outcome string

const (
	OK      Outcome = "ok"
	Warning Outcome = "warning"
	Failed  Outcome = "failed"
)

// Step is the result of processing one repository.
type Step struct {
	Repo    string
	Outcome Outcome
}

func (s Step) String() string {
	if s.Outcome == "" {
		return s.Repo
	}
	return fmt.Sprintf("%s: %s", s.Repo, s.Outcome)
}

// Reporter provides progress feedback while a batch of repositories is processed.
type Reporter interface {
	Start(total int)
	Update(current int, step Step)
	Finish()
}

// NewReporter returns a CIReporter if the CI environment variable is set,
// or a TerminalReporter otherwise. Both write to w.
func NewReporter(w io.Writer, description string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Out: w, Description: description}
	}
	return &TerminalReporter{Out: w, Description: description}
}

// tally counts outcomes in the order they first occur.
type tally struct {
	order  []Outcome
	counts map[Outcome]int
}

func (t *tally) add(o Outcome) {
	if o == "" {
		return
	}
	if t.counts == nil {
		t.counts = make(map[Outcome]int)
	}
	if t.counts[o] == 0 {
		t.order = append(t.order, o)
	}
	t.counts[o]++
}

func (t *tally) String() string {
	parts := make([]string, 0, len(t.order))
	for _, o := range t.order {
		parts = append(parts, fmt.Sprintf("%d %s", t.counts[o], o))
	}
	return strings.Join(parts, ", ")
}

// TerminalReporter displays a progress bar in the terminal, described by the
// last repository processed.
type TerminalReporter struct {
	Out         io.Writer
	Description string

	bar   *progressbar.ProgressBar
	tally tally
}

func (r *TerminalReporter) Start(total int) {
	r.tally = tally{}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.Out),
		progressbar.OptionSetDescription(r.Description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, step Step) {
	r.tally.add(step.Outcome)
	if r.bar != nil {
		r.bar.Describe(step.String())
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	if s := r.tally.String(); s != "" {
		fmt.Fprintf(r.Out, "%s: %s\n", r.Description, s)
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	Out         io.Writer
	Description string

	total int
	tally tally
}

func (r *CIReporter) Start(total int) {
	r.total = total
	r.tally = tally{}
	fmt.Fprintf(r.Out, "%s: %d repositories\n", r.Description, total)
}

func (r *CIReporter) Update(current int, step Step) {
	r.tally.add(step.Outcome)
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, step)
}

func (r *CIReporter) Finish() {
	if s := r.tally.String(); s != "" {
		fmt.Fprintf(r.Out, "%s: done (%s)\n", r.Description, s)
		return
	}
	fmt.Fprintf(r.Out, "%s: done\n", r.Description)
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int)        {}
func (Nop) Update(int, Step) {}
func (Nop) Finish()          {}
