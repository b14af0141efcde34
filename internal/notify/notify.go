// Package notify tells Canvas about repository events by walking an ordered
// plan of delivery attempts against a student's submission.
package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/repocanvas/internal/report"
)

// Submission is the part of a Canvas submission the notifier uses.
type Submission interface {
	AddComment(ctx context.Context, text string) error
	SubmitFile(ctx context.Context, path string) error
}

// Finder resolves the submission shared by a set of Canvas identities.
type Finder interface {
	FindSubmission(ctx context.Context, students []string) (Submission, error)
}

// EventKind is the repository event being announced.
type EventKind string

const (
	EventSetup EventKind = "setup"
	EventClone EventKind = "clone"
)

// Channel is how an attempt delivers its notification.
type Channel string

const (
	ChannelNone    Channel = "none"
	ChannelComment Channel = "comment"
	ChannelFile    Channel = "file"
)

// Status is the overall outcome of a notification.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFallback  Status = "fallback"
	StatusFailed    Status = "failed"
	StatusNotFound  Status = "not_found"
	StatusSkipped   Status = "skipped"
)

// Event describes one repository event for one team.
type Event struct {
	Kind     EventKind
	RepoURL  string
	Students []string
}

// Outcome is what happened to an event.
type Outcome struct {
	Event   Event
	Status  Status
	Channel Channel
	Detail  string
}

// Recorder stores outcomes, e.g. in the delivery history.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Attempt is one way of delivering a notification.
type Attempt struct {
	Name    string
	Channel Channel
	Deliver func(ctx context.Context, sub Submission) error
}

// Messages posted to Canvas.
const (
	SetupCommentFormat   = "Your project URL: %s"
	ArchiveCommentFormat = "Zipped cloned repository: %s"
)

// Notifier resolves submissions and runs delivery plans.
type Notifier struct {
	finder   Finder
	reporter *report.Reporter
	recorder Recorder
}

// New constructs a Notifier. A nil recorder disables recording.
func New(finder Finder, reporter *report.Reporter, recorder Recorder) *Notifier {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Notifier{finder: finder, reporter: reporter, recorder: recorder}
}

// SetupPlan posts the repository URL as a comment.
func SetupPlan(repoURL string) []Attempt {
	return []Attempt{{
		Name:    "post repository URL as a comment",
		Channel: ChannelComment,
		Deliver: func(ctx context.Context, sub Submission) error {
			return sub.AddComment(ctx, fmt.Sprintf(SetupCommentFormat, repoURL))
		},
	}}
}

// ClonePlan submits the archive as a file and falls back to a comment that
// references it. An empty archive path yields an empty plan.
func ClonePlan(archivePath string) []Attempt {
	if archivePath == "" {
		return nil
	}
	return []Attempt{
		{
			Name:    fmt.Sprintf("submit %s as a file", filepath.Base(archivePath)),
			Channel: ChannelFile,
			Deliver: func(ctx context.Context, sub Submission) error {
				return sub.SubmitFile(ctx, archivePath)
			},
		},
		{
			Name:    "post archive reference as a comment",
			Channel: ChannelComment,
			Deliver: func(ctx context.Context, sub Submission) error {
				return sub.AddComment(ctx, fmt.Sprintf(ArchiveCommentFormat, archivePath))
			},
		},
	}
}

// Setup announces a newly created repository.
func (n *Notifier) Setup(ctx context.Context, ev Event) (Outcome, error) {
	ev.Kind = EventSetup
	return n.Notify(ctx, ev, SetupPlan(ev.RepoURL))
}

// Clone hands in a cloned repository archive. With an empty archive path it
// does nothing and makes no API call.
func (n *Notifier) Clone(ctx context.Context, ev Event, archivePath string) (Outcome, error) {
	ev.Kind = EventClone
	return n.Notify(ctx, ev, ClonePlan(archivePath))
}

// Notify resolves the event's submission and walks plan until an attempt
// succeeds. Every attempt runs at most once. Each failure is reported
// exactly once: as a warning when another attempt follows, as a fault when
// the plan is exhausted. The returned error is nil on success, the lookup
// error when no submission was found, or a *DeliveryError.
func (n *Notifier) Notify(ctx context.Context, ev Event, plan []Attempt) (Outcome, error) {
	out := Outcome{Event: ev, Channel: ChannelNone}
	if len(plan) == 0 {
		out.Status = StatusSkipped
		n.record(ctx, out)
		return out, nil
	}

	students := strings.Join(ev.Students, ", ")
	sub, err := n.finder.FindSubmission(ctx, ev.Students)
	if err != nil {
		n.reporter.Warn(fmt.Sprintf("Unable to find submission related to repository '%s' for '%s'", ev.RepoURL, students), err)
		out.Status = StatusNotFound
		out.Detail = err.Error()
		n.record(ctx, out)
		return out, err
	}

	var failures []error
	for i, attempt := range plan {
		err := attempt.Deliver(ctx, sub)
		if err == nil {
			out.Channel = attempt.Channel
			out.Status = StatusDelivered
			if i > 0 {
				out.Status = StatusFallback
				out.Detail = joinErrors(failures)
			}
			n.record(ctx, out)
			return out, nil
		}
		failures = append(failures, err)

		if i < len(plan)-1 {
			n.reporter.Warn(fmt.Sprintf("Unable to %s for '%s', falling back to %s", attempt.Name, students, plan[i+1].Name), err)
		} else {
			n.reporter.Fault(fmt.Sprintf("Unable to %s for '%s'", attempt.Name, students), err)
		}
	}

	derr := &DeliveryError{Event: ev, Attempts: failures}
	out.Status = StatusFailed
	out.Channel = plan[len(plan)-1].Channel
	out.Detail = joinErrors(failures)
	n.record(ctx, out)
	return out, derr
}

func (n *Notifier) record(ctx context.Context, o Outcome) {
	if err := n.recorder.Record(ctx, o); err != nil {
		n.reporter.Warn("Unable to record delivery history", err)
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Outcome) error { return nil }

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
