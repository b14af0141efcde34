package hooks

import (
	"context"

	"github.com/ziadkadry99/repocanvas/internal/canvas"
	"github.com/ziadkadry99/repocanvas/internal/notify"
)

// AssignmentFinder looks submissions up in a Canvas assignment.
type AssignmentFinder struct {
	Assignment *canvas.Assignment
}

var _ notify.Finder = AssignmentFinder{}

func (f AssignmentFinder) FindSubmission(ctx context.Context, students []string) (notify.Submission, error) {
	sub, err := f.Assignment.FindSubmission(ctx, students)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
