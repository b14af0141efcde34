package notify

import (
	"errors"
	"fmt"
)

// DeliveryError means every attempt of a plan failed.
type DeliveryError struct {
	Event    Event
	Attempts []error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s notification for %s failed after %d attempt(s): %v",
		e.Event.Kind, e.Event.RepoURL, len(e.Attempts), errors.Join(e.Attempts...))
}

func (e *DeliveryError) Unwrap() []error { return e.Attempts }
