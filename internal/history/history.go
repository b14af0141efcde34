// Package history keeps a local ledger of submission notifications.
package history

import (
	"time"

	"github.com/ziadkadry99/repocanvas/internal/notify"
)

// Entry is a single delivery record.
type Entry struct {
	ID        string
	Timestamp time.Time
	Event     notify.EventKind
	RepoURL   string
	Students  []string
	Channel   notify.Channel
	Status    notify.Status
	Detail    string
}

// EntryFromOutcome converts a notification outcome into a ledger entry.
func EntryFromOutcome(o notify.Outcome) Entry {
	return Entry{
		Event:    o.Event.Kind,
		RepoURL:  o.Event.RepoURL,
		Students: o.Event.Students,
		Channel:  o.Channel,
		Status:   o.Status,
		Detail:   o.Detail,
	}
}
