package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/repocanvas/internal/db"
	"github.com/ziadkadry99/repocanvas/internal/notify"
)

// Store provides access to the delivery ledger.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record stores a notification outcome. It satisfies notify.Recorder.
func (s *Store) Record(ctx context.Context, o notify.Outcome) error {
	return s.Log(ctx, EntryFromOutcome(o))
}

// Log inserts a new entry. If entry.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	students := entry.Students
	if students == nil {
		students = []string{}
	}
	studentsJSON, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("marshalling students: %w", err)
	}
	channel := entry.Channel
	if channel == "" {
		channel = notify.ChannelNone
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, event, repo_url, students, channel, status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		string(entry.Event),
		entry.RepoURL,
		string(studentsJSON),
		string(channel),
		string(entry.Status),
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+" WHERE id = ?", id)
	return scanInto(row)
}

// Filter controls which entries are returned by List.
type Filter struct {
	RepoURL string
	Event   notify.EventKind
	Status  notify.Status
	Since   *time.Time
	Limit   int
}

const selectEntries = "SELECT id, timestamp, event, repo_url, students, channel, status, detail FROM deliveries"

// List returns entries matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.RepoURL != "" {
		clauses = append(clauses, "repo_url = ?")
		args = append(args, filter.RepoURL)
	}
	if filter.Event != "" {
		clauses = append(clauses, "event = ?")
		args = append(args, string(filter.Event))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}

	query := selectEntries
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e                      Entry
		ts, studentsJSON       string
		event, channel, status string
	)

	err := sc.Scan(&e.ID, &ts, &event, &e.RepoURL, &studentsJSON, &channel, &status, &e.Detail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning delivery: %w", err)
	}

	e.Event = notify.EventKind(event)
	e.Channel = notify.Channel(channel)
	e.Status = notify.Status(status)

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.Timestamp = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.Timestamp = t
	}

	if err := json.Unmarshal([]byte(studentsJSON), &e.Students); err != nil {
		e.Students = nil
	}

	return &e, nil
}
