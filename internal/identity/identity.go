// Package identity translates between Git identities and Canvas identities
// using a bijective table loaded from a CSV file.
package identity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultFile is the default location of the Canvas-Git mapping table.
const DefaultFile = "canvas-git-map.csv"

// Column names the header row must contain.
const (
	CanvasColumn = "canvas_id"
	GitColumn    = "git_id"
)

// Record is a single row of the mapping table.
type Record struct {
	Git    string
	Canvas string
}

// Map is a loaded mapping table. It is read-only after Load and safe for
// concurrent use.
type Map struct {
	path      string
	records   []Record
	gitToCv   map[string]string
	canvasToG map[string]string
}

// Load reads the mapping table at path. The first non-comment row is a header
// naming the canvas_id and git_id columns; other columns are ignored. Every
// Git identity and every Canvas identity must appear exactly once.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	m, err := parse(path, f)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parse(path string, r io.Reader) (*Map, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &LoadError{Path: path, Err: errors.New("file is empty, expected a header row")}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	// Spreadsheet exports often start with a byte order mark.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	canvasCol, gitCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case CanvasColumn:
			canvasCol = i
		case GitColumn:
			gitCol = i
		}
	}
	if canvasCol < 0 || gitCol < 0 {
		return nil, &LoadError{
			Path: path,
			Err:  fmt.Errorf("header must name columns %q and %q, got %q", CanvasColumn, GitColumn, strings.Join(header, ",")),
		}
	}

	m := &Map{
		path:      path,
		gitToCv:   make(map[string]string),
		canvasToG: make(map[string]string),
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		line, _ := cr.FieldPos(0)

		if gitCol >= len(row) || canvasCol >= len(row) {
			return nil, &LoadError{Path: path, Line: line, Err: fmt.Errorf("expected at least %d fields, got %d", max(gitCol, canvasCol)+1, len(row))}
		}
		rec := Record{
			Git:    strings.TrimSpace(row[gitCol]),
			Canvas: strings.TrimSpace(row[canvasCol]),
		}
		if rec.Git == "" || rec.Canvas == "" {
			return nil, &LoadError{Path: path, Line: line, Err: errors.New("empty identity")}
		}

		if prev, ok := m.gitToCv[rec.Git]; ok {
			return nil, &LoadError{Path: path, Line: line, Err: fmt.Errorf("git id %q is mapped more than once (to %q and %q)", rec.Git, prev, rec.Canvas)}
		}
		if prev, ok := m.canvasToG[rec.Canvas]; ok {
			return nil, &LoadError{Path: path, Line: line, Err: fmt.Errorf("canvas id %q is mapped more than once (to %q and %q)", rec.Canvas, prev, rec.Git)}
		}

		m.gitToCv[rec.Git] = rec.Canvas
		m.canvasToG[rec.Canvas] = rec.Git
		m.records = append(m.records, rec)
	}

	return m, nil
}

// Path returns the file the map was loaded from.
func (m *Map) Path() string { return m.path }

// Len returns the number of records.
func (m *Map) Len() int { return len(m.records) }

// Records returns a copy of the records in file order.
func (m *Map) Records() []Record {
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// GitToCanvas returns the Canvas identity for a Git identity.
func (m *Map) GitToCanvas(gitID string) (string, error) {
	if id, ok := m.gitToCv[gitID]; ok {
		return id, nil
	}
	return "", &LookupError{ID: gitID, Direction: GitToCanvas, Path: m.path}
}

// CanvasToGit returns the Git identity for a Canvas identity.
func (m *Map) CanvasToGit(canvasID string) (string, error) {
	if id, ok := m.canvasToG[canvasID]; ok {
		return id, nil
	}
	return "", &LookupError{ID: canvasID, Direction: CanvasToGit, Path: m.path}
}

// GitToCanvasAll translates a team of Git identities, stopping at the first
// identity that has no mapping.
func (m *Map) GitToCanvasAll(gitIDs []string) ([]string, error) {
	out := make([]string, 0, len(gitIDs))
	for _, g := range gitIDs {
		c, err := m.GitToCanvas(g)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
