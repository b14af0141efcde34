package course

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ziadkadry99/repocanvas/internal/canvas"
	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

// GitField names the Canvas user attribute a Git identity is derived from.
type GitField string

const (
	GitFieldLogin     GitField = "login"
	GitFieldLoginUser GitField = "login-user"
	GitFieldSIS       GitField = "sis"
)

// GitFields lists the accepted fields.
var GitFields = []GitField{GitFieldLogin, GitFieldLoginUser, GitFieldSIS}

// ParseGitField parses a GitField name.
func ParseGitField(s string) (GitField, error) {
	for _, f := range GitFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown git field %q, expected one of %v", s, GitFields)
}

// From returns the Git identity of u, or "" when u lacks the field.
// login-user is the login id up to the @, so jdoe@uni.edu becomes jdoe.
func (f GitField) From(u canvas.User) string {
	switch f {
	case GitFieldLogin:
		return strings.TrimSpace(u.LoginID)
	case GitFieldLoginUser:
		user, _, _ := strings.Cut(strings.TrimSpace(u.LoginID), "@")
		return user
	case GitFieldSIS:
		return strings.TrimSpace(u.SISUserID)
	default:
		return ""
	}
}

// MappingRow is one line of a generated identity map.
type MappingRow struct {
	Canvas string
	Git    string
	Name   string
}

// MappingRows derives an identity map from the course roster, keyed on the
// numeric Canvas user id. Students without the field, or whose Git identity
// is already taken by an earlier student, are reported and left out so the
// result always loads.
func MappingRows(users []canvas.User, field GitField, rep *report.Reporter) []MappingRow {
	var (
		rows  []MappingRow
		taken = make(map[string]string)
	)
	for _, u := range users {
		g := field.From(u)
		if g == "" {
			rep.Warn(fmt.Sprintf("Canvas user %d (%s) has no %s, left out of the map", u.ID, u.Name, field), nil)
			continue
		}
		if other, ok := taken[g]; ok {
			rep.Warn(fmt.Sprintf("Canvas user %d (%s) has Git ID '%s' already used by %s, left out of the map", u.ID, u.Name, g, other), nil)
			continue
		}
		taken[g] = u.Name
		rows = append(rows, MappingRow{Canvas: strconv.FormatInt(u.ID, 10), Git: g, Name: u.Name})
	}
	return rows
}

// WriteMapping writes rows as an identity map CSV with a
// canvas_id,git_id,name header.
func WriteMapping(path string, rows []MappingRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating identity map: %w", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{identity.CanvasColumn, identity.GitColumn, "name"})
	for _, r := range rows {
		_ = w.Write([]string{r.Canvas, r.Git, r.Name})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing identity map: %w", err)
	}
	return f.Close()
}
