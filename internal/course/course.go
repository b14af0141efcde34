// Package course derives RepoBee inputs from a Canvas assignment and
// prepares its submissions for repository notifications.
package course

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ziadkadry99/repocanvas/internal/canvas"
	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

// gitID finds the Git identity for a Canvas user, trying the numeric id,
// the login id and the SIS id in that order.
func gitID(m *identity.Map, u canvas.User) (string, bool) {
	for _, id := range []string{strconv.FormatInt(u.ID, 10), u.LoginID, u.SISUserID} {
		if id == "" {
			continue
		}
		if g, err := m.CanvasToGit(id); err == nil {
			return g, true
		}
	}
	return "", false
}

// Teams groups submissions into teams of Git identities. Students in a
// Canvas group form one team; everyone else is a team of one. Teams keep
// the order in which Canvas listed their first member. Students without a
// mapping are reported and left out, and a team with nobody left is dropped.
func Teams(subs []*canvas.Submission, m *identity.Map, rep *report.Reporter) [][]string {
	var (
		teams   [][]string
		byGroup = make(map[int64]int)
	)
	for _, s := range subs {
		g, ok := gitID(m, s.User)
		if !ok {
			rep.Warn(fmt.Sprintf("No Git ID for Canvas user %d (%s) in %s", s.User.ID, s.User.Name, m.Path()), nil)
			continue
		}
		if s.GroupID == 0 {
			teams = append(teams, []string{g})
			continue
		}
		if i, ok := byGroup[s.GroupID]; ok {
			teams[i] = append(teams[i], g)
			continue
		}
		byGroup[s.GroupID] = len(teams)
		teams = append(teams, []string{g})
	}
	return teams
}

// WriteStudentsFile writes one team per line, members separated by spaces.
func WriteStudentsFile(path string, teams [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating students file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, team := range teams {
		fmt.Fprintln(w, strings.Join(team, " "))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing students file: %w", err)
	}
	return f.Close()
}

// Select returns the submissions of the given Git identities. It fails
// when an identity is not in the map or has no submission.
func Select(subs []*canvas.Submission, m *identity.Map, gitIDs []string) ([]*canvas.Submission, error) {
	byGit := make(map[string]*canvas.Submission, len(subs))
	for _, s := range subs {
		if g, ok := gitID(m, s.User); ok {
			byGit[g] = s
		}
	}
	var (
		out     []*canvas.Submission
		missing []string
	)
	for _, g := range gitIDs {
		s, ok := byGit[g]
		if !ok {
			missing = append(missing, g)
			continue
		}
		out = append(out, s)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no submission for Git ID(s) %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Broadcast posts message on the submission of every mapped student. Group
// submissions receive a single group comment. It returns the number of
// comments posted; failures are reported and do not stop the rest.
func Broadcast(ctx context.Context, subs []*canvas.Submission, m *identity.Map, message string, rep *report.Reporter) int {
	posted := 0
	seenGroup := make(map[int64]bool)
	for _, s := range subs {
		if _, ok := gitID(m, s.User); !ok {
			continue
		}
		if s.GroupID != 0 {
			if seenGroup[s.GroupID] {
				continue
			}
			seenGroup[s.GroupID] = true
		}
		if err := s.AddComment(ctx, message); err != nil {
			rep.Fault(fmt.Sprintf("Unable to post message for '%s'", s.User.Name), err)
			continue
		}
		posted++
	}
	return posted
}
