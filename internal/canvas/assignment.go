package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Assignment is a handle on a single assignment in a course.
type Assignment struct {
	client   *Client
	CourseID int64
	ID       int64
}

// User is the subset of a Canvas user included with a submission.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LoginID   string `json:"login_id"`
	SISUserID string `json:"sis_user_id"`
}

// Matches reports whether id names this user, either as numeric Canvas id,
// login id or SIS id.
func (u User) Matches(id string) bool {
	if id == "" {
		return false
	}
	return strconv.FormatInt(u.ID, 10) == id || u.LoginID == id || u.SISUserID == id
}

type submissionGroup struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

type submissionJSON struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user_id"`
	WorkflowState string           `json:"workflow_state"`
	User          *User            `json:"user"`
	Group         *submissionGroup `json:"group"`
}

// Submission is one student's submission record for an assignment. Group
// submissions share a GroupID.
type Submission struct {
	ID            int64
	WorkflowState string
	User          User
	GroupID       int64
	GroupName     string

	assignment *Assignment
}

func (a *Assignment) path(suffix string) string {
	return fmt.Sprintf("courses/%d/assignments/%d/%s", a.CourseID, a.ID, suffix)
}

// Submissions lists every submission of the assignment with user and group
// details.
func (a *Assignment) Submissions(ctx context.Context) ([]*Submission, error) {
	q := url.Values{}
	q.Add("include[]", "user")
	q.Add("include[]", "group")
	q.Set("per_page", "100")

	raw, err := getAll[submissionJSON](ctx, a.client, a.path("submissions")+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("listing submissions of assignment %d: %w", a.ID, err)
	}

	subs := make([]*Submission, 0, len(raw))
	for _, r := range raw {
		s := &Submission{
			ID:            r.ID,
			WorkflowState: r.WorkflowState,
			User:          User{ID: r.UserID},
			assignment:    a,
		}
		if r.User != nil {
			s.User = *r.User
			if s.User.ID == 0 {
				s.User.ID = r.UserID
			}
		}
		if r.Group != nil && r.Group.ID != nil {
			s.GroupID = *r.Group.ID
			if r.Group.Name != nil {
				s.GroupName = *r.Group.Name
			}
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// FindSubmission returns the submission shared by all given students. A
// single student matches their own submission; several students must all
// belong to the same Canvas group. ErrSubmissionNotFound is returned when
// no such submission exists.
func (a *Assignment) FindSubmission(ctx context.Context, students []string) (*Submission, error) {
	if len(students) == 0 {
		return nil, fmt.Errorf("%w: no students given", ErrSubmissionNotFound)
	}

	subs, err := a.Submissions(ctx)
	if err != nil {
		return nil, err
	}
	return matchSubmission(subs, students)
}

func matchSubmission(subs []*Submission, students []string) (*Submission, error) {
	matched := make([]*Submission, 0, len(students))
	for _, student := range students {
		var found *Submission
		for _, s := range subs {
			if s.User.Matches(student) {
				found = s
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%w: no submission for student %q", ErrSubmissionNotFound, student)
		}
		matched = append(matched, found)
	}

	if len(matched) > 1 {
		group := matched[0].GroupID
		for _, s := range matched {
			if group == 0 || s.GroupID != group {
				return nil, fmt.Errorf("%w: students %s are not in one group", ErrSubmissionNotFound, strings.Join(students, ", "))
			}
		}
	}
	return matched[0], nil
}

// AddComment posts a text comment on the submission. On group assignments
// the comment is shared with the whole group.
func (s *Submission) AddComment(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("comment[text_comment]", text)
	if s.GroupID != 0 {
		form.Set("comment[group_comment]", "true")
	}

	c := s.assignment.client
	req, err := c.newRequest(ctx, http.MethodPut, s.assignment.path(fmt.Sprintf("submissions/%d", s.User.ID)), form)
	if err != nil {
		return err
	}
	if _, err := c.do(req, nil); err != nil {
		return fmt.Errorf("commenting on submission of user %d: %w", s.User.ID, err)
	}
	return nil
}
