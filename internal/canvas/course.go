package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
)

// Course is a Canvas course.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
}

// AssignmentDetails describes an assignment as configured in Canvas.
type AssignmentDetails struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	SubmissionTypes []string `json:"submission_types"`
	GroupCategoryID *int64   `json:"group_category_id"`
}

// Accepts reports whether students can hand in work of the given
// submission type, e.g. "online_upload".
func (d *AssignmentDetails) Accepts(submissionType string) bool {
	return slices.Contains(d.SubmissionTypes, submissionType)
}

// GroupAssignment reports whether the assignment is handed in per group.
func (d *AssignmentDetails) GroupAssignment() bool {
	return d.GroupCategoryID != nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, v)
	return err
}

// Course fetches a course.
func (c *Client) Course(ctx context.Context, id int64) (*Course, error) {
	var course Course
	if err := c.get(ctx, fmt.Sprintf("courses/%d", id), &course); err != nil {
		return nil, fmt.Errorf("fetching course %d: %w", id, err)
	}
	return &course, nil
}

// Students lists the users enrolled as students in a course. A user with
// several enrollments is listed once.
func (c *Client) Students(ctx context.Context, courseID int64) ([]User, error) {
	q := url.Values{}
	q.Add("enrollment_type[]", "student")
	q.Set("per_page", "100")

	users, err := getAll[User](ctx, c, fmt.Sprintf("courses/%d/users?%s", courseID, q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("listing students of course %d: %w", courseID, err)
	}
	seen := make(map[int64]bool, len(users))
	out := users[:0]
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out, nil
}

// Details fetches the assignment's name and submission settings.
func (a *Assignment) Details(ctx context.Context) (*AssignmentDetails, error) {
	var d AssignmentDetails
	if err := a.client.get(ctx, fmt.Sprintf("courses/%d/assignments/%d", a.CourseID, a.ID), &d); err != nil {
		return nil, fmt.Errorf("fetching assignment %d: %w", a.ID, err)
	}
	return &d, nil
}
