package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSubmissionNotFound is returned when no submission matches a set of
// students.
var ErrSubmissionNotFound = errors.New("submission not found")

// APIError is a non-2xx response from Canvas.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("canvas %s %s returned status %d", e.Method, e.URL, e.StatusCode)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

// Canvas reports errors either as {"errors":[{"message":...}]},
// {"errors":{"field":[{"message":...}]}} or {"message":...}.
type errorBody struct {
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
}

type errorMessage struct {
	Message string `json:"message"`
}

func newAPIError(method, url string, status int, body []byte) *APIError {
	e := &APIError{Method: method, URL: url, StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			e.Messages = append(e.Messages, truncate(text, 200))
		}
		return e
	}
	if eb.Message != "" {
		e.Messages = append(e.Messages, eb.Message)
	}

	var list []errorMessage
	if err := json.Unmarshal(eb.Errors, &list); err == nil {
		for _, m := range list {
			if m.Message != "" {
				e.Messages = append(e.Messages, m.Message)
			}
		}
		return e
	}
	var fields map[string][]errorMessage
	if err := json.Unmarshal(eb.Errors, &fields); err == nil {
		for field, msgs := range fields {
			for _, m := range msgs {
				e.Messages = append(e.Messages, field+": "+m.Message)
			}
		}
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
