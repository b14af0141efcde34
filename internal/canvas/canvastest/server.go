// Package canvastest provides an in-memory Canvas API server for tests.
package canvastest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Token is the access token the server accepts.
const Token = "test-token"

// Student is a user enrolled in the fake course. A non-zero GroupID puts the
// student in a group submission.
type Student struct {
	ID        int64
	Name      string
	Login     string
	SISUserID string
	GroupID   int64
	GroupName string
}

// Comment is a recorded submission comment.
type Comment struct {
	UserID int64
	Text   string
	Group  bool
}

// Upload is a recorded file upload.
type Upload struct {
	FileID  int64
	UserID  int64
	Name    string
	Content []byte
}

// Handin is a recorded online_upload submission.
type Handin struct {
	UserID  int64
	FileIDs []string
}

// Server is a fake Canvas installation with a single course and assignment.
type Server struct {
	*httptest.Server

	CourseID     int64
	AssignmentID int64

	mu              sync.Mutex
	courseName      string
	assignmentName  string
	submissionTypes []string
	students        []Student
	pageSize        int
	commentStatus   int
	uploadStatus    int
	handinStatus    int
	requests        int
	comments        []Comment
	uploads         []Upload
	handins         []Handin
	pending         map[string]Upload
	nextFileID      int64
}

// Option configures a Server.
type Option func(*Server)

// WithStudents enrolls students.
func WithStudents(students ...Student) Option {
	return func(s *Server) { s.students = append(s.students, students...) }
}

// WithCourseName names the course.
func WithCourseName(name string) Option {
	return func(s *Server) { s.courseName = name }
}

// WithSubmissionTypes sets the submission types the assignment accepts.
func WithSubmissionTypes(types ...string) Option {
	return func(s *Server) { s.submissionTypes = types }
}

// WithPageSize sets how many submissions are returned per page.
func WithPageSize(n int) Option {
	return func(s *Server) { s.pageSize = n }
}

// WithCommentStatus makes every comment request fail with status.
func WithCommentStatus(status int) Option {
	return func(s *Server) { s.commentStatus = status }
}

// WithUploadStatus makes every upload ticket request fail with status.
func WithUploadStatus(status int) Option {
	return func(s *Server) { s.uploadStatus = status }
}

// WithHandinStatus makes every online_upload hand-in fail with status.
func WithHandinStatus(status int) Option {
	return func(s *Server) { s.handinStatus = status }
}

// NewServer starts a fake Canvas server that is closed when the test ends.
func NewServer(t *testing.T, courseID, assignmentID int64, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		CourseID:        courseID,
		AssignmentID:    assignmentID,
		courseName:      "Test Course",
		assignmentName:  "Project",
		submissionTypes: []string{"online_upload", "online_url"},
		pageSize:        100,
		pending:         make(map[string]Upload),
		nextFileID:      500,
	}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(s.count)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireToken)
		r.Get(fmt.Sprintf("/courses/%d", courseID), s.course)
		r.Get(fmt.Sprintf("/courses/%d/users", courseID), s.listUsers)
		r.Get(fmt.Sprintf("/courses/%d/assignments/%d", courseID, assignmentID), s.assignment)
		r.Route(fmt.Sprintf("/courses/%d/assignments/%d/submissions", courseID, assignmentID), func(r chi.Router) {
			r.Get("/", s.listSubmissions)
			r.Post("/", s.handin)
			r.Put("/{user}", s.comment)
			r.Post("/{user}/files", s.uploadTicket)
		})
		r.Get("/files/{id}/create_success", s.confirmUpload)
	})
	r.Post("/upload/{key}", s.receiveUpload)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the number of requests served so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Comments returns the comments posted so far.
func (s *Server) Comments() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Comment(nil), s.comments...)
}

// Uploads returns the files uploaded so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Handins returns the online_upload submissions made so far.
func (s *Server) Handins() []Handin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Handin(nil), s.handins...)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "Invalid access token.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// page returns the bounds of the requested page of n items and sets the
// Link header when more pages follow.
func (s *Server) page(w http.ResponseWriter, r *http.Request, n int) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	start := min((page-1)*s.pageSize, n)
	end := min(start+s.pageSize, n)

	if end < n {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page+1))
		next := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="first"`, next.String(), next.String()))
	}
	return start, end
}

func userJSON(st Student) map[string]any {
	return map[string]any{
		"id":          st.ID,
		"name":        st.Name,
		"login_id":    st.Login,
		"sis_user_id": st.SISUserID,
	}
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := s.page(w, r, len(s.students))
	out := []map[string]any{}
	for i := start; i < end; i++ {
		st := s.students[i]
		group := map[string]any{"id": nil, "name": nil}
		if st.GroupID != 0 {
			group = map[string]any{"id": st.GroupID, "name": st.GroupName}
		}
		out = append(out, map[string]any{
			"id":             st.ID + 10000,
			"user_id":        st.ID,
			"workflow_state": "unsubmitted",
			"user":           userJSON(st),
			"group":          group,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Query().Get("enrollment_type[]") != "student" {
		writeError(w, http.StatusBadRequest, "only student enrollments are served")
		return
	}
	start, end := s.page(w, r, len(s.students))
	out := []map[string]any{}
	for i := start; i < end; i++ {
		out = append(out, userJSON(s.students[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) course(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          s.CourseID,
		"name":        s.courseName,
		"course_code": fmt.Sprintf("C%d", s.CourseID),
	})
}

func (s *Server) assignment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var category any
	for _, st := range s.students {
		if st.GroupID != 0 {
			category = 1
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                s.AssignmentID,
		"name":              s.assignmentName,
		"submission_types":  s.submissionTypes,
		"group_category_id": category,
	})
}

func (s *Server) student(param string) (Student, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return Student{}, false
	}
	for _, st := range s.students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

func (s *Server) comment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.student(chi.URLParam(r, "user"))
	if !ok {
		writeError(w, http.StatusNotFound, "The specified resource does not exist.")
		return
	}
	if s.commentStatus != 0 {
		writeError(w, s.commentStatus, "comment rejected")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.comments = append(s.comments, Comment{
		UserID: st.ID,
		Text:   r.PostForm.Get("comment[text_comment]"),
		Group:  r.PostForm.Get("comment[group_comment]") == "true",
	})
	writeJSON(w, http.StatusOK, map[string]any{"id": st.ID + 10000, "user_id": st.ID})
}

func (s *Server) uploadTicket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.student(chi.URLParam(r, "user"))
	if !ok {
		writeError(w, http.StatusNotFound, "The specified resource does not exist.")
		return
	}
	if s.uploadStatus != 0 {
		writeError(w, s.uploadStatus, "user not authorized to perform that action")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := fmt.Sprintf("k%d", len(s.pending)+1)
	s.pending[key] = Upload{UserID: st.ID, Name: r.PostForm.Get("name")}
	writeJSON(w, http.StatusOK, map[string]any{
		"upload_url": fmt.Sprintf("http://%s/upload/%s", r.Host, key),
		"upload_params": map[string]any{
			"filename": r.PostForm.Get("name"),
			"size":     r.PostForm.Get("size"),
		},
	})
}

func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chi.URLParam(r, "key")
	up, ok := s.pending[key]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown upload")
		return
	}
	if r.Header.Get("Authorization") != "" {
		writeError(w, http.StatusBadRequest, "upload must not carry the access token")
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()
	up.Content, err = io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	delete(s.pending, key)
	s.nextFileID++
	up.FileID = s.nextFileID
	s.uploads = append(s.uploads, up)

	http.Redirect(w, r, fmt.Sprintf("/api/v1/files/%d/create_success", up.FileID), http.StatusFound)
}

func (s *Server) confirmUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	for _, up := range s.uploads {
		if up.FileID == id {
			writeJSON(w, http.StatusOK, map[string]any{"id": up.FileID, "display_name": up.Name, "size": len(up.Content)})
			return
		}
	}
	writeError(w, http.StatusNotFound, "The specified resource does not exist.")
}

func (s *Server) handin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handinStatus != 0 {
		writeError(w, s.handinStatus, "hand-in rejected")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.PostForm.Get("submission[submission_type]") != "online_upload" {
		writeError(w, http.StatusBadRequest, "unsupported submission type")
		return
	}
	userID, _ := strconv.ParseInt(r.PostForm.Get("submission[user_id]"), 10, 64)
	s.handins = append(s.handins, Handin{UserID: userID, FileIDs: r.PostForm["submission[file_ids][]"]})
	writeJSON(w, http.StatusCreated, map[string]any{"user_id": userID, "workflow_state": "submitted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"errors": []map[string]string{{"message": msg}}})
}
