package hooks

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/go-logr/logr"

	"github.com/ziadkadry99/repocanvas/internal/canvas"
	"github.com/ziadkadry99/repocanvas/internal/canvas/canvastest"
	"github.com/ziadkadry99/repocanvas/internal/config"
	"github.com/ziadkadry99/repocanvas/internal/progress"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

func init() {
	color.NoColor = true
}

const (
	courseID     = 101
	assignmentID = 202
)

var roster = []canvastest.Student{
	{ID: 11, Name: "Alice", Login: "alice@uni.edu"},
	{ID: 12, Name: "Bob", Login: "bob@uni.edu", GroupID: 7, GroupName: "Team 7"},
	{ID: 13, Name: "Carol", Login: "carol@uni.edu", GroupID: 7, GroupName: "Team 7"},
	{ID: 14, Name: "Dave", Login: "dave@uni.edu"},
}

const mapCSV = `canvas_id,git_id,name
11,alice-git,Alice
12,bob-git,Bob
13,carol-git,Carol
14,dave-git,Dave
99,ghost-git,Not enrolled
`

type fixture struct {
	srv      *canvastest.Server
	buf      *bytes.Buffer
	reporter *report.Reporter
	cfg      config.Canvas
	tempDir  string
}

func newFixture(t *testing.T, opts ...canvastest.Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "canvas-git-map.csv")
	if err := os.WriteFile(mapPath, []byte(mapCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	opts = append([]canvastest.Option{canvastest.WithStudents(roster...)}, opts...)
	var buf bytes.Buffer
	return &fixture{
		srv:      canvastest.NewServer(t, courseID, assignmentID, opts...),
		buf:      &buf,
		reporter: report.New(&buf, logr.Discard()),
		cfg: config.Canvas{
			CourseID:     courseID,
			AssignmentID: assignmentID,
			GitMap:       mapPath,
		},
		tempDir: t.TempDir(),
	}
}

func (f *fixture) hooks(t *testing.T) *Canvas {
	t.Helper()
	client, err := canvas.NewClient(canvas.ClientConfig{BaseURL: f.srv.URL, Token: canvastest.Token, RetryMax: -1})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	finder := AssignmentFinder{Assignment: client.Assignment(f.cfg.CourseID, f.cfg.AssignmentID)}
	return New(f.cfg, finder, f.reporter, nil, WithTempDir(f.tempDir))
}

func makeRepo(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("# hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "main.c"), []byte("int main(void) { return 0; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func assertNoTempDirs(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary directories left behind: %d entries in %s", len(entries), dir)
	}
}

var team7 = Repo{Name: "team-7", URL: "https://git.example.edu/course/team-7", Members: []string{"bob-git", "carol-git"}}

func TestSetupNewlyCreatedPostsURL(t *testing.T) {
	f := newFixture(t)
	h := f.hooks(t)

	if err := h.OnRepositorySetup(context.Background(), team7, true); err != nil {
		t.Fatalf("OnRepositorySetup: %v", err)
	}

	comments := f.srv.Comments()
	if len(comments) != 1 {
		t.Fatalf("expected one comment, got %d", len(comments))
	}
	if comments[0].Text != "Your project URL: "+team7.URL || !comments[0].Group {
		t.Errorf("comment = %+v", comments[0])
	}
	if !strings.Contains(f.buf.String(), "Publishing repository URL ("+team7.URL+") to Canvas for: 12, 13.") {
		t.Errorf("missing publish message:\n%s", f.buf.String())
	}
}

func TestSetupExistingNeverCallsAPI(t *testing.T) {
	f := newFixture(t)
	h := f.hooks(t)

	if err := h.OnRepositorySetup(context.Background(), team7, false); err != nil {
		t.Fatalf("OnRepositorySetup: %v", err)
	}
	if f.srv.Requests() != 0 {
		t.Errorf("expected no API calls, got %d", f.srv.Requests())
	}
	if !strings.Contains(f.buf.String(), "Re-run setup for: 12, 13. Repository URL ("+team7.URL+") already published in Canvas") {
		t.Errorf("missing re-run message:\n%s", f.buf.String())
	}

	// Still no API call when the mapping is unusable.
	f.cfg.GitMap = filepath.Join(t.TempDir(), "missing.csv")
	h = f.hooks(t)
	if err := h.OnRepositorySetup(context.Background(), team7, false); err != nil {
		t.Fatalf("OnRepositorySetup: %v", err)
	}
	if f.srv.Requests() != 0 {
		t.Errorf("expected no API calls, got %d", f.srv.Requests())
	}
}

func TestSetupMappingFailureIsSingleFault(t *testing.T) {
	f := newFixture(t)
	h := f.hooks(t)

	repo := Repo{URL: "https://git.example.edu/course/x", Members: []string{"bob-git", "unknown-git"}}
	if err := h.OnRepositorySetup(context.Background(), repo, true); err != nil {
		t.Fatalf("OnRepositorySetup: %v", err)
	}
	if f.reporter.Count(report.SeverityFault) != 1 {
		t.Errorf("expected one fault, output:\n%s", f.buf.String())
	}
	if !strings.Contains(f.buf.String(), "Issue mapping student's Git ID to Canvas ID") {
		t.Errorf("unexpected output:\n%s", f.buf.String())
	}
	if f.srv.Requests() != 0 {
		t.Errorf("expected no API calls, got %d", f.srv.Requests())
	}
}

func TestCloneWithoutZipNameIsConfigError(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadZip = true
	f.cfg.GitMap = filepath.Join(t.TempDir(), "does-not-exist.csv")
	h := f.hooks(t)

	repo := Repo{Path: filepath.Join(t.TempDir(), "missing"), URL: team7.URL, Members: team7.Members}
	err := h.OnRepositoryClone(context.Background(), repo)

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if cerr.Setting != "zip_name" {
		t.Errorf("Setting = %q", cerr.Setting)
	}
	if f.srv.Requests() != 0 {
		t.Errorf("expected no API calls, got %d", f.srv.Requests())
	}
	if f.buf.Len() != 0 {
		t.Errorf("config errors are returned, not reported:\n%s", f.buf.String())
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestCloneUploadDisabledIsNoop(t *testing.T) {
	f := newFixture(t)
	h := f.hooks(t)

	if err := h.OnRepositoryClone(context.Background(), Repo{Path: makeRepo(t), Members: team7.Members}); err != nil {
		t.Fatalf("OnRepositoryClone: %v", err)
	}
	if f.srv.Requests() != 0 || f.buf.Len() != 0 {
		t.Errorf("expected nothing to happen, requests=%d output=%q", f.srv.Requests(), f.buf.String())
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestCloneSubmitsArchive(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadZip = true
	f.cfg.ZipName = "proj1"
	h := f.hooks(t)

	repo := Repo{Name: "team-7", Path: makeRepo(t), URL: team7.URL, Members: team7.Members}
	if err := h.OnRepositoryClone(context.Background(), repo); err != nil {
		t.Fatalf("OnRepositoryClone: %v", err)
	}

	uploads := f.srv.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("expected one upload, got %d\n%s", len(uploads), f.buf.String())
	}
	if uploads[0].Name != "proj1.zip" || uploads[0].UserID != 12 {
		t.Errorf("upload = %s for %d", uploads[0].Name, uploads[0].UserID)
	}
	zr, err := zip.NewReader(bytes.NewReader(uploads[0].Content), int64(len(uploads[0].Content)))
	if err != nil {
		t.Fatalf("uploaded content is not a zip: %v", err)
	}
	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	if !strings.Contains(strings.Join(names, " "), "proj1/src/main.c") {
		t.Errorf("zip entries = %v", names)
	}

	if len(f.srv.Handins()) != 1 {
		t.Errorf("expected one hand-in, got %d", len(f.srv.Handins()))
	}
	if len(f.srv.Comments()) != 0 {
		t.Errorf("no fallback comment expected, got %v", f.srv.Comments())
	}
	if f.reporter.Count(report.SeverityWarning)+f.reporter.Count(report.SeverityFault) != 0 {
		t.Errorf("unexpected problems:\n%s", f.buf.String())
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestCloneFallsBackToCommentOnce(t *testing.T) {
	f := newFixture(t, canvastest.WithUploadStatus(403))
	f.cfg.UploadZip = true
	f.cfg.ZipName = "proj1"
	h := f.hooks(t)

	repo := Repo{Path: makeRepo(t), URL: team7.URL, Members: team7.Members}
	if err := h.OnRepositoryClone(context.Background(), repo); err != nil {
		t.Fatalf("OnRepositoryClone: %v", err)
	}

	comments := f.srv.Comments()
	if len(comments) != 1 {
		t.Fatalf("expected exactly one comment, got %d", len(comments))
	}
	if !strings.HasPrefix(comments[0].Text, "Zipped cloned repository: ") || !strings.HasSuffix(comments[0].Text, "proj1.zip") {
		t.Errorf("comment = %q", comments[0].Text)
	}
	if f.reporter.Count(report.SeverityWarning) != 1 || f.reporter.Count(report.SeverityFault) != 0 {
		t.Errorf("expected one warning, output:\n%s", f.buf.String())
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestClonePackagingFailureIsFault(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadZip = true
	f.cfg.ZipName = "proj1"
	h := f.hooks(t)

	repo := Repo{Path: filepath.Join(t.TempDir(), "gone"), URL: team7.URL, Members: team7.Members}
	if err := h.OnRepositoryClone(context.Background(), repo); err != nil {
		t.Fatalf("OnRepositoryClone: %v", err)
	}
	if f.reporter.Count(report.SeverityFault) != 1 {
		t.Errorf("expected one fault, output:\n%s", f.buf.String())
	}
	if f.srv.Requests() != 0 {
		t.Errorf("expected no API calls, got %d", f.srv.Requests())
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestConcurrentClones(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadZip = true
	f.cfg.ZipName = "proj1"
	h := f.hooks(t)

	repos := []Repo{
		{Path: makeRepo(t), URL: "https://git.example.edu/course/alice", Members: []string{"alice-git"}},
		{Path: makeRepo(t), URL: "https://git.example.edu/course/dave", Members: []string{"dave-git"}},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(repos))
	for i, r := range repos {
		i, r := i, r
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = h.OnRepositoryClone(context.Background(), r)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("repo %d: %v", i, err)
		}
	}
	if len(f.srv.Uploads()) != 2 || len(f.srv.Handins()) != 2 {
		t.Errorf("uploads=%d handins=%d, want 2 each\n%s", len(f.srv.Uploads()), len(f.srv.Handins()), f.buf.String())
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestBatchContinuesAfterSubmissionNotFound(t *testing.T) {
	f := newFixture(t)
	h := f.hooks(t)

	repos := []ManifestRepo{
		{Name: "ghost", URL: "https://git.example.edu/course/ghost", Members: []string{"ghost-git"}, NewlyCreated: true},
		{Name: "team-7", URL: team7.URL, Members: team7.Members, NewlyCreated: true},
	}
	b := &Batch{Hooks: h, Reporter: f.reporter}
	if err := b.Run(context.Background(), ActionSetup, repos); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.reporter.Count(report.SeverityWarning) != 1 {
		t.Errorf("expected one not-found warning, output:\n%s", f.buf.String())
	}
	comments := f.srv.Comments()
	if len(comments) != 1 || comments[0].UserID != 12 {
		t.Errorf("second repository should still be published, comments = %+v", comments)
	}
}

type recordedSteps struct {
	steps []progress.Step
}

func (r *recordedSteps) Start(int)                     {}
func (r *recordedSteps) Update(_ int, s progress.Step) { r.steps = append(r.steps, s) }
func (r *recordedSteps) Finish()                       {}

func TestCloneBatchContinuesAfterSubmissionNotFound(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadZip = true
	f.cfg.ZipName = "proj1"
	h := f.hooks(t)

	repos := []ManifestRepo{
		{Name: "ghost", Path: makeRepo(t), URL: "https://git.example.edu/course/ghost", Members: []string{"ghost-git"}},
		{Name: "team-7", Path: makeRepo(t), URL: team7.URL, Members: team7.Members},
	}
	steps := &recordedSteps{}
	b := &Batch{Hooks: h, Reporter: f.reporter, Progress: steps}
	if err := b.Run(context.Background(), ActionClone, repos); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.reporter.Count(report.SeverityWarning) != 1 || f.reporter.Count(report.SeverityFault) != 0 {
		t.Errorf("expected one not-found warning, output:\n%s", f.buf.String())
	}
	uploads := f.srv.Uploads()
	if len(uploads) != 1 || uploads[0].UserID != 12 {
		t.Errorf("second repository should still be submitted, uploads = %d\n%s", len(uploads), f.buf.String())
	}
	if len(f.srv.Handins()) != 1 {
		t.Errorf("expected one hand-in, got %d", len(f.srv.Handins()))
	}

	want := []progress.Step{
		{Repo: "ghost", Outcome: progress.Warning},
		{Repo: "team-7", Outcome: progress.OK},
	}
	if len(steps.steps) != len(want) {
		t.Fatalf("progress steps = %v, want %v", steps.steps, want)
	}
	for i := range want {
		if steps.steps[i] != want[i] {
			t.Errorf("step %d = %v, want %v", i, steps.steps[i], want[i])
		}
	}
	assertNoTempDirs(t, f.tempDir)
}

func TestBatchStopsOnConfigError(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadZip = true
	h := f.hooks(t)

	repos := []ManifestRepo{
		{Name: "a", Path: makeRepo(t), Members: []string{"alice-git"}},
		{Name: "b", Path: makeRepo(t), Members: []string{"dave-git"}},
	}
	b := &Batch{Hooks: h, Reporter: f.reporter}
	err := b.Run(context.Background(), ActionClone, repos)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if f.srv.Requests() != 0 {
		t.Errorf("expected no API calls, got %d", f.srv.Requests())
	}
}

type failingHooks struct {
	calls []string
}

func (h *failingHooks) OnRepositorySetup(_ context.Context, repo Repo, _ bool) error {
	h.calls = append(h.calls, repo.Name)
	if repo.Name == "first" {
		return errors.New("host blew up")
	}
	return nil
}

func (h *failingHooks) OnRepositoryClone(context.Context, Repo) error { return nil }

func TestBatchReportsUnexpectedErrors(t *testing.T) {
	var buf bytes.Buffer
	rep := report.New(&buf, logr.Discard())
	h := &failingHooks{}
	b := &Batch{Hooks: h, Reporter: rep}

	repos := []ManifestRepo{{Name: "first", Members: []string{"x"}}, {Name: "second", Members: []string{"y"}}}
	if err := b.Run(context.Background(), ActionSetup, repos); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(h.calls, ",") != "first,second" {
		t.Errorf("calls = %v", h.calls)
	}
	if rep.Count(report.SeverityFault) != 1 {
		t.Errorf("expected one fault, output:\n%s", buf.String())
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "repos.yml")
	content := `repos:
  - name: team-7
    path: /srv/clones/team-7
    url: https://git.example.edu/course/team-7
    members: [bob-git, carol-git]
    newly_created: true
  - name: alice
    url: https://git.example.edu/course/alice
    members: [alice-git]
`
	if err := os.WriteFile(good, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(good)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Repos) != 2 {
		t.Fatalf("repos = %d", len(m.Repos))
	}
	if !m.Repos[0].NewlyCreated || m.Repos[1].NewlyCreated {
		t.Errorf("newly_created not decoded: %+v", m.Repos)
	}
	if r := m.Repos[0].Repo(); r.Path != "/srv/clones/team-7" || len(r.Members) != 2 {
		t.Errorf("Repo() = %+v", r)
	}

	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("repos:\n  - name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(bad); err == nil {
		t.Error("expected error for entry without members")
	}
}

func TestAssignmentFinderNotFound(t *testing.T) {
	f := newFixture(t)
	client, err := canvas.NewClient(canvas.ClientConfig{BaseURL: f.srv.URL, Token: canvastest.Token, RetryMax: -1})
	if err != nil {
		t.Fatal(err)
	}
	finder := AssignmentFinder{Assignment: client.Assignment(courseID, assignmentID)}

	sub, err := finder.FindSubmission(context.Background(), []string{"99"})
	if !errors.Is(err, canvas.ErrSubmissionNotFound) {
		t.Errorf("expected ErrSubmissionNotFound, got %v", err)
	}
	if sub != nil {
		t.Error("expected a nil interface on failure")
	}
}
