// Package hooks connects repository setup and clone events to Canvas.
package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/ziadkadry99/repocanvas/internal/config"
	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/notify"
	"github.com/ziadkadry99/repocanvas/internal/packager"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

// Repo is a repository handle as seen by the hooks. Members are Git identities.
type Repo struct {
	Name    string
	Path    string
	URL     string
	Members []string
}

// Hooks is called by a host after it has set up or cloned a repository.
// Only a *ConfigError is ever returned; every other failure is reported and
// stays scoped to the repository so the host can move on to the next one.
type Hooks interface {
	OnRepositorySetup(ctx context.Context, repo Repo, newlyCreated bool) error
	OnRepositoryClone(ctx context.Context, repo Repo) error
}

// Canvas implements Hooks against a Canvas assignment. It is safe for
// concurrent use on different repositories.
type Canvas struct {
	cfg      config.Canvas
	notifier *notify.Notifier
	reporter *report.Reporter
	log      logr.Logger
	tempDir  string
}

var _ Hooks = (*Canvas)(nil)

// Option configures a Canvas.
type Option func(*Canvas)

// WithLogger sets the debug logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Canvas) { c.log = log }
}

// WithTempDir sets the parent directory for packaging scratch space.
func WithTempDir(dir string) Option {
	return func(c *Canvas) { c.tempDir = dir }
}

// New constructs Canvas hooks. A nil recorder disables delivery history.
func New(cfg config.Canvas, finder notify.Finder, reporter *report.Reporter, recorder notify.Recorder, opts ...Option) *Canvas {
	c := &Canvas{
		cfg:      cfg,
		notifier: notify.New(finder, reporter, recorder),
		reporter: reporter,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnRepositorySetup publishes the URL of a newly created repository to its
// team's submission. Re-running setup on an existing repository only
// informs the operator.
func (c *Canvas) OnRepositorySetup(ctx context.Context, repo Repo, newlyCreated bool) error {
	students, err := c.students(repo)
	if err != nil {
		c.reporter.Fault("Issue mapping student's Git ID to Canvas ID", err)
		return nil
	}
	studentsStr := strings.Join(students, ", ")

	if !newlyCreated {
		c.reporter.Inform(fmt.Sprintf("Re-run setup for: %s. Repository URL (%s) already published in Canvas", studentsStr, repo.URL))
		return nil
	}

	c.reporter.Inform(fmt.Sprintf("Publishing repository URL (%s) to Canvas for: %s.", repo.URL, studentsStr))
	out, err := c.notifier.Setup(ctx, notify.Event{RepoURL: repo.URL, Students: students})
	c.log.V(1).Info("setup notification finished", "repo", repo.URL, "status", out.Status, "error", err)
	return nil
}

// OnRepositoryClone submits a zip of the cloned repository when archive
// upload is enabled. Temporary directories are removed before it returns.
func (c *Canvas) OnRepositoryClone(ctx context.Context, repo Repo) error {
	if !c.cfg.UploadZip {
		return nil
	}
	if c.cfg.ZipName == "" {
		return &ConfigError{Setting: "zip_name", Reason: "required when upload_zip is set"}
	}

	students, err := c.students(repo)
	if err != nil {
		c.reporter.Fault("Error reading or using Canvas ID to Git ID map", err)
		return nil
	}

	archive, err := packager.Package(repo.Path, c.cfg.ZipName, packager.Options{
		Exclude: c.cfg.ZipExclude,
		TempDir: c.tempDir,
	})
	if err != nil {
		c.reporter.Fault(fmt.Sprintf("Unable to package repository '%s'", repo.URL), err)
		return nil
	}
	defer func() {
		if err := archive.Cleanup(); err != nil {
			c.reporter.Warn("Unable to remove temporary directories", err)
		}
	}()
	c.log.V(1).Info("packaged repository", "repo", repo.URL, "archive", archive.Path)

	c.reporter.Inform(fmt.Sprintf("Submit zipped cloned repository as '%s.zip' to Canvas for: %s.", archive.Name, strings.Join(students, ", ")))
	out, err := c.notifier.Clone(ctx, notify.Event{RepoURL: repo.URL, Students: students}, archive.Path)
	c.log.V(1).Info("clone notification finished", "repo", repo.URL, "status", out.Status, "error", err)
	return nil
}

// students loads the identity map and translates the team to Canvas ids.
// The map is reloaded on every call and never shared.
func (c *Canvas) students(repo Repo) ([]string, error) {
	m, err := identity.Load(c.cfg.GitMap)
	if err != nil {
		return nil, err
	}
	return m.GitToCanvasAll(repo.Members)
}
