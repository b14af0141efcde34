package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/canvas"
	"github.com/ziadkadry99/repocanvas/internal/config"
	"github.com/ziadkadry99/repocanvas/internal/db"
	"github.com/ziadkadry99/repocanvas/internal/history"
	"github.com/ziadkadry99/repocanvas/internal/hooks"
	"github.com/ziadkadry99/repocanvas/internal/notify"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

// Flags that override the config file and environment.
var canvasFlags struct {
	accessToken  string
	baseURL      string
	courseID     int64
	assignmentID int64
	gitMap       string
	uploadZip    bool
	zipName      string
}

func registerCanvasFlags(c *cobra.Command) {
	f := c.PersistentFlags()
	f.StringVar(&canvasFlags.accessToken, "canvas-access-token", "", "Canvas access token")
	f.StringVar(&canvasFlags.baseURL, "canvas-base-url", "", "Canvas base URL, e.g. https://canvas.example.edu")
	f.Int64Var(&canvasFlags.courseID, "canvas-course-id", 0, "Canvas course ID")
	f.Int64Var(&canvasFlags.assignmentID, "canvas-assignment-id", 0, "Canvas assignment ID")
	f.StringVar(&canvasFlags.gitMap, "canvas-git-map", "", "CSV file mapping Canvas IDs to Git IDs")
	f.BoolVar(&canvasFlags.uploadZip, "canvas-upload-zip", false, "hand in a zip of each cloned repository")
	f.StringVar(&canvasFlags.zipName, "canvas-zip-name", "", "name of the zip handed in, without .zip")
}

// loadSettings loads the config and applies flag overrides without
// validating it.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `repocanvas init` to create a config file", err)
	}

	f := cmd.Flags()
	if f.Changed("canvas-access-token") {
		cfg.AccessToken = canvasFlags.accessToken
	}
	if f.Changed("canvas-base-url") {
		cfg.BaseURL = canvasFlags.baseURL
	}
	if f.Changed("canvas-course-id") {
		cfg.CourseID = canvasFlags.courseID
	}
	if f.Changed("canvas-assignment-id") {
		cfg.AssignmentID = canvasFlags.assignmentID
	}
	if f.Changed("canvas-git-map") {
		cfg.GitMap = canvasFlags.gitMap
	}
	if f.Changed("canvas-upload-zip") {
		cfg.UploadZip = canvasFlags.uploadZip
	}
	if f.Changed("canvas-zip-name") {
		cfg.ZipName = canvasFlags.zipName
	}
	return cfg, nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadCourseConfig is loadConfig for commands that need a course but no
// assignment.
func loadCourseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCourse(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() logr.Logger {
	if !verbose {
		return logr.Discard()
	}
	return report.NewLogger(os.Stderr, 1)
}

func newClient(cfg *config.Config, log logr.Logger) (*canvas.Client, error) {
	client, err := canvas.NewClient(canvas.ClientConfig{
		BaseURL: cfg.BaseURL,
		Token:   cfg.AccessToken,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Canvas client: %w", err)
	}
	return client, nil
}

// openHistory opens the delivery ledger. It returns a nil store when the
// ledger is disabled.
func openHistory(cfg *config.Config) (*history.Store, func(), error) {
	if cfg.HistoryDB == "" {
		return nil, func() {}, nil
	}
	database, err := db.Open(cfg.HistoryDB)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history %s: %w", cfg.HistoryDB, err)
	}
	return history.NewStore(database), func() { database.Close() }, nil
}

// newHooks wires the Canvas hooks from the config. The returned func
// releases the history database.
func newHooks(cfg *config.Config, rep *report.Reporter, log logr.Logger) (*hooks.Canvas, func(), error) {
	client, err := newClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	store, closeHistory, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}
	var recorder notify.Recorder
	if store != nil {
		recorder = store
	}
	finder := hooks.AssignmentFinder{Assignment: client.Assignment(cfg.CourseID, cfg.AssignmentID)}
	return hooks.New(cfg.Canvas(), finder, rep, recorder, hooks.WithLogger(log)), closeHistory, nil
}

var errProblems = errors.New("problems were reported")

// summarize prints the message counts and fails when a fault was reported.
func summarize(rep *report.Reporter) error {
	warnings := rep.Count(report.SeverityWarning)
	faults := rep.Count(report.SeverityFault)
	if warnings == 0 && faults == 0 {
		return nil
	}
	fmt.Fprintf(os.Stderr, "\n%d warning(s), %d fault(s)\n", warnings, faults)
	if faults > 0 {
		return fmt.Errorf("%w: %d fault(s)", errProblems, faults)
	}
	return nil
}
