package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/repocanvas/internal/progress"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

// Action selects which hook a batch runs.
type Action string

const (
	ActionSetup Action = "setup"
	ActionClone Action = "clone"
)

// ManifestRepo is one repository entry in a batch manifest.
type ManifestRepo struct {
	Name         string   `yaml:"name"`
	Path         string   `yaml:"path"`
	URL          string   `yaml:"url"`
	Members      []string `yaml:"members"`
	NewlyCreated bool     `yaml:"newly_created"`
}

// Repo returns the hook handle for the entry.
func (m ManifestRepo) Repo() Repo {
	return Repo{Name: m.Name, Path: m.Path, URL: m.URL, Members: m.Members}
}

// Manifest lists the repositories a host processed.
type Manifest struct {
	Repos []ManifestRepo `yaml:"repos"`
}

// LoadManifest reads a YAML batch manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	for i, r := range m.Repos {
		if r.Name == "" && r.URL == "" {
			return nil, fmt.Errorf("manifest %s: repos[%d] needs a name or url", path, i)
		}
		if len(r.Members) == 0 {
			return nil, fmt.Errorf("manifest %s: repos[%d] has no members", path, i)
		}
	}
	return &m, nil
}

// Batch runs a hook over a list of repositories, the way a host iterates
// its teams.
type Batch struct {
	Hooks    Hooks
	Reporter *report.Reporter
	Progress progress.Reporter
}

// Run calls the hook for every repository in order. A failure for one
// repository never stops the others; only a *ConfigError aborts the batch,
// since it would fail the same way for every repository.
func (b *Batch) Run(ctx context.Context, action Action, repos []ManifestRepo) error {
	prog := b.Progress
	if prog == nil {
		prog = progress.Nop{}
	}
	prog.Start(len(repos))
	defer prog.Finish()

	for i, r := range repos {
		label := r.Name
		if label == "" {
			label = r.URL
		}

		warnings, faults := b.Reporter.Count(report.SeverityWarning), b.Reporter.Count(report.SeverityFault)

		var err error
		switch action {
		case ActionSetup:
			err = b.Hooks.OnRepositorySetup(ctx, r.Repo(), r.NewlyCreated)
		case ActionClone:
			err = b.Hooks.OnRepositoryClone(ctx, r.Repo())
		default:
			return fmt.Errorf("unknown batch action %q", action)
		}
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			prog.Update(i+1, progress.Step{Repo: label, Outcome: progress.Failed})
			return err
		}
		if err != nil {
			b.Reporter.Fault(fmt.Sprintf("Unable to process repository '%s'", label), err)
		}

		outcome := progress.OK
		switch {
		case b.Reporter.Count(report.SeverityFault) > faults:
			outcome = progress.Failed
		case b.Reporter.Count(report.SeverityWarning) > warnings:
			outcome = progress.Warning
		}
		prog.Update(i+1, progress.Step{Repo: label, Outcome: outcome})
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
