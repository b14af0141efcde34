package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/hooks"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var setupFlags struct {
	name     string
	path     string
	repoURL  string
	members  []string
	existing bool
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Publish a repository URL to its team's Canvas submission",
	Long: `Runs the after-setup hook for one repository. A newly created repository
has its URL posted as a comment on the team's submission. With --existing
the repository is treated as already published and Canvas is not contacted.`,
	RunE: runSetup,
}

func init() {
	f := setupCmd.Flags()
	f.StringVar(&setupFlags.name, "name", "", "repository name")
	f.StringVar(&setupFlags.path, "path", "", "local path of the repository")
	f.StringVar(&setupFlags.repoURL, "repo-url", "", "repository URL to publish")
	f.StringSliceVar(&setupFlags.members, "members", nil, "Git IDs of the team members")
	f.BoolVar(&setupFlags.existing, "existing", false, "the repository existed before this setup run")
	_ = setupCmd.MarkFlagRequired("repo-url")
	_ = setupCmd.MarkFlagRequired("members")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	rep := report.New(cmd.ErrOrStderr(), log)
	h, done, err := newHooks(cfg, rep, log)
	if err != nil {
		return err
	}
	defer done()

	repo := hooks.Repo{
		Name:    setupFlags.name,
		Path:    setupFlags.path,
		URL:     setupFlags.repoURL,
		Members: setupFlags.members,
	}
	if err := h.OnRepositorySetup(cmd.Context(), repo, !setupFlags.existing); err != nil {
		return fmt.Errorf("setup hook: %w", err)
	}
	return summarize(rep)
}
