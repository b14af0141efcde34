package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/hooks"
	"github.com/ziadkadry99/repocanvas/internal/progress"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a hook for every repository in a manifest",
	Long: `Runs the setup or clone hook for each repository listed in a YAML manifest:

  repos:
    - name: team-7
      path: ./clones/team-7
      url: https://git.example.edu/course/team-7
      members: [bob, carol]
      newly_created: true

A failure for one repository is reported and the batch moves on.`,
}

var batchSetupCmd = &cobra.Command{
	Use:   "setup FILE",
	Short: "Publish the URLs of the repositories in FILE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, hooks.ActionSetup, args[0])
	},
}

var batchCloneCmd = &cobra.Command{
	Use:   "clone FILE",
	Short: "Hand in the cloned repositories in FILE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, hooks.ActionClone, args[0])
	},
}

func init() {
	batchCmd.AddCommand(batchSetupCmd, batchCloneCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, action hooks.Action, manifestPath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	manifest, err := hooks.LoadManifest(manifestPath)
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

	desc := "Publishing repositories"
	if action == hooks.ActionClone {
		desc = "Handing in repositories"
	}
	b := &hooks.Batch{
		Hooks:    h,
		Reporter: rep,
		Progress: progress.NewReporter(cmd.ErrOrStderr(), desc),
	}
	if err := b.Run(cmd.Context(), action, manifest.Repos); err != nil {
		return fmt.Errorf("batch %s: %w", action, err)
	}
	return summarize(rep)
}
