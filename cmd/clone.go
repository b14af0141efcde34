package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/hooks"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var cloneFlags struct {
	name    string
	path    string
	repoURL string
	members []string
}

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Hand in a cloned repository as a Canvas submission",
	Long: `Runs the after-clone hook for one repository. When upload_zip is set the
repository at --path is zipped as <zip_name>.zip and submitted on behalf of
the team. If the upload is refused, a comment referencing the archive is
posted instead.`,
	RunE: runClone,
}

func init() {
	f := cloneCmd.Flags()
	f.StringVar(&cloneFlags.name, "name", "", "repository name")
	f.StringVar(&cloneFlags.path, "path", "", "local path of the cloned repository")
	f.StringVar(&cloneFlags.repoURL, "repo-url", "", "repository URL")
	f.StringSliceVar(&cloneFlags.members, "members", nil, "Git IDs of the team members")
	_ = cloneCmd.MarkFlagRequired("path")
	_ = cloneCmd.MarkFlagRequired("members")
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
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
		Name:    cloneFlags.name,
		Path:    cloneFlags.path,
		URL:     cloneFlags.repoURL,
		Members: cloneFlags.members,
	}
	if err := h.OnRepositoryClone(cmd.Context(), repo); err != nil {
		return fmt.Errorf("clone hook: %w", err)
	}
	return summarize(rep)
}
