package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/config"
	"github.com/ziadkadry99/repocanvas/internal/course"
	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var prepareMessage string

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Post the start message on every mapped student's submission",
	RunE:  runPrepare,
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareMessage, "message", "m", "", "message to post (default start_message from config)")
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	msg := prepareMessage
	if msg == "" {
		msg = cfg.StartMessage
	}
	if msg == "" {
		return fmt.Errorf("no message: set start_message or pass --message")
	}
	return broadcast(cmd, cfg, msg, nil)
}

// broadcast posts msg on the submissions of the given Git identities, or of
// every mapped student when gitIDs is empty.
func broadcast(cmd *cobra.Command, cfg *config.Config, msg string, gitIDs []string) error {
	m, err := identity.Load(cfg.GitMap)
	if err != nil {
		return err
	}

	log := newLogger()
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	subs, err := client.Assignment(cfg.CourseID, cfg.AssignmentID).Submissions(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing submissions: %w", err)
	}
	if len(gitIDs) > 0 {
		if subs, err = course.Select(subs, m, gitIDs); err != nil {
			return err
		}
	}

	rep := report.New(cmd.ErrOrStderr(), log)
	posted := course.Broadcast(cmd.Context(), subs, m, msg, rep)
	fmt.Fprintf(cmd.OutOrStdout(), "Posted the message on %d submission(s)\n", posted)
	return summarize(rep)
}
