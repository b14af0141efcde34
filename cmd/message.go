package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var messageText string

var messageCmd = &cobra.Command{
	Use:   "message -m TEXT [GIT_ID...]",
	Short: "Post a message on the assignment submissions",
	Long: `Posts a comment on the submission of every student in the identity map,
or only on those of the given Git IDs. Groups receive one shared comment.`,
	RunE: runMessage,
}

func init() {
	messageCmd.Flags().StringVarP(&messageText, "message", "m", "", "message to post")
	rootCmd.AddCommand(messageCmd)
}

func runMessage(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(messageText) == "" {
		return errors.New("--message is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return broadcast(cmd, cfg, messageText, args)
}
