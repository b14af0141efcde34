package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/history"
	"github.com/ziadkadry99/repocanvas/internal/notify"
)

var historyFlags struct {
	repoURL string
	status  string
	limit   int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded Canvas deliveries",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.repoURL, "repo-url", "", "only show deliveries for this repository")
	f.StringVar(&historyFlags.status, "status", "", "only show deliveries with this status (delivered, fallback, failed, not_found, skipped)")
	f.IntVarP(&historyFlags.limit, "limit", "n", 50, "maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("delivery history is disabled (history_db is empty)")
	}

	store, done, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer done()

	entries, err := store.List(cmd.Context(), history.Filter{
		RepoURL: historyFlags.repoURL,
		Status:  notify.Status(historyFlags.status),
		Limit:   historyFlags.limit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No deliveries recorded.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			string(e.Event),
			e.RepoURL,
			strings.Join(e.Students, ","),
			string(e.Channel),
			string(e.Status),
			e.Detail,
		})
	}
	printTable(cmd.OutOrStdout(), []string{"Time", "Event", "Repository", "Students", "Channel", "Status", "Detail"}, rows)
	return nil
}
