package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/course"
	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var studentsFileOutput string

var studentsFileCmd = &cobra.Command{
	Use:   "students-file",
	Short: "Write a RepoBee students file from the Canvas assignment",
	Long: `Lists the submissions of the assignment, groups students by Canvas group and
writes one team per line using their Git IDs. Students missing from the
identity map are reported and left out.`,
	RunE: runStudentsFile,
}

func init() {
	studentsFileCmd.Flags().StringVarP(&studentsFileOutput, "output", "o", "", "students file to write (default from config)")
	rootCmd.AddCommand(studentsFileCmd)
}

func runStudentsFile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := studentsFileOutput
	if out == "" {
		out = cfg.StudentsFile
	}

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

	rep := report.New(cmd.ErrOrStderr(), log)
	teams := course.Teams(subs, m, rep)
	if err := course.WriteStudentsFile(out, teams); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d team(s) to %s\n", len(teams), out)
	return summarize(rep)
}
