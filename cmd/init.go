package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/config"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize repocanvas configuration with an interactive wizard",
	Long: `Runs an interactive wizard to connect repocanvas to a Canvas course and assignment and writes the config file.
Use the course and assignment subcommands to switch an existing config to another course or assignment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

var initCourseCmd = &cobra.Command{
	Use:   "course ID",
	Short: "Check that a course exists and store its ID in the config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInitCourse,
}

var initAssignmentCmd = &cobra.Command{
	Use:   "assignment ID",
	Short: "Check that an assignment exists in the course and store its ID in the config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInitAssignment,
}

func init() {
	initCmd.AddCommand(initCourseCmd, initAssignmentCmd)
	rootCmd.AddCommand(initCmd)
}

func parseIDArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q: must be a positive integer", s)
	}
	return id, nil
}

// saveSetting stores one change in the config file. The file is read
// without environment overrides so those are never written to it.
func saveSetting(set func(*config.Config)) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	set(cfg)
	return cfg.Save(cfgFile)
}

func runInitCourse(cmd *cobra.Command, args []string) error {
	id, err := parseIDArg(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cfg.CourseID = id
	if err := cfg.ValidateCourse(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := newClient(cfg, newLogger())
	if err != nil {
		return err
	}
	course, err := client.Course(cmd.Context(), id)
	if err != nil {
		return err
	}

	if err := saveSetting(func(c *config.Config) { c.CourseID = id }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Course %d: %s (%s)\nSaved course_id to %s\n", course.ID, course.Name, course.CourseCode, cfgFile)
	return nil
}

func runInitAssignment(cmd *cobra.Command, args []string) error {
	id, err := parseIDArg(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadCourseConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	details, err := client.Assignment(cfg.CourseID, id).Details(cmd.Context())
	if err != nil {
		return err
	}

	kind := "individual"
	if details.GroupAssignment() {
		kind = "group"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assignment %d: %s (%s, accepts %s)\n",
		details.ID, details.Name, kind, strings.Join(details.SubmissionTypes, ", "))

	rep := report.New(cmd.ErrOrStderr(), log)
	if cfg.UploadZip && !details.Accepts("online_upload") {
		rep.Warn("Assignment does not accept file uploads; cloned repositories will be posted as comments instead", nil)
	}

	if err := saveSetting(func(c *config.Config) { c.AssignmentID = id }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved assignment_id to %s\n", cfgFile)
	return summarize(rep)
}
