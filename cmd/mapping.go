package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/repocanvas/internal/course"
	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/report"
)

var (
	mappingToGit  bool
	mappingField  string
	mappingOutput string
	mappingForce  bool
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Create and inspect the Canvas/Git identity map",
}

var mappingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate the identity map from the course roster",
	Long: `Lists the students of the course and writes one canvas_id,git_id,name row
per student. The Git ID is taken from the Canvas login (--field login), the
login up to the @ (--field login-user) or the SIS id (--field sis).`,
	Args: cobra.NoArgs,
	RunE: runMappingCreate,
}

var mappingCheckCmd = &cobra.Command{
	Use:   "check [FILE]",
	Short: "Validate the identity map",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMappingCheck,
}

var mappingLookupCmd = &cobra.Command{
	Use:   "lookup ID...",
	Short: "Translate Git IDs to Canvas IDs (or back with --to-git)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMappingLookup,
}

func init() {
	mappingLookupCmd.Flags().BoolVar(&mappingToGit, "to-git", false, "translate Canvas IDs to Git IDs")
	mappingCreateCmd.Flags().StringVar(&mappingField, "field", string(course.GitFieldLogin), "Canvas user field used as Git ID: login, login-user or sis")
	mappingCreateCmd.Flags().StringVarP(&mappingOutput, "output", "o", "", "output file (default git_map from config)")
	mappingCreateCmd.Flags().BoolVar(&mappingForce, "force", false, "overwrite an existing map")
	mappingCmd.AddCommand(mappingCreateCmd, mappingCheckCmd, mappingLookupCmd)
	rootCmd.AddCommand(mappingCmd)
}

func mappingPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return "", err
	}
	return cfg.GitMap, nil
}

func runMappingCheck(cmd *cobra.Command, args []string) error {
	path, err := mappingPath(cmd, args)
	if err != nil {
		return err
	}
	m, err := identity.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d identities, no duplicates\n", m.Path(), m.Len())
	return nil
}

func runMappingLookup(cmd *cobra.Command, args []string) error {
	path, err := mappingPath(cmd, nil)
	if err != nil {
		return err
	}
	m, err := identity.Load(path)
	if err != nil {
		return err
	}

	lookup := m.GitToCanvas
	if mappingToGit {
		lookup = m.CanvasToGit
	}
	for _, id := range args {
		got, err := lookup(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, got)
	}
	return nil
}

func runMappingCreate(cmd *cobra.Command, args []string) error {
	field, err := course.ParseGitField(mappingField)
	if err != nil {
		return err
	}
	cfg, err := loadCourseConfig(cmd)
	if err != nil {
		return err
	}
	path := mappingOutput
	if path == "" {
		path = cfg.GitMap
	}
	if _, err := os.Stat(path); err == nil && !mappingForce {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}

	log := newLogger()
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	users, err := client.Students(cmd.Context(), cfg.CourseID)
	if err != nil {
		return err
	}

	rep := report.New(cmd.ErrOrStderr(), log)
	rows := course.MappingRows(users, field, rep)
	if err := course.WriteMapping(path, rows); err != nil {
		return err
	}
	if _, err := identity.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d students to %s\n", len(rows), len(users), path)
	return summarize(rep)
}
