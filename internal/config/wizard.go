package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/repocanvas/internal/identity"
	"github.com/ziadkadry99/repocanvas/internal/packager"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to repocanvas! Let's connect your course to Canvas.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Canvas instance.
	baseURL, err := (&promptui.Prompt{
		Label:    "Canvas base URL",
		Default:  "https://canvas.instructure.com",
		Validate: validateBaseURL,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	cfg.BaseURL = baseURL

	// 2. Access token. Left blank, it is expected in the environment.
	token, err := (&promptui.Prompt{
		Label: "Access token (blank to use " + EnvPrefix + "ACCESS_TOKEN)",
		Mask:  '*',
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	cfg.AccessToken = token

	// 3. Course and assignment.
	if cfg.CourseID, err = promptID("Course ID"); err != nil {
		return nil, fmt.Errorf("course id: %w", err)
	}
	if cfg.AssignmentID, err = promptID("Assignment ID"); err != nil {
		return nil, fmt.Errorf("assignment id: %w", err)
	}

	// 4. Identity map.
	gitMap, err := (&promptui.Prompt{
		Label:   "Canvas/Git identity map (CSV)",
		Default: identity.DefaultFile,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("identity map: %w", err)
	}
	cfg.GitMap = gitMap
	if _, err := os.Stat(gitMap); err != nil {
		fmt.Printf("\nNote: %s does not exist yet. Create it with a %q,%q header.\n\n",
			gitMap, identity.CanvasColumn, identity.GitColumn)
	}

	// 5. Archive upload on clone.
	uploadIdx, _, err := (&promptui.Select{
		Label: "Upload a zip of cloned repositories as the submission?",
		Items: []string{"no", "yes"},
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("upload selection: %w", err)
	}
	if uploadIdx == 1 {
		cfg.UploadZip = true
		cfg.ZipName, err = (&promptui.Prompt{
			Label:    "Archive name (without .zip)",
			Validate: packager.ValidateName,
		}).Run()
		if err != nil {
			return nil, fmt.Errorf("zip name: %w", err)
		}

		excludeStr, err := (&promptui.Prompt{
			Label:   "Paths left out of the archive (comma-separated globs)",
			Default: strings.Join(DefaultZipExcludes, ","),
		}).Run()
		if err != nil {
			return nil, fmt.Errorf("exclude patterns: %w", err)
		}
		cfg.ZipExclude = splitAndTrim(excludeStr)
	}

	if cfg.AccessToken == "" && os.Getenv(EnvPrefix+"ACCESS_TOKEN") == "" {
		fmt.Printf("\nNote: Set %sACCESS_TOKEN in your environment before running repocanvas.\n", EnvPrefix)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func promptID(label string) (int64, error) {
	s, err := (&promptui.Prompt{
		Label:    label,
		Validate: func(s string) error { _, err := parseID(s); return err },
	}).Run()
	if err != nil {
		return 0, err
	}
	return parseID(s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return id, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace,
// dropping empty items.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
