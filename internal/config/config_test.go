package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AccessToken = "secret"
	cfg.BaseURL = "https://canvas.example.edu"
	cfg.CourseID = 42
	cfg.AssignmentID = 7
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GitMap != "canvas-git-map.csv" {
		t.Errorf("expected default git_map %q, got %q", "canvas-git-map.csv", cfg.GitMap)
	}
	if cfg.UploadZip {
		t.Error("upload_zip should default to false")
	}
	if cfg.StudentsFile != DefaultStudentsFile {
		t.Errorf("expected default students_file %q, got %q", DefaultStudentsFile, cfg.StudentsFile)
	}
	if cfg.HistoryDB != DefaultHistoryDB {
		t.Errorf("expected default history_db %q, got %q", DefaultHistoryDB, cfg.HistoryDB)
	}
	if len(cfg.ZipExclude) != 0 {
		t.Errorf("archive should include the whole tree by default, got excludes %v", cfg.ZipExclude)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.repocanvas.yml")

	original := validConfig()
	original.UploadZip = true
	original.ZipName = "proj1"
	original.ZipExclude = []string{".git", "*.class"}
	original.StartMessage = "Hello"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.AccessToken != original.AccessToken {
		t.Errorf("access_token: got %q, want %q", loaded.AccessToken, original.AccessToken)
	}
	if loaded.BaseURL != original.BaseURL {
		t.Errorf("base_url: got %q, want %q", loaded.BaseURL, original.BaseURL)
	}
	if loaded.CourseID != 42 || loaded.AssignmentID != 7 {
		t.Errorf("ids: got %d/%d, want 42/7", loaded.CourseID, loaded.AssignmentID)
	}
	if !loaded.UploadZip || loaded.ZipName != "proj1" {
		t.Errorf("upload: got %v %q", loaded.UploadZip, loaded.ZipName)
	}
	if loaded.StartMessage != "Hello" {
		t.Errorf("start_message: got %q", loaded.StartMessage)
	}
	if len(loaded.ZipExclude) != 2 || loaded.ZipExclude[1] != "*.class" {
		t.Errorf("zip_exclude: got %v", loaded.ZipExclude)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.GitMap != "canvas-git-map.csv" {
		t.Errorf("expected default git_map, got %q", cfg.GitMap)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := validConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("REPOCANVAS_ACCESS_TOKEN", "from-env")
	t.Setenv("REPOCANVAS_COURSE_ID", "99")
	t.Setenv("REPOCANVAS_UPLOAD_ZIP", "true")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.AccessToken != "from-env" {
		t.Errorf("env override failed: got %q", loaded.AccessToken)
	}
	if loaded.CourseID != 99 {
		t.Errorf("env override failed: course_id = %d", loaded.CourseID)
	}
	if !loaded.UploadZip {
		t.Error("env override failed: upload_zip should be true")
	}
	if loaded.AssignmentID != 7 {
		t.Errorf("file value lost: assignment_id = %d", loaded.AssignmentID)
	}
}

func TestLoadFileIgnoresEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := validConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Setenv("REPOCANVAS_ACCESS_TOKEN", "from-env")

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.AccessToken != "secret" {
		t.Errorf("access_token = %q, want the file value", loaded.AccessToken)
	}
}

func TestValidateCourse(t *testing.T) {
	cfg := validConfig()
	cfg.AssignmentID = 0
	if err := cfg.ValidateCourse(); err != nil {
		t.Errorf("assignment is not needed for course commands: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should still require assignment_id")
	}
	cfg.CourseID = 0
	if err := cfg.ValidateCourse(); err == nil {
		t.Error("expected course_id error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing token", func(c *Config) { c.AccessToken = "" }, true},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, true},
		{"relative base url", func(c *Config) { c.BaseURL = "canvas.example.edu" }, true},
		{"zero course", func(c *Config) { c.CourseID = 0 }, true},
		{"negative assignment", func(c *Config) { c.AssignmentID = -3 }, true},
		{"empty git map", func(c *Config) { c.GitMap = "" }, true},
		{"upload without name", func(c *Config) { c.UploadZip = true }, true},
		{"upload with name", func(c *Config) { c.UploadZip = true; c.ZipName = "proj1" }, false},
		{"name with slash", func(c *Config) { c.ZipName = "a/b" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigIsIncomplete(t *testing.T) {
	if err := DefaultConfig().Validate(); err == nil {
		t.Error("DefaultConfig has no connection settings and should not validate")
	}
}

func TestCanvasIsACopy(t *testing.T) {
	cfg := validConfig()
	cfg.ZipExclude = []string{".git"}

	c := cfg.Canvas()
	cfg.ZipExclude[0] = "changed"
	cfg.CourseID = 1

	if c.ZipExclude[0] != ".git" {
		t.Errorf("snapshot shares exclude slice: %v", c.ZipExclude)
	}
	if c.CourseID != 42 || c.AssignmentID != 7 {
		t.Errorf("snapshot ids = %d/%d", c.CourseID, c.AssignmentID)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"**/*.go", []string{"**/*.go"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 12 "); err != nil || id != 12 {
		t.Errorf("parseID(12) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}
