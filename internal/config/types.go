package config

// Config is the top-level repocanvas configuration, corresponding to .repocanvas.yml.
type Config struct {
	AccessToken  string   `yaml:"access_token" koanf:"access_token"`
	BaseURL      string   `yaml:"base_url" koanf:"base_url"`
	CourseID     int64    `yaml:"course_id" koanf:"course_id"`
	AssignmentID int64    `yaml:"assignment_id" koanf:"assignment_id"`
	GitMap       string   `yaml:"git_map" koanf:"git_map"`
	UploadZip    bool     `yaml:"upload_zip" koanf:"upload_zip"`
	ZipName      string   `yaml:"zip_name" koanf:"zip_name"`
	ZipExclude   []string `yaml:"zip_exclude" koanf:"zip_exclude"`
	StartMessage string   `yaml:"start_message" koanf:"start_message"`
	StudentsFile string   `yaml:"students_file" koanf:"students_file"`
	HistoryDB    string   `yaml:"history_db" koanf:"history_db"`
}

// Canvas is the settings snapshot handed to the repository hooks. It is a
// plain value: callers get their own copy and nothing inside it is shared
// with the Config it came from.
type Canvas struct {
	CourseID     int64
	AssignmentID int64
	GitMap       string
	UploadZip    bool
	ZipName      string
	ZipExclude   []string
}

// Canvas returns the hook settings held by c.
func (c *Config) Canvas() Canvas {
	return Canvas{
		CourseID:     c.CourseID,
		AssignmentID: c.AssignmentID,
		GitMap:       c.GitMap,
		UploadZip:    c.UploadZip,
		ZipName:      c.ZipName,
		ZipExclude:   append([]string(nil), c.ZipExclude...),
	}
}
