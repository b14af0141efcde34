package config

import "github.com/ziadkadry99/repocanvas/internal/identity"

const (
	// DefaultPath is the configuration file looked up when --config is not given.
	DefaultPath = ".repocanvas.yml"

	DefaultStartMessage = "This assignment is managed by repocanvas."
	DefaultStudentsFile = "students.lst"
	DefaultHistoryDB    = ".repocanvas/history.db"
)

// DefaultZipExcludes are offered by the init wizard. The built-in default
// is to archive the whole tree.
var DefaultZipExcludes = []string{
	".git",
	"node_modules/**",
	"*.class",
}

// DefaultConfig returns a Config with sensible defaults. The connection
// settings are left empty, so it does not validate until they are set.
func DefaultConfig() *Config {
	return &Config{
		GitMap:       identity.DefaultFile,
		StartMessage: DefaultStartMessage,
		StudentsFile: DefaultStudentsFile,
		HistoryDB:    DefaultHistoryDB,
	}
}
