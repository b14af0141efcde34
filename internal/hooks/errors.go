package hooks

import "fmt"

// ConfigError is a fatal misconfiguration. It is the only error a hook
// returns; everything else is reported and scoped to the repository.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
}
