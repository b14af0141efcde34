package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/repocanvas/internal/packager"
)

// EnvPrefix prefixes environment overrides, e.g. REPOCANVAS_ACCESS_TOKEN.
const EnvPrefix = "REPOCANVAS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (REPOCANVAS_*).
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadFile reads configuration from the given YAML file only. Use it when
// the result is saved back, so environment overrides are not persisted.
func LoadFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, withEnv bool) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if withEnv {
		// REPOCANVAS_COURSE_ID -> course_id, etc.
		if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		}), nil); err != nil {
			return nil, fmt.Errorf("loading env overrides: %w", err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path. The file holds
// the access token, so it is only readable by the owner.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// ValidateCourse checks the settings needed to talk to a Canvas course.
func (c *Config) ValidateCourse() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access_token is required")
	}
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if c.CourseID <= 0 {
		return fmt.Errorf("course_id must be a positive integer")
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if err := c.ValidateCourse(); err != nil {
		return err
	}
	if c.AssignmentID <= 0 {
		return fmt.Errorf("assignment_id must be a positive integer")
	}
	if c.GitMap == "" {
		return fmt.Errorf("git_map is required")
	}

	if c.UploadZip && c.ZipName == "" {
		return fmt.Errorf("zip_name is required when upload_zip is set")
	}
	if c.ZipName != "" {
		if err := packager.ValidateName(c.ZipName); err != nil {
			return fmt.Errorf("zip_name: %w", err)
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute URL", raw)
	}
	return nil
}
