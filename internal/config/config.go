// Package config loads the optional YAML settings file of a catalog.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bdmihai/pyphotodb/internal/photo"
	"gopkg.in/yaml.v3"
)

// Filename is the settings file looked up in a catalog root.
const Filename = "photodb.yaml"

// Config holds the settings shared by all commands.
type Config struct {
	// Extensions lists the file extensions that are imported.
	Extensions []string `yaml:"extensions"`
	// Progress enables the progress markers printed while running.
	Progress bool `yaml:"progress"`
	// Metrics enables the run counters written into the catalog's cache
	// directory in Prometheus text format.
	Metrics bool   `yaml:"metrics"`
	Log     Log    `yaml:"log"`
	Backup  Backup `yaml:"backup"`
}

// Log configures the run log written into the catalog's log directory.
type Log struct {
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Backup configures catalog backups.
type Backup struct {
	// Keep is the number of backups retained; 0 keeps all of them.
	Keep int `yaml:"keep"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Extensions: append([]string(nil), photo.DefaultExtensions...),
		Progress:   true,
		Metrics:    true,
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 10,
		},
		Backup: Backup{Keep: 10},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Write stores cfg at path.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (c *Config) validate() error {
	if len(c.Extensions) == 0 {
		return errors.New("extensions must not be empty")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return errors.New("log limits must not be negative")
	}

	if c.Backup.Keep < 0 {
		return errors.New("backup.keep must not be negative")
	}

	return nil
}
