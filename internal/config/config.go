// Package config loads the ba2vfs command-line configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the in-memory representation of config.yaml.
type Config struct {
	// DataPaths is the default load order used when no paths are given on
	// the command line. Later paths take precedence.
	DataPaths []string `yaml:"data_paths,omitempty"`

	// Include, Exclude and Match are the default filters (see
	// ba2util.CLIIncludeExclude).
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	Match   []string `yaml:"match,omitempty"`

	// Threads is the default number of extraction workers (0 for the number
	// of CPUs).
	Threads int `yaml:"threads,omitempty"`

	// VerifyLZ4Checksums enables LZ4 frame checksum verification.
	VerifyLZ4Checksums bool `yaml:"verify_lz4_checksums,omitempty"`

	// CacheSize is the number of extracted files kept in memory by commands
	// which read the same file more than once.
	CacheSize int `yaml:"cache_size,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		CacheSize: 64,
	}
}

// Dir returns the ba2vfs configuration directory.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(dir, "ba2vfs"), nil
}

// Path returns the default path of config.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// Load reads and parses the config file at path, or the default location if
// path is empty. A missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = Path(); err != nil {
			return Default(), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if cfg.Threads < 0 {
		return nil, fmt.Errorf("invalid config %s: threads must not be negative", path)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("invalid config %s: cache_size must not be negative", path)
	}
	for i, p := range cfg.DataPaths {
		if cfg.DataPaths[i], err = ExpandPath(p); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save marshals cfg and writes it to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
