// Package config handles slither.toml interpreter configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a slither.toml file.
type Config struct {
	Repl  Repl  `toml:"repl"`
	Cache Cache `toml:"cache"`
	Trace bool  `toml:"trace"`

	// Dir is the directory containing the slither.toml file (set at load time).
	Dir string `toml:"-"`
}

// Repl configures the interactive session.
type Repl struct {
	Prompt             string `toml:"prompt"`
	ContinuationPrompt string `toml:"continuation-prompt"`
	HistoryPath        string `toml:"history-path"`
}

// Cache configures compiled-bytecode caching.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the configuration used when no slither.toml exists.
func Default() *Config {
	return &Config{
		Repl: Repl{
			Prompt:             ">>> ",
			ContinuationPrompt: "... ",
		},
		Cache: Cache{Enabled: true},
	}
}

// Load parses a slither.toml file from the given directory. Missing
// fields keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "slither.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a slither.toml file, then
// loads and returns it. Returns the defaults if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "slither.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// CacheDir returns the absolute bytecode cache directory: the configured
// one, or .slither/cache next to the config file, or under the user
// cache directory when no config file was found.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		if filepath.IsAbs(c.Cache.Dir) {
			return c.Cache.Dir
		}
		return filepath.Join(c.Dir, c.Cache.Dir)
	}
	if c.Dir != "" {
		return filepath.Join(c.Dir, ".slither", "cache")
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "slither")
}

// HistoryPath returns the configured history database path, or the
// default under the user's home directory.
func (c *Config) HistoryPath() string {
	if c.Repl.HistoryPath != "" {
		if filepath.IsAbs(c.Repl.HistoryPath) || c.Dir == "" {
			return c.Repl.HistoryPath
		}
		return filepath.Join(c.Dir, c.Repl.HistoryPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "slither-history.db")
	}
	return filepath.Join(home, ".slither", "history.db")
}
