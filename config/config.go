// Package config loads the YAML configuration of the tracker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todo-tracker/seed"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config mirrors config.yaml.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Seed    SeedConfig    `yaml:"seed"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"`     // file | sqlite | memory
	Dir        string `yaml:"dir"`         // file backend directory
	SQLitePath string `yaml:"sqlite_path"` // sqlite backend database
	Key        string `yaml:"key"`         // key holding the task list
}

type SeedConfig struct {
	Source  string        `yaml:"source"` // path or http(s) URL; an explicit "" disables seeding
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	c := preset()
	c.applyDefaults()
	return c
}

// preset holds defaults that an explicit empty value in the file overrides.
func preset() Config {
	return Config{Seed: SeedConfig{Source: seed.DefaultSource}}
}

// Load reads a YAML file, expands ${VAR} references and applies defaults.
// A missing file yields Default().
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML content.
func Parse(raw []byte) (Config, error) {
	content := os.ExpandEnv(string(raw))

	cfg := preset()
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Storage.Backend) == "" {
		c.Storage.Backend = BackendFile
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Dir == "" {
		c.Storage.Dir = defaultDataDir()
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.Storage.Dir, "tasks.db")
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "todos"
	}
	if c.Seed.Timeout == 0 {
		c.Seed.Timeout = 5 * time.Second
	}
	if c.Log.File == "" {
		c.Log.File = "tasks.log"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be file, sqlite or memory, got %q", c.Storage.Backend)
	}
	if c.Seed.Timeout < 0 {
		return fmt.Errorf("seed.timeout must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "todo-tracker")
	}
	return ".todo-tracker"
}
