// Package config provides configuration loading and the schema file
// format used to bootstrap a registry from disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for strata configuration.
	DefaultConfigDir = ".strata"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultSchemaFile is the default schema file name.
	DefaultSchemaFile = "schema.yaml"
	// DefaultSnapshotFile is the default snapshot database file name.
	DefaultSnapshotFile = "strata.db"
)

// Config holds static project configuration (read-only after init).
type Config struct {
	Snapshot SnapshotConfig `yaml:"snapshot,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	// Schema is the schema file path, relative to the config directory.
	Schema string `yaml:"schema,omitempty"`
}

// SnapshotConfig holds configuration for the SQLite snapshot database.
type SnapshotConfig struct {
	// Path is the snapshot file path, relative to the config directory.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Snapshot: SnapshotConfig{Path: DefaultSnapshotFile},
		Logging:  LoggingConfig{Level: "warn"},
		Schema:   DefaultSchemaFile,
	}
}

// Load loads configuration from the .strata directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'strata init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("STRATA_SNAPSHOT_PATH"); path != "" {
		c.Snapshot.Path = path
	}
	if level := os.Getenv("STRATA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ConfigDir returns the path to the .strata config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// SchemaPath resolves the schema file path for a project.
func (c *Config) SchemaPath(basePath string) string {
	if filepath.IsAbs(c.Schema) {
		return c.Schema
	}
	return filepath.Join(ConfigDir(basePath), c.Schema)
}

// SnapshotPath resolves the snapshot database path for a project.
func (c *Config) SnapshotPath(basePath string) string {
	if filepath.IsAbs(c.Snapshot.Path) {
		return c.Snapshot.Path
	}
	return filepath.Join(ConfigDir(basePath), c.Snapshot.Path)
}

// Exists checks if a strata config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
