package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateDirName is the per-project directory holding the manifest and optional config.
const StateDirName = ".codeflat"

// Config holds all configuration for codeflat.
type Config struct {
	Flatten  FlattenConfig  `yaml:"flatten"`
	Manifest ManifestConfig `yaml:"manifest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FlattenConfig holds traversal and artifact configuration.
type FlattenConfig struct {
	Ignore       []string `yaml:"ignore"`  // root-relative directories, pruned with their subtrees
	Exclude      []string `yaml:"exclude"` // doublestar globs on relative paths
	UseGitignore bool     `yaml:"use_gitignore"`
	MaxFileBytes int64    `yaml:"max_file_bytes"` // 0 = unlimited
	TokenBudget  int      `yaml:"token_budget"`   // warn above this estimate, 0 = disabled
	Progress     bool     `yaml:"progress"`
}

// ManifestConfig holds run manifest configuration.
type ManifestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // defaults to <root>/.codeflat/manifest.db
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultIgnore is the ignore list used when neither config nor flags provide one.
func DefaultIgnore() []string {
	return []string{".git", "node_modules", "venv"}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Flatten: FlattenConfig{
			Ignore:       DefaultIgnore(),
			Exclude:      []string{},
			UseGitignore: false,
			MaxFileBytes: 0,
			TokenBudget:  0,
			Progress:     false,
		},
		Manifest: ManifestConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for codeflat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "codeflat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, StateDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ManifestDBPath returns the manifest database path for a root, honoring an explicit override.
func (c *Config) ManifestDBPath(root string) string {
	if c.Manifest.Path != "" {
		if filepath.IsAbs(c.Manifest.Path) {
			return c.Manifest.Path
		}
		return filepath.Join(root, c.Manifest.Path)
	}
	return ManifestDBPath(root)
}

// ManifestDBPath returns the default path to the manifest database.
func ManifestDBPath(dir string) string {
	return filepath.Join(dir, StateDirName, "manifest.db")
}

// EnsureStateDir ensures the directory that will hold path exists.
func EnsureStateDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
