// Package config provides configuration loading for the ADW orchestrator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ADW configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Database DatabaseConfig `yaml:"database"`
	Git      GitConfig      `yaml:"git"`
	Review   ReviewConfig   `yaml:"review"`
	Agents   AgentsConfig   `yaml:"agents"`
	Log      LogConfig      `yaml:"log"`
}

// DataConfig configures filesystem roots.
type DataConfig struct {
	// Root is where workflow artifacts and agent logs live.
	Root string `yaml:"root"`
	// AppRoot is the repository working directory pipelines operate on.
	AppRoot string `yaml:"app_root"`
}

// DatabaseConfig configures the issue store connection.
type DatabaseConfig struct {
	// URL is a Postgres DSN. When empty, it is derived from the Supabase
	// environment variables.
	URL string `yaml:"url"`
}

// GitConfig configures working-copy handling.
type GitConfig struct {
	// DefaultBranch is the base branch for new workflow branches.
	DefaultBranch string `yaml:"default_branch"`
	// AllowDestructiveOps gates hard resets of the working copy.
	AllowDestructiveOps bool `yaml:"allow_destructive_ops"`
}

// ReviewConfig configures the reviewer CLI.
type ReviewConfig struct {
	// TimeoutSeconds caps one reviewer invocation.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AgentsConfig configures agent model selection.
type AgentsConfig struct {
	// Models maps logical agent names to model overrides.
	Models map[string]string `yaml:"models"`
	// SkipPermissions forwards the permission-bypass flag to agent CLIs.
	SkipPermissions bool `yaml:"skip_permissions"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARNING, ERROR, CRITICAL.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Root:    defaultDataRoot(),
			AppRoot: ".",
		},
		Git: GitConfig{
			DefaultBranch:       "main",
			AllowDestructiveOps: false,
		},
		Review: ReviewConfig{
			TimeoutSeconds: 600,
		},
		Agents: AgentsConfig{
			SkipPermissions: true,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

func defaultDataRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".adw"
	}
	return filepath.Join(home, ".adw")
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or absent), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Data.Root = v
	}
	if v := os.Getenv(EnvAppRoot); v != "" {
		c.Data.AppRoot = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvDefaultGitBranch); v != "" {
		c.Git.DefaultBranch = v
	}
	if BoolFromEnv(EnvAllowDestructiveGitOps) {
		c.Git.AllowDestructiveOps = true
	}
	if v := os.Getenv(EnvCodeRabbitTimeoutSeconds); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Review.TimeoutSeconds = secs
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return fmt.Errorf("data.root is required")
	}
	if c.Git.DefaultBranch == "" {
		return fmt.Errorf("git.default_branch is required")
	}
	if c.Review.TimeoutSeconds <= 0 {
		return fmt.Errorf("review.timeout_seconds must be positive")
	}
	return nil
}

// DSN resolves the Postgres connection string: an explicit URL wins,
// otherwise it is derived from the Supabase project variables.
func (c *Config) DSN() (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	return SupabaseDSN(os.Getenv(EnvSupabaseURL), os.Getenv(EnvSupabaseServiceRoleKey))
}
