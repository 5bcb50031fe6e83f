package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "adw.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/adw"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader resolves configuration with layered precedence: defaults, then
// the user config, then the project config, then the environment.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load builds the effective configuration. An explicit path skips
// discovery and layers only that file over the defaults.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cfg := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if err := overlayFile(cfg, userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", "path", userConfigPath)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("Failed to load user config", "path", userConfigPath, "error", err)
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if err := overlayFile(cfg, projectConfigPath); err != nil {
			return nil, fmt.Errorf("load project config %s: %w", projectConfigPath, err)
		}
		l.logger.Debug("Loaded project config", "path", projectConfigPath)
	} else {
		l.logger.Debug("No project config found")
	}

	// Pipelines operate on the enclosing repository unless told otherwise.
	if cfg.Data.AppRoot == "" || cfg.Data.AppRoot == "." {
		if gitRoot := l.detectGitRoot(); gitRoot != "" {
			cfg.Data.AppRoot = gitRoot
			l.logger.Debug("Auto-detected git root", "path", gitRoot)
		} else if cwd, err := os.Getwd(); err == nil {
			cfg.Data.AppRoot = cwd
			l.logger.Debug("Using current directory as app root", "path", cwd)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFile unmarshals a YAML file over cfg. Absent fields keep their
// current values.
func overlayFile(cfg *Config, path string) error {
	if path == "" {
		return os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// userConfigPath returns the path to the user config file.
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for adw.yaml in the current and parent
// directories.
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// detectGitRoot finds the git repository root from the current directory.
func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
