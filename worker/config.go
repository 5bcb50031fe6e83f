// Package worker implements the polling daemon that claims queued
// issues and spawns one pipeline driver subprocess per workflow run.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// EnvWorkflowTimeout overrides the per-workflow subprocess timeout.
	EnvWorkflowTimeout = "WORKFLOW_TIMEOUT_SECONDS"

	// EnvDriverCommand overrides pipeline driver resolution with an
	// explicit command line, e.g. "/usr/local/bin/adw run".
	EnvDriverCommand = "ADW_COMMAND"

	defaultPollInterval    = 10 * time.Second
	defaultWorkflowTimeout = 3600 * time.Second
)

var validLogLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// Config holds the worker daemon settings.
type Config struct {
	// WorkerID uniquely names this worker in the issue store.
	WorkerID string

	// PollInterval is the sleep between empty claim attempts.
	PollInterval time.Duration

	// WorkflowTimeout caps one pipeline subprocess.
	WorkflowTimeout time.Duration

	// LogLevel is one of DEBUG, INFO, WARNING, ERROR, CRITICAL.
	LogLevel string

	// WorkingDir is the repository root handed to spawned drivers.
	WorkingDir string

	// MetricsAddr serves /metrics and /healthz when non-empty.
	MetricsAddr string
}

// DefaultConfig returns the daemon defaults. WorkerID must still be
// set by the caller.
func DefaultConfig() Config {
	return Config{
		PollInterval:    defaultPollInterval,
		WorkflowTimeout: defaultWorkflowTimeout,
		LogLevel:        "INFO",
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WorkerID) == "" {
		return errors.New("worker id is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.WorkflowTimeout <= 0 {
		return fmt.Errorf("workflow timeout must be positive, got %s", c.WorkflowTimeout)
	}
	if !validLogLevels[strings.ToUpper(c.LogLevel)] {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// ApplyTimeoutEnv overrides the workflow timeout from
// WORKFLOW_TIMEOUT_SECONDS. Invalid or non-positive values keep the
// current timeout and log a warning.
func (c *Config) ApplyTimeoutEnv(logger *slog.Logger) {
	raw := strings.TrimSpace(os.Getenv(EnvWorkflowTimeout))
	if raw == "" {
		return
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		logger.Warn("Ignoring invalid workflow timeout override",
			"env", EnvWorkflowTimeout,
			"value", raw,
			"timeout", c.WorkflowTimeout)
		return
	}
	c.WorkflowTimeout = time.Duration(secs) * time.Second
}

// SlogLevel maps the configured level onto slog's scale. CRITICAL maps
// to error, which is the highest level slog knows.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
