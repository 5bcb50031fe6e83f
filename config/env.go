package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Environment variables recognised across the orchestrator.
const (
	EnvDatabaseURL            = "DATABASE_URL"
	EnvSupabaseURL            = "SUPABASE_URL"
	EnvSupabaseServiceRoleKey = "SUPABASE_SERVICE_ROLE_KEY"

	EnvPlatform  = "DEV_SEC_OPS_PLATFORM"
	EnvGitHubPAT = "GITHUB_PAT"
	EnvGitLabPAT = "GITLAB_PAT"

	EnvDefaultGitBranch       = "DEFAULT_GIT_BRANCH"
	EnvAllowDestructiveGitOps = "ALLOW_DESTRUCTIVE_GIT_OPS"

	EnvWorkflowTimeoutSeconds   = "WORKFLOW_TIMEOUT_SECONDS"
	EnvCodeRabbitTimeoutSeconds = "CODERABBIT_TIMEOUT_SECONDS"

	EnvClaudeCodePath = "CLAUDE_CODE_PATH"
	EnvOpenCodePath   = "OPENCODE_PATH"
	EnvADWCommand     = "ADW_COMMAND"

	EnvDataDir = "DATA_DIR"
	EnvAppRoot = "APP_ROOT"

	EnvWorkflowRegistryFlag = "WORKFLOW_REGISTRY_FLAG"
)

// Platform values selecting the PR integration.
const (
	PlatformGitHub = "github"
	PlatformGitLab = "gitlab"
)

// PlatformFromEnv returns the normalised DevSecOps platform selector.
// Unsupported values are reported as empty (no PR integration).
func PlatformFromEnv() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvPlatform))) {
	case PlatformGitHub:
		return PlatformGitHub
	case PlatformGitLab:
		return PlatformGitLab
	default:
		return ""
	}
}

// BoolFromEnv interprets an environment variable as a boolean flag.
func BoolFromEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// SupabaseDSN derives a direct Postgres connection string from a Supabase
// project URL and service-role key.
func SupabaseDSN(projectURL, serviceKey string) (string, error) {
	if projectURL == "" || serviceKey == "" {
		return "", fmt.Errorf("issue store requires %s or %s plus %s",
			EnvDatabaseURL, EnvSupabaseURL, EnvSupabaseServiceRoleKey)
	}

	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", EnvSupabaseURL, err)
	}
	host := u.Hostname()
	if host == "" {
		host = strings.TrimSuffix(projectURL, "/")
	}
	ref, _, ok := strings.Cut(host, ".")
	if !ok || ref == "" {
		return "", fmt.Errorf("cannot derive project ref from %s=%q", EnvSupabaseURL, projectURL)
	}

	return fmt.Sprintf("postgres://postgres:%s@db.%s.supabase.co:5432/postgres",
		url.QueryEscape(serviceKey), ref), nil
}
