// Package providers implements the agent CLI providers.
package providers

import (
	"os"
	"sort"

	"github.com/c360studio/adw/config"
)

// baseEnvVars are forwarded to agent subprocesses when set. Everything
// else is filtered out so a workflow's environment stays reproducible.
var baseEnvVars = []string{
	"HOME",
	"PATH",
	"USER",
	"SHELL",
	"TERM",
	"LANG",
	"LC_ALL",
	"TMPDIR",
	"ANTHROPIC_API_KEY",
	config.EnvClaudeCodePath,
	config.EnvOpenCodePath,
}

// filteredEnv builds the subprocess environment: the base allowlist,
// platform tokens translated to the names the CLIs expect, then extras.
func filteredEnv(extra map[string]string) []string {
	env := make([]string, 0, len(baseEnvVars)+len(extra)+2)
	for _, key := range baseEnvVars {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	if pat := os.Getenv(config.EnvGitHubPAT); pat != "" {
		env = append(env, "GH_TOKEN="+pat)
	}
	if pat := os.Getenv(config.EnvGitLabPAT); pat != "" {
		env = append(env, "GITLAB_TOKEN="+pat)
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+extra[key])
	}
	return env
}
