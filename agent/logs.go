package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Agent log layout under the data root:
//
//	agents/logs/<adw_id>/<agent_name>/prompts/<slash-command>.txt
//	agents/logs/<adw_id>/<agent_name>/raw_output.jsonl
//	agents/logs/<adw_id>/<agent_name>/raw_output.json
const (
	logsDirName    = "logs"
	agentsDirName  = "agents"
	promptsDirName = "prompts"

	// RawOutputFile is the JSON-lines capture of a streaming run.
	RawOutputFile = "raw_output.jsonl"

	// RawOutputArrayFile is the parallel JSON-array rendering of
	// RawOutputFile, written for operator inspection.
	RawOutputArrayFile = "raw_output.json"
)

// slashCommandPattern matches a prompt's leading slash command.
var slashCommandPattern = regexp.MustCompile(`^/([A-Za-z0-9][A-Za-z0-9_-]*)`)

// LogDir returns the log directory for one agent within one workflow.
func LogDir(dataRoot, adwID, agentName string) string {
	return filepath.Join(dataRoot, agentsDirName, logsDirName, adwID, agentName)
}

// RawOutputPath returns the default raw-output path for an agent run.
func RawOutputPath(dataRoot, adwID, agentName string) string {
	return filepath.Join(LogDir(dataRoot, adwID, agentName), RawOutputFile)
}

// SlashCommand returns the leading slash command of a prompt without the
// slash, or "" when the prompt does not start with one.
func SlashCommand(prompt string) string {
	matches := slashCommandPattern.FindStringSubmatch(prompt)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// MirrorPrompt writes a slash-command prompt to the agent's prompt log so
// operators can replay what the agent was asked. Prompts without a slash
// command are not mirrored. Returns the mirror path, or "" when skipped.
func MirrorPrompt(dataRoot, adwID, agentName, prompt string) (string, error) {
	command := SlashCommand(prompt)
	if command == "" {
		return "", nil
	}

	dir := filepath.Join(LogDir(dataRoot, adwID, agentName), promptsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create prompt log directory: %w", err)
	}

	path := filepath.Join(dir, command+".txt")
	if err := os.WriteFile(path, []byte(prompt), 0o644); err != nil {
		return "", fmt.Errorf("write prompt mirror: %w", err)
	}
	return path, nil
}
