package agent

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// CommandsDir is where slash-command templates live relative to the
// application root. A template named adw-feature-plan.md backs the
// /adw-feature-plan command.
const CommandsDir = ".claude/commands"

// ListSlashCommands discovers the slash commands available under appRoot,
// sorted and without the leading slash.
func ListSlashCommands(appRoot string) ([]string, error) {
	pattern := filepath.Join(appRoot, CommandsDir, "**", "*.md")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob command templates: %w", err)
	}

	seen := make(map[string]bool)
	var commands []string
	for _, match := range matches {
		name := strings.TrimSuffix(filepath.Base(match), ".md")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		commands = append(commands, name)
	}
	sort.Strings(commands)
	return commands, nil
}

// HasSlashCommand reports whether a template exists for the named command
// (with or without the leading slash).
func HasSlashCommand(appRoot, command string) (bool, error) {
	command = strings.TrimPrefix(command, "/")
	commands, err := ListSlashCommands(appRoot)
	if err != nil {
		return false, err
	}
	for _, c := range commands {
		if c == command {
			return true, nil
		}
	}
	return false, nil
}
