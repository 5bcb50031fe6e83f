package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCommandTemplate(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, CommandsDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("# prompt template\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}

func TestListSlashCommands(t *testing.T) {
	root := t.TempDir()
	writeCommandTemplate(t, root, "classify.md")
	writeCommandTemplate(t, root, "adw-feature-plan.md")
	writeCommandTemplate(t, root, filepath.Join("patch", "adw-patch-plan.md"))

	// Non-template files are ignored.
	if err := os.WriteFile(filepath.Join(root, CommandsDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	commands, err := ListSlashCommands(root)
	if err != nil {
		t.Fatalf("ListSlashCommands failed: %v", err)
	}

	want := []string{"adw-feature-plan", "adw-patch-plan", "classify"}
	if len(commands) != len(want) {
		t.Fatalf("commands = %v, want %v", commands, want)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("commands[%d] = %q, want %q", i, commands[i], want[i])
		}
	}
}

func TestListSlashCommandsMissingDir(t *testing.T) {
	commands, err := ListSlashCommands(t.TempDir())
	if err != nil {
		t.Fatalf("ListSlashCommands failed: %v", err)
	}
	if len(commands) != 0 {
		t.Errorf("expected no commands, got %v", commands)
	}
}

func TestHasSlashCommand(t *testing.T) {
	root := t.TempDir()
	writeCommandTemplate(t, root, "classify.md")

	tests := []struct {
		command string
		want    bool
	}{
		{"classify", true},
		{"/classify", true},
		{"implement", false},
	}
	for _, tt := range tests {
		got, err := HasSlashCommand(root, tt.command)
		if err != nil {
			t.Fatalf("HasSlashCommand(%q) failed: %v", tt.command, err)
		}
		if got != tt.want {
			t.Errorf("HasSlashCommand(%q) = %v, want %v", tt.command, got, tt.want)
		}
	}
}
