package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// runCmd runs a command in dir and fails the test on error.
func runCmd(t *testing.T, dir, name string, args ...string) {
	t.Helper()

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

// setupTestRepo creates a temporary git repository for testing
func setupTestRepo(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	runCmd(t, tmpDir, "git", "init", "-b", "main")
	runCmd(t, tmpDir, "git", "config", "user.email", "test@example.com")
	runCmd(t, tmpDir, "git", "config", "user.name", "Test User")

	testFile := filepath.Join(tmpDir, "initial.txt")
	if err := os.WriteFile(testFile, []byte("initial"), 0644); err != nil {
		t.Fatalf("write initial file: %v", err)
	}

	runCmd(t, tmpDir, "git", "add", ".")
	runCmd(t, tmpDir, "git", "commit", "-m", "feat: initial commit")

	return tmpDir
}

// addBareRemote wires a local bare repository as origin so fetch and push
// work without network access.
func addBareRemote(t *testing.T, repoDir string) string {
	t.Helper()

	bareDir := t.TempDir()
	runCmd(t, bareDir, "git", "init", "--bare", "-b", "main")
	runCmd(t, repoDir, "git", "remote", "add", "origin", bareDir)
	runCmd(t, repoDir, "git", "push", "-u", "origin", "main")

	return bareDir
}

func writeAndCommit(t *testing.T, repoDir, name, content, message string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(repoDir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	runCmd(t, repoDir, "git", "add", ".")
	runCmd(t, repoDir, "git", "commit", "-m", message)
}

func TestSetup(t *testing.T) {
	repoDir := setupTestRepo(t)
	addBareRemote(t, repoDir)
	executor := NewExecutor(repoDir)

	result, err := executor.Setup(context.Background(), "main", "adw-test1234")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if result.BaseBranch != "main" {
		t.Errorf("expected base main, got %s", result.BaseBranch)
	}
	if result.Branch != "adw-test1234" {
		t.Errorf("expected branch adw-test1234, got %s", result.Branch)
	}
	if result.HeadCommit == "" {
		t.Error("expected head commit to be resolved")
	}
	if result.ResetHard {
		t.Error("reset should not run without destructive ops enabled")
	}

	branch, err := executor.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("current branch: %v", err)
	}
	if branch != "adw-test1234" {
		t.Errorf("expected checkout of adw-test1234, got %s", branch)
	}
}

func TestSetupIsResumable(t *testing.T) {
	repoDir := setupTestRepo(t)
	addBareRemote(t, repoDir)
	executor := NewExecutor(repoDir)

	if _, err := executor.Setup(context.Background(), "main", "adw-resume99"); err != nil {
		t.Fatalf("first setup failed: %v", err)
	}
	if _, err := executor.Setup(context.Background(), "main", "adw-resume99"); err != nil {
		t.Fatalf("second setup failed: %v", err)
	}
}

func TestSetupWithDestructiveOps(t *testing.T) {
	repoDir := setupTestRepo(t)
	addBareRemote(t, repoDir)

	// Dirty the tracked file so the reset has something to discard.
	if err := os.WriteFile(filepath.Join(repoDir, "initial.txt"), []byte("dirty"), 0644); err != nil {
		t.Fatalf("dirty file: %v", err)
	}

	executor := NewExecutor(repoDir).WithDestructiveOps(true)
	result, err := executor.Setup(context.Background(), "main", "adw-clean5678")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if !result.ResetHard {
		t.Error("expected hard reset to run")
	}

	content, err := os.ReadFile(filepath.Join(repoDir, "initial.txt"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(content) != "initial" {
		t.Errorf("expected reset to restore file, got %q", content)
	}
}

func TestSetupNotARepo(t *testing.T) {
	executor := NewExecutor(t.TempDir())
	if _, err := executor.Setup(context.Background(), "main", "adw-x"); err == nil {
		t.Error("expected error for non-git directory")
	}
}

func TestResetHardGated(t *testing.T) {
	repoDir := setupTestRepo(t)
	executor := NewExecutor(repoDir)

	err := executor.ResetHard(context.Background(), "HEAD")
	if !errors.Is(err, ErrDestructiveDisabled) {
		t.Errorf("expected ErrDestructiveDisabled, got %v", err)
	}
}

func TestEnsureBranch(t *testing.T) {
	repoDir := setupTestRepo(t)
	executor := NewExecutor(repoDir)
	ctx := context.Background()

	if err := executor.EnsureBranch(ctx, "feature-x", "main"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if err := executor.EnsureBranch(ctx, "main", ""); err != nil {
		t.Fatalf("switch back: %v", err)
	}
	if err := executor.EnsureBranch(ctx, "feature-x", ""); err != nil {
		t.Fatalf("switch to existing branch: %v", err)
	}

	branch, err := executor.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("current branch: %v", err)
	}
	if branch != "feature-x" {
		t.Errorf("expected feature-x, got %s", branch)
	}
}

func TestPush(t *testing.T) {
	repoDir := setupTestRepo(t)
	addBareRemote(t, repoDir)
	executor := NewExecutor(repoDir)
	ctx := context.Background()

	if err := executor.EnsureBranch(ctx, "adw-push1", "main"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	writeAndCommit(t, repoDir, "change.txt", "change", "feat: add change")

	if err := executor.Push(ctx, "adw-push1"); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	// Pushing again with nothing new still succeeds.
	if err := executor.Push(ctx, "adw-push1"); err != nil {
		t.Fatalf("repeat push failed: %v", err)
	}
}

func TestCleanWorktree(t *testing.T) {
	repoDir := setupTestRepo(t)
	executor := NewExecutor(repoDir)
	ctx := context.Background()

	clean, err := executor.CleanWorktree(ctx)
	if err != nil {
		t.Fatalf("clean check: %v", err)
	}
	if !clean {
		t.Error("expected clean worktree after commit")
	}

	if err := os.WriteFile(filepath.Join(repoDir, "initial.txt"), []byte("modified"), 0644); err != nil {
		t.Fatalf("modify file: %v", err)
	}

	clean, err = executor.CleanWorktree(ctx)
	if err != nil {
		t.Fatalf("clean check: %v", err)
	}
	if clean {
		t.Error("expected dirty worktree after modification")
	}
}

func TestDiffStat(t *testing.T) {
	repoDir := setupTestRepo(t)
	executor := NewExecutor(repoDir)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(repoDir, "initial.txt"), []byte("modified"), 0644); err != nil {
		t.Fatalf("modify file: %v", err)
	}

	stat, err := executor.DiffStat(ctx, "")
	if err != nil {
		t.Fatalf("diff stat: %v", err)
	}
	if !strings.Contains(stat, "initial.txt") {
		t.Errorf("expected initial.txt in diff stat, got %q", stat)
	}
}

func TestCommitsSince(t *testing.T) {
	repoDir := setupTestRepo(t)
	executor := NewExecutor(repoDir)
	ctx := context.Background()

	if err := executor.EnsureBranch(ctx, "adw-work", "main"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	writeAndCommit(t, repoDir, "a.txt", "a", "feat: first change")
	writeAndCommit(t, repoDir, "b.txt", "b", "fix: second change")

	subjects, err := executor.CommitsSince(ctx, "main")
	if err != nil {
		t.Fatalf("commits since: %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("expected 2 commits, got %d: %v", len(subjects), subjects)
	}
	if subjects[0] != "fix: second change" {
		t.Errorf("expected newest first, got %v", subjects)
	}
	if subjects[1] != "feat: first change" {
		t.Errorf("expected oldest last, got %v", subjects)
	}
}

func TestValidateConventionalCommit(t *testing.T) {
	tests := []struct {
		message string
		valid   bool
	}{
		{"feat: add worker daemon", true},
		{"fix(store): handle empty DSN", true},
		{"chore: bump deps", true},
		{"refactor(pipeline): extract runner", true},
		{"Add worker daemon", false},
		{"feat add worker daemon", false},
		{"feat:", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ValidateConventionalCommit(tt.message); got != tt.valid {
				t.Errorf("ValidateConventionalCommit(%q) = %v, want %v", tt.message, got, tt.valid)
			}
		})
	}
}
