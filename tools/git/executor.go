// Package git provides the git subprocess operations used by workflow steps.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// pushTimeout caps one push so a hung remote cannot stall a pipeline.
const pushTimeout = 60 * time.Second

// ErrDestructiveDisabled is returned when a hard reset is requested without
// destructive operations enabled.
var ErrDestructiveDisabled = errors.New("destructive git operations are disabled")

// conventionalCommitPattern matches conventional commit format
var conventionalCommitPattern = regexp.MustCompile(`^(feat|fix|docs|style|refactor|test|chore|perf|ci|build|revert)(\([a-zA-Z0-9_-]+\))?: .+`)

// Executor runs git commands against a single working copy.
type Executor struct {
	repoRoot         string
	allowDestructive bool
	logger           *slog.Logger
}

// NewExecutor creates a new git executor with the given repository root.
func NewExecutor(repoRoot string) *Executor {
	return &Executor{
		repoRoot: repoRoot,
		logger:   slog.Default(),
	}
}

// WithDestructiveOps enables hard resets of the working copy.
func (e *Executor) WithDestructiveOps(allow bool) *Executor {
	e.allowDestructive = allow
	return e
}

// WithLogger sets the logger used for non-fatal diagnostics.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// SetupResult describes the working copy produced by Setup.
type SetupResult struct {
	BaseBranch string
	Branch     string
	HeadCommit string
	ResetHard  bool
}

// Setup prepares the working copy for a workflow run: refresh remote refs,
// check out the base branch, optionally hard-reset it to the remote, then
// create or switch to the workflow branch.
func (e *Executor) Setup(ctx context.Context, baseBranch, workBranch string) (*SetupResult, error) {
	if !e.IsRepo() {
		return nil, fmt.Errorf("%s is not a git repository", e.repoRoot)
	}
	if baseBranch == "" || workBranch == "" {
		return nil, fmt.Errorf("base branch and workflow branch are required")
	}

	if err := e.Fetch(ctx, "origin"); err != nil {
		e.logger.Warn("git fetch failed, continuing with local refs", "error", err)
	}

	if _, err := e.runGit(ctx, "checkout", baseBranch); err != nil {
		return nil, fmt.Errorf("checkout base branch %s: %w", baseBranch, err)
	}

	didReset := false
	if e.allowDestructive {
		if err := e.ResetHard(ctx, "origin/"+baseBranch); err != nil {
			return nil, err
		}
		didReset = true
	}

	if err := e.EnsureBranch(ctx, workBranch, baseBranch); err != nil {
		return nil, err
	}

	head, err := e.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}

	return &SetupResult{
		BaseBranch: baseBranch,
		Branch:     workBranch,
		HeadCommit: head,
		ResetHard:  didReset,
	}, nil
}

// EnsureBranch switches to the named branch, creating it from base when it
// does not exist yet.
func (e *Executor) EnsureBranch(ctx context.Context, name, base string) error {
	if name == "" {
		return fmt.Errorf("branch name is required")
	}

	if e.branchExists(ctx, name) {
		if _, err := e.runGit(ctx, "checkout", name); err != nil {
			return fmt.Errorf("switch to branch %s: %w", name, err)
		}
		return nil
	}

	args := []string{"checkout", "-b", name}
	if base != "" {
		args = append(args, base)
	}
	if _, err := e.runGit(ctx, args...); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// ResetHard resets the working copy to ref, discarding local changes. It
// refuses unless destructive operations were enabled.
func (e *Executor) ResetHard(ctx context.Context, ref string) error {
	if !e.allowDestructive {
		return fmt.Errorf("%w: refusing reset --hard %s", ErrDestructiveDisabled, ref)
	}
	if _, err := e.runGit(ctx, "reset", "--hard", ref); err != nil {
		return fmt.Errorf("reset --hard %s: %w", ref, err)
	}
	return nil
}

// Fetch refreshes refs from the named remote.
func (e *Executor) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		remote = "origin"
	}
	if _, err := e.runGit(ctx, "fetch", remote); err != nil {
		return fmt.Errorf("fetch %s: %w", remote, err)
	}
	return nil
}

// Push publishes the branch to origin, bounded by pushTimeout.
func (e *Executor) Push(ctx context.Context, branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name is required")
	}
	pctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if _, err := e.runGit(pctx, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (e *Executor) CurrentBranch(ctx context.Context) (string, error) {
	out, err := e.runGit(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// HeadCommit returns the full SHA of HEAD.
func (e *Executor) HeadCommit(ctx context.Context) (string, error) {
	out, err := e.runGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CleanWorktree reports whether the working copy has no pending changes.
func (e *Executor) CleanWorktree(ctx context.Context) (bool, error) {
	out, err := e.runGit(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}

// DiffStat summarises working-copy changes relative to base. An empty base
// diffs against the index.
func (e *Executor) DiffStat(ctx context.Context, base string) (string, error) {
	args := []string{"diff", "--stat"}
	if base != "" {
		args = append(args, base)
	}
	out, err := e.runGit(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("diff --stat: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CommitsSince returns commit subjects on HEAD since base, newest first.
func (e *Executor) CommitsSince(ctx context.Context, base string) ([]string, error) {
	rangeSpec := "HEAD"
	if base != "" {
		rangeSpec = base + "..HEAD"
	}
	out, err := e.runGit(ctx, "log", "--format=%s", rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", rangeSpec, err)
	}

	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects, nil
}

// IsRepo checks if the repo root is a git repository.
func (e *Executor) IsRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = e.repoRoot
	return cmd.Run() == nil
}

// ValidateConventionalCommit checks if a message follows conventional commit format
func ValidateConventionalCommit(message string) bool {
	return conventionalCommitPattern.MatchString(message)
}

// runGit executes a git command in the repo directory
func (e *Executor) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.repoRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%w: %s", err, string(output))
	}
	return string(output), nil
}

// branchExists checks if a branch exists
func (e *Executor) branchExists(ctx context.Context, name string) bool {
	_, err := e.runGit(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}
