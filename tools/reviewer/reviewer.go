// Package reviewer wraps the CodeRabbit CLI used by the code review step.
package reviewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBinary = "coderabbit"

	// configFileName is looked up under the repository root and passed to
	// the CLI when present.
	configFileName = ".coderabbit.yaml"

	// cleanMarker appears in every completed review; findingMarker appears
	// once per file with findings. A review is clean when the first is
	// present and the second is not.
	cleanMarker   = "Review completed"
	findingMarker = "File:"
)

// ErrNotInstalled indicates the reviewer CLI is not on PATH.
var ErrNotInstalled = errors.New("coderabbit CLI not found")

// Review holds the output of one reviewer invocation.
type Review struct {
	// Output is the full prompt-oriented review text.
	Output string
	// Clean reports that the review finished without per-file findings.
	Clean bool
}

// Reviewer shells out to the CodeRabbit CLI against one working copy.
type Reviewer struct {
	repoRoot string
	binary   string
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a reviewer for the given repository root. The timeout caps a
// single invocation.
func New(repoRoot string, timeout time.Duration) *Reviewer {
	return &Reviewer{
		repoRoot: repoRoot,
		binary:   defaultBinary,
		timeout:  timeout,
		logger:   slog.Default(),
	}
}

// WithBinary overrides the reviewer binary path.
func (r *Reviewer) WithBinary(path string) *Reviewer {
	if path != "" {
		r.binary = path
	}
	return r
}

// WithLogger sets the logger used for diagnostics.
func (r *Reviewer) WithLogger(logger *slog.Logger) *Reviewer {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Run executes one review. A non-empty baseCommit narrows the review to
// changes since that commit.
func (r *Reviewer) Run(ctx context.Context, baseCommit string) (*Review, error) {
	if _, err := exec.LookPath(r.binary); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, r.binary)
	}

	args := []string{"--prompt-only"}
	configPath := filepath.Join(r.repoRoot, configFileName)
	if _, err := os.Stat(configPath); err == nil {
		args = append(args, "--config", configPath)
	}
	if baseCommit != "" {
		args = append(args, "--base-commit", baseCommit)
	}

	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Debug("running reviewer", "binary", r.binary, "args", args)

	cmd := exec.CommandContext(rctx, r.binary, args...)
	cmd.Dir = r.repoRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		if rctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("reviewer timed out after %s", r.timeout)
		}
		return nil, fmt.Errorf("reviewer failed: %w: %s", err, string(output))
	}

	text := string(output)
	return &Review{
		Output: text,
		Clean:  IsCleanReview(text),
	}, nil
}

// IsCleanReview reports whether review output indicates no findings.
func IsCleanReview(output string) bool {
	return strings.Contains(output, cleanMarker) && !strings.Contains(output, findingMarker)
}
