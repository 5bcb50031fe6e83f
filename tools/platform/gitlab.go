package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/c360studio/adw/config"
)

// GitLab drives merge requests through the glab CLI. Merge requests are
// surfaced through the same PullRequest shape as GitHub.
type GitLab struct {
	runner
}

// NewGitLab creates a GitLab client for the given repository root. The
// GITLAB_PAT credential is forwarded to glab as GITLAB_TOKEN.
func NewGitLab(repoRoot string) *GitLab {
	g := &GitLab{runner: runner{repoRoot: repoRoot, binary: "glab"}}
	if pat := os.Getenv(config.EnvGitLabPAT); pat != "" {
		g.extraEnv = append(g.extraEnv, "GITLAB_TOKEN="+pat)
	}
	return g
}

// WithBinary overrides the glab binary path.
func (g *GitLab) WithBinary(path string) *GitLab {
	if path != "" {
		g.binary = path
	}
	return g
}

// Name returns the platform selector this client serves.
func (g *GitLab) Name() string { return config.PlatformGitLab }

// CheckAvailable verifies the GITLAB_PAT credential and the glab CLI.
func (g *GitLab) CheckAvailable() error {
	return g.checkAvailable(config.EnvGitLabPAT)
}

// CreatePullRequest opens a merge request with glab mr create.
func (g *GitLab) CreatePullRequest(ctx context.Context, p CreateParams) (*PullRequest, error) {
	args := []string{"mr", "create", "--title", p.Title, "--description", p.Body, "--yes"}
	if p.Base != "" {
		args = append(args, "--target-branch", p.Base)
	}
	if p.Branch != "" {
		args = append(args, "--source-branch", p.Branch)
	}

	stdout, stderr, err := g.run(ctx, args...)
	if err != nil {
		if pr, ok := existingPullRequest(stderr); ok {
			return pr, nil
		}
		return nil, fmt.Errorf("glab mr create: %w: %s", err, strings.TrimSpace(stderr))
	}

	return &PullRequest{URL: lastURL(stdout)}, nil
}

// PullRequestURL resolves the open MR for a branch via glab mr view.
func (g *GitLab) PullRequestURL(ctx context.Context, branch string) (string, error) {
	stdout, stderr, err := g.run(ctx, "mr", "view", branch, "--output", "json")
	if err != nil {
		if strings.Contains(stderr, "no open merge request") {
			return "", fmt.Errorf("%w: %s", ErrNoPullRequest, branch)
		}
		return "", fmt.Errorf("glab mr view: %w: %s", err, strings.TrimSpace(stderr))
	}

	var view struct {
		WebURL string `json:"web_url"`
	}
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		return "", fmt.Errorf("parse glab mr view output: %w", err)
	}
	if view.WebURL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPullRequest, branch)
	}
	return view.WebURL, nil
}
