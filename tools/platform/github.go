package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/c360studio/adw/config"
)

// GitHub drives pull requests through the gh CLI.
type GitHub struct {
	runner
}

// NewGitHub creates a GitHub client for the given repository root. The
// GITHUB_PAT credential is forwarded to gh as GH_TOKEN.
func NewGitHub(repoRoot string) *GitHub {
	g := &GitHub{runner: runner{repoRoot: repoRoot, binary: "gh"}}
	if pat := os.Getenv(config.EnvGitHubPAT); pat != "" {
		g.extraEnv = append(g.extraEnv, "GH_TOKEN="+pat)
	}
	return g
}

// WithBinary overrides the gh binary path.
func (g *GitHub) WithBinary(path string) *GitHub {
	if path != "" {
		g.binary = path
	}
	return g
}

// Name returns the platform selector this client serves.
func (g *GitHub) Name() string { return config.PlatformGitHub }

// CheckAvailable verifies the GITHUB_PAT credential and the gh CLI.
func (g *GitHub) CheckAvailable() error {
	return g.checkAvailable(config.EnvGitHubPAT)
}

// CreatePullRequest opens a pull request with gh pr create.
func (g *GitHub) CreatePullRequest(ctx context.Context, p CreateParams) (*PullRequest, error) {
	args := []string{"pr", "create", "--title", p.Title, "--body", p.Body}
	if p.Base != "" {
		args = append(args, "--base", p.Base)
	}
	if p.Branch != "" {
		args = append(args, "--head", p.Branch)
	}

	stdout, stderr, err := g.run(ctx, args...)
	if err != nil {
		if pr, ok := existingPullRequest(stderr); ok {
			return pr, nil
		}
		return nil, fmt.Errorf("gh pr create: %w: %s", err, strings.TrimSpace(stderr))
	}

	return &PullRequest{URL: lastURL(stdout)}, nil
}

// PullRequestURL resolves the open PR for a branch via gh pr view.
func (g *GitHub) PullRequestURL(ctx context.Context, branch string) (string, error) {
	stdout, stderr, err := g.run(ctx, "pr", "view", branch, "--json", "url")
	if err != nil {
		if strings.Contains(stderr, "no pull requests found") {
			return "", fmt.Errorf("%w: %s", ErrNoPullRequest, branch)
		}
		return "", fmt.Errorf("gh pr view: %w: %s", err, strings.TrimSpace(stderr))
	}

	var view struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		return "", fmt.Errorf("parse gh pr view output: %w", err)
	}
	if view.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPullRequest, branch)
	}
	return view.URL, nil
}
