// Package platform wraps the GitHub and GitLab CLIs used for pull request
// operations. Both clients share the same surface so pipeline steps stay
// platform-agnostic.
package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/adw/config"
)

// cliTimeout caps one platform CLI invocation.
const cliTimeout = 120 * time.Second

var (
	// ErrCLINotFound indicates the platform CLI is not on PATH.
	ErrCLINotFound = errors.New("platform CLI not found")
	// ErrNoCredentials indicates the credentials env var is unset.
	ErrNoCredentials = errors.New("platform credentials not configured")
	// ErrUnsupportedPlatform indicates an unknown platform selector.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrNoPullRequest indicates no open PR exists for the branch.
	ErrNoPullRequest = errors.New("no pull request for branch")
)

// urlPattern extracts the first URL from CLI output.
var urlPattern = regexp.MustCompile(`https?://[^\s'"]+`)

// CreateParams describes a pull request to create.
type CreateParams struct {
	Title  string
	Body   string
	Branch string
	Base   string
}

// PullRequest is the outcome of a create call. Existing marks a PR that was
// already open for the branch.
type PullRequest struct {
	URL      string
	Existing bool
}

// Client is the platform-CLI surface used by the PR steps.
type Client interface {
	// Name returns the platform selector this client serves.
	Name() string
	// CheckAvailable verifies credentials and CLI presence. Errors wrap
	// ErrNoCredentials or ErrCLINotFound so callers can skip instead of
	// fail.
	CheckAvailable() error
	// CreatePullRequest opens a PR with the given title and body. A PR
	// that already exists for the branch is reported as success with
	// Existing set.
	CreatePullRequest(ctx context.Context, p CreateParams) (*PullRequest, error)
	// PullRequestURL resolves the URL of the open PR for a branch.
	PullRequestURL(ctx context.Context, branch string) (string, error)
}

// New returns the client for the given platform selector.
func New(platform, repoRoot string) (Client, error) {
	switch platform {
	case config.PlatformGitHub:
		return NewGitHub(repoRoot), nil
	case config.PlatformGitLab:
		return NewGitLab(repoRoot), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
}

// runner executes a platform CLI in the repo directory with forwarded
// credentials. Stdout and stderr stay separate because gh and glab report
// existing PRs on stderr.
type runner struct {
	repoRoot string
	binary   string
	extraEnv []string
}

func (r *runner) run(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	cctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.binary, args...)
	cmd.Dir = r.repoRoot
	cmd.Env = append(os.Environ(), r.extraEnv...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// checkAvailable validates a credentials env var and the CLI binary.
func (r *runner) checkAvailable(credEnv string) error {
	if os.Getenv(credEnv) == "" {
		return fmt.Errorf("%w: %s not set", ErrNoCredentials, credEnv)
	}
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("%w: %s", ErrCLINotFound, r.binary)
	}
	return nil
}

// existingPullRequest interprets a failed create whose stderr reports an
// already-open PR. The URL is parsed out of the message.
func existingPullRequest(stderr string) (*PullRequest, bool) {
	if !strings.Contains(stderr, "already exists") {
		return nil, false
	}
	url := urlPattern.FindString(stderr)
	if url == "" {
		return nil, false
	}
	return &PullRequest{URL: strings.TrimRight(url, ".),"), Existing: true}, true
}

// lastURL returns the last URL in output, which is where gh and glab print
// the created PR link.
func lastURL(output string) string {
	matches := urlPattern.FindAllString(output, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(output)
	}
	return matches[len(matches)-1]
}
