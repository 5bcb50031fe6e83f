package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/c360studio/adw/config"
)

// writeFakeCLI writes an executable script standing in for gh or glab.
func writeFakeCLI(t *testing.T, name, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake CLI scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("write fake CLI: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	if c, err := New(config.PlatformGitHub, "."); err != nil || c.Name() != "github" {
		t.Errorf("expected github client, got %v, %v", c, err)
	}
	if c, err := New(config.PlatformGitLab, "."); err != nil || c.Name() != "gitlab" {
		t.Errorf("expected gitlab client, got %v, %v", c, err)
	}
	if _, err := New("bitbucket", "."); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestCheckAvailable(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv(config.EnvGitHubPAT, "")
		client := NewGitHub(".")
		if err := client.CheckAvailable(); !errors.Is(err, ErrNoCredentials) {
			t.Errorf("expected ErrNoCredentials, got %v", err)
		}
	})

	t.Run("missing CLI", func(t *testing.T) {
		t.Setenv(config.EnvGitHubPAT, "token")
		client := NewGitHub(".").WithBinary(filepath.Join(t.TempDir(), "absent"))
		if err := client.CheckAvailable(); !errors.Is(err, ErrCLINotFound) {
			t.Errorf("expected ErrCLINotFound, got %v", err)
		}
	})

	t.Run("available", func(t *testing.T) {
		t.Setenv(config.EnvGitHubPAT, "token")
		binary := writeFakeCLI(t, "gh", "exit 0")
		client := NewGitHub(".").WithBinary(binary)
		if err := client.CheckAvailable(); err != nil {
			t.Errorf("expected availability, got %v", err)
		}
	})
}

func TestCreatePullRequest(t *testing.T) {
	binary := writeFakeCLI(t, "gh", `echo "https://github.com/acme/repo/pull/7"`)
	client := NewGitHub(t.TempDir()).WithBinary(binary)

	pr, err := client.CreatePullRequest(context.Background(), CreateParams{
		Title:  "feat: add worker daemon",
		Body:   "Adds the polling worker.",
		Branch: "adw-abc123",
		Base:   "main",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if pr.URL != "https://github.com/acme/repo/pull/7" {
		t.Errorf("unexpected URL %q", pr.URL)
	}
	if pr.Existing {
		t.Error("fresh PR should not be marked existing")
	}
}

func TestCreatePullRequestAlreadyExists(t *testing.T) {
	binary := writeFakeCLI(t, "gh", `echo 'a pull request for branch "adw-xyz" into branch "main" already exists: https://example/pr/42' >&2
exit 1`)
	client := NewGitHub(t.TempDir()).WithBinary(binary)

	pr, err := client.CreatePullRequest(context.Background(), CreateParams{
		Title: "feat: retry",
		Body:  "body",
	})
	if err != nil {
		t.Fatalf("existing PR should be success, got %v", err)
	}
	if !pr.Existing {
		t.Error("expected existing marker")
	}
	if pr.URL != "https://example/pr/42" {
		t.Errorf("expected parsed URL, got %q", pr.URL)
	}
}

func TestCreatePullRequestFailure(t *testing.T) {
	binary := writeFakeCLI(t, "gh", `echo "GraphQL: rate limited" >&2
exit 1`)
	client := NewGitHub(t.TempDir()).WithBinary(binary)

	if _, err := client.CreatePullRequest(context.Background(), CreateParams{Title: "t", Body: "b"}); err == nil {
		t.Error("expected create failure")
	}
}

func TestPullRequestURL(t *testing.T) {
	binary := writeFakeCLI(t, "gh", `echo '{"url":"https://github.com/acme/repo/pull/9"}'`)
	client := NewGitHub(t.TempDir()).WithBinary(binary)

	url, err := client.PullRequestURL(context.Background(), "adw-abc123")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if url != "https://github.com/acme/repo/pull/9" {
		t.Errorf("unexpected URL %q", url)
	}
}

func TestPullRequestURLNotFound(t *testing.T) {
	binary := writeFakeCLI(t, "gh", `echo "no pull requests found for branch adw-abc123" >&2
exit 1`)
	client := NewGitHub(t.TempDir()).WithBinary(binary)

	_, err := client.PullRequestURL(context.Background(), "adw-abc123")
	if !errors.Is(err, ErrNoPullRequest) {
		t.Errorf("expected ErrNoPullRequest, got %v", err)
	}
}

func TestGitLabMergeRequestURL(t *testing.T) {
	binary := writeFakeCLI(t, "glab", `echo '{"iid":3,"web_url":"https://gitlab.com/acme/repo/-/merge_requests/3"}'`)
	client := NewGitLab(t.TempDir()).WithBinary(binary)

	url, err := client.PullRequestURL(context.Background(), "adw-abc123")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if url != "https://gitlab.com/acme/repo/-/merge_requests/3" {
		t.Errorf("unexpected URL %q", url)
	}
}

func TestGitLabCreateMergeRequest(t *testing.T) {
	binary := writeFakeCLI(t, "glab", `echo "https://gitlab.com/acme/repo/-/merge_requests/4"`)
	client := NewGitLab(t.TempDir()).WithBinary(binary)

	pr, err := client.CreatePullRequest(context.Background(), CreateParams{
		Title:  "fix: patch flow",
		Body:   "body",
		Branch: "adw-abc123",
		Base:   "main",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if pr.URL != "https://gitlab.com/acme/repo/-/merge_requests/4" {
		t.Errorf("unexpected URL %q", pr.URL)
	}
}

func TestExistingPullRequestParsing(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		url    string
		ok     bool
	}{
		{
			"gh existing",
			`a pull request for branch "b" into branch "main" already exists: https://example/pr/1`,
			"https://example/pr/1",
			true,
		},
		{
			"trailing punctuation",
			`already exists: https://example/pr/2.`,
			"https://example/pr/2",
			true,
		},
		{"no marker", "something else failed", "", false},
		{"marker without URL", "already exists", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, ok := existingPullRequest(tt.stderr)
			if ok != tt.ok {
				t.Fatalf("existingPullRequest(%q) ok = %v, want %v", tt.stderr, ok, tt.ok)
			}
			if ok && pr.URL != tt.url {
				t.Errorf("URL = %q, want %q", pr.URL, tt.url)
			}
		})
	}
}
