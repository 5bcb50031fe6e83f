package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/pipeline"
)

func seedCompose(t *testing.T, wctx *pipeline.Context) {
	t.Helper()
	seedPayload(t, wctx, artifact.TypeComposeRequest, artifact.ComposeRequest{
		Title:   "feat: add dark mode toggle",
		Summary: "Adds a persisted dark mode toggle.",
		Branch:  "adw-xyz",
	})
}

func TestGHPullRequestStep(t *testing.T) {
	wctx := newTestContext(t, "pr000001")
	store := withIssues(t, wctx)
	wctx.IssueID = 42
	seedCompose(t, wctx)

	t.Setenv(config.EnvGitHubPAT, "token")
	installFakeCLI(t, "gh", `echo "https://example/pr/1"`)

	res := NewGHPullRequestStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("pull request failed: %s", res.Error)
	}

	pr, err := loadInput[artifact.PullRequest](wctx, artifact.TypeGHPullRequest)
	if err != nil {
		t.Fatalf("load pull request: %v", err)
	}
	if pr.URL != "https://example/pr/1" {
		t.Errorf("URL = %q, want https://example/pr/1", pr.URL)
	}
	if pr.Output != "pull-request-created" {
		t.Errorf("Output = %q, want pull-request-created", pr.Output)
	}
	if pr.Existing {
		t.Error("fresh PR should not be marked existing")
	}
	if pr.Platform != config.PlatformGitHub {
		t.Errorf("Platform = %q, want github", pr.Platform)
	}

	var found bool
	for _, c := range store.Comments() {
		if c.Raw["output"] == "pull-request-created" && c.Raw["url"] == "https://example/pr/1" {
			found = true
		}
	}
	if !found {
		t.Error("expected a pull-request-created comment with the URL")
	}
}

func TestGHPullRequestStepExisting(t *testing.T) {
	wctx := newTestContext(t, "pr000002")
	store := withIssues(t, wctx)
	wctx.IssueID = 42
	seedCompose(t, wctx)

	t.Setenv(config.EnvGitHubPAT, "token")
	installFakeCLI(t, "gh", `echo 'a pull request for branch "adw-xyz" into branch "main" already exists: https://example/pr/42' >&2
exit 1`)

	res := NewGHPullRequestStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("existing PR should be success, got: %s", res.Error)
	}

	pr, err := loadInput[artifact.PullRequest](wctx, artifact.TypeGHPullRequest)
	if err != nil {
		t.Fatalf("load pull request: %v", err)
	}
	if pr.URL != "https://example/pr/42" {
		t.Errorf("URL = %q, want https://example/pr/42", pr.URL)
	}
	if !pr.Existing {
		t.Error("Existing = false, want true")
	}

	var found bool
	for _, c := range store.Comments() {
		if c.Raw["existing"] == true && c.Raw["url"] == "https://example/pr/42" {
			found = true
		}
	}
	if !found {
		t.Error("expected a comment marking the PR as existing")
	}
}

func TestGHPullRequestStepSkipsWithoutCredentials(t *testing.T) {
	wctx := newTestContext(t, "pr000003")
	store := withIssues(t, wctx)
	wctx.IssueID = 42
	seedCompose(t, wctx)

	t.Setenv(config.EnvGitHubPAT, "")

	res := NewGHPullRequestStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("missing credentials should skip, got: %s", res.Error)
	}
	if wctx.Store.Exists(artifact.TypeGHPullRequest) {
		t.Error("skipped step should not write an artifact")
	}

	var found bool
	for _, c := range store.Comments() {
		if c.Type == string(artifact.TypeGHPullRequest)+"-skipped" {
			found = true
		}
	}
	if !found {
		t.Error("expected a gh-pull-request-skipped comment")
	}
}

func TestGHPullRequestStepSkipsWithoutCompose(t *testing.T) {
	wctx := newTestContext(t, "pr000004")
	withIssues(t, wctx)
	wctx.IssueID = 42

	res := NewGHPullRequestStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("missing compose-request should skip, got: %s", res.Error)
	}
	if wctx.Store.Exists(artifact.TypeGHPullRequest) {
		t.Error("skipped step should not write an artifact")
	}
}

func TestGHPullRequestStepFailure(t *testing.T) {
	wctx := newTestContext(t, "pr000005")
	store := withIssues(t, wctx)
	wctx.IssueID = 42
	seedCompose(t, wctx)

	t.Setenv(config.EnvGitHubPAT, "token")
	installFakeCLI(t, "gh", `echo "network unreachable" >&2; exit 1`)

	res := NewGHPullRequestStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure when the CLI errors without an existing PR")
	}

	var found bool
	for _, c := range store.Comments() {
		if c.Type == string(artifact.TypeGHPullRequest)+"-failed" &&
			strings.Contains(c.Comment, "network unreachable") {
			found = true
		}
	}
	if !found {
		t.Error("expected a gh-pull-request-failed comment naming the error")
	}
}

func TestGlabPullRequestStepNames(t *testing.T) {
	step := NewGlabPullRequestStep()
	if step.Name() != NameGlabPullRequest {
		t.Errorf("Name = %q, want %q", step.Name(), NameGlabPullRequest)
	}
	if step.Slug() != string(artifact.TypeGlabPullRequest) {
		t.Errorf("Slug = %q, want %q", step.Slug(), artifact.TypeGlabPullRequest)
	}
}
