package steps

import (
	"context"
	"testing"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
)

func TestComposeCommitsStep(t *testing.T) {
	wctx := newTestContext(t, "par00001-patch")
	wctx.ParentADWID = "par00001"
	wctx.IssueID = 7

	repo := wctx.Config.Data.AppRoot
	initRepo(t, repo)
	addBareRemote(t, repo)
	runGitCmd(t, repo, "checkout", "-b", "adw-par00001")

	seedPayload(t, wctx, artifact.TypeComposeRequest, artifact.ComposeRequest{
		Title:  "feat: add dark mode toggle",
		Branch: "adw-par00001",
	})
	seedPayload(t, wctx, artifact.TypeFetchPatch, artifact.PatchRequest{
		IssueID:     7,
		Description: "Toggle resets on page reload",
		ParentADWID: "par00001",
	})

	t.Setenv(config.EnvPlatform, config.PlatformGitHub)
	t.Setenv(config.EnvGitHubPAT, "token")
	installFakeCLI(t, "gh", `echo '{"url":"https://example/pr/9"}'`)

	mock := mockAgent(t, &agent.Response{
		Output:  `{"messages":["fix: persist toggle state across reloads"]}`,
		Success: true,
	})

	res := NewComposeCommitsStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("compose commits failed: %s", res.Error)
	}

	commits, err := loadInput[artifact.ComposeCommits](wctx, artifact.TypeComposeCommits)
	if err != nil {
		t.Fatalf("load compose commits: %v", err)
	}
	if commits.URL != "https://example/pr/9" {
		t.Errorf("URL = %q, want https://example/pr/9", commits.URL)
	}
	if !commits.Pushed {
		t.Error("Pushed = false, want true")
	}
	if len(commits.Messages) != 1 {
		t.Errorf("Messages = %v, want one message", commits.Messages)
	}

	// The branch reached the remote.
	out := runGitCmd(t, repo, "ls-remote", "--heads", "origin", "adw-par00001")
	if out == "" {
		t.Error("branch adw-par00001 not pushed to origin")
	}

	if mock.GetCallCount() != 1 {
		t.Errorf("agent called %d times, want 1", mock.GetCallCount())
	}
}

func TestComposeCommitsStepSkipsWithoutPlatform(t *testing.T) {
	wctx := newTestContext(t, "par00002-patch")
	t.Setenv(config.EnvPlatform, "")

	res := NewComposeCommitsStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("missing platform should skip, got: %s", res.Error)
	}
	if wctx.Store.Exists(artifact.TypeComposeCommits) {
		t.Error("skipped step should not write an artifact")
	}
}

func TestComposeCommitsStepSkipsWithoutPullRequest(t *testing.T) {
	wctx := newTestContext(t, "par00003-patch")
	wctx.ParentADWID = "par00003"

	t.Setenv(config.EnvPlatform, config.PlatformGitHub)
	t.Setenv(config.EnvGitHubPAT, "token")
	installFakeCLI(t, "gh", `echo "no pull requests found for branch adw-par00003" >&2; exit 1`)

	res := NewComposeCommitsStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("missing PR should skip, got: %s", res.Error)
	}
	if wctx.Store.Exists(artifact.TypeComposeCommits) {
		t.Error("skipped step should not write an artifact")
	}
}
