package steps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
)

func TestComposeRequestStep(t *testing.T) {
	wctx := newTestContext(t, "cp000001")
	wctx.IssueID = 42
	seedSnapshot(t, wctx)

	// A real branch with one commit beyond main, so the commit list
	// comes from git rather than the agent.
	repo := wctx.Config.Data.AppRoot
	initRepo(t, repo)
	runGitCmd(t, repo, "checkout", "-b", "adw-cp000001")
	if err := os.WriteFile(filepath.Join(repo, "ui.css"), []byte("body {}\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	runGitCmd(t, repo, "add", ".")
	runGitCmd(t, repo, "commit", "-m", "feat: add dark mode toggle")

	seedPayload(t, wctx, artifact.TypeGitSetup, artifact.GitSetup{
		BaseBranch: "main",
		Branch:     "adw-cp000001",
	})

	mock := mockAgent(t, &agent.Response{
		Output:  `{"title":"feat: add dark mode toggle","summary":"Adds a persisted dark mode toggle."}`,
		Success: true,
	})

	res := NewComposeRequestStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("compose request failed: %s", res.Error)
	}

	compose, err := loadInput[artifact.ComposeRequest](wctx, artifact.TypeComposeRequest)
	if err != nil {
		t.Fatalf("load compose request: %v", err)
	}
	if compose.Title != "feat: add dark mode toggle" {
		t.Errorf("Title = %q", compose.Title)
	}
	if compose.Branch != "adw-cp000001" {
		t.Errorf("Branch = %q, want adw-cp000001", compose.Branch)
	}
	if len(compose.Commits) != 1 || compose.Commits[0] != "feat: add dark mode toggle" {
		t.Errorf("Commits = %v, want the branch commit subject", compose.Commits)
	}

	reqs := mock.GetCapturedRequests()
	prompt := reqs[0].Prompt
	if !strings.HasPrefix(prompt, "/adw-compose-request 42") {
		t.Errorf("prompt = %q, want /adw-compose-request prefix", prompt)
	}
	if !strings.Contains(prompt, "- feat: add dark mode toggle") {
		t.Error("prompt should list the branch commits")
	}
}

func TestComposeRequestStepMissingSnapshot(t *testing.T) {
	wctx := newTestContext(t, "cp000002")

	res := NewComposeRequestStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure without an issue snapshot")
	}
	if res.RerunFrom != NameFetchIssue {
		t.Errorf("RerunFrom = %q, want %q", res.RerunFrom, NameFetchIssue)
	}
}

func TestComposeRequestStepOutsideRepo(t *testing.T) {
	wctx := newTestContext(t, "cp000003")
	seedSnapshot(t, wctx)

	mockAgent(t, &agent.Response{
		Output:  `{"title":"chore: tidy","summary":"Tidies files."}`,
		Success: true,
	})

	// No git repository and no git-setup artifact. The step still
	// composes from the agent output alone.
	res := NewComposeRequestStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("compose request failed: %s", res.Error)
	}

	compose, err := loadInput[artifact.ComposeRequest](wctx, artifact.TypeComposeRequest)
	if err != nil {
		t.Fatalf("load compose request: %v", err)
	}
	if len(compose.Commits) != 0 {
		t.Errorf("Commits = %v, want none outside a repo", compose.Commits)
	}
}
