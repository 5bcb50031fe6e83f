package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/c360studio/adw/artifact"
)

func TestGitSetupStep(t *testing.T) {
	wctx := newTestContext(t, "3f2a9c81")
	withIssues(t, wctx)
	wctx.IssueID = 42
	initRepo(t, wctx.Config.Data.AppRoot)

	res := NewGitSetupStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("git setup failed: %s", res.Error)
	}

	setup, err := loadInput[artifact.GitSetup](wctx, artifact.TypeGitSetup)
	if err != nil {
		t.Fatalf("load git-setup artifact: %v", err)
	}
	if setup.Branch != "adw-3f2a9c81" {
		t.Errorf("Branch = %q, want adw-3f2a9c81", setup.Branch)
	}
	if setup.BaseBranch != "main" {
		t.Errorf("BaseBranch = %q, want main", setup.BaseBranch)
	}
	if len(setup.HeadCommit) != 40 {
		t.Errorf("HeadCommit = %q, want full sha", setup.HeadCommit)
	}

	branch := strings.TrimSpace(runGitCmd(t, wctx.Config.Data.AppRoot, "rev-parse", "--abbrev-ref", "HEAD"))
	if branch != "adw-3f2a9c81" {
		t.Errorf("working copy on %q, want adw-3f2a9c81", branch)
	}
}

func TestGitSetupStepIsResumable(t *testing.T) {
	wctx := newTestContext(t, "3f2a9c81")
	initRepo(t, wctx.Config.Data.AppRoot)

	step := NewGitSetupStep()
	if res := step.Run(context.Background(), wctx); !res.Success {
		t.Fatalf("first run failed: %s", res.Error)
	}
	if res := step.Run(context.Background(), wctx); !res.Success {
		t.Fatalf("second run failed: %s", res.Error)
	}
}

func TestGitSetupStepNotARepo(t *testing.T) {
	wctx := newTestContext(t, "3f2a9c81")

	res := NewGitSetupStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure outside a git repository")
	}
	if wctx.Store.Exists(artifact.TypeGitSetup) {
		t.Error("failed setup should not write an artifact")
	}
}
