package steps

import (
	"context"
	"strings"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

// branchPrefix namespaces workflow branches in the shared repository.
const branchPrefix = "adw-"

// branchFor derives the workflow branch from a run identifier.
func branchFor(adwID string) string {
	if strings.HasPrefix(adwID, branchPrefix) {
		return adwID
	}
	return branchPrefix + adwID
}

// GitSetupStep prepares the repository working copy: base branch checked
// out, optionally hard-reset to the remote, and the workflow branch
// created or resumed.
type GitSetupStep struct{}

// NewGitSetupStep constructs the working-copy preparation step.
func NewGitSetupStep() *GitSetupStep { return &GitSetupStep{} }

// Name returns the step display name.
func (s *GitSetupStep) Name() string { return NameGitSetup }

// Slug returns the registry identifier.
func (s *GitSetupStep) Slug() string { return string(artifact.TypeGitSetup) }

// Run prepares the working copy and records the resulting branch state.
func (s *GitSetupStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	executor := gitFor(wctx)

	result, err := executor.Setup(ctx, wctx.Config.Git.DefaultBranch, branchFor(wctx.ADWID))
	if err != nil {
		return pipeline.Fail("prepare working copy: %v", err)
	}

	payload := artifact.GitSetup{
		BaseBranch: result.BaseBranch,
		Branch:     result.Branch,
		HeadCommit: result.HeadCommit,
		ResetHard:  result.ResetHard,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeGitSetup, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(),
		"Working copy ready on %s (base %s)", result.Branch, result.BaseBranch)
	return pipeline.Ok(payload)
}
