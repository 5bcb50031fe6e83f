package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/pipeline"
	"github.com/c360studio/adw/tools/git"
	"github.com/c360studio/adw/tools/platform"
)

var composeCommitsFields = []agent.Field{
	{Name: "messages", Kind: agent.KindArray},
}

// ComposeCommitsStep delivers a patch onto the parent workflow's pull
// request. It locates the open PR for the parent branch, has the
// composer agent commit the patch changes, then pushes the branch. No
// new pull request is created.
type ComposeCommitsStep struct{}

func NewComposeCommitsStep() *ComposeCommitsStep { return &ComposeCommitsStep{} }

func (s *ComposeCommitsStep) Name() string { return NameComposeCommits }

func (s *ComposeCommitsStep) Slug() string { return string(artifact.TypeComposeCommits) }

func (s *ComposeCommitsStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	platformName := config.PlatformFromEnv()
	if platformName == "" {
		s.reportSkip(ctx, wctx, "no platform selected")
		return pipeline.Ok(nil)
	}

	client, err := platform.New(platformName, wctx.Config.Data.AppRoot)
	if err != nil {
		return pipeline.FailErr(err)
	}
	if err := client.CheckAvailable(); err != nil {
		if errors.Is(err, platform.ErrNoCredentials) || errors.Is(err, platform.ErrCLINotFound) {
			s.reportSkip(ctx, wctx, err.Error())
			return pipeline.Ok(nil)
		}
		return pipeline.Fail("platform %s unavailable: %v", client.Name(), err)
	}

	branch := s.parentBranch(wctx)
	url, err := client.PullRequestURL(ctx, branch)
	if err != nil {
		if errors.Is(err, platform.ErrNoPullRequest) {
			s.reportSkip(ctx, wctx, fmt.Sprintf("no open pull request for branch %s", branch))
			return pipeline.Ok(nil)
		}
		return pipeline.Fail("locate pull request for %s: %v", branch, err)
	}

	patchReq, err := loadInput[artifact.PatchRequest](wctx, artifact.TypeFetchPatch)
	if err != nil {
		return pipeline.FailRerun(NameFetchPatch, "patch request not available: %v", err)
	}

	prompt := fmt.Sprintf("/adw-commit %s\n\n# Patch request\n%s", wctx.ADWID, patchReq.Description)
	resp, err := runAgent(ctx, wctx, agent.AgentComposer, "", prompt, composeCommitsSchemaJSON)
	if err != nil {
		return pipeline.Fail("commit agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("commit agent failed: %s", resp.ErrorDetail)
	}

	vr := agent.ParseAndValidate(resp.Output, composeCommitsFields, s.Slug())
	if !vr.Success {
		reportInvalidOutput(ctx, wctx, s.Slug(), vr.Error, resp.Output)
		return pipeline.Fail("%s", vr.Error)
	}

	messages := toStringSlice(vr.Data["messages"])
	for _, msg := range messages {
		if !git.ValidateConventionalCommit(msg) {
			wctx.Logger.Warn("Commit message is not conventional", "message", truncate(msg, 120))
		}
	}

	if err := gitFor(wctx).Push(ctx, branch); err != nil {
		return pipeline.Fail("push commits to %s: %v", branch, err)
	}

	payload := artifact.ComposeCommits{URL: url, Messages: messages, Pushed: true}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeComposeCommits, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Pushed %d commits to %s", len(messages), url)
	return pipeline.Ok(payload)
}

// parentBranch resolves the branch holding the parent workflow's pull
// request, preferring the recorded compose-request artifact.
func (s *ComposeCommitsStep) parentBranch(wctx *pipeline.Context) string {
	if compose, err := loadInput[artifact.ComposeRequest](wctx, artifact.TypeComposeRequest); err == nil && compose.Branch != "" {
		return compose.Branch
	}
	if wctx.ParentADWID != "" {
		return branchFor(wctx.ParentADWID)
	}
	return branchFor(wctx.ADWID)
}

func (s *ComposeCommitsStep) reportSkip(ctx context.Context, wctx *pipeline.Context, reason string) {
	wctx.Logger.Info("Compose commits skipped", "reason", reason)
	wctx.EmitComment(ctx, s.Slug()+"-skipped", "Compose commits skipped: "+reason, nil)
}
