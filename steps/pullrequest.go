package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/pipeline"
	"github.com/c360studio/adw/tools/platform"
)

// PullRequestStep pushes the workflow branch and opens a pull request
// through the platform CLI. Missing credentials, a missing CLI binary,
// or an absent compose-request artifact are skips rather than failures
// so the workflow still completes on machines without platform access.
type PullRequestStep struct {
	platform string
}

func NewGHPullRequestStep() *PullRequestStep {
	return &PullRequestStep{platform: config.PlatformGitHub}
}

func NewGlabPullRequestStep() *PullRequestStep {
	return &PullRequestStep{platform: config.PlatformGitLab}
}

func (s *PullRequestStep) Name() string {
	if s.platform == config.PlatformGitLab {
		return NameGlabPullRequest
	}
	return NameGHPullRequest
}

func (s *PullRequestStep) Slug() string {
	if s.platform == config.PlatformGitLab {
		return string(artifact.TypeGlabPullRequest)
	}
	return string(artifact.TypeGHPullRequest)
}

func (s *PullRequestStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	compose, err := loadInput[artifact.ComposeRequest](wctx, artifact.TypeComposeRequest)
	if err != nil {
		s.reportSkip(ctx, wctx, fmt.Sprintf("compose-request artifact not available: %v", err))
		return pipeline.Ok(nil)
	}

	client, err := platform.New(s.platform, wctx.Config.Data.AppRoot)
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

	branch := compose.Branch
	if branch == "" {
		branch, _ = gitFor(wctx).CurrentBranch(ctx)
	}

	// Push failure does not abort creation: the branch may already be
	// on the remote from an earlier attempt.
	if err := gitFor(wctx).Push(ctx, branch); err != nil {
		wctx.Logger.Warn("Branch push failed before pull request", "branch", branch, "error", err)
	}

	pr, err := client.CreatePullRequest(ctx, platform.CreateParams{
		Title:  compose.Title,
		Body:   compose.Summary,
		Branch: branch,
		Base:   wctx.Config.Git.DefaultBranch,
	})
	if err != nil {
		wctx.EmitComment(ctx, s.Slug()+"-failed",
			fmt.Sprintf("Pull request creation failed: %v", err), nil)
		return pipeline.Fail("create pull request: %v", err)
	}

	payload := artifact.PullRequest{
		Output:   "pull-request-created",
		URL:      pr.URL,
		Existing: pr.Existing,
		Platform: s.platform,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.Type(s.Slug()), payload); err != nil {
		return pipeline.FailErr(err)
	}

	wctx.EmitComment(ctx, s.Slug(), fmt.Sprintf("Pull request ready: %s", pr.URL), map[string]any{
		"output":   payload.Output,
		"url":      payload.URL,
		"existing": payload.Existing,
	})
	return pipeline.Ok(payload)
}

func (s *PullRequestStep) reportSkip(ctx context.Context, wctx *pipeline.Context, reason string) {
	wctx.Logger.Info("Pull request skipped", "platform", s.platform, "reason", reason)
	wctx.EmitComment(ctx, s.Slug()+"-skipped", "Pull request skipped: "+reason, nil)
}
