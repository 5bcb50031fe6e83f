package steps

import (
	"context"
	"time"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
	"github.com/c360studio/adw/tools/reviewer"
)

// CodeReviewStep shells out to the CodeRabbit CLI and records whether
// the review came back clean. The verdict is cached on the run context
// so the review-fix step can short-circuit without re-reading the
// artifact.
type CodeReviewStep struct{}

func NewCodeReviewStep() *CodeReviewStep { return &CodeReviewStep{} }

func (s *CodeReviewStep) Name() string { return NameCodeReview }

func (s *CodeReviewStep) Slug() string { return string(artifact.TypeCodeReview) }

func (s *CodeReviewStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	// The base commit narrows the review to workflow changes. Standalone
	// codereview runs have no git-setup artifact and review the full
	// worktree instead.
	baseCommit := ""
	if setup, err := loadInput[artifact.GitSetup](wctx, artifact.TypeGitSetup); err == nil {
		baseCommit = setup.HeadCommit
	}

	timeout := time.Duration(wctx.Config.Review.TimeoutSeconds) * time.Second
	rev := reviewer.New(wctx.Config.Data.AppRoot, timeout).WithLogger(wctx.Logger)

	review, err := rev.Run(ctx, baseCommit)
	if err != nil {
		return pipeline.Fail("code review: %v", err)
	}

	wctx.Set(pipeline.DataReviewClean, review.Clean)

	payload := artifact.CodeReview{
		Review:     review.Output,
		Clean:      review.Clean,
		BaseCommit: baseCommit,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeCodeReview, payload); err != nil {
		return pipeline.FailErr(err)
	}

	if review.Clean {
		reportProgress(ctx, wctx, s.Slug(), "Code review clean")
	} else {
		reportProgress(ctx, wctx, s.Slug(), "Code review reported findings")
	}
	return pipeline.Ok(payload)
}
