package steps

import (
	"context"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

// ReviewFixStep resolves the findings of the most recent code review,
// then requests a fresh review. The runner bounds the resulting loop
// with its iteration budget. A clean review short-circuits the step
// without invoking the agent or writing an artifact.
type ReviewFixStep struct{}

func NewReviewFixStep() *ReviewFixStep { return &ReviewFixStep{} }

func (s *ReviewFixStep) Name() string { return NameReviewFix }

func (s *ReviewFixStep) Slug() string { return string(artifact.TypeReviewFix) }

func (s *ReviewFixStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	if wctx.GetBool(pipeline.DataReviewClean) {
		reportProgress(ctx, wctx, s.Slug(), "Review clean, no fixes needed")
		return pipeline.Ok(nil)
	}

	review, err := loadInput[artifact.CodeReview](wctx, artifact.TypeCodeReview)
	if err != nil {
		return pipeline.FailRerun(NameCodeReview, "code review not available: %v", err)
	}

	iteration := wctx.IterationCount(s.Slug()) + 1
	prompt := fmt.Sprintf("/adw-review-fix %s\n\n# Review findings\n%s", wctx.ADWID, review.Review)
	resp, err := runAgent(ctx, wctx, agent.AgentImplementor, "", prompt, "")
	if err != nil {
		return pipeline.Fail("review fix agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("review fix agent failed: %s", resp.ErrorDetail)
	}

	payload := artifact.ReviewFix{Iteration: iteration, Output: resp.Output}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeReviewFix, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Review findings addressed, requesting re-review (pass %d)", iteration)
	return pipeline.OkRerun(NameCodeReview)
}
