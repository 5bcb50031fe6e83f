package steps

import (
	"context"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

// CodeQualityStep runs the project's linters and type checkers through
// an agent slash command. The step is best-effort: a failure is logged
// and the pipeline continues.
type CodeQualityStep struct{}

func NewCodeQualityStep() *CodeQualityStep { return &CodeQualityStep{} }

func (s *CodeQualityStep) Name() string { return NameCodeQuality }

func (s *CodeQualityStep) Slug() string { return string(artifact.TypeCodeQuality) }

func (s *CodeQualityStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	prompt := fmt.Sprintf("/adw-code-quality %s", wctx.ADWID)
	resp, err := runAgent(ctx, wctx, agent.AgentQuality, "", prompt, "")
	if err != nil {
		return pipeline.Fail("code quality agent: %v", err)
	}

	if !resp.Success {
		payload := artifact.CodeQuality{Passed: false, Output: resp.ErrorDetail}
		if _, err := saveArtifact(ctx, wctx, artifact.TypeCodeQuality, payload); err != nil {
			return pipeline.FailErr(err)
		}
		reportProgress(ctx, wctx, s.Slug()+"-failed", "Code quality checks failed: %s", truncate(resp.ErrorDetail, diagnosticLimit))
		return pipeline.Fail("code quality checks failed")
	}

	payload := artifact.CodeQuality{Passed: true, Output: resp.Output}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeCodeQuality, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Code quality checks passed")
	return pipeline.Ok(payload)
}
