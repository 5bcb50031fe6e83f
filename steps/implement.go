package steps

import (
	"context"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

var implementFields = []agent.Field{
	{Name: "status", Kind: agent.KindString},
	{Name: "files_modified", Kind: agent.KindArray},
	{Name: "git_diff_stat", Kind: agent.KindString},
	{Name: "output", Kind: agent.KindString},
	{Name: "summary", Kind: agent.KindString},
}

// ImplementStep hands the plan to the implementor agent. The plan
// artifact it consumes is configurable so the same step serves both the
// main pipeline and patch pipelines, which plan under a different type.
type ImplementStep struct {
	planType     artifact.Type
	planStepName string
}

func NewImplementStep() *ImplementStep {
	return &ImplementStep{planType: artifact.TypePlan, planStepName: NamePlan}
}

// NewPatchImplementStep consumes the patch plan instead of the main
// implementation plan.
func NewPatchImplementStep() *ImplementStep {
	return &ImplementStep{planType: artifact.TypePatchPlan, planStepName: NamePatchPlan}
}

func (s *ImplementStep) Name() string { return NameImplement }

func (s *ImplementStep) Slug() string { return string(artifact.TypeImplement) }

func (s *ImplementStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	plan, err := loadInput[artifact.Plan](wctx, s.planType)
	if err != nil {
		return pipeline.FailRerun(s.planStepName, "implementation plan not available: %v", err)
	}

	prompt := fmt.Sprintf("/adw-implement %s\n\n%s", wctx.ADWID, plan.Plan)
	resp, err := runAgent(ctx, wctx, agent.AgentImplementor, agent.EnvImplementProvider, prompt, implementSchemaJSON)
	if err != nil {
		return pipeline.Fail("implement agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("implement agent failed: %s", resp.ErrorDetail)
	}

	vr := agent.ParseAndValidate(resp.Output, implementFields, s.Slug())
	if !vr.Success {
		reportInvalidOutput(ctx, wctx, s.Slug(), vr.Error, resp.Output)
		return pipeline.Fail("%s", vr.Error)
	}

	status, _ := vr.Data["status"].(string)
	diffStat, _ := vr.Data["git_diff_stat"].(string)
	output, _ := vr.Data["output"].(string)
	summary, _ := vr.Data["summary"].(string)
	payload := artifact.Implementation{
		Status:        status,
		FilesModified: toStringSlice(vr.Data["files_modified"]),
		GitDiffStat:   diffStat,
		Output:        output,
		Summary:       summary,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeImplement, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Implementation %s: %d files modified", status, len(payload.FilesModified))
	return pipeline.Ok(payload)
}

// toStringSlice filters a decoded JSON array down to its string
// elements.
func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
