package steps

import (
	"context"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

var planFields = []agent.Field{
	{Name: "plan", Kind: agent.KindString},
	{Name: "summary", Kind: agent.KindString},
}

// PlanStep asks the planner agent for an implementation plan. The slash
// command is selected from the classification, e.g. /adw-feature-plan
// for a feature issue, with the complexity level as an argument.
type PlanStep struct{}

func NewPlanStep() *PlanStep { return &PlanStep{} }

func (s *PlanStep) Name() string { return NamePlan }

func (s *PlanStep) Slug() string { return string(artifact.TypePlan) }

func (s *PlanStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	snapshot, err := loadInput[artifact.IssueSnapshot](wctx, artifact.TypeFetchIssue)
	if err != nil {
		return pipeline.FailRerun(NameFetchIssue, "issue snapshot not available: %v", err)
	}
	classification, err := loadInput[artifact.Classification](wctx, artifact.TypeClassify)
	if err != nil {
		return pipeline.FailRerun(NameClassify, "classification not available: %v", err)
	}

	prompt := fmt.Sprintf("%s %d %s\n\n%s",
		planCommandFor(classification), snapshot.IssueID, classification.Level, issueBlock(snapshot))
	resp, err := runAgent(ctx, wctx, agent.AgentPlanner, "", prompt, planSchemaJSON)
	if err != nil {
		return pipeline.Fail("plan agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("plan agent failed: %s", resp.ErrorDetail)
	}

	vr := agent.ParseAndValidate(resp.Output, planFields, s.Slug())
	if !vr.Success {
		reportInvalidOutput(ctx, wctx, s.Slug(), vr.Error, resp.Output)
		return pipeline.Fail("%s", vr.Error)
	}

	payload := planPayload(vr.Data)
	if _, err := saveArtifact(ctx, wctx, artifact.TypePlan, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Plan ready: %s", payload.Summary)
	return pipeline.Ok(payload)
}

// planCommandFor selects the planning slash command from the issue
// classification.
func planCommandFor(c *artifact.Classification) string {
	return "/adw-" + c.Type + "-plan"
}

func planPayload(data map[string]any) artifact.Plan {
	output, _ := data["output"].(string)
	if output == "" {
		output = "plan"
	}
	plan, _ := data["plan"].(string)
	summary, _ := data["summary"].(string)
	return artifact.Plan{Output: output, Plan: plan, Summary: summary}
}

// PatchPlanStep plans a follow-up change on top of a completed parent
// workflow. The prompt carries the original issue, the parent's plan,
// and the patch request so the planner sees the full history.
type PatchPlanStep struct{}

func NewPatchPlanStep() *PatchPlanStep { return &PatchPlanStep{} }

func (s *PatchPlanStep) Name() string { return NamePatchPlan }

func (s *PatchPlanStep) Slug() string { return string(artifact.TypePatchPlan) }

func (s *PatchPlanStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	patchReq, err := loadInput[artifact.PatchRequest](wctx, artifact.TypeFetchPatch)
	if err != nil {
		return pipeline.FailRerun(NameFetchPatch, "patch request not available: %v", err)
	}

	// The original issue and plan are shared artifacts resolved from
	// the parent workflow.
	snapshot, err := loadInput[artifact.IssueSnapshot](wctx, artifact.TypeFetchIssue)
	if err != nil {
		return pipeline.Fail("parent issue snapshot not available: %v", err)
	}
	parentPlan, err := loadInput[artifact.Plan](wctx, artifact.TypePlan)
	if err != nil {
		return pipeline.Fail("parent plan not available: %v", err)
	}

	prompt := fmt.Sprintf("/adw-patch-plan %d\n\n# Original issue\n%s\n\n# Original plan\n%s\n\n# Patch request\n%s",
		patchReq.IssueID, issueBlock(snapshot), parentPlan.Plan, patchReq.Description)
	resp, err := runAgent(ctx, wctx, agent.AgentPlanner, "", prompt, planSchemaJSON)
	if err != nil {
		return pipeline.Fail("patch plan agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("patch plan agent failed: %s", resp.ErrorDetail)
	}

	vr := agent.ParseAndValidate(resp.Output, planFields, s.Slug())
	if !vr.Success {
		reportInvalidOutput(ctx, wctx, s.Slug(), vr.Error, resp.Output)
		return pipeline.Fail("%s", vr.Error)
	}

	payload := planPayload(vr.Data)
	if _, err := saveArtifact(ctx, wctx, artifact.TypePatchPlan, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Patch plan ready: %s", payload.Summary)
	return pipeline.Ok(payload)
}
