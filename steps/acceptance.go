package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

// AcceptanceStep asks the validator agent to check the implementation
// against the plan's requirements. Unlike other structured steps the
// agent's verdict is enforced against a compiled JSON schema, because
// nothing downstream consumes it and a malformed verdict would
// otherwise be recorded as truth. Best-effort: a failed validation does
// not abort the pipeline.
//
// The same step serves patch pipelines, where it reads the patch plan
// and writes under the patch-acceptance type.
type AcceptanceStep struct {
	artifactType artifact.Type
	planType     artifact.Type
	name         string
	command      string
}

func NewAcceptanceStep() *AcceptanceStep {
	return &AcceptanceStep{
		artifactType: artifact.TypeAcceptance,
		planType:     artifact.TypePlan,
		name:         NameAcceptance,
		command:      "/adw-acceptance",
	}
}

func NewPatchAcceptanceStep() *AcceptanceStep {
	return &AcceptanceStep{
		artifactType: artifact.TypePatchAcceptance,
		planType:     artifact.TypePatchPlan,
		name:         NamePatchAcceptance,
		command:      "/adw-patch-acceptance",
	}
}

func (s *AcceptanceStep) Name() string { return s.name }

func (s *AcceptanceStep) Slug() string { return string(s.artifactType) }

func (s *AcceptanceStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	plan, err := loadInput[artifact.Plan](wctx, s.planType)
	if err != nil {
		return pipeline.Fail("plan not available for acceptance: %v", err)
	}

	prompt := fmt.Sprintf("%s %s\n\n# Plan\n%s", s.command, wctx.ADWID, plan.Plan)
	resp, err := runAgent(ctx, wctx, agent.AgentValidator, "", prompt, acceptanceSchemaJSON)
	if err != nil {
		return pipeline.Fail("acceptance agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("acceptance agent failed: %s", resp.ErrorDetail)
	}

	payload, err := parseAcceptance(resp.Output)
	if err != nil {
		reportInvalidOutput(ctx, wctx, s.Slug(), err.Error(), resp.Output)
		return pipeline.Fail("acceptance output rejected: %v", err)
	}

	if _, err := saveArtifact(ctx, wctx, s.artifactType, *payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Acceptance %s: %d requirements checked, %d blocking unmet",
		payload.Status, len(payload.Requirements), len(payload.UnmetBlockingRequirements))
	return pipeline.Ok(*payload)
}

// parseAcceptance extracts the verdict object from agent output and
// validates it against the acceptance schema before decoding.
func parseAcceptance(raw string) (*artifact.Acceptance, error) {
	text := agent.ExtractJSONObject(raw)
	if text == "" {
		return nil, fmt.Errorf("no JSON object found in agent output")
	}

	var instance any
	if err := json.Unmarshal([]byte(text), &instance); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := acceptanceSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var payload artifact.Acceptance
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("decode acceptance: %w", err)
	}
	return &payload, nil
}
