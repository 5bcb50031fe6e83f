package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

func seedClassification(t *testing.T, wctx *pipeline.Context, classType, level string) {
	t.Helper()
	seedPayload(t, wctx, artifact.TypeClassify, artifact.Classification{
		Output: "classify",
		Type:   classType,
		Level:  level,
	})
}

func TestPlanStepSelectsCommandFromClassification(t *testing.T) {
	wctx := newTestContext(t, "p1a00001")
	wctx.IssueID = 42
	seedSnapshot(t, wctx)
	seedClassification(t, wctx, artifact.ClassTypeFeature, artifact.LevelSimple)

	mock := mockAgent(t, &agent.Response{
		Output:  `{"output":"plan","plan":"# Plan\n1. Add toggle","summary":"Adds toggle"}`,
		Success: true,
	})

	res := NewPlanStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("plan failed: %s", res.Error)
	}

	plan, err := loadInput[artifact.Plan](wctx, artifact.TypePlan)
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if plan.Summary != "Adds toggle" {
		t.Errorf("Summary = %q, want Adds toggle", plan.Summary)
	}
	if !strings.HasPrefix(plan.Plan, "# Plan") {
		t.Errorf("Plan = %q, want markdown plan", plan.Plan)
	}

	reqs := mock.GetCapturedRequests()
	if len(reqs) != 1 {
		t.Fatalf("agent called %d times, want 1", len(reqs))
	}
	if !strings.HasPrefix(reqs[0].Prompt, "/adw-feature-plan 42 simple") {
		t.Errorf("prompt = %q, want /adw-feature-plan 42 simple prefix", reqs[0].Prompt)
	}
	if reqs[0].AgentName != agent.AgentPlanner {
		t.Errorf("AgentName = %q, want %q", reqs[0].AgentName, agent.AgentPlanner)
	}
}

func TestPlanCommandFor(t *testing.T) {
	tests := []struct {
		classType string
		want      string
	}{
		{artifact.ClassTypeBug, "/adw-bug-plan"},
		{artifact.ClassTypeChore, "/adw-chore-plan"},
		{artifact.ClassTypeFeature, "/adw-feature-plan"},
	}
	for _, tt := range tests {
		c := &artifact.Classification{Type: tt.classType}
		if got := planCommandFor(c); got != tt.want {
			t.Errorf("planCommandFor(%s) = %q, want %q", tt.classType, got, tt.want)
		}
	}
}

func TestPlanStepMissingClassification(t *testing.T) {
	wctx := newTestContext(t, "p1a00002")
	seedSnapshot(t, wctx)

	res := NewPlanStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure without a classification")
	}
	if res.RerunFrom != NameClassify {
		t.Errorf("RerunFrom = %q, want %q", res.RerunFrom, NameClassify)
	}
}

func TestPatchPlanStepReadsParentArtifacts(t *testing.T) {
	root := t.TempDir()

	parent := newTestContextAt(t, root, "abc12345")
	seedSnapshot(t, parent)
	seedPayload(t, parent, artifact.TypePlan, artifact.Plan{
		Output:  "plan",
		Plan:    "# Plan\n1. Add toggle",
		Summary: "Adds toggle",
	})

	wctx := newTestContextAt(t, root, "abc12345-patch", artifact.WithParent("abc12345"))
	wctx.ParentADWID = "abc12345"
	wctx.IssueID = 7
	seedPayload(t, wctx, artifact.TypeFetchPatch, artifact.PatchRequest{
		IssueID:     7,
		Description: "Toggle resets on page reload",
		ParentADWID: "abc12345",
	})

	mock := mockAgent(t, &agent.Response{
		Output:  `{"output":"plan","plan":"# Patch plan\n1. Persist state","summary":"Persists toggle"}`,
		Success: true,
	})

	res := NewPatchPlanStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("patch plan failed: %s", res.Error)
	}

	reqs := mock.GetCapturedRequests()
	if len(reqs) != 1 {
		t.Fatalf("agent called %d times, want 1", len(reqs))
	}
	prompt := reqs[0].Prompt
	for _, want := range []string{
		"/adw-patch-plan 7",
		"# Original issue",
		"Add dark mode toggle",
		"# Original plan",
		"1. Add toggle",
		"# Patch request",
		"Toggle resets on page reload",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	patchPlan, err := loadInput[artifact.Plan](wctx, artifact.TypePatchPlan)
	if err != nil {
		t.Fatalf("load patch plan: %v", err)
	}
	if patchPlan.Summary != "Persists toggle" {
		t.Errorf("Summary = %q, want Persists toggle", patchPlan.Summary)
	}

	// The parent's plan is untouched by the patch run.
	mainPlan, err := loadInput[artifact.Plan](wctx, artifact.TypePlan)
	if err != nil {
		t.Fatalf("load shared plan: %v", err)
	}
	if mainPlan.Summary != "Adds toggle" {
		t.Errorf("shared plan Summary = %q, want parent's Adds toggle", mainPlan.Summary)
	}
}

func TestPatchPlanStepMissingPatchRequest(t *testing.T) {
	wctx := newTestContext(t, "abc12345-patch")

	res := NewPatchPlanStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure without a patch request")
	}
	if res.RerunFrom != NameFetchPatch {
		t.Errorf("RerunFrom = %q, want %q", res.RerunFrom, NameFetchPatch)
	}
}
