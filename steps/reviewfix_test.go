package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

func TestReviewFixStepSkipsWhenClean(t *testing.T) {
	wctx := newTestContext(t, "rf000001")
	wctx.Set(pipeline.DataReviewClean, true)
	mock := mockAgent(t)

	res := NewReviewFixStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("review fix failed: %s", res.Error)
	}
	if res.RerunFrom != "" {
		t.Errorf("clean review should not rerun, got %q", res.RerunFrom)
	}
	if mock.GetCallCount() != 0 {
		t.Errorf("agent called %d times, want 0", mock.GetCallCount())
	}
	if wctx.Store.Exists(artifact.TypeReviewFix) {
		t.Error("skipped fix should not write an artifact")
	}
}

func TestReviewFixStepRequestsRereview(t *testing.T) {
	wctx := newTestContext(t, "rf000002")
	wctx.Set(pipeline.DataReviewClean, false)
	seedPayload(t, wctx, artifact.TypeCodeReview, artifact.CodeReview{
		Review: "Review completed\nFile: ui.css\nLine 3: tighten selector",
		Clean:  false,
	})

	mock := mockAgent(t, &agent.Response{Output: "fixed", Success: true})

	res := NewReviewFixStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("review fix failed: %s", res.Error)
	}
	if res.RerunFrom != NameCodeReview {
		t.Errorf("RerunFrom = %q, want %q", res.RerunFrom, NameCodeReview)
	}

	fix, err := loadInput[artifact.ReviewFix](wctx, artifact.TypeReviewFix)
	if err != nil {
		t.Fatalf("load review fix: %v", err)
	}
	if fix.Iteration != 1 {
		t.Errorf("Iteration = %d, want 1", fix.Iteration)
	}

	reqs := mock.GetCapturedRequests()
	if len(reqs) != 1 {
		t.Fatalf("agent called %d times, want 1", len(reqs))
	}
	if !strings.Contains(reqs[0].Prompt, "File: ui.css") {
		t.Error("prompt should carry the review findings")
	}
}

func TestReviewFixStepIterationTracksRunnerCount(t *testing.T) {
	wctx := newTestContext(t, "rf000003")
	wctx.Set(pipeline.DataReviewClean, false)
	seedPayload(t, wctx, artifact.TypeCodeReview, artifact.CodeReview{Review: "File: a.go", Clean: false})
	mockAgent(t,
		&agent.Response{Output: "fixed once", Success: true},
		&agent.Response{Output: "fixed twice", Success: true},
	)

	step := NewReviewFixStep()
	if res := step.Run(context.Background(), wctx); !res.Success {
		t.Fatalf("first pass failed: %s", res.Error)
	}
	wctx.IncrementIteration(step.Slug())

	if res := step.Run(context.Background(), wctx); !res.Success {
		t.Fatalf("second pass failed: %s", res.Error)
	}
	fix, err := loadInput[artifact.ReviewFix](wctx, artifact.TypeReviewFix)
	if err != nil {
		t.Fatalf("load review fix: %v", err)
	}
	if fix.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", fix.Iteration)
	}
}

func TestReviewFixStepMissingReview(t *testing.T) {
	wctx := newTestContext(t, "rf000004")
	wctx.Set(pipeline.DataReviewClean, false)

	res := NewReviewFixStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure without a code review")
	}
	if res.RerunFrom != NameCodeReview {
		t.Errorf("RerunFrom = %q, want %q", res.RerunFrom, NameCodeReview)
	}
}
