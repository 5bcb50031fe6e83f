package steps

import (
	"context"
	"testing"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
)

func TestCodeQualityStepPasses(t *testing.T) {
	wctx := newTestContext(t, "cq000001")
	mockAgent(t, &agent.Response{Output: "All checks passed.", Success: true})

	res := NewCodeQualityStep().Run(context.Background(), wctx)
	if !res.Success {
		t.Fatalf("code quality failed: %s", res.Error)
	}

	quality, err := loadInput[artifact.CodeQuality](wctx, artifact.TypeCodeQuality)
	if err != nil {
		t.Fatalf("load quality: %v", err)
	}
	if !quality.Passed {
		t.Error("Passed = false, want true")
	}
}

func TestCodeQualityStepRecordsFailure(t *testing.T) {
	wctx := newTestContext(t, "cq000002")
	mockAgent(t, &agent.Response{Success: false, ErrorDetail: "lint: 3 errors"})

	res := NewCodeQualityStep().Run(context.Background(), wctx)
	if res.Success {
		t.Fatal("expected failure when checks fail")
	}

	// The failed pass is still recorded for the operator.
	quality, err := loadInput[artifact.CodeQuality](wctx, artifact.TypeCodeQuality)
	if err != nil {
		t.Fatalf("load quality: %v", err)
	}
	if quality.Passed {
		t.Error("Passed = true, want false")
	}
	if quality.Output != "lint: 3 errors" {
		t.Errorf("Output = %q, want lint detail", quality.Output)
	}
}
