package issue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/issue"
	"github.com/c360studio/adw/issue/testutil"
)

func TestEmitComment(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(&issue.Issue{ID: 42, Description: "add endpoint", Status: issue.StatusStarted, Type: issue.TypeMain})
	notifier := issue.NewNotifier(store, nil)

	status, _ := notifier.EmitComment(context.Background(), &issue.Comment{
		IssueID: 42,
		Comment: "Workflow started",
		Type:    "workflow",
		ADWID:   "adw-abc123",
	})
	if status != issue.NotifySuccess {
		t.Fatalf("status = %q, want success", status)
	}

	comments := store.Comments()
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	if comments[0].Source != issue.SourceSystem {
		t.Errorf("source defaulted to %q, want system", comments[0].Source)
	}
}

func TestEmitCommentSkipsWithoutIssueID(t *testing.T) {
	store := testutil.NewMemoryStore()
	notifier := issue.NewNotifier(store, nil)

	status, msg := notifier.EmitComment(context.Background(), &issue.Comment{
		Comment: "standalone code review",
		Type:    "review",
	})
	if status != issue.NotifySkipped {
		t.Errorf("status = %q, want skipped", status)
	}
	if msg == "" {
		t.Error("expected a skip reason")
	}
	if len(store.Comments()) != 0 {
		t.Error("skipped emission should not insert")
	}
}

func TestEmitCommentSwallowsStoreErrors(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(&issue.Issue{ID: 7, Description: "x", Status: issue.StatusStarted, Type: issue.TypeMain})
	store.FailInsert(errors.New("connection reset"))
	notifier := issue.NewNotifier(store, nil)

	status, msg := notifier.EmitComment(context.Background(), &issue.Comment{
		IssueID: 7,
		Comment: "progress",
		Type:    "workflow",
	})
	if status != issue.NotifyError {
		t.Errorf("status = %q, want error", status)
	}
	if msg != "connection reset" {
		t.Errorf("message = %q", msg)
	}
}

func TestEmitArtifactComment(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(&issue.Issue{ID: 42, Description: "x", Status: issue.StatusStarted, Type: issue.TypeMain})
	notifier := issue.NewNotifier(store, nil)

	a, err := artifact.New("adw-abc123", artifact.TypeClassify, artifact.Classification{
		Output: "classify",
		Type:   artifact.ClassTypeFeature,
		Level:  artifact.LevelSimple,
	})
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}

	status, _ := notifier.EmitArtifactComment(context.Background(), 42, "adw-abc123", a)
	if status != issue.NotifySuccess {
		t.Fatalf("status = %q, want success", status)
	}

	comments := store.Comments()
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	c := comments[0]
	if c.Source != issue.SourceArtifact {
		t.Errorf("source = %q, want artifact", c.Source)
	}
	if c.Type != "classify" {
		t.Errorf("type = %q, want classify", c.Type)
	}

	raw, ok := c.Raw["artifact"].(map[string]any)
	if !ok {
		t.Fatalf("raw.artifact missing: %v", c.Raw)
	}
	if raw["artifact_type"] != "classify" {
		t.Errorf("raw.artifact.artifact_type = %v", raw["artifact_type"])
	}
	data, ok := raw["data"].(map[string]any)
	if !ok {
		t.Fatalf("raw.artifact.data missing: %v", raw)
	}
	if data["type"] != "feature" {
		t.Errorf("raw.artifact.data.type = %v", data["type"])
	}
}

func TestMemoryStoreClaimNext(t *testing.T) {
	store := testutil.NewMemoryStore()
	first := store.Seed(&issue.Issue{Description: "first", Status: issue.StatusPending, Type: issue.TypeMain})
	store.Seed(&issue.Issue{Description: "pinned", Status: issue.StatusPending, Type: issue.TypeMain, AssignedTo: "other-worker"})

	claimed, err := store.ClaimNext(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want issue %d", claimed, first.ID)
	}
	if claimed.Status != issue.StatusStarted {
		t.Errorf("claimed status = %q, want started", claimed.Status)
	}

	// The pinned issue belongs to another worker; nothing left to claim.
	claimed, err = store.ClaimNext(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed != nil {
		t.Errorf("expected no claimable issue, got %+v", claimed)
	}
}
