package steps

import (
	"context"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/issue"
	"github.com/c360studio/adw/pipeline"
)

// FetchIssueStep snapshots the issue under work into the artifact store so
// later steps, and resumed runs, read one stable copy.
type FetchIssueStep struct{}

// NewFetchIssueStep constructs the issue intake step.
func NewFetchIssueStep() *FetchIssueStep { return &FetchIssueStep{} }

// Name returns the step display name.
func (s *FetchIssueStep) Name() string { return NameFetchIssue }

// Slug returns the registry identifier.
func (s *FetchIssueStep) Slug() string { return string(artifact.TypeFetchIssue) }

// Run fetches the issue and persists its snapshot. An unusable issue is a
// critical failure.
func (s *FetchIssueStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	iss, result := fetchWorkflowIssue(ctx, wctx)
	if iss == nil {
		return result
	}

	payload := artifact.IssueSnapshot{
		IssueID:     iss.ID,
		Title:       iss.Title,
		Description: iss.Description,
		IssueType:   string(iss.Type),
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeFetchIssue, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Issue %d fetched", iss.ID)
	return pipeline.Ok(payload)
}

// FetchPatchStep snapshots a patch-type issue together with its parent
// workflow linkage.
type FetchPatchStep struct{}

// NewFetchPatchStep constructs the patch intake step.
func NewFetchPatchStep() *FetchPatchStep { return &FetchPatchStep{} }

// Name returns the step display name.
func (s *FetchPatchStep) Name() string { return NameFetchPatch }

// Slug returns the registry identifier.
func (s *FetchPatchStep) Slug() string { return string(artifact.TypeFetchPatch) }

// Run fetches the patch issue and persists the patch request. Non-patch
// issues are a critical failure.
func (s *FetchPatchStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	iss, result := fetchWorkflowIssue(ctx, wctx)
	if iss == nil {
		return result
	}
	if iss.Type != issue.TypePatch {
		return pipeline.Fail("issue %d is %s, not a patch request", iss.ID, iss.Type)
	}

	payload := artifact.PatchRequest{
		IssueID:     iss.ID,
		Description: iss.Description,
		ParentADWID: wctx.ParentADWID,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeFetchPatch, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Patch request %d fetched", iss.ID)
	return pipeline.Ok(payload)
}

// fetchWorkflowIssue loads and validates the run's issue. On failure the
// returned issue is nil and the StepResult carries the failure.
func fetchWorkflowIssue(ctx context.Context, wctx *pipeline.Context) (*issue.Issue, pipeline.StepResult) {
	if wctx.Issues == nil {
		return nil, pipeline.Fail("issue store not configured")
	}
	if wctx.IssueID == 0 {
		return nil, pipeline.Fail("workflow %s has no issue id", wctx.ADWID)
	}

	iss, err := wctx.Issues.Get(ctx, wctx.IssueID)
	if err != nil {
		return nil, pipeline.Fail("fetch issue %d: %v", wctx.IssueID, err)
	}
	if err := iss.Validate(); err != nil {
		return nil, pipeline.Fail("issue %d is not runnable: %v", iss.ID, err)
	}
	return iss, pipeline.StepResult{}
}
