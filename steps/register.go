package steps

import (
	"errors"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/pipeline"
)

func init() {
	RegisterDefaults()
}

// RegisterDefaults installs the standard step metadata and workflow
// definitions. Safe to call more than once; already-registered entries
// are left in place.
func RegisterDefaults() {
	for _, meta := range defaultStepMetadata() {
		if err := pipeline.RegisterStep(meta); err != nil && !errors.Is(err, pipeline.ErrDuplicateSlug) {
			panic(err)
		}
	}
	for _, def := range defaultWorkflows() {
		if err := pipeline.RegisterWorkflow(def); err != nil && !errors.Is(err, pipeline.ErrDuplicateWorkflow) {
			panic(err)
		}
	}
}

func defaultStepMetadata() []pipeline.StepMetadata {
	return []pipeline.StepMetadata{
		{
			Slug:        string(artifact.TypeGitSetup),
			Name:        NameGitSetup,
			New:         func() pipeline.Step { return NewGitSetupStep() },
			Outputs:     []artifact.Type{artifact.TypeGitSetup},
			Critical:    true,
			Description: "Prepare the repository working copy on a workflow branch",
		},
		{
			Slug:        string(artifact.TypeFetchIssue),
			Name:        NameFetchIssue,
			New:         func() pipeline.Step { return NewFetchIssueStep() },
			Outputs:     []artifact.Type{artifact.TypeFetchIssue},
			Critical:    true,
			Description: "Snapshot the issue being worked on",
		},
		{
			Slug:        string(artifact.TypeFetchPatch),
			Name:        NameFetchPatch,
			New:         func() pipeline.Step { return NewFetchPatchStep() },
			Outputs:     []artifact.Type{artifact.TypeFetchPatch},
			Critical:    true,
			Description: "Snapshot the patch request and its parent linkage",
		},
		{
			Slug:         string(artifact.TypeClassify),
			Name:         NameClassify,
			New:          func() pipeline.Step { return NewClassifyStep() },
			Dependencies: []artifact.Type{artifact.TypeFetchIssue},
			Outputs:      []artifact.Type{artifact.TypeClassify},
			Critical:     true,
			Description:  "Label the issue with a type and complexity level",
		},
		{
			Slug:         string(artifact.TypePlan),
			Name:         NamePlan,
			New:          func() pipeline.Step { return NewPlanStep() },
			Dependencies: []artifact.Type{artifact.TypeFetchIssue, artifact.TypeClassify},
			Outputs:      []artifact.Type{artifact.TypePlan},
			Critical:     true,
			Description:  "Produce the implementation plan",
		},
		{
			Slug:         string(artifact.TypePatchPlan),
			Name:         NamePatchPlan,
			New:          func() pipeline.Step { return NewPatchPlanStep() },
			Dependencies: []artifact.Type{artifact.TypeFetchPatch, artifact.TypeFetchIssue, artifact.TypePlan},
			Outputs:      []artifact.Type{artifact.TypePatchPlan},
			Critical:     true,
			Description:  "Produce a follow-up plan on top of the parent workflow",
		},
		{
			Slug:         string(artifact.TypeImplement),
			Name:         NameImplement,
			New:          func() pipeline.Step { return NewImplementStep() },
			Dependencies: []artifact.Type{artifact.TypePlan},
			Outputs:      []artifact.Type{artifact.TypeImplement},
			Critical:     true,
			Description:  "Apply the plan to the working copy",
		},
		{
			Slug:        string(artifact.TypeCodeReview),
			Name:        NameCodeReview,
			New:         func() pipeline.Step { return NewCodeReviewStep() },
			Outputs:     []artifact.Type{artifact.TypeCodeReview},
			Critical:    true,
			Description: "Run the CodeRabbit CLI over the working copy",
		},
		{
			Slug:         string(artifact.TypeReviewFix),
			Name:         NameReviewFix,
			New:          func() pipeline.Step { return NewReviewFixStep() },
			Dependencies: []artifact.Type{artifact.TypeCodeReview},
			Outputs:      []artifact.Type{artifact.TypeReviewFix},
			Critical:     true,
			Description:  "Resolve review findings and request a re-review",
		},
		{
			Slug:        string(artifact.TypeCodeQuality),
			Name:        NameCodeQuality,
			New:         func() pipeline.Step { return NewCodeQualityStep() },
			Outputs:     []artifact.Type{artifact.TypeCodeQuality},
			Description: "Run linters and type checkers",
		},
		{
			Slug:         string(artifact.TypeAcceptance),
			Name:         NameAcceptance,
			New:          func() pipeline.Step { return NewAcceptanceStep() },
			Dependencies: []artifact.Type{artifact.TypePlan},
			Outputs:      []artifact.Type{artifact.TypeAcceptance},
			Description:  "Validate the implementation against the plan's requirements",
		},
		{
			Slug:         string(artifact.TypePatchAcceptance),
			Name:         NamePatchAcceptance,
			New:          func() pipeline.Step { return NewPatchAcceptanceStep() },
			Dependencies: []artifact.Type{artifact.TypePatchPlan},
			Outputs:      []artifact.Type{artifact.TypePatchAcceptance},
			Description:  "Validate the patch against the patch plan",
		},
		{
			Slug:         string(artifact.TypeComposeRequest),
			Name:         NameComposeRequest,
			New:          func() pipeline.Step { return NewComposeRequestStep() },
			Dependencies: []artifact.Type{artifact.TypeFetchIssue},
			Outputs:      []artifact.Type{artifact.TypeComposeRequest},
			Critical:     true,
			Description:  "Draft the pull request title, summary, and commit list",
		},
		{
			Slug:         string(artifact.TypeGHPullRequest),
			Name:         NameGHPullRequest,
			New:          func() pipeline.Step { return NewGHPullRequestStep() },
			Dependencies: []artifact.Type{artifact.TypeComposeRequest},
			Outputs:      []artifact.Type{artifact.TypeGHPullRequest},
			Description:  "Open a GitHub pull request for the workflow branch",
		},
		{
			Slug:         string(artifact.TypeGlabPullRequest),
			Name:         NameGlabPullRequest,
			New:          func() pipeline.Step { return NewGlabPullRequestStep() },
			Dependencies: []artifact.Type{artifact.TypeComposeRequest},
			Outputs:      []artifact.Type{artifact.TypeGlabPullRequest},
			Description:  "Open a GitLab merge request for the workflow branch",
		},
		{
			Slug:         string(artifact.TypeComposeCommits),
			Name:         NameComposeCommits,
			New:          func() pipeline.Step { return NewComposeCommitsStep() },
			Dependencies: []artifact.Type{artifact.TypeFetchPatch, artifact.TypeComposeRequest},
			Outputs:      []artifact.Type{artifact.TypeComposeCommits},
			Description:  "Commit and push the patch onto the parent's pull request",
		},
	}
}

func defaultWorkflows() []pipeline.Definition {
	return []pipeline.Definition{
		{
			TypeID:      pipeline.WorkflowMain,
			Description: "Full issue-to-pull-request workflow",
			Build:       buildMain,
		},
		{
			TypeID:      pipeline.WorkflowPatch,
			Description: "Follow-up patch on a completed workflow",
			Build:       buildPatch,
		},
		{
			TypeID:      pipeline.WorkflowCodeReview,
			Description: "Standalone review and fix loop",
			Build:       buildCodeReview,
		},
	}
}

func buildMain() ([]pipeline.Step, error) {
	steps := []pipeline.Step{
		NewGitSetupStep(),
		NewFetchIssueStep(),
		NewClassifyStep(),
		NewPlanStep(),
		NewImplementStep(),
		NewCodeReviewStep(),
		NewReviewFixStep(),
		NewCodeQualityStep(),
		NewAcceptanceStep(),
		NewComposeRequestStep(),
	}

	// The delivery step depends on which platform the deployment talks
	// to. With no platform selected the workflow ends at compose-request.
	switch config.PlatformFromEnv() {
	case config.PlatformGitHub:
		steps = append(steps, NewGHPullRequestStep())
	case config.PlatformGitLab:
		steps = append(steps, NewGlabPullRequestStep())
	}
	return steps, nil
}

func buildPatch() ([]pipeline.Step, error) {
	return []pipeline.Step{
		NewFetchPatchStep(),
		NewPatchPlanStep(),
		NewPatchImplementStep(),
		NewCodeReviewStep(),
		NewReviewFixStep(),
		NewCodeQualityStep(),
		NewPatchAcceptanceStep(),
		NewComposeCommitsStep(),
	}, nil
}

func buildCodeReview() ([]pipeline.Step, error) {
	return []pipeline.Step{
		NewCodeReviewStep(),
		NewReviewFixStep(),
		NewCodeQualityStep(),
	}, nil
}
