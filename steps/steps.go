// Package steps implements the pipeline steps that make up ADW workflows:
// working-copy setup, issue intake and classification, agent-driven planning
// and implementation, the review loop, acceptance validation, and pull
// request delivery. Steps register themselves with the pipeline registry at
// package initialisation; importing this package makes the default
// workflows runnable.
package steps

// Step display names. Rerun targets reference these, so they are part of
// each step's contract.
const (
	NameGitSetup        = "Preparing working copy"
	NameFetchIssue      = "Fetching issue"
	NameFetchPatch      = "Fetching patch request"
	NameClassify        = "Classifying issue"
	NamePlan            = "Building implementation plan"
	NamePatchPlan       = "Building patch plan"
	NameImplement       = "Implementing solution"
	NameCodeReview      = "Generating CodeRabbit review"
	NameReviewFix       = "Resolving review findings"
	NameCodeQuality     = "Running code quality checks"
	NameAcceptance      = "Validating acceptance criteria"
	NamePatchAcceptance = "Validating patch acceptance"
	NameComposeRequest  = "Composing pull request"
	NameGHPullRequest   = "Creating GitHub pull request"
	NameGlabPullRequest = "Creating GitLab merge request"
	NameComposeCommits  = "Composing commits"
)
