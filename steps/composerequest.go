package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

var composeRequestFields = []agent.Field{
	{Name: "title", Kind: agent.KindString},
	{Name: "summary", Kind: agent.KindString},
}

// ComposeRequestStep drafts the pull-request title and summary from the
// issue, the plan, and the branch's commit subjects. The commit list
// and branch name come from git rather than the agent so the stored
// artifact reflects the actual working copy.
type ComposeRequestStep struct{}

func NewComposeRequestStep() *ComposeRequestStep { return &ComposeRequestStep{} }

func (s *ComposeRequestStep) Name() string { return NameComposeRequest }

func (s *ComposeRequestStep) Slug() string { return string(artifact.TypeComposeRequest) }

func (s *ComposeRequestStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	snapshot, err := loadInput[artifact.IssueSnapshot](wctx, artifact.TypeFetchIssue)
	if err != nil {
		return pipeline.FailRerun(NameFetchIssue, "issue snapshot not available: %v", err)
	}

	var branch, base string
	if setup, err := loadInput[artifact.GitSetup](wctx, artifact.TypeGitSetup); err == nil {
		branch = setup.Branch
		base = setup.BaseBranch
	}

	executor := gitFor(wctx)
	if branch == "" {
		branch, _ = executor.CurrentBranch(ctx)
	}

	var commits []string
	if base != "" {
		commits, err = executor.CommitsSince(ctx, base)
		if err != nil {
			wctx.Logger.Warn("Listing branch commits failed", "base", base, "error", err)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "/adw-compose-request %d\n\n# Issue\n%s\n", snapshot.IssueID, issueBlock(snapshot))
	if plan, err := loadInput[artifact.Plan](wctx, artifact.TypePlan); err == nil && plan.Summary != "" {
		fmt.Fprintf(&sb, "\n# Plan summary\n%s\n", plan.Summary)
	}
	if len(commits) > 0 {
		sb.WriteString("\n# Commits\n")
		for _, c := range commits {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}

	resp, err := runAgent(ctx, wctx, agent.AgentComposer, "", sb.String(), composeRequestSchemaJSON)
	if err != nil {
		return pipeline.Fail("compose request agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("compose request agent failed: %s", resp.ErrorDetail)
	}

	vr := agent.ParseAndValidate(resp.Output, composeRequestFields, s.Slug())
	if !vr.Success {
		reportInvalidOutput(ctx, wctx, s.Slug(), vr.Error, resp.Output)
		return pipeline.Fail("%s", vr.Error)
	}

	title, _ := vr.Data["title"].(string)
	summary, _ := vr.Data["summary"].(string)
	payload := artifact.ComposeRequest{
		Title:   title,
		Summary: summary,
		Commits: commits,
		Branch:  branch,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeComposeRequest, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Pull request composed: %s", title)
	return pipeline.Ok(payload)
}
