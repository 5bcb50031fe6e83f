package steps

import (
	"context"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
)

var classifyFields = []agent.Field{
	{Name: "output", Kind: agent.KindString},
	{Name: "type", Kind: agent.KindString},
	{Name: "level", Kind: agent.KindString},
}

var (
	validClassTypes = map[string]bool{
		artifact.ClassTypeBug:     true,
		artifact.ClassTypeChore:   true,
		artifact.ClassTypeFeature: true,
	}
	validLevels = map[string]bool{
		artifact.LevelSimple:   true,
		artifact.LevelAverage:  true,
		artifact.LevelComplex:  true,
		artifact.LevelCritical: true,
	}
)

// ClassifyStep asks the classifier agent to label the issue with a type
// and complexity level. The pair selects the planning command used by
// the plan step.
type ClassifyStep struct{}

func NewClassifyStep() *ClassifyStep { return &ClassifyStep{} }

func (s *ClassifyStep) Name() string { return NameClassify }

func (s *ClassifyStep) Slug() string { return string(artifact.TypeClassify) }

func (s *ClassifyStep) Run(ctx context.Context, wctx *pipeline.Context) pipeline.StepResult {
	snapshot, err := loadInput[artifact.IssueSnapshot](wctx, artifact.TypeFetchIssue)
	if err != nil {
		return pipeline.FailRerun(NameFetchIssue, "issue snapshot not available: %v", err)
	}

	prompt := fmt.Sprintf("/adw-classify %d\n\n%s", snapshot.IssueID, issueBlock(snapshot))
	resp, err := runAgent(ctx, wctx, agent.AgentClassifier, "", prompt, classifySchemaJSON)
	if err != nil {
		return pipeline.Fail("classify agent: %v", err)
	}
	if !resp.Success {
		return pipeline.Fail("classify agent failed: %s", resp.ErrorDetail)
	}

	vr := agent.ParseAndValidate(resp.Output, classifyFields, s.Slug())
	if !vr.Success {
		reportInvalidOutput(ctx, wctx, s.Slug(), vr.Error, resp.Output)
		return pipeline.Fail("%s", vr.Error)
	}

	classType, _ := vr.Data["type"].(string)
	level, _ := vr.Data["level"].(string)
	if !validClassTypes[classType] {
		return pipeline.Fail("Invalid issue type %q from classifier", classType)
	}
	if !validLevels[level] {
		return pipeline.Fail("Invalid complexity level %q from classifier", level)
	}

	payload := artifact.Classification{
		Output: "classify",
		Type:   classType,
		Level:  level,
	}
	if _, err := saveArtifact(ctx, wctx, artifact.TypeClassify, payload); err != nil {
		return pipeline.FailErr(err)
	}

	reportProgress(ctx, wctx, s.Slug(), "Issue %d classified as %s (%s)", snapshot.IssueID, classType, level)
	return pipeline.Ok(payload)
}

// issueBlock renders an issue snapshot for inclusion in agent prompts.
func issueBlock(s *artifact.IssueSnapshot) string {
	if s.Title == "" {
		return s.Description
	}
	return "# " + s.Title + "\n\n" + s.Description
}
