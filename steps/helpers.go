package steps

import (
	"context"
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
	"github.com/c360studio/adw/tools/git"
)

// diagnosticLimit caps raw agent output quoted in failure comments.
const diagnosticLimit = 500

// loadInput decodes a typed artifact payload through the run context,
// which caches reads and resolves shared types through the parent
// workflow for patch runs.
func loadInput[T any](wctx *pipeline.Context, t artifact.Type) (*T, error) {
	var payload T
	if err := wctx.LoadPayload(t, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// runAgent executes one agent invocation using the provider selected for
// the step. Stream output is surfaced at debug level as progress.
func runAgent(ctx context.Context, wctx *pipeline.Context, agentName, stepEnvVar, prompt, schemaJSON string) (*agent.Response, error) {
	providerName := agent.SelectProvider(stepEnvVar)
	provider, err := agent.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	req := agent.Request{
		Prompt:    prompt,
		IssueID:   int(wctx.IssueID),
		ADWID:     wctx.ADWID,
		AgentName: agentName,
		Options: agent.Options{
			WorkingDir:      wctx.Config.Data.AppRoot,
			DataRoot:        wctx.Config.Data.Root,
			SchemaJSON:      schemaJSON,
			SkipPermissions: wctx.Config.Agents.SkipPermissions,
		},
	}

	handler := func(line string) {
		wctx.Logger.Debug("Agent stream",
			"agent", agentName,
			"line", truncate(line, 200))
	}

	return provider.Execute(ctx, req, handler)
}

// saveArtifact persists a step payload and reports it on the issue.
func saveArtifact(ctx context.Context, wctx *pipeline.Context, t artifact.Type, payload any) (*artifact.Artifact, error) {
	a, err := wctx.SavePayload(t, payload)
	if err != nil {
		return nil, fmt.Errorf("save %s artifact: %w", t, err)
	}
	wctx.EmitArtifactComment(ctx, a)
	return a, nil
}

// reportProgress emits a best-effort human-readable summary comment.
func reportProgress(ctx context.Context, wctx *pipeline.Context, slug, format string, args ...any) {
	wctx.EmitComment(ctx, slug, fmt.Sprintf(format, args...), nil)
}

// reportInvalidOutput quotes the head of raw agent output that failed
// validation so operators can diagnose without opening log files.
func reportInvalidOutput(ctx context.Context, wctx *pipeline.Context, slug, detail, raw string) {
	wctx.EmitComment(ctx, slug,
		fmt.Sprintf("Step %s produced invalid output: %s\n\n%s", slug, detail, truncate(raw, diagnosticLimit)),
		nil)
}

// gitFor returns a git executor bound to the run's working copy.
func gitFor(wctx *pipeline.Context) *git.Executor {
	return git.NewExecutor(wctx.Config.Data.AppRoot).
		WithDestructiveOps(wctx.Config.Git.AllowDestructiveOps).
		WithLogger(wctx.Logger)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
