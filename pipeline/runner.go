package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/issue"
)

// DefaultRerunBudget bounds how many times a single step may re-enter
// the pipeline.
const DefaultRerunBudget = 5

// Runner executes workflow pipelines. It owns artifact-store creation
// and threads the parent workflow through for patch runs; agent
// subprocesses are the responsibility of individual steps.
type Runner struct {
	cfg         *config.Config
	issues      issue.Store
	notifier    *issue.Notifier
	logger      *slog.Logger
	rerunBudget int
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithIssueStore attaches the shared issue store for status updates and
// progress comments.
func WithIssueStore(s issue.Store) RunnerOption {
	return func(r *Runner) { r.issues = s }
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithRerunBudget overrides the per-step rerun budget.
func WithRerunBudget(budget int) RunnerOption {
	return func(r *Runner) {
		if budget > 0 {
			r.rerunBudget = budget
		}
	}
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:         cfg,
		logger:      slog.Default(),
		rerunBudget: DefaultRerunBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.issues != nil {
		r.notifier = issue.NewNotifier(r.issues, r.logger)
	}
	return r
}

// RunParams identifies one workflow run.
type RunParams struct {
	ADWID        string
	WorkflowType string
	IssueID      int64
}

// Run executes the full pipeline for a workflow type. The returned bool
// is the pipeline outcome; the error reports infrastructure failures
// such as an unknown workflow type or an unopenable store.
func (r *Runner) Run(ctx context.Context, params RunParams) (bool, error) {
	steps, err := GetPipeline(params.WorkflowType)
	if err != nil {
		return false, err
	}

	wctx, err := r.openContext(params)
	if err != nil {
		return false, err
	}

	r.recordWorkflow(ctx, wctx)
	wctx.EmitComment(ctx, "workflow",
		fmt.Sprintf("Workflow %s started (%s)", params.ADWID, params.WorkflowType), nil)

	for i := 0; i < len(steps); i++ {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("workflow %s interrupted: %w", params.ADWID, err)
		}

		step := steps[i]
		r.logger.Info("Step started",
			"step", step.Name(),
			"slug", step.Slug(),
			"adw_id", params.ADWID,
			"issue_id", params.IssueID)

		result := r.runStep(ctx, step, wctx)

		r.logger.Info("Step finished",
			"step", step.Name(),
			"success", result.Success)

		if !result.Success {
			if r.isCritical(step) {
				r.logger.Error("Critical step failed",
					"step", step.Name(),
					"error", result.Error)
				wctx.EmitComment(ctx, "workflow",
					fmt.Sprintf("Workflow %s aborted at %s: %s", params.ADWID, step.Name(), result.Error), nil)
				return false, nil
			}
			r.logger.Warn("Best-effort step failed, continuing",
				"step", step.Name(),
				"error", result.Error)
			continue
		}

		if result.RerunFrom == "" {
			continue
		}

		target := indexOfStep(steps, result.RerunFrom)
		if target < 0 || target > i {
			r.logger.Warn("Ignoring rerun request for unknown or later step",
				"from", step.Name(),
				"target", result.RerunFrom)
			continue
		}

		// The budget bounds executions of the requesting step: a step on
		// its budget'th run has its rerun demoted to a plain success.
		if wctx.IterationCount(step.Slug())+1 >= r.rerunBudget {
			r.logger.Warn("Rerun budget exhausted, continuing forward",
				"step", step.Name(),
				"target", result.RerunFrom,
				"budget", r.rerunBudget)
			continue
		}

		iteration := wctx.IncrementIteration(step.Slug())
		r.logger.Info("Re-entering pipeline",
			"from", step.Name(),
			"target", result.RerunFrom,
			"iteration", iteration)
		i = target - 1
	}

	wctx.EmitComment(ctx, "workflow",
		fmt.Sprintf("Workflow %s completed", params.ADWID), nil)
	return true, nil
}

// RunSingle executes one step by name or slug. Steps that declare
// dependencies require at least one artifact in the workflow directory;
// dependency-free steps run against a fresh store.
func (r *Runner) RunSingle(ctx context.Context, params RunParams, stepName string) (bool, error) {
	meta, ok := GetStepByName(stepName)
	if !ok {
		meta, ok = GetStep(stepName)
	}
	if !ok {
		return false, fmt.Errorf("unknown step %q", stepName)
	}

	wctx, err := r.openContext(params)
	if err != nil {
		return false, err
	}

	if len(meta.Dependencies) > 0 {
		present, err := wctx.Store.List()
		if err != nil || len(present) == 0 {
			return false, fmt.Errorf("step %s needs artifacts from earlier steps but workflow %s has none",
				meta.Slug, params.ADWID)
		}
	}

	step := meta.New()
	r.logger.Info("Step started",
		"step", step.Name(),
		"slug", step.Slug(),
		"adw_id", params.ADWID,
		"issue_id", params.IssueID)

	result := r.runStep(ctx, step, wctx)

	r.logger.Info("Step finished",
		"step", step.Name(),
		"success", result.Success)
	if !result.Success {
		r.logger.Error("Step failed", "step", step.Name(), "error", result.Error)
	}
	return result.Success, nil
}

// openContext builds the workflow context, opening the artifact store
// with the parent threaded through for patch runs.
func (r *Runner) openContext(params RunParams) (*Context, error) {
	if params.ADWID == "" {
		return nil, fmt.Errorf("adw id is required")
	}

	opts := []artifact.Option{artifact.WithLogger(r.logger)}
	if artifact.IsPatchWorkflow(params.ADWID) {
		if parent := artifact.ParentWorkflowID(params.ADWID); parent != "" {
			opts = append(opts, artifact.WithParent(parent))
		}
	}

	store, err := artifact.Open(r.cfg.Data.Root, params.ADWID, opts...)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	wctx := NewContext(params.ADWID, store, r.cfg, r.logger)
	wctx.IssueID = params.IssueID
	wctx.WorkflowType = params.WorkflowType
	wctx.ParentADWID = store.ParentWorkflowID()
	wctx.Issues = r.issues
	wctx.Notifier = r.notifier
	return wctx, nil
}

// recordWorkflow stamps the issue with this run's workflow ID.
// Best-effort: a store failure never blocks the pipeline.
func (r *Runner) recordWorkflow(ctx context.Context, wctx *Context) {
	if r.issues == nil || wctx.IssueID == 0 {
		return
	}
	if err := r.issues.SetWorkflow(ctx, wctx.IssueID, wctx.ADWID, ""); err != nil {
		r.logger.Error("Failed to record workflow on issue",
			"issue_id", wctx.IssueID,
			"adw_id", wctx.ADWID,
			"error", err)
	}
}

// runStep executes a step, converting panics into step failures so
// nothing crosses the process boundary.
func (r *Runner) runStep(ctx context.Context, step Step, wctx *Context) (result StepResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Step panicked",
				"step", step.Name(),
				"panic", p)
			result = Fail("step %s panicked: %v", step.Name(), p)
		}
	}()
	return step.Run(ctx, wctx)
}

// isCritical reports a step's registry criticality. Unregistered steps
// are treated as critical.
func (r *Runner) isCritical(step Step) bool {
	meta, ok := GetStep(step.Slug())
	if !ok {
		return true
	}
	return meta.Critical
}

// indexOfStep locates a step by human name or slug.
func indexOfStep(steps []Step, target string) int {
	for i, step := range steps {
		if step.Name() == target || step.Slug() == target {
			return i
		}
	}
	return -1
}
