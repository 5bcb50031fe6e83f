// Package pipeline executes ordered workflow steps against a per-run
// context. Steps are registered once per process with their artifact
// dependencies; workflows are named, ordered pipelines over those steps.
// The runner walks a pipeline sequentially, honouring step criticality and
// bounded re-entry requests.
package pipeline

import "fmt"

// StepResult is the return value of every step.
type StepResult struct {
	// Success reports whether the step achieved its purpose.
	Success bool

	// Data is an optional payload handed to the caller.
	Data any

	// Error describes the failure when Success is false.
	Error string

	// RerunFrom, when set, names an earlier step the runner should
	// re-enter. Honoured on success only, subject to the rerun budget.
	RerunFrom string

	// ParsedData carries the validated JSON object a step extracted from
	// agent output, when it produced one.
	ParsedData map[string]any
}

// Ok returns a successful result.
func Ok(data any) StepResult {
	return StepResult{Success: true, Data: data}
}

// OkRerun returns a successful result that asks the runner to re-enter
// the pipeline from the named step.
func OkRerun(rerunFrom string) StepResult {
	return StepResult{Success: true, RerunFrom: rerunFrom}
}

// Fail returns a failed result with a message.
func Fail(format string, args ...any) StepResult {
	return StepResult{Error: fmt.Sprintf(format, args...)}
}

// FailRerun returns a failed result that names the step which normally
// produces the missing input.
func FailRerun(rerunFrom, format string, args ...any) StepResult {
	return StepResult{Error: fmt.Sprintf(format, args...), RerunFrom: rerunFrom}
}

// FailErr returns a failed result from an error.
func FailErr(err error) StepResult {
	if err == nil {
		return StepResult{Error: "unknown failure"}
	}
	return StepResult{Error: err.Error()}
}
