// Package agent provides provider-agnostic execution of external
// coding-agent CLIs. A provider spawns the CLI as a subprocess, captures
// its JSON output (a single envelope or a JSON-lines stream), and returns
// a uniform response the pipeline steps consume.
package agent

import (
	"context"
	"strings"
)

// Request describes one agent invocation.
type Request struct {
	// Prompt is the full prompt text. Prompts beginning with a slash
	// command (e.g. "/adw-feature-plan 42") are mirrored to the agent log
	// directory before execution.
	Prompt string

	// IssueID is the owning issue, or 0 when the run is standalone.
	IssueID int

	// ADWID is the workflow run this invocation belongs to.
	ADWID string

	// AgentName is the logical agent (e.g. "planner", "implementor").
	// It namespaces the agent's log directory and selects the model.
	AgentName string

	// Model overrides the model chosen for AgentName when non-empty.
	Model string

	// OutputPath overrides the default raw-output path when non-empty.
	OutputPath string

	// Options carries execution knobs shared by all providers.
	Options Options
}

// Options are execution knobs common across providers.
type Options struct {
	// WorkingDir is the repository root the CLI runs in.
	WorkingDir string

	// DataRoot is where prompt mirrors and raw output land.
	DataRoot string

	// SchemaJSON, when non-empty, is forwarded to envelope CLIs as a
	// structured-output schema.
	SchemaJSON string

	// SkipPermissions forwards the CLI's permission-bypass flag.
	SkipPermissions bool

	// ExtraEnv adds variables to the filtered subprocess environment.
	ExtraEnv map[string]string
}

// Response is the uniform result of one agent invocation.
type Response struct {
	// Output is the agent's final text or re-serialised structured output.
	Output string

	// Success is true when the CLI exited cleanly with a non-error result.
	Success bool

	// SessionID is the agent session, when the CLI reports one.
	SessionID string

	// RawOutputPath points at the captured raw output, when written.
	RawOutputPath string

	// ErrorDetail carries diagnostic text on failure.
	ErrorDetail string
}

// StreamHandler receives each raw line a streaming provider emits. Handlers
// own their error handling: a panicking or misbehaving handler is recovered
// and logged by the provider, never failing the run.
type StreamHandler func(line string)

// Provider defines the interface for agent CLI implementations.
type Provider interface {
	// Name returns the provider identifier (e.g. "claude", "opencode").
	Name() string

	// Execute runs the agent CLI to completion. handler may be nil;
	// envelope providers never call it.
	Execute(ctx context.Context, req Request, handler StreamHandler) (*Response, error)
}

// Validate checks the request's required fields.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errEmptyPrompt
	}
	if r.ADWID == "" {
		return errMissingADWID
	}
	if r.AgentName == "" {
		return errMissingAgentName
	}
	return nil
}
