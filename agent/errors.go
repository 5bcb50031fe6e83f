package agent

import "errors"

// Request validation errors.
var (
	errEmptyPrompt      = errors.New("prompt must not be empty")
	errMissingADWID     = errors.New("adw_id is required")
	errMissingAgentName = errors.New("agent_name is required")
)

// ErrBinaryNotFound indicates the agent CLI is not installed or not on
// PATH. Best-effort steps treat this as a skip rather than a failure.
var ErrBinaryNotFound = errors.New("agent binary not found")
