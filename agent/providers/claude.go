package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/config"
)

// defaultClaudeBinary is the CLI looked up on PATH when no override is set.
const defaultClaudeBinary = "claude"

// ClaudeProvider runs the claude CLI synchronously and parses the single
// JSON envelope it prints on stdout.
type ClaudeProvider struct{}

func init() {
	agent.RegisterProvider(&ClaudeProvider{})
}

// Name returns the provider identifier.
func (p *ClaudeProvider) Name() string {
	return "claude"
}

// resultEnvelope is the claude CLI's JSON output shape.
type resultEnvelope struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	IsError          bool            `json:"is_error"`
	SessionID        string          `json:"session_id"`
	DurationMS       int64           `json:"duration_ms"`
	Result           string          `json:"result,omitempty"`
	StructuredOutput json.RawMessage `json:"structured_output,omitempty"`
}

// Execute runs the CLI to completion. The handler is never invoked: this
// provider produces a single envelope, not a stream.
func (p *ClaudeProvider) Execute(ctx context.Context, req agent.Request, _ agent.StreamHandler) (*agent.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = agent.DefaultModels().For(req.AgentName)
	}

	if req.Options.DataRoot != "" {
		if _, err := agent.MirrorPrompt(req.Options.DataRoot, req.ADWID, req.AgentName, req.Prompt); err != nil {
			slog.Warn("Failed to mirror prompt", "agent", req.AgentName, "error", err)
		}
	}

	binary := os.Getenv(config.EnvClaudeCodePath)
	if binary == "" {
		binary = defaultClaudeBinary
	}

	args := []string{"-p", req.Prompt, "--model", model, "--output-format", "json"}
	if req.Options.SchemaJSON != "" {
		args = append(args, "--json-schema", req.Options.SchemaJSON)
	}
	if req.Options.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = req.Options.WorkingDir
	cmd.Env = filteredEnv(req.Options.ExtraEnv)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil && isBinaryNotFound(runErr) {
		return nil, fmt.Errorf("%s: %w", binary, agent.ErrBinaryNotFound)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp := p.parseEnvelope(req, stdout.Bytes(), stderr.String())
	if resp.RawOutputPath == "" && req.Options.DataRoot != "" {
		resp.RawOutputPath = p.captureRaw(req, stdout.Bytes())
	}
	return resp, nil
}

// parseEnvelope applies the envelope rules in order: empty stdout, parse
// failure, wrong type, agent-reported error, missing structured output.
func (p *ClaudeProvider) parseEnvelope(req agent.Request, stdout []byte, stderr string) *agent.Response {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return &agent.Response{ErrorDetail: fmt.Sprintf("agent produced no output: %s", strings.TrimSpace(stderr))}
	}

	var env resultEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return &agent.Response{ErrorDetail: fmt.Sprintf("agent output is not a JSON envelope: %v", err)}
	}

	if env.Type != "result" {
		return &agent.Response{
			SessionID:   env.SessionID,
			ErrorDetail: fmt.Sprintf("unexpected envelope type %q", env.Type),
		}
	}

	if env.IsError {
		detail := env.Result
		if detail == "" {
			detail = "agent reported an error"
		}
		return &agent.Response{SessionID: env.SessionID, ErrorDetail: detail}
	}

	if env.Subtype != "" && env.Subtype != "success" {
		slog.Warn("Agent envelope has non-success subtype",
			"agent", req.AgentName,
			"subtype", env.Subtype,
			"duration_ms", env.DurationMS)
	}

	output := structuredOutputText(env.StructuredOutput)
	if output == "" {
		return &agent.Response{SessionID: env.SessionID, ErrorDetail: "envelope missing structured_output"}
	}

	return &agent.Response{
		Output:    output,
		Success:   true,
		SessionID: env.SessionID,
	}
}

// structuredOutputText renders structured_output as a string: string
// values are used as-is, objects are re-stringified.
func structuredOutputText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// captureRaw stores the envelope for operator inspection. Best-effort.
func (p *ClaudeProvider) captureRaw(req agent.Request, stdout []byte) string {
	dir := agent.LogDir(req.Options.DataRoot, req.ADWID, req.AgentName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create agent log directory", "dir", dir, "error", err)
		return ""
	}
	path := filepath.Join(dir, agent.RawOutputArrayFile)
	if err := os.WriteFile(path, stdout, 0o644); err != nil {
		slog.Warn("Failed to write raw agent output", "path", path, "error", err)
		return ""
	}
	return path
}

// isBinaryNotFound reports whether err means the CLI is absent.
func isBinaryNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}
