package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/adw/agent"
	"github.com/c360studio/adw/config"
)

const (
	// defaultOpenCodeBinary is the CLI looked up on PATH.
	defaultOpenCodeBinary = "opencode"

	// versionCheckTimeout caps the pre-run binary check. The run itself is
	// only bounded by the caller's context.
	versionCheckTimeout = 10 * time.Second

	// maxStreamLineBytes bounds a single JSON line from the agent.
	maxStreamLineBytes = 4 * 1024 * 1024
)

// OpenCodeProvider runs the opencode CLI and streams its JSON-lines
// output: every line is appended to the raw output file and handed to the
// stream handler while the process runs.
type OpenCodeProvider struct{}

func init() {
	agent.RegisterProvider(&OpenCodeProvider{})
}

// Name returns the provider identifier.
func (p *OpenCodeProvider) Name() string {
	return "opencode"
}

// streamMessage is the subset of a stream line the driver inspects.
type streamMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
}

// Execute spawns the CLI, streams stdout line by line, drains stderr, and
// resolves the final result message once the process exits.
func (p *OpenCodeProvider) Execute(ctx context.Context, req agent.Request, handler agent.StreamHandler) (*agent.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = agent.DefaultModels().For(req.AgentName)
	}

	binary := os.Getenv(config.EnvOpenCodePath)
	if binary == "" {
		binary = defaultOpenCodeBinary
	}
	if err := p.checkVersion(ctx, binary); err != nil {
		return nil, err
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		if req.Options.DataRoot == "" {
			return nil, fmt.Errorf("streaming provider needs an output path or data root")
		}
		outputPath = agent.RawOutputPath(req.Options.DataRoot, req.ADWID, req.AgentName)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create agent log directory: %w", err)
	}
	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create raw output file: %w", err)
	}
	defer func() { _ = outFile.Close() }()

	cmd := exec.CommandContext(ctx, binary,
		"run", "--model", model, "--command", "implement", "--format", "json", req.Prompt)
	cmd.Dir = req.Options.WorkingDir
	cmd.Env = filteredEnv(req.Options.ExtraEnv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if isBinaryNotFound(err) {
			return nil, fmt.Errorf("%s: %w", binary, agent.ErrBinaryNotFound)
		}
		return nil, fmt.Errorf("start agent: %w", err)
	}

	var stderrBuf bytes.Buffer
	g := new(errgroup.Group)
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineBytes)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Fprintln(outFile, line)
			if handler != nil {
				p.safeHandle(req, handler, line)
			}
		}
		return scanner.Err()
	})
	g.Go(func() error {
		_, err := io.Copy(&stderrBuf, stderr)
		return err
	})

	// Readers reach EOF when the process closes its pipes, so join them
	// before Wait reaps the child.
	readErr := g.Wait()
	waitErr := cmd.Wait()
	_ = outFile.Close()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if readErr != nil {
		slog.Warn("Agent stream read error", "agent", req.AgentName, "error", readErr)
	}

	lines, parsed := p.readStream(outputPath)
	p.writeArrayFile(outputPath, lines)

	result, found := pickResultMessage(parsed)
	if !found {
		detail := strings.TrimSpace(stderrBuf.String())
		if detail == "" {
			detail = "agent produced no parseable output"
		}
		return &agent.Response{RawOutputPath: outputPath, ErrorDetail: detail}, nil
	}

	success := waitErr == nil && !result.IsError
	resp := &agent.Response{
		Output:        result.Result,
		Success:       success,
		SessionID:     result.SessionID,
		RawOutputPath: outputPath,
	}
	if !success {
		detail := result.Result
		if waitErr != nil {
			detail = fmt.Sprintf("agent exited with error: %v", waitErr)
			if s := strings.TrimSpace(stderrBuf.String()); s != "" {
				detail += ": " + s
			}
		}
		resp.Output = ""
		resp.ErrorDetail = detail
	}
	return resp, nil
}

// checkVersion verifies the binary responds. A timeout here is a hard
// failure: the CLI is present but wedged.
func (p *OpenCodeProvider) checkVersion(ctx context.Context, binary string) error {
	checkCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(checkCtx, binary, "--version")
	if err := cmd.Run(); err != nil {
		if isBinaryNotFound(err) {
			return fmt.Errorf("%s: %w", binary, agent.ErrBinaryNotFound)
		}
		return fmt.Errorf("agent version check failed: %w", err)
	}
	return nil
}

// safeHandle invokes the stream handler, recovering panics so a broken
// handler cannot abort the run.
func (p *OpenCodeProvider) safeHandle(req agent.Request, handler agent.StreamHandler, line string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Stream handler panicked", "agent", req.AgentName, "panic", r)
		}
	}()
	handler(line)
}

// readStream re-reads the captured output, returning the raw JSON lines
// and their parsed counterparts. Unparseable lines are dropped.
func (p *OpenCodeProvider) readStream(path string) ([]json.RawMessage, []streamMessage) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Failed to re-read raw output", "path", path, "error", err)
		return nil, nil
	}

	var lines []json.RawMessage
	var parsed []streamMessage
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !json.Valid([]byte(line)) {
			continue
		}
		var msg streamMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		lines = append(lines, json.RawMessage(line))
		parsed = append(parsed, msg)
	}
	return lines, parsed
}

// pickResultMessage resolves the run's final message: the last explicit
// result, else the last message carrying a session, else the final line.
func pickResultMessage(parsed []streamMessage) (streamMessage, bool) {
	if len(parsed) == 0 {
		return streamMessage{}, false
	}
	for i := len(parsed) - 1; i >= 0; i-- {
		if parsed[i].Type == "result" {
			return parsed[i], true
		}
	}
	for i := len(parsed) - 1; i >= 0; i-- {
		if parsed[i].SessionID != "" {
			return parsed[i], true
		}
	}
	return parsed[len(parsed)-1], true
}

// writeArrayFile renders the JSON lines as an indented array next to the
// .jsonl capture. Best-effort.
func (p *OpenCodeProvider) writeArrayFile(jsonlPath string, lines []json.RawMessage) {
	if len(lines) == 0 {
		return
	}
	arrayPath := strings.TrimSuffix(jsonlPath, filepath.Ext(jsonlPath)) + ".json"
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal stream array", "path", arrayPath, "error", err)
		return
	}
	if err := os.WriteFile(arrayPath, data, 0o644); err != nil {
		slog.Warn("Failed to write stream array", "path", arrayPath, "error", err)
	}
}
