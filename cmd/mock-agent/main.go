// Package main implements a mock coding-agent CLI for e2e testing.
// It impersonates the claude and opencode binaries, answering from JSON
// fixture files routed by the requested model. This eliminates the need
// for a real agent during workflow wiring tests, making them fast,
// deterministic, and offline-capable.
//
// Usage:
//
//	MOCK_AGENT_FIXTURES=/path/to/fixtures mock-agent -p "<prompt>" --model mock-planner --output-format json
//	MOCK_AGENT_FIXTURES=/path/to/fixtures mock-agent run --model mock-planner --format json "<prompt>"
//
// Fixture files are JSON named by model (e.g., "mock-planner.json" maps
// to model "mock-planner"). The file content becomes the agent's output.
//
// Sequential fixtures: if numbered files exist (e.g., "mock-reviewer.1.json",
// "mock-reviewer.2.json"), the Nth invocation for that model returns the
// Nth fixture, falling back to the base "mock-reviewer.json" once the
// numbered ones are exhausted. Call counts persist across invocations in
// a .calls directory, since each agent run is a fresh process. Every
// invocation's prompt is captured under .requests for test assertions.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultFixtureDir = "fixtures"

// invocation is what the real CLIs would have been asked to do.
type invocation struct {
	// mode is "claude" (single JSON envelope on stdout) or "opencode"
	// (JSON-lines stream on stdout).
	mode   string
	model  string
	prompt string
	schema string
}

// resultEnvelope matches the claude CLI's JSON output shape.
type resultEnvelope struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype,omitempty"`
	IsError          bool            `json:"is_error"`
	SessionID        string          `json:"session_id"`
	DurationMS       int64           `json:"duration_ms"`
	Result           string          `json:"result,omitempty"`
	StructuredOutput json.RawMessage `json:"structured_output,omitempty"`
}

// streamLine matches one opencode JSON-lines message.
type streamLine struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error,omitempty"`
	Result    string `json:"result,omitempty"`
}

// capturedRequest records one invocation for test verification.
type capturedRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	Schema    string `json:"schema,omitempty"`
	CallIndex int    `json:"call_index"`
	Timestamp int64  `json:"timestamp"`
}

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "--version" {
		fmt.Println("mock-agent 0.1.0")
		return
	}

	fixtureDir := os.Getenv("MOCK_AGENT_FIXTURES")
	if fixtureDir == "" {
		fixtureDir = defaultFixtureDir
	}

	inv, err := parseInvocation(args)
	if err != nil {
		log.Fatalf("mock-agent: %v (args: %q)", err, args)
	}

	fixtures, err := loadFixtures(fixtureDir)
	if err != nil {
		log.Fatalf("mock-agent: load fixtures from %s: %v", fixtureDir, err)
	}

	callIndex, err := nextCallIndex(fixtureDir, inv.model)
	if err != nil {
		log.Fatalf("mock-agent: call counter: %v", err)
	}
	captureRequest(fixtureDir, inv, callIndex)

	// Resolve the fixture sequence: exact model name, then without a
	// mock- prefix.
	seq, ok := fixtures[inv.model]
	if !ok {
		seq, ok = fixtures[strings.TrimPrefix(inv.model, "mock-")]
	}

	sessionID := fmt.Sprintf("mock-%d", time.Now().UnixNano())
	if !ok {
		log.Printf("WARNING: no fixture for model=%q", inv.model)
		emitError(os.Stdout, inv.mode, sessionID, fmt.Sprintf("no fixture for model %q", inv.model))
		return
	}

	content := seq[len(seq)-1]
	if callIndex < len(seq) {
		content = seq[callIndex]
	}
	log.Printf("model=%s call_index=%d/%d bytes=%d", inv.model, callIndex+1, len(seq), len(content))

	switch inv.mode {
	case "opencode":
		emitStream(os.Stdout, sessionID, content)
	default:
		emitEnvelope(os.Stdout, sessionID, content)
	}
}

// parseInvocation recovers mode, model, and prompt from the argv the
// pipeline's providers would hand the real CLI.
func parseInvocation(args []string) (invocation, error) {
	inv := invocation{mode: "claude"}
	if len(args) > 0 && args[0] == "run" {
		inv.mode = "opencode"
		args = args[1:]
	}

	var positional []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-p", "--prompt":
			if i+1 < len(args) {
				i++
				inv.prompt = args[i]
			}
		case "--model":
			if i+1 < len(args) {
				i++
				inv.model = args[i]
			}
		case "--json-schema":
			if i+1 < len(args) {
				i++
				inv.schema = args[i]
			}
		case "--output-format", "--format", "--command":
			if i+1 < len(args) {
				i++
			}
		case "--dangerously-skip-permissions":
			// no value
		default:
			if !strings.HasPrefix(args[i], "-") {
				positional = append(positional, args[i])
			}
		}
	}

	if inv.mode == "opencode" && inv.prompt == "" && len(positional) > 0 {
		inv.prompt = positional[len(positional)-1]
	}
	if inv.model == "" {
		return inv, fmt.Errorf("no --model in invocation")
	}
	return inv, nil
}

// emitEnvelope prints a claude-style result envelope.
func emitEnvelope(w io.Writer, sessionID, content string) {
	env := resultEnvelope{
		Type:       "result",
		Subtype:    "success",
		SessionID:  sessionID,
		DurationMS: 5,
	}
	if json.Valid([]byte(content)) {
		env.StructuredOutput = json.RawMessage(content)
	} else {
		quoted, _ := json.Marshal(content)
		env.StructuredOutput = quoted
	}
	_ = json.NewEncoder(w).Encode(env)
}

// emitStream prints opencode-style JSON lines ending with a result.
func emitStream(w io.Writer, sessionID, content string) {
	enc := json.NewEncoder(w)
	_ = enc.Encode(streamLine{Type: "system", SessionID: sessionID})
	_ = enc.Encode(streamLine{Type: "result", SessionID: sessionID, Result: content})
}

// emitError reports an agent-level failure in the requested dialect. The
// process still exits 0: the CLI ran, the agent failed.
func emitError(w io.Writer, mode, sessionID, detail string) {
	if mode == "opencode" {
		enc := json.NewEncoder(w)
		_ = enc.Encode(streamLine{Type: "result", SessionID: sessionID, IsError: true, Result: detail})
		return
	}
	_ = json.NewEncoder(w).Encode(resultEnvelope{
		Type:      "result",
		Subtype:   "error",
		IsError:   true,
		SessionID: sessionID,
		Result:    detail,
	})
}

// nextCallIndex returns the 0-indexed invocation number for a model,
// persisting the counter so sequential fixtures work across processes.
func nextCallIndex(dir, model string) (int, error) {
	callsDir := filepath.Join(dir, ".calls")
	if err := os.MkdirAll(callsDir, 0o755); err != nil {
		return 0, err
	}
	path := filepath.Join(callsDir, model+".count")

	index := 0
	if data, err := os.ReadFile(path); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			index = n
		}
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(index+1)), 0o644); err != nil {
		return 0, err
	}
	return index, nil
}

// captureRequest stores the invocation for later test assertions.
func captureRequest(dir string, inv invocation, callIndex int) {
	requestsDir := filepath.Join(dir, ".requests")
	if err := os.MkdirAll(requestsDir, 0o755); err != nil {
		log.Printf("WARNING: capture dir: %v", err)
		return
	}
	data, err := json.MarshalIndent(capturedRequest{
		Model:     inv.model,
		Prompt:    inv.prompt,
		Schema:    inv.schema,
		CallIndex: callIndex + 1,
		Timestamp: time.Now().UnixMilli(),
	}, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(requestsDir, fmt.Sprintf("%s.%d.json", inv.model, callIndex+1))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("WARNING: capture request: %v", err)
	}
}

// numberedFileRe matches files like "mock-reviewer.1.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir and returns a map of
// model to ordered content sequence.
//
// For each model, fixtures are ordered:
//  1. Numbered files (model.1.json, model.2.json, ...) in numeric order
//  2. Base file (model.json) appended as the final fallback
func loadFixtures(dir string) (map[string][]string, error) {
	baseFiles := make(map[string]string)
	numberedFiles := make(map[string]map[int]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", entry.Name())
		}
		content := string(data)

		if matches := numberedFileRe.FindStringSubmatch(entry.Name()); matches != nil {
			model := matches[1]
			index, _ := strconv.Atoi(matches[2])
			if numberedFiles[model] == nil {
				numberedFiles[model] = make(map[int]string)
			}
			numberedFiles[model][index] = content
			continue
		}
		baseFiles[strings.TrimSuffix(entry.Name(), ".json")] = content
	}

	fixtures := make(map[string][]string)
	allModels := make(map[string]bool)
	for m := range baseFiles {
		allModels[m] = true
	}
	for m := range numberedFiles {
		allModels[m] = true
	}

	for model := range allModels {
		var seq []string
		if numbered, ok := numberedFiles[model]; ok {
			indices := make([]int, 0, len(numbered))
			for idx := range numbered {
				indices = append(indices, idx)
			}
			sort.Ints(indices)
			for _, idx := range indices {
				seq = append(seq, numbered[idx])
			}
		}
		if base, ok := baseFiles[model]; ok {
			seq = append(seq, base)
		}
		if len(seq) > 0 {
			fixtures[model] = seq
		}
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
