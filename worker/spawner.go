package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// driverBinary is the bundled pipeline driver looked up on PATH.
const driverBinary = "adw"

// SpawnParams identifies one pipeline run.
type SpawnParams struct {
	ADWID        string
	WorkflowType string
	IssueID      int64
}

// Spawner launches a pipeline run and blocks until it finishes. A nil
// error means the workflow completed; any error requeues the issue.
type Spawner interface {
	Spawn(ctx context.Context, params SpawnParams) error
}

// DriverSpawner runs the pipeline driver as a subprocess, inheriting
// the worker's stdout and stderr so driver logs interleave with worker
// logs.
type DriverSpawner struct {
	workingDir string
	logger     *slog.Logger
}

func NewDriverSpawner(workingDir string) *DriverSpawner {
	return &DriverSpawner{workingDir: workingDir, logger: slog.Default()}
}

// WithLogger sets the spawner's logger.
func (s *DriverSpawner) WithLogger(logger *slog.Logger) *DriverSpawner {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Spawn implements Spawner. Context cancellation kills the subprocess.
func (s *DriverSpawner) Spawn(ctx context.Context, params SpawnParams) error {
	argv, err := s.command()
	if err != nil {
		return err
	}

	args := append(argv[1:],
		"--adw-id", params.ADWID,
		"--workflow-type", params.WorkflowType,
		strconv.FormatInt(params.IssueID, 10))

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Dir = s.workingDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	s.logger.Debug("Spawning pipeline driver",
		"command", strings.Join(append([]string{argv[0]}, args...), " "),
		"adw_id", params.ADWID)

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("workflow timed out: %w", ctx.Err())
		}
		return fmt.Errorf("pipeline driver: %w", err)
	}
	return nil
}

// command resolves the driver invocation: the ADW_COMMAND override
// first, then the bundled binary on PATH, then a binary sitting next to
// the worker executable.
func (s *DriverSpawner) command() ([]string, error) {
	if raw := strings.TrimSpace(os.Getenv(EnvDriverCommand)); raw != "" {
		return strings.Fields(raw), nil
	}

	if path, err := exec.LookPath(driverBinary); err == nil {
		return []string{path, "run"}, nil
	}

	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), driverBinary)
		if _, err := os.Stat(sibling); err == nil {
			return []string{sibling, "run"}, nil
		}
	}

	return nil, fmt.Errorf("pipeline driver %q not found: install it on PATH or set %s", driverBinary, EnvDriverCommand)
}
