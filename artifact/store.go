package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// WorkflowsDir is the subdirectory of the data root that holds one
// directory per workflow.
const WorkflowsDir = "workflows"

// dirMode keeps workflow directories private to the orchestrator user.
const dirMode = 0o700

// Info describes an artifact file on disk.
type Info struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// Store reads and writes one workflow's artifacts. Exactly one process
// writes to a workflow at a time; concurrent readers are safe because
// writes land via rename.
type Store struct {
	workflowsDir string
	workflowID   string
	parentID     string
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithParent declares the parent workflow used for shared-artifact
// fallback. The parent's directory must exist when the store is opened.
func WithParent(parentWorkflowID string) Option {
	return func(s *Store) {
		s.parentID = parentWorkflowID
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open creates the workflow directory under dataRoot and returns a store
// bound to it.
func Open(dataRoot, workflowID string, opts ...Option) (*Store, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflow ID must not be empty")
	}
	s := &Store{
		workflowsDir: filepath.Join(dataRoot, WorkflowsDir),
		workflowID:   workflowID,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(s.Dir(), dirMode); err != nil {
		return nil, fmt.Errorf("create workflow directory: %w", err)
	}
	if s.parentID != "" {
		parentDir := filepath.Join(s.workflowsDir, s.parentID)
		info, err := os.Stat(parentDir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("parent workflow directory not found: %s", parentDir)
		}
	}
	return s, nil
}

// WorkflowID returns the workflow this store is bound to.
func (s *Store) WorkflowID() string { return s.workflowID }

// ParentWorkflowID returns the declared parent workflow, or "".
func (s *Store) ParentWorkflowID() string { return s.parentID }

// Dir returns the workflow's artifact directory.
func (s *Store) Dir() string {
	return filepath.Join(s.workflowsDir, s.workflowID)
}

func (s *Store) path(t Type) string {
	return filepath.Join(s.Dir(), t.Filename())
}

func (s *Store) parentPath(t Type) string {
	return filepath.Join(s.workflowsDir, s.parentID, t.Filename())
}

// Write persists the artifact into the local workflow directory, stamping
// workflow ID and creation time. The file appears atomically from a
// reader's perspective. A patch workflow writing a shared type is legal
// but logged, since shared state normally originates in the parent.
func (s *Store) Write(a *Artifact) error {
	if a == nil {
		return fmt.Errorf("artifact must not be nil")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("unknown artifact type: %s", a.Type)
	}
	a.WorkflowID = s.workflowID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if IsPatchWorkflow(s.workflowID) && a.Type.Shared() {
		s.logger.Warn("Patch workflow writing shared artifact type",
			"workflow_id", s.workflowID,
			"artifact_type", a.Type)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", a.Type, err)
	}
	return s.writeAtomic(s.path(a.Type), data)
}

// WritePayload wraps payload in a fresh envelope and writes it, returning
// the envelope for comment emission.
func (s *Store) WritePayload(t Type, payload any) (*Artifact, error) {
	a, err := New(s.workflowID, t, payload)
	if err != nil {
		return nil, err
	}
	if err := s.Write(a); err != nil {
		return nil, err
	}
	return a, nil
}

// writeAtomic writes data to a temp file in the workflow directory and
// renames it into place.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.Dir(), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename artifact file: %w", err)
	}
	return nil
}

// Read loads an artifact by type. On a local miss, shared types fall back
// to the parent workflow when one is declared; patch-specific and other
// local-only types fail with ErrNotFound regardless of parent state.
func (s *Store) Read(t Type) (*Artifact, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown artifact type: %s", t)
	}

	data, err := os.ReadFile(s.path(t))
	if err == nil {
		return s.decode(t, data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read artifact %s: %w", t, err)
	}

	if s.parentID != "" && t.Shared() {
		parentData, perr := os.ReadFile(s.parentPath(t))
		if perr == nil {
			s.logger.Info("Using parent workflow artifact",
				"artifact_type", t,
				"workflow_id", s.workflowID,
				"parent_workflow_id", s.parentID)
			return s.decode(t, parentData)
		}
		if !os.IsNotExist(perr) {
			return nil, fmt.Errorf("read parent artifact %s: %w", t, perr)
		}
	}

	return nil, fmt.Errorf("artifact %s for workflow %s: %w", t, s.workflowID, ErrNotFound)
}

// ReadPayload reads the artifact and decodes its payload into v.
func (s *Store) ReadPayload(t Type, v any) error {
	a, err := s.Read(t)
	if err != nil {
		return err
	}
	return a.Decode(v)
}

func (s *Store) decode(t Type, data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("artifact %s: %v: %w", t, err, ErrCorrupted)
	}
	return &a, nil
}

// Exists reports local presence only; parent fallback does not apply.
func (s *Store) Exists(t Type) bool {
	info, err := os.Stat(s.path(t))
	return err == nil && !info.IsDir()
}

// List returns the artifact types present in the local directory, sorted.
func (s *Store) List() ([]Type, error) {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		return nil, fmt.Errorf("read workflow directory: %w", err)
	}
	var types []Type
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t := Type(strings.TrimSuffix(entry.Name(), ".json"))
		if t.Valid() {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, nil
}

// Delete removes a local artifact, reporting whether it existed.
func (s *Store) Delete(t Type) (bool, error) {
	err := os.Remove(s.path(t))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("delete artifact %s: %w", t, err)
}

// Stat returns file metadata for a local artifact.
func (s *Store) Stat(t Type) (*Info, error) {
	fi, err := os.Stat(s.path(t))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s for workflow %s: %w", t, s.workflowID, ErrNotFound)
		}
		return nil, fmt.Errorf("stat artifact %s: %w", t, err)
	}
	return &Info{Path: s.path(t), Size: fi.Size(), ModTime: fi.ModTime()}, nil
}
