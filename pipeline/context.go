package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/issue"
)

// Context data keys shared across steps.
const (
	// DataReviewClean marks the most recent code review as clean, letting
	// review-fix short-circuit.
	DataReviewClean = "review_is_clean"

	iterationKeyPrefix = "iteration:"
)

// Context is the per-run mutable carrier handed to every step. Durable
// state flows through the artifact store; the data map exists only for
// fast hand-off within a single run.
type Context struct {
	// IssueID is zero for standalone runs such as codereview.
	IssueID int64

	// ADWID identifies this workflow run.
	ADWID string

	// ParentADWID is set for patch workflows.
	ParentADWID string

	// WorkflowType names the pipeline being run (main, patch, codereview).
	WorkflowType string

	// Store is this run's artifact store.
	Store *artifact.Store

	// Issues is the shared issue store, nil when running without one.
	Issues issue.Store

	// Notifier emits best-effort progress comments.
	Notifier *issue.Notifier

	// Config carries resolved configuration for the run.
	Config *config.Config

	// Logger is the run-scoped logger.
	Logger *slog.Logger

	mu        sync.Mutex
	data      map[string]any
	artifacts map[artifact.Type]*artifact.Artifact
}

// NewContext creates a run context. A nil logger falls back to the
// process default.
func NewContext(adwID string, store *artifact.Store, cfg *config.Config, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		ADWID:     adwID,
		Store:     store,
		Config:    cfg,
		Logger:    logger,
		data:      make(map[string]any),
		artifacts: make(map[artifact.Type]*artifact.Artifact),
	}
}

// Set stores a value in the hand-off map.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get retrieves a value from the hand-off map.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// GetBool retrieves a boolean flag, false when absent or mistyped.
func (c *Context) GetBool(key string) bool {
	v, ok := c.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// GetString retrieves a string value, "" when absent or mistyped.
func (c *Context) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IterationCount returns how many reruns the named step has requested.
func (c *Context) IterationCount(slug string) int {
	v, ok := c.Get(iterationKeyPrefix + slug)
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// IncrementIteration bumps a step's rerun counter and returns the new
// value.
func (c *Context) IncrementIteration(slug string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.data[iterationKeyPrefix+slug].(int)
	n++
	c.data[iterationKeyPrefix+slug] = n
	return n
}

// LoadArtifact returns an artifact from the run cache, falling back to
// the store (including parent fallback for shared types) and caching the
// result.
func (c *Context) LoadArtifact(t artifact.Type) (*artifact.Artifact, error) {
	c.mu.Lock()
	if a, ok := c.artifacts[t]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	a, err := c.Store.Read(t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.artifacts[t] = a
	c.mu.Unlock()
	return a, nil
}

// LoadPayload decodes an artifact's payload into v, using the run cache.
func (c *Context) LoadPayload(t artifact.Type, v any) error {
	a, err := c.LoadArtifact(t)
	if err != nil {
		return err
	}
	return a.Decode(v)
}

// SavePayload writes an artifact through the store and refreshes the run
// cache so later reads observe the newest write.
func (c *Context) SavePayload(t artifact.Type, payload any) (*artifact.Artifact, error) {
	a, err := c.Store.WritePayload(t, payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.artifacts[t] = a
	c.mu.Unlock()
	return a, nil
}

// EmitComment sends a best-effort progress comment. Safe to call with no
// notifier or no issue.
func (c *Context) EmitComment(ctx context.Context, commentType, text string, raw map[string]any) {
	if c.Notifier == nil || c.IssueID == 0 {
		return
	}
	status, msg := c.Notifier.EmitComment(ctx, &issue.Comment{
		IssueID: c.IssueID,
		Comment: text,
		Raw:     raw,
		Source:  issue.SourceSystem,
		Type:    commentType,
		ADWID:   c.ADWID,
	})
	if status == issue.NotifyError {
		c.Logger.Warn("Progress comment not delivered", "type", commentType, "detail", msg)
	}
}

// EmitArtifactComment reports a saved artifact on the owning issue.
func (c *Context) EmitArtifactComment(ctx context.Context, a *artifact.Artifact) {
	if c.Notifier == nil || c.IssueID == 0 {
		return
	}
	status, msg := c.Notifier.EmitArtifactComment(ctx, c.IssueID, c.ADWID, a)
	if status == issue.NotifyError {
		c.Logger.Warn("Artifact comment not delivered", "artifact", a.Type, "detail", msg)
	}
}
