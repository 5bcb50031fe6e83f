// Package issue provides access to the shared issue store backed by
// Postgres. Workers claim issues from it, workflows report progress to it
// through comments, and the pipeline updates issue status as runs finish.
package issue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of an issue.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Legacy status values still present in older rows. Normalised on read;
// a migration rewrites them in place.
const (
	legacyPatchPending = "patch pending"
	legacyPatched      = "patched"
)

// NormalizeStatus maps a stored status string onto the canonical set.
// Unknown values pass through unchanged so callers can reject them.
func NormalizeStatus(raw string) Status {
	switch strings.TrimSpace(raw) {
	case legacyPatchPending:
		return StatusPending
	case legacyPatched:
		return StatusCompleted
	default:
		return Status(strings.TrimSpace(raw))
	}
}

// Valid reports whether the status is one of the canonical values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusStarted, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a status transition is allowed. The
// lifecycle runs pending to started to completed or failed; failed issues
// may be requeued to pending.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusStarted
	case StatusStarted:
		return to == StatusCompleted || to == StatusFailed || to == StatusPending
	case StatusFailed:
		return to == StatusPending
	default:
		return false
	}
}

// Type distinguishes full workflow issues from patch followups.
type Type string

const (
	TypeMain  Type = "main"
	TypePatch Type = "patch"
)

// Valid reports whether the issue type is known.
func (t Type) Valid() bool {
	return t == TypeMain || t == TypePatch
}

// Source identifies what produced a comment.
type Source string

const (
	SourceSystem   Source = "system"
	SourceAgent    Source = "agent"
	SourceArtifact Source = "artifact"
)

// Valid reports whether the comment source is known.
func (s Source) Valid() bool {
	switch s {
	case SourceSystem, SourceAgent, SourceArtifact:
		return true
	default:
		return false
	}
}

// Issue is a record in the shared store.
type Issue struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Type        Type      `json:"type"`
	ADWID       string    `json:"adw_id,omitempty"`
	Branch      string    `json:"branch,omitempty"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the fields a workflow depends on.
func (i *Issue) Validate() error {
	if strings.TrimSpace(i.Description) == "" {
		return fmt.Errorf("issue %d: %w", i.ID, ErrEmptyDescription)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("issue %d: invalid status %q", i.ID, i.Status)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("issue %d: invalid type %q", i.ID, i.Type)
	}
	return nil
}

// Comment is an append-only log row attached to an issue. The (source,
// type) pair is informative only and never enforced.
type Comment struct {
	ID        int64          `json:"id"`
	IssueID   int64          `json:"issue_id"`
	Comment   string         `json:"comment"`
	Raw       map[string]any `json:"raw,omitempty"`
	Source    Source         `json:"source"`
	Type      string         `json:"type"`
	ADWID     string         `json:"adw_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
