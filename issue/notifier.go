package issue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/adw/artifact"
)

// NotifyStatus is the outcome of a best-effort comment emission.
type NotifyStatus string

const (
	NotifySuccess NotifyStatus = "success"
	NotifySkipped NotifyStatus = "skipped"
	NotifyError   NotifyStatus = "error"
)

// Notifier emits progress comments to the issue store. Every emission is
// best-effort: store failures are logged and reported as a status, never
// propagated as errors.
type Notifier struct {
	store  Store
	logger *slog.Logger
}

// NewNotifier creates a notifier over a store.
func NewNotifier(store Store, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: store, logger: logger}
}

// EmitComment inserts a comment row. Skipped when the payload carries no
// issue ID, as in standalone code-review runs.
func (n *Notifier) EmitComment(ctx context.Context, c *Comment) (NotifyStatus, string) {
	if n == nil || n.store == nil {
		return NotifySkipped, "no issue store configured"
	}
	if c.IssueID == 0 {
		return NotifySkipped, "comment has no issue id"
	}
	if c.Source == "" {
		c.Source = SourceSystem
	}

	if err := n.store.InsertComment(ctx, c); err != nil {
		n.logger.Error("Failed to insert comment",
			"issue_id", c.IssueID,
			"type", c.Type,
			"error", err)
		return NotifyError, err.Error()
	}
	return NotifySuccess, fmt.Sprintf("comment %d inserted", c.ID)
}

// EmitArtifactComment serialises an artifact into a comment's raw payload
// under the "artifact" key, with source artifact and the artifact type as
// the comment type.
func (n *Notifier) EmitArtifactComment(ctx context.Context, issueID int64, adwID string, a *artifact.Artifact) (NotifyStatus, string) {
	if a == nil {
		return NotifySkipped, "no artifact to emit"
	}

	var payload any
	if err := json.Unmarshal(a.Data, &payload); err != nil {
		payload = string(a.Data)
	}

	return n.EmitComment(ctx, &Comment{
		IssueID: issueID,
		Comment: fmt.Sprintf("Artifact %s written for workflow %s", a.Type, adwID),
		Raw: map[string]any{
			"artifact": map[string]any{
				"workflow_id":   a.WorkflowID,
				"artifact_type": string(a.Type),
				"created_at":    a.CreatedAt,
				"data":          payload,
			},
		},
		Source: SourceArtifact,
		Type:   string(a.Type),
		ADWID:  adwID,
	})
}
