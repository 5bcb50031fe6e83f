package issue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the issue store contract the pipeline and worker depend on.
type Store interface {
	// Get retrieves an issue by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*Issue, error)

	// ClaimNext atomically claims the next pending issue for a worker.
	// Returns (nil, nil) when no issue is available.
	ClaimNext(ctx context.Context, workerID string) (*Issue, error)

	// UpdateStatus transitions an issue's status.
	UpdateStatus(ctx context.Context, id int64, status Status) error

	// SetWorkflow records the workflow ID, and optionally the branch,
	// currently processing an issue. An empty branch leaves the stored
	// value untouched.
	SetWorkflow(ctx context.Context, id int64, adwID, branch string) error

	// InsertComment appends a comment row.
	InsertComment(ctx context.Context, c *Comment) error

	// Close releases the store's resources.
	Close()
}

// PGStore is the Postgres-backed issue store.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// compile-time check
var _ Store = (*PGStore)(nil)

// OpenStore connects to the issue store. An empty DSN is a fatal
// configuration error: the caller cannot run without a backing store.
func OpenStore(ctx context.Context, dsn string, logger *slog.Logger) (*PGStore, error) {
	if dsn == "" {
		return nil, NewFatalError(errors.New("issue store DSN is not configured"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("open issue store: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping issue store: %w", err)
	}

	return &PGStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// Get retrieves an issue by ID.
func (s *PGStore) Get(ctx context.Context, id int64) (*Issue, error) {
	const query = `
		SELECT id, COALESCE(title, ''), description, status, type,
		       COALESCE(adw_id, ''), COALESCE(branch, ''),
		       COALESCE(assigned_to, ''), created_at, updated_at
		FROM issues
		WHERE id = $1`

	var i Issue
	var rawStatus string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&i.ID, &i.Title, &i.Description, &rawStatus, &i.Type,
		&i.ADWID, &i.Branch, &i.AssignedTo, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get issue %d: %w", id, err)
	}

	i.Status = NormalizeStatus(rawStatus)
	return &i, nil
}

// ClaimNext calls the store's claim function. The function performs
// SELECT ... FOR UPDATE SKIP LOCKED server-side so concurrent workers
// each see a distinct issue, and transitions the claimed row to started.
func (s *PGStore) ClaimNext(ctx context.Context, workerID string) (*Issue, error) {
	const query = `
		SELECT issue_id, issue_description, issue_status, issue_type
		FROM get_and_lock_next_issue($1)`

	var i Issue
	var rawStatus string
	err := s.pool.QueryRow(ctx, query, workerID).Scan(
		&i.ID, &i.Description, &rawStatus, &i.Type,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next issue: %w", err)
	}

	i.Status = NormalizeStatus(rawStatus)
	return &i, nil
}

// UpdateStatus transitions an issue's status.
func (s *PGStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE issues SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return NewTransientError(fmt.Errorf("update issue %d status: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetWorkflow records the workflow ID and branch processing an issue.
func (s *PGStore) SetWorkflow(ctx context.Context, id int64, adwID, branch string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE issues
		 SET adw_id = $2,
		     branch = COALESCE(NULLIF($3, ''), branch),
		     updated_at = now()
		 WHERE id = $1`,
		id, adwID, branch)
	if err != nil {
		return NewTransientError(fmt.Errorf("set issue %d workflow: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return nil
}

// InsertComment appends a comment row. The raw payload is stored as JSONB.
func (s *PGStore) InsertComment(ctx context.Context, c *Comment) error {
	if c.IssueID == 0 {
		return errors.New("comment has no issue id")
	}

	raw := []byte("{}")
	if c.Raw != nil {
		data, err := json.Marshal(c.Raw)
		if err != nil {
			return fmt.Errorf("marshal comment raw payload: %w", err)
		}
		raw = data
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (issue_id, comment, raw, source, type, adw_id)
		 VALUES ($1, $2, $3::jsonb, $4, $5, NULLIF($6, ''))
		 RETURNING id, created_at`,
		c.IssueID, c.Comment, raw, string(c.Source), c.Type, c.ADWID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return NewTransientError(fmt.Errorf("insert comment for issue %d: %w", c.IssueID, err))
	}
	return nil
}
