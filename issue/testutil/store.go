// Package testutil provides test utilities for the issue package.
// It includes an in-memory store for testing workers and pipeline steps
// without a database.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360studio/adw/issue"
)

// MemoryStore is a thread-safe in-memory issue.Store.
//
// Usage:
//
//	store := testutil.NewMemoryStore()
//	store.Seed(&issue.Issue{ID: 42, Description: "add endpoint", Status: issue.StatusPending, Type: issue.TypeMain})
type MemoryStore struct {
	mu        sync.Mutex
	issues    map[int64]*issue.Issue
	comments  []*issue.Comment
	nextID    int64
	claimErr  error
	insertErr error
	updateErr error
}

// compile-time check
var _ issue.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		issues: make(map[int64]*issue.Issue),
		nextID: 1,
	}
}

// Seed adds an issue, assigning an ID when the issue carries none.
func (m *MemoryStore) Seed(i *issue.Issue) *issue.Issue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i.ID == 0 {
		i.ID = m.nextID
	}
	if i.ID >= m.nextID {
		m.nextID = i.ID + 1
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	i.UpdatedAt = i.CreatedAt
	m.issues[i.ID] = i
	return i
}

// FailClaim makes ClaimNext return err.
func (m *MemoryStore) FailClaim(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimErr = err
}

// FailInsert makes InsertComment return err.
func (m *MemoryStore) FailInsert(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertErr = err
}

// FailUpdate makes UpdateStatus return err.
func (m *MemoryStore) FailUpdate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
}

// Get implements issue.Store.
func (m *MemoryStore) Get(_ context.Context, id int64) (*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %d: %w", id, issue.ErrNotFound)
	}
	copied := *i
	return &copied, nil
}

// ClaimNext implements issue.Store. It claims the oldest pending issue
// that is unassigned or pinned to the worker.
func (m *MemoryStore) ClaimNext(_ context.Context, workerID string) (*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.claimErr != nil {
		return nil, m.claimErr
	}

	var oldest *issue.Issue
	for _, i := range m.issues {
		if i.Status != issue.StatusPending {
			continue
		}
		if i.AssignedTo != "" && i.AssignedTo != workerID {
			continue
		}
		if oldest == nil || i.CreatedAt.Before(oldest.CreatedAt) {
			oldest = i
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.Status = issue.StatusStarted
	oldest.AssignedTo = workerID
	oldest.UpdatedAt = time.Now()
	copied := *oldest
	return &copied, nil
}

// UpdateStatus implements issue.Store.
func (m *MemoryStore) UpdateStatus(_ context.Context, id int64, status issue.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	i, ok := m.issues[id]
	if !ok {
		return fmt.Errorf("issue %d: %w", id, issue.ErrNotFound)
	}
	i.Status = status
	i.UpdatedAt = time.Now()
	return nil
}

// SetWorkflow implements issue.Store.
func (m *MemoryStore) SetWorkflow(_ context.Context, id int64, adwID, branch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.issues[id]
	if !ok {
		return fmt.Errorf("issue %d: %w", id, issue.ErrNotFound)
	}
	i.ADWID = adwID
	if branch != "" {
		i.Branch = branch
	}
	i.UpdatedAt = time.Now()
	return nil
}

// InsertComment implements issue.Store.
func (m *MemoryStore) InsertComment(_ context.Context, c *issue.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return m.insertErr
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	copied := *c
	m.comments = append(m.comments, &copied)
	return nil
}

// Close implements issue.Store.
func (m *MemoryStore) Close() {}

// Comments returns a copy of all inserted comments.
func (m *MemoryStore) Comments() []*issue.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*issue.Comment, len(m.comments))
	copy(out, m.comments)
	return out
}

// Issue returns the stored issue, or nil.
func (m *MemoryStore) Issue(id int64) *issue.Issue {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.issues[id]
	if !ok {
		return nil
	}
	copied := *i
	return &copied
}
