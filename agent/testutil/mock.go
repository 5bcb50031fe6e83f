// Package testutil provides test utilities for the agent package.
// It includes mock implementations for testing agent provider interactions.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/adw/agent"
)

// MockProvider is a thread-safe mock agent provider for testing.
// It captures each request passed to Execute() and returns configured
// responses in sequence.
//
// Usage:
//
//	// Single response mock
//	mock := &MockProvider{
//	    Responses: []*agent.Response{
//	        {Output: `{"status": "pass"}`, Success: true},
//	    },
//	}
//
//	// Multiple responses (for rerun testing)
//	mock := &MockProvider{
//	    Responses: []*agent.Response{
//	        {Success: false, ErrorDetail: "no plan found"},
//	        {Output: `{"status": "pass"}`, Success: true},
//	    },
//	}
//
//	// Error response
//	mock := &MockProvider{
//	    Err: errors.New("binary not found"),
//	}
type MockProvider struct {
	mu              sync.Mutex
	capturedContext context.Context
	captured        []agent.Request
	streamed        []string
	Responses       []*agent.Response // Responses to return in sequence
	Stream          []string          // Lines fed to the handler before each response
	Err             error             // Error to return (takes precedence over Responses)
	callCount       int
	responseIndex   int
}

// Name implements agent.Provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// Execute implements agent.Provider.
// Returns the next response from Responses slice, or Err if set.
// Captures the request for verification in tests and replays any
// configured stream lines through the handler.
func (m *MockProvider) Execute(ctx context.Context, req agent.Request, handler agent.StreamHandler) (*agent.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.capturedContext = ctx
	m.captured = append(m.captured, req)
	m.callCount++

	if m.Err != nil {
		return nil, m.Err
	}

	for _, line := range m.Stream {
		m.streamed = append(m.streamed, line)
		if handler != nil {
			handler(line)
		}
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	// Default response if no responses configured
	return &agent.Response{Success: true}, nil
}

// GetCapturedContext returns the last context passed to Execute().
func (m *MockProvider) GetCapturedContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedContext
}

// GetCapturedRequests returns a copy of every request passed to Execute().
func (m *MockProvider) GetCapturedRequests() []agent.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]agent.Request, len(m.captured))
	copy(out, m.captured)
	return out
}

// GetCallCount returns the number of times Execute() was called.
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset resets the mock's state (call count, response index, captures).
// Useful for reusing the same mock instance across multiple test cases.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.responseIndex = 0
	m.captured = nil
	m.streamed = nil
	m.capturedContext = nil
}
