package agent

import "sync"

// Logical agent names used by the pipeline steps.
const (
	AgentClassifier  = "classifier"
	AgentPlanner     = "planner"
	AgentImplementor = "implementor"
	AgentReviewer    = "reviewer"
	AgentQuality     = "quality"
	AgentValidator   = "validator"
	AgentComposer    = "composer"
)

// DefaultModel is used for agents without a specific mapping.
const DefaultModel = "sonnet"

// Models maps logical agent names to the model each invokes. Planning gets
// the strongest model, classification the fastest; everything else uses
// the default.
type Models struct {
	mu       sync.RWMutex
	byAgent  map[string]string
	fallback string
}

// NewModels returns the default agent→model mapping.
func NewModels() *Models {
	return &Models{
		byAgent: map[string]string{
			AgentClassifier: "haiku",
			AgentPlanner:    "opus",
		},
		fallback: DefaultModel,
	}
}

// For returns the model for an agent name.
func (m *Models) For(agentName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if model, ok := m.byAgent[agentName]; ok {
		return model
	}
	return m.fallback
}

// Set overrides the model for an agent name.
func (m *Models) Set(agentName, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAgent[agentName] = model
}

// SetFallback overrides the default model.
func (m *Models) SetFallback(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = model
}

var (
	defaultModels     *Models
	defaultModelsOnce sync.Once
)

// DefaultModels returns the process-wide model mapping.
func DefaultModels() *Models {
	defaultModelsOnce.Do(func() {
		defaultModels = NewModels()
	})
	return defaultModels
}
