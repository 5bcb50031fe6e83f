package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Workflow type identifiers for the default pipelines.
const (
	WorkflowMain       = "main"
	WorkflowPatch      = "patch"
	WorkflowCodeReview = "codereview"
)

// Definition is a named, ordered pipeline. Build is invoked once per
// GetPipeline call so conditional composition, such as platform-specific
// PR steps, is evaluated at construction time.
type Definition struct {
	TypeID      string
	Description string
	Build       func() ([]Step, error)
}

// ErrDuplicateWorkflow is returned when a workflow type is registered
// twice.
var ErrDuplicateWorkflow = errors.New("workflow type already registered")

var (
	workflowMu       sync.RWMutex
	workflowRegistry = make(map[string]*Definition)
)

// RegisterWorkflow adds a workflow definition to the registry.
func RegisterWorkflow(def Definition) error {
	if def.TypeID == "" {
		return errors.New("workflow type id is empty")
	}
	if def.Build == nil {
		return fmt.Errorf("workflow %s has no build function", def.TypeID)
	}

	workflowMu.Lock()
	defer workflowMu.Unlock()
	if _, exists := workflowRegistry[def.TypeID]; exists {
		return fmt.Errorf("%s: %w", def.TypeID, ErrDuplicateWorkflow)
	}
	copied := def
	workflowRegistry[def.TypeID] = &copied
	return nil
}

// MustRegisterWorkflow registers a workflow and panics on failure. For
// use at package initialisation.
func MustRegisterWorkflow(def Definition) {
	if err := RegisterWorkflow(def); err != nil {
		panic(err)
	}
}

// GetPipeline instantiates the ordered step list for a workflow type.
func GetPipeline(typeID string) ([]Step, error) {
	workflowMu.RLock()
	def, ok := workflowRegistry[typeID]
	workflowMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown workflow type %q", typeID)
	}

	steps, err := def.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s pipeline: %w", typeID, err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow %s built an empty pipeline", typeID)
	}
	return steps, nil
}

// WorkflowTypes returns all registered workflow type IDs, sorted.
func WorkflowTypes() []string {
	workflowMu.RLock()
	defer workflowMu.RUnlock()

	types := make([]string, 0, len(workflowRegistry))
	for typeID := range workflowRegistry {
		types = append(types, typeID)
	}
	sort.Strings(types)
	return types
}

// WorkflowRegistered reports whether a workflow type is known.
func WorkflowRegistered(typeID string) bool {
	workflowMu.RLock()
	defer workflowMu.RUnlock()
	_, ok := workflowRegistry[typeID]
	return ok
}

// ResetWorkflows clears the workflow registry. Tests use it to isolate
// registrations.
func ResetWorkflows() {
	workflowMu.Lock()
	defer workflowMu.Unlock()
	workflowRegistry = make(map[string]*Definition)
}
