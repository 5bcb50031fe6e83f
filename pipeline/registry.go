package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/adw/artifact"
)

// Step is one unit of pipeline work.
type Step interface {
	// Name is the human label used in logs and rerun targets.
	Name() string

	// Slug is the kebab-case registry identifier.
	Slug() string

	// Run executes the step against the workflow context.
	Run(ctx context.Context, wctx *Context) StepResult
}

// Factory constructs a fresh step instance.
type Factory func() Step

// StepMetadata describes a registered step and its artifact graph edges.
type StepMetadata struct {
	Slug         string
	Name         string
	New          Factory
	Dependencies []artifact.Type
	Outputs      []artifact.Type
	Critical     bool
	Description  string
}

// ErrDuplicateSlug is returned when a slug is registered twice.
var ErrDuplicateSlug = errors.New("step slug already registered")

// stepRegistry holds registered step metadata keyed by slug.
var (
	stepMu       sync.RWMutex
	stepRegistry = make(map[string]*StepMetadata)
)

// RegisterStep adds a step to the registry. Duplicate slugs fail.
func RegisterStep(meta StepMetadata) error {
	if meta.Slug == "" {
		return errors.New("step slug is empty")
	}
	if meta.New == nil {
		return fmt.Errorf("step %s has no factory", meta.Slug)
	}

	stepMu.Lock()
	defer stepMu.Unlock()
	if _, exists := stepRegistry[meta.Slug]; exists {
		return fmt.Errorf("%s: %w", meta.Slug, ErrDuplicateSlug)
	}
	copied := meta
	stepRegistry[meta.Slug] = &copied
	return nil
}

// MustRegisterStep registers a step and panics on failure. For use at
// package initialisation.
func MustRegisterStep(meta StepMetadata) {
	if err := RegisterStep(meta); err != nil {
		panic(err)
	}
}

// GetStep retrieves step metadata by slug.
func GetStep(slug string) (*StepMetadata, bool) {
	stepMu.RLock()
	defer stepMu.RUnlock()
	meta, ok := stepRegistry[slug]
	return meta, ok
}

// GetStepByName retrieves step metadata by its human label.
func GetStepByName(name string) (*StepMetadata, bool) {
	stepMu.RLock()
	defer stepMu.RUnlock()
	for _, meta := range stepRegistry {
		if meta.Name == name {
			return meta, true
		}
	}
	return nil, false
}

// StepSlugs returns all registered slugs, sorted.
func StepSlugs() []string {
	stepMu.RLock()
	defer stepMu.RUnlock()

	slugs := make([]string, 0, len(stepRegistry))
	for slug := range stepRegistry {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// ProducersOf returns the slugs of steps that output the artifact type,
// sorted.
func ProducersOf(t artifact.Type) []string {
	stepMu.RLock()
	defer stepMu.RUnlock()
	return producersOfLocked(t)
}

func producersOfLocked(t artifact.Type) []string {
	var producers []string
	for slug, meta := range stepRegistry {
		for _, out := range meta.Outputs {
			if out == t {
				producers = append(producers, slug)
				break
			}
		}
	}
	sort.Strings(producers)
	return producers
}

// ConsumersOf returns the slugs of steps that depend on the artifact
// type, sorted.
func ConsumersOf(t artifact.Type) []string {
	stepMu.RLock()
	defer stepMu.RUnlock()

	var consumers []string
	for slug, meta := range stepRegistry {
		for _, dep := range meta.Dependencies {
			if dep == t {
				consumers = append(consumers, slug)
				break
			}
		}
	}
	sort.Strings(consumers)
	return consumers
}

// ResolveDependencies walks the artifact-producer graph upstream of a
// step and returns the producing steps in an order where dependencies
// precede dependants. The target step itself is excluded. When several
// steps produce the same artifact type the first slug in sorted order is
// chosen, so resolution is reproducible. Cycles are errors.
func ResolveDependencies(slug string) ([]string, error) {
	stepMu.RLock()
	defer stepMu.RUnlock()

	if _, ok := stepRegistry[slug]; !ok {
		return nil, fmt.Errorf("unknown step %q", slug)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var order []string

	var visit func(s string) error
	visit = func(s string) error {
		switch state[s] {
		case visiting:
			return fmt.Errorf("dependency cycle through step %q", s)
		case done:
			return nil
		}
		state[s] = visiting

		meta := stepRegistry[s]
		for _, dep := range meta.Dependencies {
			producer, ok := pickProducerLocked(dep, s)
			if !ok {
				return fmt.Errorf("no registered producer for artifact %q (needed by step %q)", dep, s)
			}
			if err := visit(producer); err != nil {
				return err
			}
		}

		state[s] = done
		if s != slug {
			order = append(order, s)
		}
		return nil
	}

	if err := visit(slug); err != nil {
		return nil, err
	}
	return order, nil
}

// pickProducerLocked selects the producer for a dependency, skipping the
// consumer itself.
func pickProducerLocked(t artifact.Type, consumer string) (string, bool) {
	for _, producer := range producersOfLocked(t) {
		if producer != consumer {
			return producer, true
		}
	}
	return "", false
}

// ValidateSteps walks all registered steps and reports unresolved
// dependencies and cycles. Returns an empty slice when the graph is
// healthy.
func ValidateSteps() []string {
	var problems []string
	seen := make(map[string]bool)

	for _, slug := range StepSlugs() {
		if _, err := ResolveDependencies(slug); err != nil {
			msg := err.Error()
			if !seen[msg] {
				seen[msg] = true
				problems = append(problems, msg)
			}
		}
	}
	sort.Strings(problems)
	return problems
}

// ResetSteps clears the step registry. Tests use it to isolate
// registrations.
func ResetSteps() {
	stepMu.Lock()
	defer stepMu.Unlock()
	stepRegistry = make(map[string]*StepMetadata)
}
