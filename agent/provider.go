package agent

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// providerRegistry holds registered providers.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) (Provider, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	p, ok := providerRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent provider: %s", name)
	}
	return p, nil
}

// ListProviders returns all registered provider names, sorted.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProvider is used when no selector environment variable is set.
const DefaultProvider = "claude"

// Environment variables that select the agent provider.
const (
	// EnvAgentProvider is the global provider selector.
	EnvAgentProvider = "AGENT_PROVIDER"

	// EnvImplementProvider selects the provider for the implement step only.
	EnvImplementProvider = "IMPLEMENT_PROVIDER"
)

// SelectProvider resolves a provider name through the fallback chain:
// the step-specific env var when given, then the global env var, then
// the default.
func SelectProvider(stepEnvVar string) string {
	if stepEnvVar != "" {
		if v := strings.TrimSpace(os.Getenv(stepEnvVar)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAgentProvider)); v != "" {
		return v
	}
	return DefaultProvider
}
