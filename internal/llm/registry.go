package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/arabicverse/qasida/internal/poem/ports"
)

// Registry resolves a "provider/model"-style ID to a concrete
// ports.LLMProvider bound to that model.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ports.LLMProvider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ports.LLMProvider)}
}

// Register binds name (the part before "/" in a model ID) to an adapter
// already bound to one specific model.
func (r *Registry) Register(name string, p ports.LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (ports.LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// ParseModelID splits a "provider/model" ID into its two halves.
func ParseModelID(modelID string) (providerName, modelName string, err error) {
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model ID %q: expected format 'provider/model'", modelID)
	}
	return parts[0], parts[1], nil
}

// Resolve looks up the adapter for modelID's provider half.
func (r *Registry) Resolve(modelID string) (ports.LLMProvider, error) {
	providerName, _, err := ParseModelID(modelID)
	if err != nil {
		return nil, err
	}
	p, ok := r.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %q", providerName)
	}
	return p, nil
}
