package provider

import (
	"sort"
	"sync"

	"github.com/newthinker/signalforge/internal/core"
)

// Registry manages provider adapters by id
type Registry struct {
	mu       sync.RWMutex
	adapters map[core.ProviderID]Adapter
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[core.ProviderID]Adapter),
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// Get retrieves an adapter by id
func (r *Registry) Get(id core.ProviderID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// GetAll returns all registered adapters ordered by id
func (r *Registry) GetAll() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Chain resolves an ordered list of ids into adapters serving category c.
// Ids that are not registered or do not support c are returned as skipped.
func (r *Registry) Chain(c Category, ids []core.ProviderID) (chain []Adapter, skipped []core.ProviderID) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range ids {
		a, ok := r.adapters[id]
		if !ok || !a.Supports(c) {
			skipped = append(skipped, id)
			continue
		}
		chain = append(chain, a)
	}
	return chain, skipped
}
