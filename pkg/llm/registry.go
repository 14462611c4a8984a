package llm

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory builds the client of one provider.
type Factory func(p Provider) (Client, error)

// Registry lazily creates and caches one Client per provider. Concurrent
// first requests for the same provider share a single factory call.
type Registry struct {
	factory Factory

	mu      sync.RWMutex
	clients map[Provider]Client
	group   singleflight.Group
}

// NewRegistry returns an empty registry backed by factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		clients: make(map[Provider]Client),
	}
}

// Get returns the cached client for p, creating it on first use.
func (r *Registry) Get(p Provider) (Client, error) {
	if c, ok := r.lookup(p); ok {
		return c, nil
	}

	v, err, _ := r.group.Do(string(p), func() (interface{}, error) {
		if c, ok := r.lookup(p); ok {
			return c, nil
		}

		c, err := r.factory(p)
		if err != nil {
			return nil, fmt.Errorf("create %s client: %w", p, err)
		}

		r.mu.Lock()
		r.clients[p] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// Clear drops every cached client.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.clients = make(map[Provider]Client)
	r.mu.Unlock()
}

// Len returns the number of cached clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) lookup(p Provider) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[p]
	return c, ok
}
