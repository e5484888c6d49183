package arbitrage

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named detectors for selection by config.
type Registry struct {
	detectors map[string]Detector
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add detectors.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Register adds a detector under its own name.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Name()] = d
}

// Get returns the detector by name, or an error if not found.
func (r *Registry) Get(name string) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("arbitrage: detector %q not found", name)
	}
	return d, nil
}

// List returns all registered detector names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for n := range r.detectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every registered detector in name order.
func (r *Registry) All() []Detector {
	names := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Detector, 0, len(names))
	for _, n := range names {
		out = append(out, r.detectors[n])
	}
	return out
}
