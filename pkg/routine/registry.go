package routine

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps selectors to routines. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	routines map[Selector]Routine
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{routines: make(map[Selector]Routine)}
}

// Register adds or replaces the routine for sel.
func (r *Registry) Register(sel Selector, rt Routine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routines[sel] = rt
}

// Replace swaps the whole selector table at once.
func (r *Registry) Replace(routines map[Selector]Routine) {
	next := make(map[Selector]Routine, len(routines))
	for sel, rt := range routines {
		next[sel] = rt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routines = next
}

// Lookup returns the routine for sel, or ErrUnavailable.
func (r *Registry) Lookup(sel Selector) (Routine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routines[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s) is not linked or configured", ErrUnavailable, sel, sel.Program())
	}

	return rt, nil
}

// Selectors returns the registered selectors in sorted order.
func (r *Registry) Selectors() []Selector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sels := make([]Selector, 0, len(r.routines))
	for sel := range r.routines {
		sels = append(sels, sel)
	}
	slices.Sort(sels)

	return sels
}
