package shortcuts

import (
	"sort"
	"sync"
)

// Descriptor is one registered shortcut: a stable id, the description shown
// in the desktop's shortcut configuration UI, and the callback invoked when
// the bound key combination is pressed (true) or released (false).
type Descriptor struct {
	ID          string
	Description string
	Trigger     func(pressed bool)
}

// Registry maps stable shortcut ids to their descriptors. It is rebuilt
// wholesale on every resync and read by the portal signal loop for dispatch.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewRegistry creates an empty shortcut registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Descriptor),
	}
}

// Clear drops all descriptors. Lookups fail until the next Insert.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]Descriptor)
}

// Insert adds a descriptor, overwriting any existing entry with the same id.
func (r *Registry) Insert(id, description string, trigger func(pressed bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = Descriptor{ID: id, Description: description, Trigger: trigger}
}

// Lookup returns the descriptor for id, if one is registered.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.entries[id]
	return d, ok
}

// Snapshot returns all descriptors sorted by id. The portal does not care
// about the order; sorting just keeps the bind payload reproducible.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, d := range r.entries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
