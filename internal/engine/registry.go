package engine

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is a process-wide, name-addressable object table. It exists
// purely for external presentation layers (a console, a test harness) to
// look up simulated hosts/bridges by name; the core never reads from it.
type Registry struct {
	mu      sync.Mutex
	objects map[string]any
}

func newRegistry() *Registry {
	return &Registry{objects: make(map[string]any)}
}

// Register stores obj under name. If name is empty, a name is minted with
// uuid.NewString() so every registered object is still addressable.
func (r *Registry) Register(name string, obj any) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		name = uuid.NewString()
	}
	r.objects[name] = obj
	return name
}

// Lookup returns the object registered under name, if any.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[name]
	return obj, ok
}

// Names returns every registered name, in no particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.objects))
	for n := range r.objects {
		names = append(names, n)
	}
	return names
}
