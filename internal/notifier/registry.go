package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/quorum/internal/events"
)

type entry struct {
	n     Notifier
	kinds map[events.Kind]bool
}

func (e entry) accepts(k events.Kind) bool {
	return len(e.kinds) == 0 || e.kinds[k]
}

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]entry
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]entry),
	}
}

// Register adds a notifier that receives the given event kinds. With no
// kinds it receives every event.
func (r *Registry) Register(n Notifier, kinds ...events.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	e := entry{n: n}
	if len(kinds) > 0 {
		e.kinds = make(map[events.Kind]bool, len(kinds))
		for _, k := range kinds {
			e.kinds[k] = true
		}
	}
	r.notifiers[name] = e
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return e.n, nil
}

// GetAll returns all registered notifiers ordered by name.
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, e := range r.notifiers {
		result = append(result, e.n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// For returns the notifiers subscribed to kind, ordered by name.
func (r *Registry) For(kind events.Kind) []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, e := range r.notifiers {
		if e.accepts(kind) {
			result = append(result, e.n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// NotifyAll sends e to every notifier subscribed to its kind and returns
// the failures keyed by notifier name.
func (r *Registry) NotifyAll(ctx context.Context, e events.Event) map[string]error {
	errs := make(map[string]error)
	for _, n := range r.For(e.Kind) {
		if err := n.Notify(ctx, e); err != nil {
			errs[n.Name()] = err
		}
	}
	return errs
}
