package hooks

import (
	"errors"
	"strings"
	"sync"
)

// ErrDuplicateHook indicates a filter name already has hooks registered.
var ErrDuplicateHook = errors.New("hook already registered")

// Registry keeps filter hooks in registration order.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hooks
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hooks)}
}

// Register stores hooks for the given filter name.
func (r *Registry) Register(name string, hooks Hooks) error {
	key := normalizeKey(name)
	if key == "" {
		return errors.New("filter name required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hooks[key]; exists {
		return ErrDuplicateHook
	}
	r.hooks[key] = hooks
	r.order = append(r.order, key)
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(name string, hooks Hooks) {
	if err := r.Register(name, hooks); err != nil {
		panic(err)
	}
}

// Fetch retrieves hooks associated with a filter name.
func (r *Registry) Fetch(name string) (Hooks, bool) {
	key := normalizeKey(name)
	if key == "" {
		return Hooks{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	hooks, ok := r.hooks[key]
	return hooks, ok
}

// ActiveFor returns, in registration order, the hooks whose Active predicate
// accepts the action.
func (r *Registry) ActiveFor(action *Action) []Hooks {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []Hooks
	for _, key := range r.order {
		h := r.hooks[key]
		if h.Active != nil && h.Active(action) {
			active = append(active, h)
		}
	}
	return active
}

// Names returns registered filter names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Status returns hook registration status for a filter name.
func (r *Registry) Status(name string) string {
	if _, ok := r.Fetch(name); ok {
		return "registered"
	}
	return "missing"
}

// Snapshot returns status for a list of filter names.
func (r *Registry) Snapshot(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if normalized := normalizeKey(name); normalized != "" {
			out[normalized] = r.Status(normalized)
		}
	}
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
