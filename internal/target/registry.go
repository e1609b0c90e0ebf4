package target

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// ErrInvalidTarget is returned for targets missing an ID or process name.
var ErrInvalidTarget = errors.New("invalid target")

// Registry holds the watched targets in registration order.
// It is safe to mutate while the tracker is running; readers get snapshots.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	targets map[string]domain.Target
}

// NewRegistry creates a registry with the built-in targets.
func NewRegistry() *Registry {
	r, _ := NewRegistryWithTargets(Defaults()...)
	return r
}

// NewRegistryWithTargets creates a registry with custom targets.
func NewRegistryWithTargets(targets ...domain.Target) (*Registry, error) {
	r := &Registry{targets: make(map[string]domain.Target)}
	for _, t := range targets {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a target.
func (r *Registry) Register(t domain.Target) error {
	if t.ID == "" || t.ProcessName == "" {
		return fmt.Errorf("%w: id and process name are required (got %q/%q)", ErrInvalidTarget, t.ID, t.ProcessName)
	}
	if t.Name == "" {
		t.Name = t.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.targets[t.ID] = t
	return nil
}

// Remove deletes a target. Reports whether it was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; !ok {
		return false
	}
	delete(r.targets, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a target by ID.
func (r *Registry) Get(id string) (domain.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	return t, ok
}

// All returns a snapshot of all targets.
func (r *Registry) All() []domain.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Target, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.targets[id])
	}
	return result
}

// List returns all target IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Sync replaces the watched set with targets, keeping their order.
// Nothing changes if any target is invalid.
func (r *Registry) Sync(targets []domain.Target) (added, removed []string, err error) {
	order := make([]string, 0, len(targets))
	next := make(map[string]domain.Target, len(targets))
	for _, t := range targets {
		if t.ID == "" || t.ProcessName == "" {
			return nil, nil, fmt.Errorf("%w: id and process name are required (got %q/%q)", ErrInvalidTarget, t.ID, t.ProcessName)
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		if _, dup := next[t.ID]; !dup {
			order = append(order, t.ID)
		}
		next[t.ID] = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range order {
		if _, ok := r.targets[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range r.order {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	r.order = order
	r.targets = next
	return added, removed, nil
}

// Ensure Registry implements domain.TargetSource.
var _ domain.TargetSource = (*Registry)(nil)
