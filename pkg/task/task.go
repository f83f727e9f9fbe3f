// Package task provides a lean, concurrency-safe, in-memory tracker for
// operations that must not overlap, e.g. a capability evaluation for a
// given provisioning session. Only live operations are tracked; nothing is
// persisted and no progress is reported.
package task

import "sync"

// Tracker records which operations are running per scope. Implementations
// must be concurrency-safe.
type Tracker interface {
	// TryStart marks id as running under scope. It returns false when id is
	// already running or when either argument is empty.
	TryStart(scope, id string) bool
	End(scope, id string)
	Snapshot() map[string][]string
}

// InMemoryTracker is the default Tracker.
type InMemoryTracker struct {
	mu sync.RWMutex
	// scope -> set(id)
	data map[string]map[string]struct{}
}

// New creates and returns a new in-memory tracker.
func New() *InMemoryTracker {
	return &InMemoryTracker{data: make(map[string]map[string]struct{})}
}

// TryStart implements Tracker.
func (t *InMemoryTracker) TryStart(scope, id string) bool {
	if scope == "" || id == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.data[scope]
	if !ok {
		m = make(map[string]struct{})
		t.data[scope] = m
	}
	if _, exists := m[id]; exists {
		return false
	}
	m[id] = struct{}{}
	return true
}

// End removes a running id under scope. Removing an unknown pair is a no-op.
func (t *InMemoryTracker) End(scope, id string) {
	if scope == "" || id == "" {
		return
	}
	t.mu.Lock()
	if m, ok := t.data[scope]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(t.data, scope)
		}
	}
	t.mu.Unlock()
}

// Snapshot returns a copy of the running ids per scope.
// The returned map and slices are independent of internal state.
func (t *InMemoryTracker) Snapshot() map[string][]string {
	out := make(map[string][]string)
	t.mu.RLock()
	for scope, m := range t.data {
		ids := make([]string, 0, len(m))
		for id := range m {
			ids = append(ids, id)
		}
		out[scope] = ids
	}
	t.mu.RUnlock()
	return out
}
