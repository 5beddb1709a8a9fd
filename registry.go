package throttle

import (
	"sync"
	"time"
)

// Registry shares trackers by key so that independent call sites throttling
// the same target draw from one budget. Keys may be any comparable value;
// an uncomparable key panics, per Go map semantics. nil is a valid key and
// names the shared default tracker.
type Registry struct {
	mu       sync.RWMutex
	trackers map[any]*Tracker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[any]*Tracker)}
}

// GetOrCreate returns the tracker registered under key, constructing it
// with factory on first use. Concurrent callers for the same key observe
// the same instance; at most one successful factory call is published per
// key. A factory error registers nothing.
func (r *Registry) GetOrCreate(key any, factory func() (*Tracker, error)) (*Tracker, error) {
	r.mu.RLock()
	t, ok := r.trackers[key]
	r.mu.RUnlock()

	if ok {
		return t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if t, ok := r.trackers[key]; ok {
		return t, nil
	}

	t, err := factory()
	if err != nil {
		return nil, err
	}
	r.trackers[key] = t
	return t, nil
}

// Tracker returns the tracker registered under key, creating it with the
// given budget on first use. Later calls with the same key return the
// existing instance and silently ignore the configuration arguments:
// registration shares identity, it does not reconfigure.
func (r *Registry) Tracker(key any, duration time.Duration, limit int, opts ...TrackerOption) (*Tracker, error) {
	return r.GetOrCreate(key, func() (*Tracker, error) {
		return NewTracker(duration, limit, opts...)
	})
}

// Clear drops every registration. Handles already obtained stay valid and
// keep their window state, but the next GetOrCreate for a key constructs a
// fresh tracker that no longer shares a budget with them.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers = make(map[any]*Tracker)
}

// Len returns the number of registered trackers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trackers)
}

// The package-level registry backing Shared and ClearAll. Explicit
// Registry values are preferred; the default exists for the common case of
// a handful of process-wide budgets.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the package-level registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Shared returns the tracker registered under key in the package-level
// registry, creating it on first use. See Registry.Tracker for the
// sharing semantics.
func Shared(key any, duration time.Duration, limit int, opts ...TrackerOption) (*Tracker, error) {
	return defaultRegistry.Tracker(key, duration, limit, opts...)
}

// ClearAll drops every registration from the package-level registry.
func ClearAll() {
	defaultRegistry.Clear()
}
