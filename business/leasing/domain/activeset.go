package domain

import (
	"sort"
	"sync"
)

// ActiveLeaseSet tracks the lease IDs whose most-recently-observed
// state is Active. It is derived purely from the event stream, never
// persisted, and rebuilt from scratch on every process start.
type ActiveLeaseSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewActiveLeaseSet creates an empty set.
func NewActiveLeaseSet() *ActiveLeaseSet {
	return &ActiveLeaseSet{ids: make(map[string]struct{})}
}

// Apply updates the set from one observed state change. Adding a
// present ID and removing an absent one are both no-ops.
func (s *ActiveLeaseSet) Apply(ev StateChangedEvent) {
	if ev.LeaseID == nil {
		return
	}
	key := ev.LeaseID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.NewState.IsActive() {
		s.ids[key] = struct{}{}
	} else {
		delete(s.ids, key)
	}
}

// Contains reports whether the lease ID is currently active.
func (s *ActiveLeaseSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the active lease IDs in lexicographic order.
func (s *ActiveLeaseSet) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of active leases.
func (s *ActiveLeaseSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Reset clears the set.
func (s *ActiveLeaseSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}
