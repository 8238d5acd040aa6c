package dedup

import "sync"

// Tracker decides whether the newest upstream record is new. Novelty is
// decided by identity alone: a record whose content changed under the
// same identity is not new.
type Tracker struct {
	mu   sync.Mutex
	last string
	seen bool
}

// New creates a Tracker with no remembered identity.
func New() *Tracker {
	return &Tracker{}
}

// Observe reports whether id is new and records it as the latest identity.
// The first call is always new. Recording happens before the caller runs
// any side effect, so a failing side effect never causes reprocessing.
func (t *Tracker) Observe(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen && t.last == id {
		return false
	}
	t.last = id
	t.seen = true
	return true
}

// Last returns the remembered identity, if any.
func (t *Tracker) Last() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}
