package relayclient

import "sync"

// Tracker is the set of auction IDs the client wants to follow, kept in
// insertion order so replays are deterministic.
type Tracker struct {
	mu    sync.Mutex
	order []string
	index map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{index: make(map[string]int)}
}

// Add reports whether id was newly added.
func (t *Tracker) Add(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[id]; ok {
		return false
	}
	t.index[id] = len(t.order)
	t.order = append(t.order, id)
	return true
}

// Remove reports whether id was present.
func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[id]
	if !ok {
		return false
	}
	t.order = append(t.order[:i], t.order[i+1:]...)
	delete(t.index, id)
	for j := i; j < len(t.order); j++ {
		t.index[t.order[j]] = j
	}
	return true
}

func (t *Tracker) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.index[id]
	return ok
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Snapshot returns a copy of the tracked IDs in insertion order.
func (t *Tracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
