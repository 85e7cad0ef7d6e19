package fetch

import "sync"

// Memo is a keyed memoization table mapping a resource key to the last
// snapshot version a recomputation consumed. It replaces per-call "already
// handled" flags: consumers ask Changed before recomputing derived state and
// Commit after, so an unchanged snapshot set never triggers duplicate work.
type Memo struct {
	mu   sync.Mutex
	seen map[string]uint64
}

func NewMemo() *Memo {
	return &Memo{seen: make(map[string]uint64)}
}

// Changed reports whether any of the given key/version pairs differs from the
// last committed recomputation.
func (m *Memo) Changed(versions map[string]uint64) bool {
	if m == nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(versions) != len(m.seen) {
		return true
	}
	for k, v := range versions {
		if m.seen[k] != v {
			return true
		}
	}
	return false
}

// Commit records the versions a completed recomputation consumed.
func (m *Memo) Commit(versions map[string]uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = make(map[string]uint64, len(versions))
	for k, v := range versions {
		m.seen[k] = v
	}
}
