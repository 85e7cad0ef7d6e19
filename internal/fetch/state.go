package fetch

import "sync"

// Outcome is the terminal (or pending) state of one fetch.
type Outcome int

const (
	// Pending means the fetch has not settled yet.
	Pending Outcome = iota
	// Loaded means the fetch succeeded and its snapshot is stored.
	Loaded
	// Failed means all attempts errored; downstream sees an empty collection.
	Failed
	// Skipped means the capability gate removed the fetch from the plan, or
	// its parent never produced anything to fan out over. Downstream treats
	// this exactly like successfully-empty.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Settled reports whether the fetch will not change state again this session.
func (o Outcome) Settled() bool { return o != Pending }

// State is the tracked status of one fetch (or one fan-out child).
type State struct {
	Outcome  Outcome
	Err      error
	Attempts int
}

// stateTable tracks per-key fetch state. Child fetches are keyed
// "<key>/<parentID>".
type stateTable struct {
	mu     sync.RWMutex
	states map[string]State
}

func newStateTable() *stateTable {
	return &stateTable{states: make(map[string]State)}
}

func (t *stateTable) set(key string, s State) {
	t.mu.Lock()
	t.states[key] = s
	t.mu.Unlock()
}

func (t *stateTable) get(key string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[key]
}

func (t *stateTable) snapshot() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]State, len(t.states))
	for k, v := range t.states {
		out[k] = v
	}
	return out
}
