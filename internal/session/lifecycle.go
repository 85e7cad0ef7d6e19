package session

import (
	"sync"

	"github.com/clinicboard/clinicboard/pkg/logging"
)

// State is the session lifecycle state.
type State int

const (
	// Active is the normal state: fetches may be issued.
	Active State = iota
	// LoggingOut means a logout round trip is in flight. No new fetch may be
	// issued, and in-flight work is being cancelled.
	LoggingOut
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case LoggingOut:
		return "logging-out"
	}
	return "unknown"
}

// Lifecycle centralizes the logout-in-progress transitions instead of ad hoc
// boolean flags at call sites. Transitions: Active -> LoggingOut via
// BeginLogout, LoggingOut -> Active via FinishLogout once the logout round
// trip completes, success or failure.
type Lifecycle struct {
	mu     sync.Mutex
	state  State
	logger *logging.Logger

	onLogout []func()
}

// NewLifecycle creates a lifecycle owner in the Active state.
func NewLifecycle(logger *logging.Logger) *Lifecycle {
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{state: Active, logger: logger.Component("session")}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Issuable reports whether new fetches may be issued right now.
func (l *Lifecycle) Issuable() bool {
	return l.State() == Active
}

// OnLogout registers a hook run when logout begins, used to cancel in-flight
// view fetches so nothing updates state for a torn-down view.
func (l *Lifecycle) OnLogout(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLogout = append(l.onLogout, fn)
}

// BeginLogout transitions Active -> LoggingOut and fires the cancellation
// hooks. Returns false if a logout is already in progress.
func (l *Lifecycle) BeginLogout() bool {
	l.mu.Lock()
	if l.state == LoggingOut {
		l.mu.Unlock()
		return false
	}
	l.state = LoggingOut
	hooks := make([]func(), len(l.onLogout))
	copy(hooks, l.onLogout)
	l.mu.Unlock()

	l.logger.Info("session logout started, suppressing new fetches")
	for _, fn := range hooks {
		fn()
	}
	return true
}

// FinishLogout transitions back to Active after the logout round trip
// completes, whether it succeeded or not.
func (l *Lifecycle) FinishLogout() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoggingOut {
		return
	}
	l.state = Active
	l.logger.Info("session logout finished")
}
