package backend

import "errors"

// Sentinel errors for the expected failure classes of the clinic backend.
// Callers branch on these to decide degradation; anything else is a transport
// failure wrapped with endpoint context.
var (
	// ErrUnauthorized covers 401/403: a missing capability or a session that
	// was invalidated mid-flight. Expected, never user-visible on reads.
	ErrUnauthorized = errors.New("backend: unauthorized")

	// ErrNotFound covers 404: expected for reverse lookups where the
	// appointment has no examination yet.
	ErrNotFound = errors.New("backend: not found")

	// ErrUnavailable covers 5xx: the backend is down or overloaded. Primaries
	// retry once on it; everything else degrades to empty.
	ErrUnavailable = errors.New("backend: unavailable")
)

// IsExpected reports whether err is one of the failure classes the
// degradation policy treats as "empty result" without logging an error.
func IsExpected(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound)
}
