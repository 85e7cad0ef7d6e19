package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleTransitions(t *testing.T) {
	lc := NewLifecycle(nil)
	assert.Equal(t, Active, lc.State())
	assert.True(t, lc.Issuable())

	assert.True(t, lc.BeginLogout())
	assert.Equal(t, LoggingOut, lc.State())
	assert.False(t, lc.Issuable())

	assert.False(t, lc.BeginLogout(), "second logout while one is in flight is a no-op")

	lc.FinishLogout()
	assert.Equal(t, Active, lc.State())
	assert.True(t, lc.Issuable())

	// FinishLogout outside a logout does nothing.
	lc.FinishLogout()
	assert.Equal(t, Active, lc.State())
}

func TestLifecycleHooks(t *testing.T) {
	lc := NewLifecycle(nil)

	fired := 0
	lc.OnLogout(func() { fired++ })
	lc.OnLogout(func() { fired++ })
	lc.OnLogout(nil)

	lc.BeginLogout()
	assert.Equal(t, 2, fired, "every registered hook fires once at logout start")

	lc.FinishLogout()
	lc.BeginLogout()
	assert.Equal(t, 4, fired, "hooks fire again on the next logout")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "logging-out", LoggingOut.String())
	assert.Equal(t, "unknown", State(42).String())
}
