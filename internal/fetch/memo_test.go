package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemo(t *testing.T) {
	m := NewMemo()

	v1 := map[string]uint64{"appointments": 1, "examinations": 1}
	assert.True(t, m.Changed(v1), "nothing committed yet")

	m.Commit(v1)
	assert.False(t, m.Changed(v1), "same versions, no recompute")

	v2 := map[string]uint64{"appointments": 2, "examinations": 1}
	assert.True(t, m.Changed(v2), "one bumped version invalidates the memo")

	m.Commit(v2)
	assert.False(t, m.Changed(v2))
	assert.True(t, m.Changed(map[string]uint64{"appointments": 2}), "a removed key counts as a change")
	assert.True(t, m.Changed(map[string]uint64{"appointments": 2, "examinations": 1, "plans": 1}))
}

func TestMemo_NilSafe(t *testing.T) {
	var m *Memo
	assert.True(t, m.Changed(map[string]uint64{"a": 1}), "a nil memo always recomputes")
	m.Commit(map[string]uint64{"a": 1})
}
