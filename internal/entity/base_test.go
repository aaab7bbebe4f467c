package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, GenPairKey("alice", "bob"), GenPairKey("bob", "alice"))
	assert.Equal(t, "dm_alice:bob", GenPairKey("bob", "alice"))
}

func TestGenPairKey_UnderscoreSafe(t *testing.T) {
	// User ids may themselves contain "_"; distinct pairs must never
	// collide on the key.
	a := GenPairKey("a_b", "c")
	b := GenPairKey("a", "b_c")
	assert.NotEqual(t, a, b)
}

func TestMemberReadCursor(t *testing.T) {
	m := &Member{}
	assert.Equal(t, int64(500), m.ReadCursor(500), "never read falls back to creation time")

	at := int64(900)
	m.LastReadAt = &at
	assert.Equal(t, at, m.ReadCursor(500))
}
