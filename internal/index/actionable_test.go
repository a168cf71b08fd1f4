package index

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestActionableSet_PromoteIdempotent(t *testing.T) {
	a := NewActionableSet()
	q1, q2 := newKey(), newKey()

	assert.Equal(t, 2, a.Promote(q1, q2))
	first := a.Snapshot()

	assert.Equal(t, 0, a.Promote(q1, q2))
	assert.ElementsMatch(t, first, a.Snapshot())
	assert.Equal(t, 2, a.Len())
}

func TestActionableSet_Evict(t *testing.T) {
	a := NewActionableSet()
	q := newKey()

	a.Promote(q)
	assert.True(t, a.Contains(q))
	assert.True(t, a.Evict(q))
	assert.False(t, a.Evict(q))
	assert.False(t, a.Contains(q))
	assert.Empty(t, a.Snapshot())
}

func TestActionableSet_SnapshotIsCopy(t *testing.T) {
	a := NewActionableSet()
	q := newKey()
	a.Promote(q)

	snap := a.Snapshot()
	a.Evict(q)

	assert.Equal(t, []solana.PublicKey{q}, snap)
}
