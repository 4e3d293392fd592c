package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchCursor(t *testing.T) {
	left := StoreTell{Atoms: []StoreAtom{{Itv: SingletonInterval(0)}}}
	right := StoreTell{Atoms: []StoreAtom{{Itv: AtLeast(1)}}}
	b := NewBranch(left, right)

	require.Equal(t, 2, b.Size())
	assert.True(t, b.HasNext())
	assert.False(t, b.IsPruned())

	// After k calls to Next the cursor sits on child k-1.
	assert.Equal(t, left, b.Next())
	assert.Equal(t, left, b.Current())
	assert.True(t, b.HasNext())

	assert.Equal(t, right, b.Next())
	assert.Equal(t, right, b.Current())
	assert.False(t, b.HasNext())
	assert.False(t, b.IsPruned())

	require.Panics(t, func() { b.Next() })
}

func TestBranchEmpty(t *testing.T) {
	b := NewBranch()
	assert.Equal(t, 0, b.Size())
	assert.False(t, b.HasNext())
	require.Panics(t, func() { b.Current() })
}

func TestBranchPrune(t *testing.T) {
	b := NewBranch(StoreTell{}, StoreTell{})
	b.Next()
	assert.False(t, b.IsPruned())
	b.Prune()
	assert.True(t, b.IsPruned())
	assert.False(t, b.HasNext())
}

func TestBranchCloneSharesChildrenNotCursor(t *testing.T) {
	b := NewBranch(StoreTell{}, StoreTell{})
	b.Next()
	c := b.clone()
	c.Next()
	assert.True(t, b.HasNext())
	assert.False(t, c.HasNext())
}
