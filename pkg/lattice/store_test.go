package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInterpretAtoms(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 1)
	x := vars[0]

	tests := []struct {
		name string
		f    *Formula
		want Interval
	}{
		{"eq", NewBinary(NewVarRef(x), Eq, NewInt(3)), SingletonInterval(3)},
		{"leq", NewBinary(NewVarRef(x), Leq, NewInt(3)), AtMost(3)},
		{"lt", NewBinary(NewVarRef(x), Lt, NewInt(3)), AtMost(2)},
		{"geq", NewBinary(NewVarRef(x), Geq, NewInt(3)), AtLeast(3)},
		{"gt", NewBinary(NewVarRef(x), Gt, NewInt(3)), AtLeast(4)},
		{"mirrored", NewBinary(NewInt(3), Leq, NewVarRef(x)), AtLeast(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags Diagnostics
			tell, ok := store.InterpretTell(tt.f, env, &diags)
			require.True(t, ok)
			atoms := tell.(StoreTell).Atoms
			require.Len(t, atoms, 1)
			assert.Equal(t, tt.want, atoms[0].Itv)
		})
	}
}

func TestStoreInterpretConjunction(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 3)

	f := domainsFormula(vars, 0, 2)
	var diags Diagnostics
	tell, ok := store.InterpretTell(f, env, &diags)
	require.True(t, ok)
	require.Len(t, tell.(StoreTell).Atoms, 6)

	assert.True(t, store.Deduce(tell))
	for _, x := range vars {
		assert.Equal(t, NewInterval(0, 2), store.Project(x))
	}
	// Telling the same constraints again changes nothing.
	assert.False(t, store.Deduce(tell))
}

func TestStoreInterpretFailures(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 1)
	x := vars[0]

	tests := []struct {
		name string
		f    *Formula
	}{
		{"disequality", NewBinary(NewVarRef(x), Neq, NewInt(1))},
		{"undeclared name", NewBinary(NewName("nope"), Eq, NewInt(1))},
		{"no constant", NewBinary(NewVarRef(x), Eq, NewVarRef(x))},
		{"bad shape", NewSeq(Or, NewVarRef(x), NewVarRef(x))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags Diagnostics
			_, ok := store.InterpretTell(tt.f, env, &diags)
			assert.False(t, ok)
			assert.True(t, diags.HasErrors())
		})
	}
}

func TestStoreCollectsAllDiagnostics(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 1)
	x := vars[0]

	f := NewSeq(And,
		NewBinary(NewVarRef(x), Neq, NewInt(1)),
		NewBinary(NewName("nope"), Eq, NewInt(1)))
	var diags Diagnostics
	_, ok := store.InterpretTell(f, env, &diags)
	assert.False(t, ok)
	assert.Len(t, diags.Entries(), 2)
}

func TestStoreBotTop(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 2)
	assert.True(t, store.IsBot())
	assert.False(t, store.IsTop())

	store.TellVar(vars[0], NewInterval(0, 2))
	assert.False(t, store.IsBot())
	assert.False(t, store.IsTop())

	store.TellVar(vars[0], NewInterval(5, 9))
	assert.True(t, store.IsTop())
	assert.False(t, store.IsExtractable())
}

func TestStoreSnapshotRestore(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 2)
	store.TellVar(vars[0], NewInterval(0, 5))

	snap := store.Snapshot()
	store.TellVar(vars[0], SingletonInterval(1))
	store.TellVar(vars[1], NewInterval(2, 3))
	require.Equal(t, SingletonInterval(1), store.Project(vars[0]))

	store.Restore(snap)
	assert.Equal(t, NewInterval(0, 5), store.Project(vars[0]))
	assert.Equal(t, EntireInterval(), store.Project(vars[1]))
}

func TestStoreAsk(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 1)
	x := vars[0]
	store.TellVar(x, NewInterval(1, 2))

	var diags Diagnostics
	ask, ok := store.InterpretAsk(NewBinary(NewVarRef(x), Leq, NewInt(2)), env, &diags)
	require.True(t, ok)
	assert.True(t, store.Ask(ask))

	ask2, ok := store.InterpretAsk(NewBinary(NewVarRef(x), Leq, NewInt(1)), env, &diags)
	require.True(t, ok)
	assert.False(t, store.Ask(ask2))
}

func TestStoreExtract(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 2)
	store.TellVar(vars[0], SingletonInterval(4))
	store.TellVar(vars[1], NewInterval(1, 2))

	target := NewIntervalStore(store.Aty(), 2)
	store.Extract(target)
	assert.Equal(t, SingletonInterval(4), target.Project(vars[0]))
	assert.Equal(t, NewInterval(1, 2), target.Project(vars[1]))
}

func TestStoreCopyInIsIndependent(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 1)
	store.TellVar(vars[0], NewInterval(0, 9))

	clone := NewAbstractDeps().Clone(store).(*IntervalStore)
	clone.TellVar(vars[0], SingletonInterval(3))
	assert.Equal(t, NewInterval(0, 9), store.Project(vars[0]))
	assert.Equal(t, SingletonInterval(3), clone.Project(vars[0]))
}

func TestAbstractDepsPreservesSharing(t *testing.T) {
	env := NewEnv()
	store, _ := storeVars(env, 1)
	deps := NewAbstractDeps()
	c1 := deps.Clone(store)
	c2 := deps.Clone(store)
	assert.Same(t, c1, c2)

	fresh := NewAbstractDeps().Clone(store)
	assert.NotSame(t, c1, fresh)
}
