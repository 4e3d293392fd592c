package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlusProblem(t *testing.T) (*Env, *Propagation, []AVar) {
	t.Helper()
	env := NewEnv()
	store, vars := storeVars(env, 3)
	prop := NewPropagation(env.ExtendsAbstractDom(), store)
	require.True(t, tellInto(t, prop, plusFormula(vars[0], vars[1], vars[2]), env))
	tellInto(t, prop, domainsFormula(vars, 0, 2), env)
	return env, prop, vars
}

func TestPropagationInterpretPlus(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 3)
	prop := NewPropagation(env.ExtendsAbstractDom(), store)

	var diags Diagnostics
	tell, ok := prop.InterpretTell(plusFormula(vars[0], vars[1], vars[2]), env, &diags)
	require.True(t, ok)
	pt := tell.(PropTell)
	require.Len(t, pt.Props, 1)
	assert.Empty(t, pt.Store.Atoms)

	// The mirrored orientation z = x + y is recognized too.
	mirror := NewBinary(NewVarRef(vars[2]), Eq, NewSeq(Add, NewVarRef(vars[0]), NewVarRef(vars[1])))
	_, ok = prop.InterpretTell(mirror, env, &diags)
	assert.True(t, ok)
}

func TestPlusPropagatorBounds(t *testing.T) {
	_, prop, vars := newPlusProblem(t)

	changed := GaussSeidel{}.FixpointOf(prop)
	assert.False(t, changed, "0..2 plus constraint is already at fixpoint")

	// Assigning x1 = 2 and x2 = 2 forces x3 out of range.
	prop.Store().TellVar(vars[0], SingletonInterval(2))
	prop.Store().TellVar(vars[1], SingletonInterval(2))
	GaussSeidel{}.FixpointOf(prop)
	assert.True(t, prop.IsTop())
}

func TestPlusPropagatorNarrows(t *testing.T) {
	_, prop, vars := newPlusProblem(t)

	prop.Store().TellVar(vars[2], SingletonInterval(0))
	changed := GaussSeidel{}.FixpointOf(prop)
	assert.True(t, changed)
	assert.Equal(t, SingletonInterval(0), prop.Project(vars[0]))
	assert.Equal(t, SingletonInterval(0), prop.Project(vars[1]))
}

func TestPlusPropagatorGuardsEmpty(t *testing.T) {
	_, prop, vars := newPlusProblem(t)
	prop.Store().TellVar(vars[2], EmptyInterval())
	p := PlusPropagator{X: vars[0], Y: vars[1], Z: vars[2]}
	assert.False(t, p.Deduce(prop.Store()))
}

func TestPropagationEntailment(t *testing.T) {
	_, prop, vars := newPlusProblem(t)
	assert.False(t, prop.IsExtractable(), "plus is not entailed while variables are free")

	prop.Store().TellVar(vars[0], SingletonInterval(1))
	prop.Store().TellVar(vars[1], SingletonInterval(1))
	GaussSeidel{}.FixpointOf(prop)
	assert.Equal(t, SingletonInterval(2), prop.Project(vars[2]))
	assert.True(t, prop.IsExtractable())
}

func TestPropagationSnapshotTruncatesPropagators(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 3)
	prop := NewPropagation(env.ExtendsAbstractDom(), store)
	tellInto(t, prop, domainsFormula(vars, 0, 2), env)

	snap := prop.Snapshot()
	tellInto(t, prop, plusFormula(vars[0], vars[1], vars[2]), env)
	require.Equal(t, 1, prop.NumDeductions())

	prop.Restore(snap)
	assert.Equal(t, 0, prop.NumDeductions())
	assert.Equal(t, NewInterval(0, 2), prop.Project(vars[0]))
}

func TestPropagationSharedStoreClone(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 3)
	prop := NewPropagation(env.ExtendsAbstractDom(), store)
	split := NewSplitStrategy(env.ExtendsAbstractDom(), prop)

	deps := NewAbstractDeps()
	propClone := deps.Clone(prop).(*Propagation)
	splitClone := deps.cloneSplit(split)

	// Both clones observe the same cloned store.
	assert.Same(t, propClone.Store(), deps.Clone(store).(*IntervalStore))
	propClone.Store().TellVar(vars[0], SingletonInterval(1))
	assert.Equal(t, SingletonInterval(1), splitClone.a.Project(vars[0]))
	assert.Equal(t, EntireInterval(), store.Project(vars[0]))
}

func TestGaussSeidelFixpoint(t *testing.T) {
	calls := 0
	changed := GaussSeidel{}.Fixpoint(2, func(i int) bool {
		calls++
		return calls <= 2
	})
	assert.True(t, changed)
	// First round changes (2 calls), second round is stable (2 calls).
	assert.Equal(t, 4, calls)
}
