package lattice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// domainsFormula builds the conjunction lo <= xi <= hi for every variable.
func domainsFormula(vars []AVar, lo, hi int) *Formula {
	var conj []*Formula
	for _, x := range vars {
		conj = append(conj,
			NewBinary(NewVarRef(x), Geq, NewInt(lo)),
			NewBinary(NewVarRef(x), Leq, NewInt(hi)))
	}
	return NewSeq(And, conj...)
}

// searchFormula builds search(varOrder, valOrder, vars...).
func searchFormula(varOrder, valOrder string, vars ...AVar) *Formula {
	args := []*Formula{NewAtom(varOrder), NewAtom(valOrder)}
	for _, x := range vars {
		args = append(args, NewVarRef(x))
	}
	return NewESeq("search", args...)
}

// plusFormula builds x + y = z.
func plusFormula(x, y, z AVar) *Formula {
	return NewBinary(NewSeq(Add, NewVarRef(x), NewVarRef(y)), Eq, NewVarRef(z))
}

// tellInto interprets f over d and deduces it, failing the test on
// interpretation errors.
func tellInto(t *testing.T, d Domain, f *Formula, env *Env) bool {
	t.Helper()
	var diags Diagnostics
	tell, ok := d.InterpretTell(f, env, &diags)
	require.True(t, ok, "interpretation failed: %v", diags.Entries())
	return d.Deduce(tell)
}

// storeVars creates a store over n fresh variables and returns the store
// and the variable references.
func storeVars(env *Env, n int) (*IntervalStore, []AVar) {
	store := NewIntervalStore(env.ExtendsAbstractDom(), n)
	vars := make([]AVar, n)
	for i := range vars {
		vars[i] = NewAVar(store.Aty(), i)
	}
	return store, vars
}

// allAssigned reports whether the first n variables of the store are
// singletons.
func allAssigned(store *IntervalStore, n int) bool {
	for i := 0; i < n; i++ {
		if !store.Project(NewAVar(store.Aty(), i)).IsSingleton() {
			return false
		}
	}
	return true
}

// checkSolution asserts the first variables of d project to the given
// singleton values.
func checkSolution(t *testing.T, d Domain, aty AType, values []int) {
	t.Helper()
	for i, v := range values {
		require.Equal(t, SingletonInterval(v), d.Project(NewAVar(aty, i)), "variable %d", i)
	}
}

// checkIntervals asserts the first variables of d project to the given
// intervals.
func checkIntervals(t *testing.T, d Domain, aty AType, values []Interval) {
	t.Helper()
	for i, v := range values {
		require.Equal(t, v, d.Project(NewAVar(aty, i)), "variable %d", i)
	}
}
