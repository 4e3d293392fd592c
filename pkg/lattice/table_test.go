package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairRow builds x1 = a AND x2 = b.
func pairRow(x1, x2 AVar, a, b int) *Formula {
	return NewSeq(And,
		NewBinary(NewVarRef(x1), Eq, NewInt(a)),
		NewBinary(NewVarRef(x2), Eq, NewInt(b)))
}

// newTableProblem builds a table over two variables 0..2 allowing the
// pairs (0,1), (1,2), (2,2).
func newTableProblem(t *testing.T) (*Env, *IntervalStore, *Table, []AVar) {
	t.Helper()
	env := NewEnv()
	store, vars := storeVars(env, 2)
	table := NewTable(env.ExtendsAbstractDom(), store)
	tellInto(t, table, domainsFormula(vars, 0, 2), env)

	f := NewSeq(Or,
		pairRow(vars[0], vars[1], 0, 1),
		pairRow(vars[0], vars[1], 1, 2),
		pairRow(vars[0], vars[1], 2, 2))
	require.True(t, tellInto(t, table, f, env))
	return env, store, table, vars
}

func TestTableInterpretation(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 2)
	table := NewTable(env.ExtendsAbstractDom(), store)

	f := NewSeq(Or,
		pairRow(vars[0], vars[1], 0, 1),
		pairRow(vars[0], vars[1], 1, 2))
	var diags Diagnostics
	tell, ok := table.InterpretTell(f, env, &diags)
	require.True(t, ok)
	tt := tell.(*TableTell)
	require.Equal(t, []AVar{vars[0], vars[1]}, tt.Header)
	require.Len(t, tt.TellRows, 2)
	assert.Equal(t, SingletonInterval(0), tt.TellRows[0][0])
	assert.Equal(t, SingletonInterval(1), tt.TellRows[0][1])
	assert.Equal(t, SingletonInterval(1), tt.TellRows[1][0])
	assert.Equal(t, SingletonInterval(2), tt.TellRows[1][1])

	assert.True(t, table.Deduce(tell))
	assert.Equal(t, 1, table.NumInstances())
	assert.Equal(t, 2, table.NumDeductions())
}

func TestTableNonDisjunctionDelegates(t *testing.T) {
	env := NewEnv()
	store, vars := storeVars(env, 1)
	table := NewTable(env.ExtendsAbstractDom(), store)

	var diags Diagnostics
	tell, ok := table.InterpretTell(NewBinary(NewVarRef(vars[0]), Leq, NewInt(5)), env, &diags)
	require.True(t, ok)
	tt := tell.(*TableTell)
	assert.NotNil(t, tt.Sub)
	assert.Empty(t, tt.TellRows)

	table.Deduce(tell)
	assert.Equal(t, AtMost(5), store.Project(vars[0]))
	assert.Equal(t, 0, table.NumInstances())
}

func TestTableRefinement(t *testing.T) {
	_, store, table, vars := newTableProblem(t)

	// At the root the hull of the x1 column covers its domain, so x1 is
	// left as is; x2 is narrowed because no row allows x2 = 0.
	GaussSeidel{}.FixpointOf(table)
	assert.Equal(t, NewInterval(0, 2), store.Project(vars[0]))
	assert.Equal(t, NewInterval(1, 2), store.Project(vars[1]), "x2=0 appears in no row")

	// Restricting x2 <= 1 kills the last two rows and assigns both
	// variables through the reduced product.
	store.TellVar(vars[1], AtMost(1))
	changed := GaussSeidel{}.FixpointOf(table)
	assert.True(t, changed)
	assert.Equal(t, SingletonInterval(0), store.Project(vars[0]))
	assert.Equal(t, SingletonInterval(1), store.Project(vars[1]))
	assert.False(t, table.IsTop())
}

func TestTableAllRowsEliminatedIsTop(t *testing.T) {
	_, store, table, vars := newTableProblem(t)

	store.TellVar(vars[1], SingletonInterval(0))
	GaussSeidel{}.FixpointOf(table)
	assert.True(t, table.IsTop())
	assert.True(t, store.IsTop())
	assert.False(t, table.IsExtractable())
}

func TestTableEntailment(t *testing.T) {
	_, store, table, vars := newTableProblem(t)
	assert.False(t, table.Entailed(), "no row is entailed while variables are free")
	assert.False(t, table.IsExtractable())

	store.TellVar(vars[0], SingletonInterval(1))
	store.TellVar(vars[1], SingletonInterval(2))
	assert.True(t, table.Entailed())
	assert.True(t, table.IsExtractable())
}

func TestTableSecondInstanceSharesMatrix(t *testing.T) {
	env, _, table, vars := newTableProblem(t)

	// The same rows over swapped columns: same matrix, new header.
	f := NewSeq(Or,
		pairRow(vars[1], vars[0], 0, 1),
		pairRow(vars[1], vars[0], 1, 2),
		pairRow(vars[1], vars[0], 2, 2))
	require.True(t, tellInto(t, table, f, env))
	assert.Equal(t, 2, table.NumInstances())
	assert.Equal(t, 4, table.NumDeductions())
}

func TestTableShapeMismatch(t *testing.T) {
	env, _, table, vars := newTableProblem(t)

	tests := []struct {
		name string
		f    *Formula
	}{
		{"different cells", NewSeq(Or,
			pairRow(vars[0], vars[1], 0, 0),
			pairRow(vars[0], vars[1], 1, 2),
			pairRow(vars[0], vars[1], 2, 2))},
		{"different row count", NewSeq(Or,
			pairRow(vars[0], vars[1], 0, 1),
			pairRow(vars[0], vars[1], 1, 2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags Diagnostics
			_, ok := table.InterpretTell(tt.f, env, &diags)
			assert.False(t, ok)
			assert.True(t, diags.HasErrors())
		})
	}
}

func TestTableSnapshotRestoresElimination(t *testing.T) {
	_, store, table, vars := newTableProblem(t)

	snap := table.Snapshot()
	store.TellVar(vars[1], AtMost(1))
	GaussSeidel{}.FixpointOf(table)
	require.Equal(t, SingletonInterval(0), store.Project(vars[0]))

	table.Restore(snap)
	assert.Equal(t, NewInterval(0, 2), store.Project(vars[0]))
	assert.Equal(t, NewInterval(0, 2), store.Project(vars[1]))
	assert.False(t, table.IsTop())

	// The rows are live again: the same restriction eliminates them the
	// same way.
	store.TellVar(vars[1], AtMost(1))
	GaussSeidel{}.FixpointOf(table)
	assert.Equal(t, SingletonInterval(0), store.Project(vars[0]))
}

func TestTableExtract(t *testing.T) {
	_, store, table, vars := newTableProblem(t)
	store.TellVar(vars[0], SingletonInterval(1))
	store.TellVar(vars[1], SingletonInterval(2))

	target := NewIntervalStore(store.Aty(), 2)
	table.Extract(target)
	checkSolution(t, target, store.Aty(), []int{1, 2})
}

func TestTableCloneIsIndependent(t *testing.T) {
	_, store, table, vars := newTableProblem(t)

	clone := table.CopyIn(NewAbstractDeps()).(*Table)
	cloneStore := clone.Sub().(*IntervalStore)
	cloneStore.TellVar(vars[1], AtMost(1))
	GaussSeidel{}.FixpointOf(clone)

	assert.Equal(t, SingletonInterval(0), cloneStore.Project(vars[0]))
	assert.Equal(t, NewInterval(0, 2), store.Project(vars[0]))
	assert.False(t, table.IsTop())
}
