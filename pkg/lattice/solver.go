// Package lattice provides constraint solving over abstract domains.
// This file defines the Solver driver: it assembles the full composition
// and runs the propagate / record / step loop until the search space is
// exhausted or an optimum is proven.
package lattice

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Statistics aggregates the counters of one solving run.
type Statistics struct {
	Nodes      int64 // search-tree steps performed
	Solutions  int64 // solutions recorded
	Backtracks int64 // steps that reduced the depth
	Failures   int64 // propagations that made the current node inconsistent
	PeakDepth  int   // deepest node visited
}

// Solution is an extracted store state: one interval per variable, in
// declaration order. For assigned solutions every interval is a singleton;
// an optimum proven at the root may keep wider intervals.
type Solution struct {
	Values []Interval
}

// Ints returns the assigned values when every interval is a singleton.
func (s Solution) Ints() ([]int, bool) {
	out := make([]int, len(s.Values))
	for i, v := range s.Values {
		if !v.IsSingleton() {
			return nil, false
		}
		out[i] = v.Value()
	}
	return out, true
}

func (s Solution) String() string {
	out := "("
	for i, v := range s.Values {
		if i > 0 {
			out += ", "
		}
		out += v.String()
	}
	return out + ")"
}

// Solver owns a full composition
// BAB(SearchTree(Table(Propagation(store)))) together with the variable
// environment, and sequences all access to it: propagate to fixpoint,
// record a solution when the current node is extractable, then step the
// search tree.
//
// The solver is single-threaded; for multi-strategy parallel runs see
// SolvePortfolio, which clones the whole composition per worker.
type Solver struct {
	env   *Env
	store *IntervalStore
	prop  *Propagation
	table *Table
	split *SplitStrategy
	tree  *SearchTree
	best  *IntervalStore
	bab   *BAB

	logger logrus.FieldLogger

	mu    sync.Mutex
	stats Statistics
}

// NewSolver builds a composition over numVars variables. The variables are
// declared in the environment as "x1" .. "xN".
func NewSolver(numVars int) *Solver {
	env := NewEnv()
	store := NewIntervalStore(env.ExtendsAbstractDom(), numVars)
	prop := NewPropagation(env.ExtendsAbstractDom(), store)
	table := NewTable(env.ExtendsAbstractDom(), prop)
	split := NewSplitStrategy(env.ExtendsAbstractDom(), table)
	tree := NewSearchTree(env.ExtendsAbstractDom(), table, split)
	best := NewIntervalStore(store.Aty(), numVars)
	bab := NewBAB(env.ExtendsAbstractDom(), tree, best)
	for i := 0; i < numVars; i++ {
		env.Declare(fmt.Sprintf("x%d", i+1), store.Aty(), i)
	}
	return &Solver{
		env:    env,
		store:  store,
		prop:   prop,
		table:  table,
		split:  split,
		tree:   tree,
		best:   best,
		bab:    bab,
		logger: logrus.StandardLogger(),
	}
}

// SetLogger redirects the solver's progress and warning output.
func (s *Solver) SetLogger(logger logrus.FieldLogger) {
	s.logger = logger
	s.split.SetLogger(logger)
}

// Env returns the variable environment.
func (s *Solver) Env() *Env {
	return s.env
}

// Var returns the i-th (0-based) declared variable.
func (s *Solver) Var(i int) AVar {
	return NewAVar(s.store.Aty(), i)
}

// BAB returns the outermost domain of the composition.
func (s *Solver) BAB() *BAB {
	return s.bab
}

// Tree returns the search tree of the composition.
func (s *Solver) Tree() *SearchTree {
	return s.tree
}

// Stats returns a copy of the run counters.
func (s *Solver) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Tell interprets the formula over the whole composition and deduces it.
// All diagnostics are logged; an error is returned when interpretation
// failed.
func (s *Solver) Tell(f *Formula) error {
	var diags Diagnostics
	t, ok := s.bab.InterpretTell(f, s.env, &diags)
	diags.LogTo(s.logger)
	if !ok {
		return errors.Errorf("cannot interpret %s: %d diagnostic(s)", f, len(diags.Entries()))
	}
	s.bab.Deduce(t)
	return nil
}

// numDeductions spans the propagators and the table refinements.
func (s *Solver) numDeductions() int {
	return s.prop.NumDeductions() + s.table.NumDeductions()
}

func (s *Solver) deduceAt(i int) bool {
	if i < s.prop.NumDeductions() {
		return s.prop.DeduceAt(i)
	}
	return s.table.DeduceAt(i - s.prop.NumDeductions())
}

// propagate runs all deductions to fixpoint on the current node.
func (s *Solver) propagate() bool {
	changed := GaussSeidel{}.Fixpoint(s.numDeductions(), s.deduceAt)
	if changed && s.store.IsTop() {
		s.mu.Lock()
		s.stats.Failures++
		s.mu.Unlock()
	}
	return changed
}

// allAssigned reports whether every declared variable is a singleton.
func (s *Solver) allAssigned() bool {
	for i := 0; i < s.store.Vars(); i++ {
		if !s.store.Project(s.Var(i)).IsSingleton() {
			return false
		}
	}
	return true
}

// extractSolution copies the current node into a fresh solution.
func (s *Solver) extractSolution() Solution {
	sol := NewIntervalStore(s.store.Aty(), s.store.Vars())
	s.tree.Extract(sol)
	return Solution{Values: append([]Interval(nil), sol.vars...)}
}

// step performs one search-tree step, updating the counters.
func (s *Solver) step() bool {
	before := s.tree.Depth()
	changed := s.tree.Refine()
	after := s.tree.Depth()
	s.mu.Lock()
	s.stats.Nodes++
	if after < before {
		s.stats.Backtracks++
	}
	if after > s.stats.PeakDepth {
		s.stats.PeakDepth = after
	}
	s.mu.Unlock()
	return changed
}

// Solve runs the driving loop. For satisfaction problems it enumerates
// solutions in search order, up to limit when limit > 0. For optimization
// problems it returns the single best solution once the whole space is
// explored (the limit is ignored).
//
// Cancelling the context stops the run and returns the solutions found so
// far together with the context error; the composition stays well-formed
// and a later Solve resumes the exploration.
func (s *Solver) Solve(ctx context.Context, limit int) ([]Solution, error) {
	if s.bab.IsOptimization() {
		return s.optimize(ctx)
	}
	return s.enumerate(ctx, limit)
}

func (s *Solver) enumerate(ctx context.Context, limit int) ([]Solution, error) {
	var sols []Solution
	for hasChanged := true; hasChanged; {
		if err := ctx.Err(); err != nil {
			return sols, err
		}
		hasChanged = s.propagate()
		if s.tree.IsExtractable() && s.allAssigned() {
			sol := s.extractSolution()
			sols = append(sols, sol)
			s.mu.Lock()
			s.stats.Solutions++
			s.mu.Unlock()
			s.logger.WithField("solution", sol.String()).Debug("solution found")
			if limit > 0 && len(sols) >= limit {
				// Step past the emitted node so a later Solve resumes at
				// the next one.
				s.step()
				return sols, nil
			}
		}
		hasChanged = s.step() || hasChanged
	}
	return sols, nil
}

func (s *Solver) optimize(ctx context.Context) ([]Solution, error) {
	for hasChanged := true; !s.bab.IsExtractable() && hasChanged; {
		if err := ctx.Err(); err != nil {
			return s.incumbent(), err
		}
		hasChanged = s.propagate()
		if s.tree.IsExtractable() {
			hasChanged = s.bab.Refine() || hasChanged
			s.mu.Lock()
			s.stats.Solutions++
			s.mu.Unlock()
			s.logger.WithField("bound", s.best.Project(s.bab.ObjectiveVar()).String()).
				Debug("incumbent improved")
		}
		hasChanged = s.step() || hasChanged
	}
	return s.incumbent(), nil
}

// incumbent returns the best solution recorded so far, if any.
func (s *Solver) incumbent() []Solution {
	if s.bab.SolutionsCount() == 0 {
		return nil
	}
	return []Solution{{Values: append([]Interval(nil), s.best.vars...)}}
}

// clone copies the whole composition through one dependency tracker, so
// the clone's components share a single cloned store among themselves and
// nothing with the original.
func (s *Solver) clone() *Solver {
	deps := NewAbstractDeps()
	bab := s.bab.CopyIn(deps).(*BAB)
	tree := bab.Sub().(*SearchTree)
	table := tree.Sub().(*Table)
	prop := table.Sub().(*Propagation)
	return &Solver{
		env:    s.env,
		store:  prop.Store(),
		prop:   prop,
		table:  table,
		split:  tree.Split(),
		tree:   tree,
		best:   bab.Optimum().(*IntervalStore),
		bab:    bab,
		logger: s.logger,
	}
}
