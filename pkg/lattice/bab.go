// Package lattice provides constraint solving over abstract domains.
// This file defines BAB, the branch-and-bound abstract domain: it records
// the best solution extracted from its sub-domain and tightens the
// objective bound so the search only visits strictly better solutions.
package lattice

import "fmt"

const babName = "BAB"

// BABTell is the deduction payload of BAB: the objective (untyped for
// satisfaction problems) and the tells routed to the sub-domain.
type BABTell struct {
	X        AVar
	Minimize bool
	SubTells []Tell
}

// babSnapshot captures the sub-domain state together with the objective
// bookkeeping.
type babSnapshot struct {
	subSnap        DomainSnapshot
	bestSnap       DomainSnapshot
	x              AVar
	minimize       bool
	solutionsFound int
}

// BAB wraps a search tree (or any domain) into a branch-and-bound
// optimizer. Each time the sub-domain reaches an extractable node, Refine
// records it into the best store and, for optimization problems, tells
// `x < k` (minimization) or `x > k` (maximization) into the sub-domain,
// where k is the bound just recorded.
//
// The best store is exclusively owned: it is never shared with the
// sub-domain's store, and cloning a BAB clones it through a fresh
// dependency tracker.
//
// At most one objective is supported; a second MINIMIZE/MAXIMIZE tell is a
// programming error.
type BAB struct {
	aty            AType
	sub            Domain
	best           Domain
	x              AVar
	minimize       bool
	solutionsFound int
}

// NewBAB creates a branch-and-bound domain over sub, recording best
// solutions into best.
func NewBAB(aty AType, sub, best Domain) *BAB {
	if sub == nil || best == nil {
		panic("NewBAB: sub and best must be non-nil")
	}
	return &BAB{aty: aty, sub: sub, best: best}
}

// Aty returns the domain's abstract type.
func (b *BAB) Aty() AType {
	return b.aty
}

// Sub returns the wrapped domain.
func (b *BAB) Sub() Domain {
	return b.sub
}

// IsBot reports whether neither an objective nor sub-domain information
// has been told yet.
func (b *BAB) IsBot() bool {
	return b.x.IsUntyped() && b.sub.IsBot()
}

// IsTop delegates to the sub-domain.
func (b *BAB) IsTop() bool {
	return b.sub.IsTop()
}

// Project delegates to the sub-domain.
func (b *BAB) Project(x AVar) Interval {
	return b.sub.Project(x)
}

// Snapshot captures the sub-domain and the objective bookkeeping.
func (b *BAB) Snapshot() DomainSnapshot {
	return babSnapshot{
		subSnap:        b.sub.Snapshot(),
		bestSnap:       b.best.Snapshot(),
		x:              b.x,
		minimize:       b.minimize,
		solutionsFound: b.solutionsFound,
	}
}

// Restore reinstates a snapshot.
func (b *BAB) Restore(snap DomainSnapshot) {
	sn := snap.(babSnapshot)
	b.sub.Restore(sn.subSnap)
	b.best.Restore(sn.bestSnap)
	b.x = sn.x
	b.minimize = sn.minimize
	b.solutionsFound = sn.solutionsFound
}

// interpretTellRec walks conjunctions, claims MINIMIZE/MAXIMIZE predicates
// and delegates everything else to the sub-domain.
func (b *BAB) interpretTellRec(f *Formula, env *Env, tell *BABTell, diags *Diagnostics) bool {
	if f.Kind == FSeq && f.Sig == And {
		ok := true
		for _, sub := range f.Args {
			if !b.interpretTellRec(sub, env, tell, diags) {
				ok = false
			}
		}
		return ok
	}
	if f.Kind == FSeq && (f.Sig == Minimize || f.Sig == Maximize) {
		if len(f.Args) != 1 {
			diags.Error(babName, f, "optimization predicates take exactly one argument")
			return false
		}
		arg := f.Args[0]
		if arg.IsVariable() {
			if !tell.X.IsUntyped() {
				diags.Error(babName, f, "multiple objectives are not supported")
				return false
			}
			x, err := env.Interpret(arg)
			if err != nil {
				diags.Error(babName, arg, "%v", err)
				return false
			}
			tell.X = x
			tell.Minimize = f.Sig == Minimize
			return true
		}
		if NumVars(arg) == 0 {
			// The objective is already a constant: the problem degrades to
			// satisfaction and the predicate is dropped.
			return true
		}
		diags.Error(babName, f, "optimization expects a variable; introduce a new variable equal to the expression to optimize")
		return false
	}
	sub, ok := b.sub.InterpretTell(f, env, diags)
	if !ok {
		return false
	}
	tell.SubTells = append(tell.SubTells, sub)
	return true
}

// InterpretTell translates a top-level formula into a BABTell.
func (b *BAB) InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool) {
	tell := &BABTell{X: UntypedAVar()}
	if !b.interpretTellRec(f, env, tell, diags) {
		return nil, false
	}
	return tell, true
}

// InterpretAsk delegates to the sub-domain.
func (b *BAB) InterpretAsk(f *Formula, env *Env, diags *Diagnostics) (AskPayload, bool) {
	return b.sub.InterpretAsk(f, env, diags)
}

// Deduce applies the sub-domain tells and installs the objective.
func (b *BAB) Deduce(t Tell) bool {
	tell, ok := t.(*BABTell)
	if !ok {
		panic(fmt.Sprintf("BAB.Deduce: unexpected payload %T", t))
	}
	changed := false
	for _, sub := range tell.SubTells {
		changed = b.sub.Deduce(sub) || changed
	}
	if !tell.X.IsUntyped() {
		if !b.x.IsUntyped() {
			panic("BAB.Deduce: multi-objective optimization is not supported")
		}
		b.x = tell.X
		b.minimize = tell.Minimize
		changed = true
	}
	return changed
}

// Ask delegates to the sub-domain.
func (b *BAB) Ask(a AskPayload) bool {
	return b.sub.Ask(a)
}

// DeinterpretBestBound returns the formula tightening the objective below
// (above) the recorded best bound. Before any solution the bound is
// infinite and the trivially-true formula is returned.
func (b *BAB) DeinterpretBestBound() *Formula {
	bound := b.best.Project(b.x)
	if b.IsMinimization() {
		if bound.Lb <= NegInf {
			return NewBool(true)
		}
		return NewBinary(NewVarRef(b.x), Lt, SingletonInterval(bound.Lb).Deinterpret())
	}
	if bound.Ub >= PosInf {
		return NewBool(true)
	}
	return NewBinary(NewVarRef(b.x), Gt, SingletonInterval(bound.Ub).Deinterpret())
}

// tellBestBound interprets the tightening formula in the sub-domain and
// deduces it there. Told below the root of a search tree, the tightening
// is buffered for the root as well, so it survives backtracking.
func (b *BAB) tellBestBound() bool {
	var diags Diagnostics
	t, ok := b.sub.InterpretTell(b.DeinterpretBestBound(), NewEnv(), &diags)
	if !ok {
		panic(fmt.Sprintf("BAB: the sub-domain rejected the bound tightening: %v", diags.Entries()))
	}
	return b.sub.Deduce(t)
}

// CompareBound reports whether s1 holds a strictly better objective bound
// than s2. Minimization compares lower bounds downward, maximization upper
// bounds upward.
func (b *BAB) CompareBound(s1, s2 Domain) bool {
	if !b.IsOptimization() {
		panic("BAB.CompareBound: not an optimization problem")
	}
	b1, b2 := s1.Project(b.x), s2.Project(b.x)
	if b.minimize {
		return b1.Lb < b2.Lb
	}
	return b1.Ub > b2.Ub
}

// Refine records the current sub-domain solution as the new best and, for
// optimization problems, tightens the objective bound in the sub-domain.
//
// Preconditions: the sub-domain is extractable and, for optimization,
// strictly better than the recorded best. Refine is not idempotent: call
// it exactly once per new solution.
func (b *BAB) Refine() bool {
	b.sub.Extract(b.best)
	b.solutionsFound++
	if b.IsOptimization() {
		return b.tellBestBound()
	}
	return false
}

// SolutionsCount returns the number of solutions recorded so far.
func (b *BAB) SolutionsCount() int {
	return b.solutionsFound
}

// IsExtractable reports whether the recorded best is a proven optimum: at
// least one solution was found and the sub-domain has exhausted the search
// space (its state is inconsistent, so no better bound can exist).
func (b *BAB) IsExtractable() bool {
	return b.solutionsFound > 0 && b.sub.IsTop() && b.best.IsExtractable()
}

// Extract copies the best solution into target. Extracting into another
// BAB also copies the objective bookkeeping.
func (b *BAB) Extract(target Domain) {
	if other, ok := target.(*BAB); ok {
		b.best.Extract(other.best)
		other.solutionsFound = b.solutionsFound
		other.x = b.x
		other.minimize = b.minimize
		return
	}
	b.best.Extract(target)
}

// Optimum returns the best store. When IsExtractable is false it holds the
// best solution found so far, not necessarily an optimum.
func (b *BAB) Optimum() Domain {
	return b.best
}

// ObjectiveVar returns the objective variable, untyped for satisfaction
// problems.
func (b *BAB) ObjectiveVar() AVar {
	return b.x
}

// IsSatisfaction reports whether no objective was told.
func (b *BAB) IsSatisfaction() bool {
	return b.x.IsUntyped()
}

// IsOptimization reports whether an objective was told.
func (b *BAB) IsOptimization() bool {
	return !b.IsSatisfaction()
}

// IsMinimization reports whether the objective is minimized.
func (b *BAB) IsMinimization() bool {
	return b.IsOptimization() && b.minimize
}

// IsMaximization reports whether the objective is maximized.
func (b *BAB) IsMaximization() bool {
	return b.IsOptimization() && !b.minimize
}

// CopyIn clones the BAB. The sub-domain is cloned through deps, preserving
// sharing with the rest of the composition; the best store is cloned
// through a fresh tracker so it stays exclusively owned.
func (b *BAB) CopyIn(deps *AbstractDeps) Domain {
	clone := &BAB{
		aty:            b.aty,
		x:              b.x,
		minimize:       b.minimize,
		solutionsFound: b.solutionsFound,
	}
	deps.register(b, clone)
	clone.sub = deps.Clone(b.sub)
	clone.best = NewAbstractDeps().Clone(b.best)
	return clone
}
