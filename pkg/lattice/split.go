// Package lattice provides constraint solving over abstract domains.
// This file defines SplitStrategy: variable and value ordering heuristics,
// interpretation of search(...) annotations, and branch construction.
package lattice

import (
	"github.com/sirupsen/logrus"
)

const splitName = "SplitStrategy"

// VariableOrder selects which unassigned variable to branch on.
type VariableOrder int

const (
	// InputOrder picks the first unassigned variable in declaration order.
	InputOrder VariableOrder = iota
	// FirstFail picks the variable with the smallest width.
	FirstFail
	// AntiFirstFail picks the variable with the largest width.
	AntiFirstFail
	// Smallest picks the variable with the smallest lower bound.
	Smallest
	// Largest picks the variable with the largest upper bound.
	Largest
)

func (o VariableOrder) String() string {
	switch o {
	case InputOrder:
		return "input_order"
	case FirstFail:
		return "first_fail"
	case AntiFirstFail:
		return "anti_first_fail"
	case Smallest:
		return "smallest"
	case Largest:
		return "largest"
	default:
		return "unknown_var_order"
	}
}

// ParseVariableOrder maps an annotation atom to a VariableOrder.
func ParseVariableOrder(symbol string) (VariableOrder, bool) {
	switch symbol {
	case "input_order":
		return InputOrder, true
	case "first_fail":
		return FirstFail, true
	case "anti_first_fail":
		return AntiFirstFail, true
	case "smallest":
		return Smallest, true
	case "largest":
		return Largest, true
	default:
		return InputOrder, false
	}
}

// ValueOrder selects how the chosen variable's interval is split into two
// children.
type ValueOrder int

const (
	// IndomainMin tries the lower bound first: x = lb, then x > lb.
	IndomainMin ValueOrder = iota
	// IndomainMax tries the upper bound first: x = ub, then x < ub.
	IndomainMax
	// IndomainMedian tries the median first: x = m, then x != m.
	IndomainMedian
	// IndomainSplit bisects: x <= m, then x > m.
	IndomainSplit
	// IndomainReverseSplit bisects upper half first: x > m, then x <= m.
	IndomainReverseSplit
)

func (o ValueOrder) String() string {
	switch o {
	case IndomainMin:
		return "indomain_min"
	case IndomainMax:
		return "indomain_max"
	case IndomainMedian:
		return "indomain_median"
	case IndomainSplit:
		return "indomain_split"
	case IndomainReverseSplit:
		return "indomain_reverse_split"
	default:
		return "unknown_val_order"
	}
}

// ParseValueOrder maps an annotation atom to a ValueOrder.
func ParseValueOrder(symbol string) (ValueOrder, bool) {
	switch symbol {
	case "indomain_min":
		return IndomainMin, true
	case "indomain_max":
		return IndomainMax, true
	case "indomain_median":
		return IndomainMedian, true
	case "indomain_split":
		return IndomainSplit, true
	case "indomain_reverse_split":
		return IndomainReverseSplit, true
	default:
		return IndomainMin, false
	}
}

// Strategy is one search annotation: a variable order, a value order and
// the variables it covers.
type Strategy struct {
	VarOrder VariableOrder
	ValOrder ValueOrder
	Vars     []AVar
}

// splitSnapshot records counters only: strategies are append-only, so the
// count plus the two cursors reinstate the state.
type splitSnapshot struct {
	numStrategies     int
	currentStrategy   int
	nextUnassignedVar int
}

// SplitStrategy chooses the next variable to branch on and produces the
// two-child branch for it. It shares the sub-domain with the search tree
// that drives it: the tree mutates, the strategy only projects.
//
// Strategies are consulted in the order they were told; a strategy is
// exhausted when all its variables are assigned. When every strategy is
// exhausted, Split returns an empty branch.
type SplitStrategy struct {
	aty               AType
	a                 Domain
	strategies        []Strategy
	currentStrategy   int
	nextUnassignedVar int
	logger            logrus.FieldLogger
}

// NewSplitStrategy creates a strategy over the shared sub-domain a.
func NewSplitStrategy(aty AType, a Domain) *SplitStrategy {
	return &SplitStrategy{aty: aty, a: a, logger: logrus.StandardLogger()}
}

// SetLogger redirects warnings emitted during branch construction.
func (s *SplitStrategy) SetLogger(logger logrus.FieldLogger) {
	s.logger = logger
}

// Aty returns the strategy's abstract type.
func (s *SplitStrategy) Aty() AType {
	return s.aty
}

// NumStrategies returns the number of strategies told so far.
func (s *SplitStrategy) NumStrategies() int {
	return len(s.strategies)
}

// Snapshot captures the strategy count and cursors.
func (s *SplitStrategy) Snapshot() DomainSnapshot {
	return splitSnapshot{
		numStrategies:     len(s.strategies),
		currentStrategy:   s.currentStrategy,
		nextUnassignedVar: s.nextUnassignedVar,
	}
}

// Restore truncates strategies added since the snapshot and reinstates the
// cursors.
func (s *SplitStrategy) Restore(snap DomainSnapshot) {
	sn := snap.(splitSnapshot)
	s.strategies = s.strategies[:sn.numStrategies]
	s.currentStrategy = sn.currentStrategy
	s.nextUnassignedVar = sn.nextUnassignedVar
}

// Reset restarts the search from the first variable of the first strategy.
func (s *SplitStrategy) Reset() {
	s.currentStrategy = 0
	s.nextUnassignedVar = 0
}

// InterpretTell translates a `search(var_order, val_order, x1, ..., xN)`
// annotation into a strategy list payload ([]Strategy).
func (s *SplitStrategy) InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool) {
	if f.Kind != FESeq || f.Symbol != "search" || len(f.Args) < 2 ||
		!f.Args[0].IsAtom() || !f.Args[1].IsAtom() {
		diags.Error(splitName, f, "expected a predicate of the form search(input_order, indomain_min, x1, ..., xN)")
		return nil, false
	}
	strat := Strategy{}
	varOrder, ok := ParseVariableOrder(f.Args[0].Symbol)
	if !ok {
		diags.Error(splitName, f.Args[0], "unsupported variable order %q", f.Args[0].Symbol)
		return nil, false
	}
	strat.VarOrder = varOrder
	valOrder, ok := ParseValueOrder(f.Args[1].Symbol)
	if !ok {
		diags.Error(splitName, f.Args[1], "unsupported value order %q", f.Args[1].Symbol)
		return nil, false
	}
	strat.ValOrder = valOrder
	for _, arg := range f.Args[2:] {
		switch {
		case arg.IsVariable():
			x, err := env.Interpret(arg)
			if err != nil {
				diags.Error(splitName, arg, "%v", err)
				return nil, false
			}
			strat.Vars = append(strat.Vars, x)
		case NumVars(arg) > 0:
			diags.Error(splitName, arg, "search only accepts variables or constants, not expressions over variables")
			return nil, false
		default:
			// Constant expressions are ignored.
		}
	}
	if len(strat.Vars) == 0 {
		diags.Warn(splitName, f, "search has no variable and is ignored")
	}
	return []Strategy{strat}, true
}

// Deduce appends the non-empty strategies of the payload.
func (s *SplitStrategy) Deduce(t Tell) bool {
	strats, ok := t.([]Strategy)
	if !ok {
		return false
	}
	changed := false
	for _, strat := range strats {
		if len(strat.Vars) > 0 {
			s.strategies = append(s.strategies, strat)
			changed = true
		}
	}
	return changed
}

// unassigned reports whether the variable still has at least two values.
func unassigned(u Interval) bool {
	return u.Lb < u.Ub
}

// moveToNextUnassignedVar advances the cursors past assigned or
// inconsistent variables, possibly on to the next strategy.
func (s *SplitStrategy) moveToNextUnassignedVar() {
	for s.currentStrategy < len(s.strategies) {
		vars := s.strategies[s.currentStrategy].Vars
		for s.nextUnassignedVar < len(vars) {
			if unassigned(s.a.Project(vars[s.nextUnassignedVar])) {
				return
			}
			s.nextUnassignedVar++
		}
		s.currentStrategy++
		s.nextUnassignedVar = 0
	}
}

// selectVar picks the branching variable of the current strategy.
// Tie-breaking: the scan starts at the first unassigned variable and only
// a strictly better candidate replaces the current best.
func (s *SplitStrategy) selectVar() AVar {
	strat := s.strategies[s.currentStrategy]
	vars := strat.Vars
	if strat.VarOrder == InputOrder {
		return vars[s.nextUnassignedVar]
	}
	better := func(u, best Interval) bool { return false }
	switch strat.VarOrder {
	case FirstFail:
		better = func(u, best Interval) bool { return u.Width() < best.Width() }
	case AntiFirstFail:
		better = func(u, best Interval) bool { return u.Width() > best.Width() }
	case Smallest:
		better = func(u, best Interval) bool { return u.Lb < best.Lb }
	case Largest:
		better = func(u, best Interval) bool { return u.Ub > best.Ub }
	}
	bestIdx := s.nextUnassignedVar
	best := s.a.Project(vars[bestIdx])
	for i := bestIdx + 1; i < len(vars); i++ {
		u := s.a.Project(vars[i])
		if unassigned(u) && better(u, best) {
			best = u
			bestIdx = i
		}
	}
	return vars[bestIdx]
}

// makeBranch interprets the two child tells `x leftOp k` and `x rightOp k`
// in the sub-domain. If either fails to interpret and the operators are
// not already the bisection pair, it falls back to bisection once; if that
// fails too, the diagnostics are logged and an empty branch is returned.
func (s *SplitStrategy) makeBranch(x AVar, leftOp, rightOp Sig, k int) *Branch {
	var diags Diagnostics
	env := NewEnv()
	left, okL := s.a.InterpretTell(NewBinary(NewVarRef(x), leftOp, NewInt(k)), env, &diags)
	right, okR := s.a.InterpretTell(NewBinary(NewVarRef(x), rightOp, NewInt(k)), env, &diags)
	if okL && okR {
		return NewBranch(left, right)
	}
	if leftOp != Leq || rightOp != Gt {
		return s.makeBranch(x, Leq, Gt, k)
	}
	s.logger.WithField("var", x.String()).Warn("the sub-domain does not support the requested value order")
	diags.LogTo(s.logger)
	return NewBranch()
}

// Split chooses the next unassigned variable of the current strategy and
// returns its two-child branch. An empty branch means no split is
// possible: the sub-domain is inconsistent, every strategy is exhausted,
// or the chosen variable cannot be branched on. An empty branch therefore
// does not imply that the sub-domain is at a leaf.
func (s *SplitStrategy) Split() *Branch {
	if s.a.IsTop() {
		return NewBranch()
	}
	s.moveToNextUnassignedVar()
	if s.currentStrategy >= len(s.strategies) {
		return NewBranch()
	}
	x := s.selectVar()
	u := s.a.Project(x)
	if u.IsEmpty() || !u.IsFinite() {
		s.logger.WithField("var", x.String()).Warn("cannot branch on an unbounded variable")
		return NewBranch()
	}
	switch s.strategies[s.currentStrategy].ValOrder {
	case IndomainMin:
		return s.makeBranch(x, Eq, Gt, u.Lb)
	case IndomainMax:
		return s.makeBranch(x, Eq, Lt, u.Ub)
	case IndomainMedian:
		return s.makeBranch(x, Eq, Neq, u.Median())
	case IndomainSplit:
		return s.makeBranch(x, Leq, Gt, u.Median())
	case IndomainReverseSplit:
		return s.makeBranch(x, Gt, Leq, u.Median())
	default:
		return NewBranch()
	}
}

// CopyIn clones the strategy; the sub-domain clone is tracked so the
// search tree sharing it keeps sharing the clone.
func (s *SplitStrategy) CopyIn(deps *AbstractDeps) *SplitStrategy {
	clone := &SplitStrategy{
		aty:               s.aty,
		currentStrategy:   s.currentStrategy,
		nextUnassignedVar: s.nextUnassignedVar,
		logger:            s.logger,
	}
	deps.register(s, clone)
	clone.a = deps.Clone(s.a)
	clone.strategies = append([]Strategy(nil), s.strategies...)
	return clone
}
