// Package lattice provides constraint solving over abstract domains.
// This file defines IntervalStore, the base variable store: a vector of
// intervals indexed by abstract variables.
package lattice

import "fmt"

const storeName = "IntervalStore"

// StoreAtom constrains one variable to an interval.
type StoreAtom struct {
	X   AVar
	Itv Interval
}

// StoreTell is the deduction payload of IntervalStore: a conjunction of
// atoms, each narrowing one variable.
type StoreTell struct {
	Atoms []StoreAtom
}

// StoreAsk is the entailment query of IntervalStore: every atom must
// contain the current projection of its variable.
type StoreAsk struct {
	Atoms []StoreAtom
}

// storeSnapshot captures the full interval vector. Stores are small and
// restores must rewind arbitrary interleavings of tells, so a plain copy is
// the robust choice.
type storeSnapshot struct {
	vars []Interval
}

// IntervalStore is the base abstract domain: one interval per variable.
// A fresh store carries no information (every variable spans the entire
// interval); it is inconsistent as soon as one variable's interval is
// empty.
//
// The store is deliberately single-threaded: the composition layers above
// it sequence all access.
type IntervalStore struct {
	aty  AType
	vars []Interval
}

// NewIntervalStore creates a store with n unconstrained variables.
func NewIntervalStore(aty AType, n int) *IntervalStore {
	vars := make([]Interval, n)
	for i := range vars {
		vars[i] = EntireInterval()
	}
	return &IntervalStore{aty: aty, vars: vars}
}

// Aty returns the store's abstract type.
func (s *IntervalStore) Aty() AType {
	return s.aty
}

// Vars returns the number of variables.
func (s *IntervalStore) Vars() int {
	return len(s.vars)
}

// IsBot reports whether no variable carries any information.
func (s *IntervalStore) IsBot() bool {
	for _, v := range s.vars {
		if !v.IsEntire() {
			return false
		}
	}
	return true
}

// IsTop reports inconsistency: some variable has an empty interval.
func (s *IntervalStore) IsTop() bool {
	for _, v := range s.vars {
		if v.IsEmpty() {
			return true
		}
	}
	return false
}

// Project returns the interval of x. Unknown variables project to the
// entire interval.
func (s *IntervalStore) Project(x AVar) Interval {
	if x.IsUntyped() || x.VID() < 0 || x.VID() >= len(s.vars) {
		return EntireInterval()
	}
	return s.vars[x.VID()]
}

// TellVar narrows the interval of x by meet and reports change. The store
// grows on demand when told about a variable beyond its current size.
func (s *IntervalStore) TellVar(x AVar, itv Interval) bool {
	vid := x.VID()
	for vid >= len(s.vars) {
		s.vars = append(s.vars, EntireInterval())
	}
	met := s.vars[vid].Meet(itv)
	if met.Equal(s.vars[vid]) {
		return false
	}
	s.vars[vid] = met
	return true
}

// Snapshot captures the interval vector.
func (s *IntervalStore) Snapshot() DomainSnapshot {
	vars := make([]Interval, len(s.vars))
	copy(vars, s.vars)
	return storeSnapshot{vars: vars}
}

// Restore reinstates a snapshot, dropping variables added since.
func (s *IntervalStore) Restore(snap DomainSnapshot) {
	sn := snap.(storeSnapshot)
	s.vars = s.vars[:0]
	s.vars = append(s.vars, sn.vars...)
}

// interpretAtom translates one comparison `x sig k` into a store atom.
func (s *IntervalStore) interpretAtom(f *Formula, env *Env, diags *Diagnostics) (StoreAtom, bool) {
	if f.Kind != FSeq || len(f.Args) != 2 {
		diags.Error(storeName, f, "unsupported formula shape")
		return StoreAtom{}, false
	}
	varSide, constSide := f.Args[0], f.Args[1]
	sig := f.Sig
	if !varSide.IsVariable() && constSide.IsVariable() {
		// Mirror `k sig x` into `x sig' k`.
		varSide, constSide = constSide, varSide
		switch sig {
		case Leq:
			sig = Geq
		case Lt:
			sig = Gt
		case Geq:
			sig = Leq
		case Gt:
			sig = Lt
		}
	}
	if !varSide.IsVariable() || constSide.Kind != FInt {
		diags.Error(storeName, f, "expected a comparison between a variable and a constant")
		return StoreAtom{}, false
	}
	x, err := env.Interpret(varSide)
	if err != nil {
		diags.Error(storeName, varSide, "%v", err)
		return StoreAtom{}, false
	}
	k := constSide.Int
	var itv Interval
	switch sig {
	case Eq:
		itv = SingletonInterval(k)
	case Leq:
		itv = AtMost(k)
	case Lt:
		itv = AtMost(k - 1)
	case Geq:
		itv = AtLeast(k)
	case Gt:
		itv = AtLeast(k + 1)
	case Neq:
		// A hole cannot be represented by one interval. Callers that need
		// disequality fall back to a splitting strategy instead.
		diags.Error(storeName, f, "disequality is not representable in the interval store")
		return StoreAtom{}, false
	default:
		diags.Error(storeName, f, "unsupported predicate %s", sig)
		return StoreAtom{}, false
	}
	return StoreAtom{X: x, Itv: itv}, true
}

// interpretConj flattens an And-tree of atoms into atoms, collecting all
// diagnostics before reporting failure.
func (s *IntervalStore) interpretConj(f *Formula, env *Env, atoms *[]StoreAtom, diags *Diagnostics) bool {
	switch {
	case f.Kind == FBool && f.Bool:
		return true
	case f.Kind == FSeq && f.Sig == And:
		ok := true
		for _, sub := range f.Args {
			if !s.interpretConj(sub, env, atoms, diags) {
				ok = false
			}
		}
		return ok
	default:
		atom, ok := s.interpretAtom(f, env, diags)
		if ok {
			*atoms = append(*atoms, atom)
		}
		return ok
	}
}

// InterpretTell translates a conjunction of unary comparisons into a
// StoreTell.
func (s *IntervalStore) InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool) {
	var atoms []StoreAtom
	if !s.interpretConj(f, env, &atoms, diags) {
		return nil, false
	}
	return StoreTell{Atoms: atoms}, true
}

// InterpretAsk translates a conjunction of unary comparisons into a
// StoreAsk.
func (s *IntervalStore) InterpretAsk(f *Formula, env *Env, diags *Diagnostics) (AskPayload, bool) {
	var atoms []StoreAtom
	if !s.interpretConj(f, env, &atoms, diags) {
		return nil, false
	}
	return StoreAsk{Atoms: atoms}, true
}

// Deduce narrows the store by every atom of the tell.
func (s *IntervalStore) Deduce(t Tell) bool {
	tell, ok := t.(StoreTell)
	if !ok {
		panic(fmt.Sprintf("IntervalStore.Deduce: unexpected payload %T", t))
	}
	changed := false
	for _, atom := range tell.Atoms {
		if s.TellVar(atom.X, atom.Itv) {
			changed = true
		}
	}
	return changed
}

// Ask reports whether every atom contains the current projection of its
// variable.
func (s *IntervalStore) Ask(a AskPayload) bool {
	ask, ok := a.(StoreAsk)
	if !ok {
		panic(fmt.Sprintf("IntervalStore.Ask: unexpected payload %T", a))
	}
	for _, atom := range ask.Atoms {
		if !atom.Itv.Contains(s.Project(atom.X)) {
			return false
		}
	}
	return true
}

// IsExtractable reports whether the store under-approximates its solution
// set. A store holds only unary constraints, so any consistent state does.
func (s *IntervalStore) IsExtractable() bool {
	return !s.IsTop()
}

// Extract copies the store into target, which must be an IntervalStore.
func (s *IntervalStore) Extract(target Domain) {
	st, ok := target.(*IntervalStore)
	if !ok {
		panic(fmt.Sprintf("IntervalStore.Extract: unsupported target %T", target))
	}
	st.vars = st.vars[:0]
	st.vars = append(st.vars, s.vars...)
}

// CopyIn clones the store.
func (s *IntervalStore) CopyIn(deps *AbstractDeps) Domain {
	clone := &IntervalStore{aty: s.aty, vars: make([]Interval, len(s.vars))}
	deps.register(s, clone)
	copy(clone.vars, s.vars)
	return clone
}

func (s *IntervalStore) String() string {
	out := "store{"
	for i, v := range s.vars {
		if i > 0 {
			out += ", "
		}
		out += v.String()
	}
	return out + "}"
}
