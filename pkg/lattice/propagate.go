// Package lattice provides constraint solving over abstract domains.
// This file defines Propagation, the constraint-propagation layer: a list
// of bounds-consistency propagators sharing an interval store.
package lattice

import "fmt"

const propagationName = "Propagation"

// Propagator narrows the bounds of its variables in a shared store.
// Propagators are registered by Propagation.Deduce and driven to fixpoint
// by an external iteration (see GaussSeidel).
type Propagator interface {
	// Deduce narrows the store and reports change. Deduce on a store where
	// one of the propagator's variables is already inconsistent is a no-op.
	Deduce(s *IntervalStore) bool

	// Ask reports whether the constraint is entailed by the current store.
	Ask(s *IntervalStore) bool

	// Vars returns the variables the propagator observes.
	Vars() []AVar

	String() string
}

// PlusPropagator enforces X + Y = Z with bounds consistency.
type PlusPropagator struct {
	X, Y, Z AVar
}

// Deduce narrows each of the three variables from the bounds of the other
// two.
func (p PlusPropagator) Deduce(s *IntervalStore) bool {
	x, y, z := s.Project(p.X), s.Project(p.Y), s.Project(p.Z)
	if x.IsEmpty() || y.IsEmpty() || z.IsEmpty() {
		return false
	}
	changed := s.TellVar(p.Z, NewInterval(satAdd(x.Lb, y.Lb), satAdd(x.Ub, y.Ub)))
	z = s.Project(p.Z)
	if z.IsEmpty() {
		return changed
	}
	changed = s.TellVar(p.X, NewInterval(satSub(z.Lb, y.Ub), satSub(z.Ub, y.Lb))) || changed
	x = s.Project(p.X)
	if x.IsEmpty() {
		return changed
	}
	changed = s.TellVar(p.Y, NewInterval(satSub(z.Lb, x.Ub), satSub(z.Ub, x.Lb))) || changed
	return changed
}

// Ask reports entailment: all three variables assigned and summing up.
func (p PlusPropagator) Ask(s *IntervalStore) bool {
	x, y, z := s.Project(p.X), s.Project(p.Y), s.Project(p.Z)
	return x.IsSingleton() && y.IsSingleton() && z.IsSingleton() && x.Lb+y.Lb == z.Lb
}

// Vars returns the three observed variables.
func (p PlusPropagator) Vars() []AVar {
	return []AVar{p.X, p.Y, p.Z}
}

func (p PlusPropagator) String() string {
	return fmt.Sprintf("%s + %s = %s", p.X, p.Y, p.Z)
}

// PropTell is the deduction payload of Propagation: store atoms plus new
// propagators.
type PropTell struct {
	Store StoreTell
	Props []Propagator
}

// PropAsk is the entailment query of Propagation.
type PropAsk struct {
	Store StoreAsk
	Props []Propagator
}

// propSnapshot captures the store state and the propagator count.
// Propagators are append-only, so restoring truncates the list.
type propSnapshot struct {
	store    DomainSnapshot
	numProps int
}

// Propagation is the constraint-propagation abstract domain: it wraps a
// shared interval store and owns the list of propagators posted over it.
// Deductions are indexed (one per propagator) so an external fixpoint can
// iterate them; see Deducer.
type Propagation struct {
	aty   AType
	store *IntervalStore
	props []Propagator
}

// NewPropagation creates a propagation layer over store.
func NewPropagation(aty AType, store *IntervalStore) *Propagation {
	return &Propagation{aty: aty, store: store}
}

// Aty returns the layer's abstract type.
func (p *Propagation) Aty() AType {
	return p.aty
}

// Store returns the underlying shared store.
func (p *Propagation) Store() *IntervalStore {
	return p.store
}

// IsBot reports whether neither the store nor the propagator list carries
// information.
func (p *Propagation) IsBot() bool {
	return len(p.props) == 0 && p.store.IsBot()
}

// IsTop reports store inconsistency.
func (p *Propagation) IsTop() bool {
	return p.store.IsTop()
}

// Project delegates to the store.
func (p *Propagation) Project(x AVar) Interval {
	return p.store.Project(x)
}

// Snapshot captures the store and the propagator count.
func (p *Propagation) Snapshot() DomainSnapshot {
	return propSnapshot{store: p.store.Snapshot(), numProps: len(p.props)}
}

// Restore reinstates the store and truncates propagators added since the
// snapshot.
func (p *Propagation) Restore(snap DomainSnapshot) {
	sn := snap.(propSnapshot)
	p.store.Restore(sn.store)
	p.props = p.props[:sn.numProps]
}

// interpretPlus recognizes `x + y = z` (either orientation of the
// equality).
func (p *Propagation) interpretPlus(f *Formula, env *Env, diags *Diagnostics) (Propagator, bool) {
	sum, res := f.Args[0], f.Args[1]
	if sum.Kind != FSeq || sum.Sig != Add {
		sum, res = res, sum
	}
	if sum.Kind != FSeq || sum.Sig != Add || len(sum.Args) != 2 || !res.IsVariable() {
		return nil, false
	}
	if !sum.Args[0].IsVariable() || !sum.Args[1].IsVariable() {
		return nil, false
	}
	x, errX := env.Interpret(sum.Args[0])
	y, errY := env.Interpret(sum.Args[1])
	z, errZ := env.Interpret(res)
	for _, err := range []error{errX, errY, errZ} {
		if err != nil {
			diags.Error(propagationName, f, "%v", err)
			return nil, false
		}
	}
	return PlusPropagator{X: x, Y: y, Z: z}, true
}

// interpret splits a conjunction into store atoms and propagators.
func (p *Propagation) interpret(f *Formula, env *Env, atoms *[]StoreAtom, props *[]Propagator, diags *Diagnostics) bool {
	if f.Kind == FSeq && f.Sig == And {
		ok := true
		for _, sub := range f.Args {
			if !p.interpret(sub, env, atoms, props, diags) {
				ok = false
			}
		}
		return ok
	}
	if f.Kind == FSeq && f.Sig == Eq && len(f.Args) == 2 &&
		(f.Args[0].Kind == FSeq && f.Args[0].Sig == Add || f.Args[1].Kind == FSeq && f.Args[1].Sig == Add) {
		prop, ok := p.interpretPlus(f, env, diags)
		if ok {
			*props = append(*props, prop)
		}
		return ok
	}
	return p.store.interpretConj(f, env, atoms, diags)
}

// InterpretTell translates a conjunction of unary comparisons and
// arithmetic equalities into a PropTell.
func (p *Propagation) InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool) {
	var atoms []StoreAtom
	var props []Propagator
	if !p.interpret(f, env, &atoms, &props, diags) {
		return nil, false
	}
	return PropTell{Store: StoreTell{Atoms: atoms}, Props: props}, true
}

// InterpretAsk translates a conjunction into a PropAsk.
func (p *Propagation) InterpretAsk(f *Formula, env *Env, diags *Diagnostics) (AskPayload, bool) {
	var atoms []StoreAtom
	var props []Propagator
	if !p.interpret(f, env, &atoms, &props, diags) {
		return nil, false
	}
	return PropAsk{Store: StoreAsk{Atoms: atoms}, Props: props}, true
}

// Deduce applies the store atoms and registers the new propagators.
// Registered propagators are not run here: the owner drives them to
// fixpoint through DeduceAt.
func (p *Propagation) Deduce(t Tell) bool {
	switch tell := t.(type) {
	case PropTell:
		changed := p.store.Deduce(tell.Store)
		if len(tell.Props) > 0 {
			p.props = append(p.props, tell.Props...)
			changed = true
		}
		return changed
	case StoreTell:
		// Layers above construct raw store tells (bound tightening, table
		// refinement); accept them directly.
		return p.store.Deduce(tell)
	default:
		panic(fmt.Sprintf("Propagation.Deduce: unexpected payload %T", t))
	}
}

// Ask reports entailment of both the store atoms and the propagators.
func (p *Propagation) Ask(a AskPayload) bool {
	switch ask := a.(type) {
	case PropAsk:
		if !p.store.Ask(ask.Store) {
			return false
		}
		for _, prop := range ask.Props {
			if !prop.Ask(p.store) {
				return false
			}
		}
		return true
	case StoreAsk:
		return p.store.Ask(ask)
	default:
		panic(fmt.Sprintf("Propagation.Ask: unexpected payload %T", a))
	}
}

// NumDeductions returns the number of registered propagators.
func (p *Propagation) NumDeductions() int {
	return len(p.props)
}

// DeduceAt runs the i-th propagator.
func (p *Propagation) DeduceAt(i int) bool {
	return p.props[i].Deduce(p.store)
}

// IsExtractable reports whether the current store under-approximates the
// constraint set: consistent and every propagator entailed.
func (p *Propagation) IsExtractable() bool {
	if p.store.IsTop() {
		return false
	}
	for _, prop := range p.props {
		if !prop.Ask(p.store) {
			return false
		}
	}
	return true
}

// Extract copies the store solution into target.
func (p *Propagation) Extract(target Domain) {
	if other, ok := target.(*Propagation); ok {
		p.store.Extract(other.store)
		return
	}
	p.store.Extract(target)
}

// CopyIn clones the layer; the store clone is tracked so other components
// sharing it keep sharing the clone.
func (p *Propagation) CopyIn(deps *AbstractDeps) Domain {
	clone := &Propagation{aty: p.aty}
	deps.register(p, clone)
	clone.store = deps.Clone(p.store).(*IntervalStore)
	clone.props = append([]Propagator(nil), p.props...)
	return clone
}
