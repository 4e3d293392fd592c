// Package lattice provides constraint solving over abstract domains.
// This file defines the abstract-domain capability set and the dependency
// tracker used to clone compositions while preserving shared sub-domains.
package lattice

// Tell is an opaque deduction payload produced by a domain's InterpretTell
// and consumed by the same domain's Deduce. Each domain documents its
// concrete payload type.
type Tell = interface{}

// AskPayload is an opaque entailment query produced by InterpretAsk and
// consumed by Ask.
type AskPayload = interface{}

// DomainSnapshot is an opaque scoped capture of a domain's state, produced
// by Snapshot and consumed by Restore of the same domain.
type DomainSnapshot = interface{}

// Domain is the capability set every abstract domain provides. The search
// layers (SearchTree, BAB, Table) are polymorphic over any Domain; the
// concrete payload types flow through opaquely.
//
// Orientation: a domain is "top" when it is inconsistent (no solution can
// exist below the current state) and "bot" when it carries no information.
// Tells only narrow: Deduce moves the state strictly toward inconsistency
// and reports whether anything changed.
type Domain interface {
	// Aty returns the abstract type identifying this domain instance.
	Aty() AType

	// IsBot reports whether the domain carries no information.
	IsBot() bool

	// IsTop reports whether the domain is inconsistent.
	IsTop() bool

	// Snapshot captures the current state. The capture is a value owned by
	// the caller and stays valid across later deductions.
	Snapshot() DomainSnapshot

	// Restore reinstates a state previously captured by Snapshot on this
	// domain (or on the domain this one was cloned from).
	Restore(snap DomainSnapshot)

	// Project returns the interval currently associated with x.
	Project(x AVar) Interval

	// InterpretTell translates a formula into a deduction payload. All
	// problems are reported through diags; the boolean result is the
	// success bit.
	InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool)

	// InterpretAsk translates a formula into an entailment query.
	InterpretAsk(f *Formula, env *Env, diags *Diagnostics) (AskPayload, bool)

	// Deduce applies a payload produced by InterpretTell and reports
	// whether the state changed.
	Deduce(t Tell) bool

	// Ask reports whether the query is entailed by the current state.
	Ask(a AskPayload) bool

	// IsExtractable reports whether the current state under-approximates
	// the solution set, i.e. whether Extract would produce a solution.
	IsExtractable() bool

	// Extract copies the current solution into target. The target must be
	// a compatible domain; extraction into an IntervalStore is supported by
	// every shipped domain.
	Extract(target Domain)

	// CopyIn clones the domain, registering shared sub-domains in deps so
	// that sharing inside a composition is preserved across the clone.
	CopyIn(deps *AbstractDeps) Domain
}

// Deducer is the slice of Domain used by fixpoint iteration: a domain
// exposing an indexed family of deduction operators.
type Deducer interface {
	// NumDeductions returns the size of the deduction family.
	NumDeductions() int

	// DeduceAt runs the i-th deduction operator and reports change.
	DeduceAt(i int) bool
}

// AbstractDeps tracks already-cloned domains during the copy of a
// composition. When several components reference the same sub-domain (the
// split strategy and the search tree both observe the store), cloning
// through one AbstractDeps maps the shared pointer to a single clone, so
// the copies observe a single store too. Cloning through a fresh
// AbstractDeps severs sharing; BAB uses that for its exclusively-owned
// best store.
type AbstractDeps struct {
	clones map[interface{}]interface{}
}

// NewAbstractDeps creates an empty tracker.
func NewAbstractDeps() *AbstractDeps {
	return &AbstractDeps{clones: make(map[interface{}]interface{})}
}

// Clone returns the tracked clone of a, creating it on first sight.
func (d *AbstractDeps) Clone(a Domain) Domain {
	if a == nil {
		return nil
	}
	if c, ok := d.clones[a]; ok {
		return c.(Domain)
	}
	c := a.CopyIn(d)
	return c
}

// register records the clone of an original before its children are cloned.
// CopyIn implementations call it first, so diamond references resolve to
// one clone.
func (d *AbstractDeps) register(original, clone interface{}) {
	d.clones[original] = clone
}

// cloneSplit returns the tracked clone of a split strategy.
func (d *AbstractDeps) cloneSplit(s *SplitStrategy) *SplitStrategy {
	if s == nil {
		return nil
	}
	if c, ok := d.clones[s]; ok {
		return c.(*SplitStrategy)
	}
	return s.CopyIn(d)
}
