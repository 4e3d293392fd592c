// Package lattice provides constraint solving over abstract domains.
// This file defines abstract variable references.
package lattice

import "fmt"

// AType identifies an abstract domain instance. Each domain in a composition
// is allocated a distinct AType by the environment, so that typed formulas
// and variables can be routed to the domain that owns them.
type AType int

// AVar is a reference to a variable inside an abstract domain: the domain's
// AType plus the variable's index in that domain. The zero value is the
// untyped sentinel, used where no variable has been chosen yet (for example
// the objective of a satisfaction problem).
//
// AVar is a small value type; equality is structural.
type AVar struct {
	aty AType // stored shifted by one so that the zero value is untyped
	vid int
}

// NewAVar creates a variable reference for variable vid of domain aty.
func NewAVar(aty AType, vid int) AVar {
	return AVar{aty: aty + 1, vid: vid}
}

// UntypedAVar returns the untyped sentinel.
func UntypedAVar() AVar {
	return AVar{}
}

// IsUntyped reports whether the reference does not name any variable.
func (v AVar) IsUntyped() bool {
	return v.aty == 0
}

// Aty returns the abstract type of the referenced domain.
func (v AVar) Aty() AType {
	return v.aty - 1
}

// VID returns the variable index inside its domain.
func (v AVar) VID() int {
	return v.vid
}

func (v AVar) String() string {
	if v.IsUntyped() {
		return "var(untyped)"
	}
	return fmt.Sprintf("var(%d:%d)", v.Aty(), v.vid)
}
