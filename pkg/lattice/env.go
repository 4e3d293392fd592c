// Package lattice provides constraint solving over abstract domains.
// This file defines the variable environment shared by all domains of a
// composition: name declarations and abstract-type allocation.
package lattice

import (
	"github.com/pkg/errors"
)

// ErrUndeclaredVariable is wrapped by Env.Interpret when a named variable
// has not been declared.
var ErrUndeclaredVariable = errors.New("undeclared variable")

// Env is the variable environment of a solver composition. It resolves
// named variables to abstract references and hands out fresh abstract-type
// identifiers to domains.
//
// Env is built sequentially during model construction and is read-only
// during solving, so clones of a composition can share it.
type Env struct {
	nextType AType
	names    map[string]AVar
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{names: make(map[string]AVar)}
}

// ExtendsAbstractDom allocates a fresh abstract-type identifier for a new
// domain in the composition.
func (e *Env) ExtendsAbstractDom() AType {
	t := e.nextType
	e.nextType++
	return t
}

// Declare binds name to variable vid of domain aty and returns the
// reference. Re-declaring a name rebinds it.
func (e *Env) Declare(name string, aty AType, vid int) AVar {
	x := NewAVar(aty, vid)
	e.names[name] = x
	return x
}

// Lookup returns the reference bound to name.
func (e *Env) Lookup(name string) (AVar, bool) {
	x, ok := e.names[name]
	return x, ok
}

// Interpret resolves a variable formula to an abstract reference. Resolved
// references pass through; named variables are looked up. Any other formula
// kind is an error.
func (e *Env) Interpret(f *Formula) (AVar, error) {
	switch f.Kind {
	case FVar:
		return f.Var, nil
	case FName:
		if x, ok := e.names[f.Name]; ok {
			return x, nil
		}
		return UntypedAVar(), errors.Wrapf(ErrUndeclaredVariable, "%q", f.Name)
	default:
		return UntypedAVar(), errors.Errorf("formula %s is not a variable", f)
	}
}
