// Package lattice provides constraint solving over abstract domains.
// This file defines the formula tree that domains interpret: variable
// references, constants, signature-tagged sequences and extended sequences
// tagged by a symbol (used for search annotations).
package lattice

import (
	"fmt"
	"strings"
)

// Sig tags a formula sequence with its connective or predicate.
type Sig int

const (
	// And is n-ary conjunction.
	And Sig = iota
	// Or is n-ary disjunction.
	Or
	// Eq, Neq, Leq, Lt, Geq, Gt are binary comparisons.
	Eq
	Neq
	Leq
	Lt
	Geq
	Gt
	// Add is binary addition, used inside equalities such as x + y = z.
	Add
	// Minimize and Maximize are unary optimization predicates.
	Minimize
	Maximize
)

func (s Sig) String() string {
	switch s {
	case And:
		return "and"
	case Or:
		return "or"
	case Eq:
		return "="
	case Neq:
		return "!="
	case Leq:
		return "<="
	case Lt:
		return "<"
	case Geq:
		return ">="
	case Gt:
		return ">"
	case Add:
		return "+"
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return fmt.Sprintf("sig(%d)", int(s))
	}
}

// FormulaKind discriminates the node variants of a Formula.
type FormulaKind int

const (
	// FVar is a resolved abstract-variable reference.
	FVar FormulaKind = iota
	// FName is a named (not yet resolved) variable.
	FName
	// FInt is an integer constant.
	FInt
	// FBool is a boolean constant.
	FBool
	// FSeq is a sequence tagged by a Sig.
	FSeq
	// FESeq is an extended sequence tagged by a string symbol, e.g. the
	// search(...) annotation. A symbol with no arguments is an atom.
	FESeq
)

// Formula is one node of a logical formula tree. Only the fields relevant to
// Kind are meaningful. Formulas are built programmatically and treated as
// immutable once constructed.
type Formula struct {
	Kind   FormulaKind
	Var    AVar
	Name   string
	Int    int
	Bool   bool
	Sig    Sig
	Symbol string
	Args   []*Formula
}

// NewVarRef returns a formula referencing a resolved abstract variable.
func NewVarRef(x AVar) *Formula {
	return &Formula{Kind: FVar, Var: x}
}

// NewName returns a formula referencing a variable by name.
func NewName(name string) *Formula {
	return &Formula{Kind: FName, Name: name}
}

// NewInt returns an integer constant formula.
func NewInt(k int) *Formula {
	return &Formula{Kind: FInt, Int: k}
}

// NewBool returns a boolean constant formula. NewBool(true) is the
// trivially-true formula.
func NewBool(b bool) *Formula {
	return &Formula{Kind: FBool, Bool: b}
}

// NewSeq returns a sequence formula tagged with sig.
func NewSeq(sig Sig, args ...*Formula) *Formula {
	return &Formula{Kind: FSeq, Sig: sig, Args: args}
}

// NewBinary returns the binary sequence `lhs sig rhs`.
func NewBinary(lhs *Formula, sig Sig, rhs *Formula) *Formula {
	return NewSeq(sig, lhs, rhs)
}

// NewESeq returns an extended sequence tagged with symbol.
func NewESeq(symbol string, args ...*Formula) *Formula {
	return &Formula{Kind: FESeq, Symbol: symbol, Args: args}
}

// NewAtom returns an extended symbol with no arguments, e.g. `first_fail`.
func NewAtom(symbol string) *Formula {
	return NewESeq(symbol)
}

// IsVariable reports whether the formula is a variable reference, resolved
// or named.
func (f *Formula) IsVariable() bool {
	return f.Kind == FVar || f.Kind == FName
}

// IsAtom reports whether the formula is an extended symbol without
// arguments.
func (f *Formula) IsAtom() bool {
	return f.Kind == FESeq && len(f.Args) == 0
}

// NumVars counts variable references in the subtree.
func NumVars(f *Formula) int {
	if f == nil {
		return 0
	}
	if f.IsVariable() {
		return 1
	}
	n := 0
	for _, a := range f.Args {
		n += NumVars(a)
	}
	return n
}

func (f *Formula) String() string {
	if f == nil {
		return "<nil>"
	}
	switch f.Kind {
	case FVar:
		return f.Var.String()
	case FName:
		return f.Name
	case FInt:
		return fmt.Sprintf("%d", f.Int)
	case FBool:
		return fmt.Sprintf("%t", f.Bool)
	case FSeq:
		parts := make([]string, len(f.Args))
		for i, a := range f.Args {
			parts[i] = a.String()
		}
		if len(parts) == 2 && f.Sig != And && f.Sig != Or {
			return fmt.Sprintf("(%s %s %s)", parts[0], f.Sig, parts[1])
		}
		return fmt.Sprintf("%s(%s)", f.Sig, strings.Join(parts, ", "))
	case FESeq:
		if len(f.Args) == 0 {
			return f.Symbol
		}
		parts := make([]string, len(f.Args))
		for i, a := range f.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", f.Symbol, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("formula(kind=%d)", int(f.Kind))
	}
}
