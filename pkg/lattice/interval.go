// Package lattice provides constraint solving over abstract domains.
// This file defines the interval universe: the lattice of integer intervals
// that stores project variables into and that table cells are made of.
package lattice

import (
	"fmt"
	"math"
)

// Interval bounds beyond which values are treated as infinite. Keeping one
// bit of headroom makes bound arithmetic (sums, differences, off-by-one
// shifts) safe from overflow.
const (
	NegInf = math.MinInt / 2
	PosInf = math.MaxInt / 2
)

// Interval is a closed integer interval [Lb, Ub]. An interval with Lb > Ub
// is empty (inconsistent); the canonical empty interval is returned by
// EmptyInterval so that all empty intervals compare equal. An interval
// spanning [NegInf, PosInf] is entire (carries no information).
//
// Intervals are immutable values: operations return new intervals.
// Meet is the narrowing operation used by tells; Join is the convex hull
// used when recombining alternatives.
type Interval struct {
	Lb, Ub int
}

// EntireInterval returns the interval carrying no information.
func EntireInterval() Interval {
	return Interval{Lb: NegInf, Ub: PosInf}
}

// EmptyInterval returns the canonical inconsistent interval.
func EmptyInterval() Interval {
	return Interval{Lb: 1, Ub: 0}
}

// NewInterval returns [lb, ub], canonicalized if empty.
func NewInterval(lb, ub int) Interval {
	if lb > ub {
		return EmptyInterval()
	}
	return Interval{Lb: lb, Ub: ub}
}

// SingletonInterval returns [v, v].
func SingletonInterval(v int) Interval {
	return Interval{Lb: v, Ub: v}
}

// AtLeast returns [lb, +inf].
func AtLeast(lb int) Interval {
	return Interval{Lb: lb, Ub: PosInf}
}

// AtMost returns [-inf, ub].
func AtMost(ub int) Interval {
	return Interval{Lb: NegInf, Ub: ub}
}

// IsEmpty reports inconsistency (no value fits).
func (i Interval) IsEmpty() bool {
	return i.Lb > i.Ub
}

// IsEntire reports whether the interval carries no information.
func (i Interval) IsEntire() bool {
	return i.Lb <= NegInf && i.Ub >= PosInf
}

// IsFinite reports whether both bounds are finite.
func (i Interval) IsFinite() bool {
	return i.Lb > NegInf && i.Ub < PosInf
}

// IsSingleton reports whether exactly one value fits.
func (i Interval) IsSingleton() bool {
	return i.Lb == i.Ub
}

// Value returns the single value of a singleton interval.
// It panics on non-singleton intervals.
func (i Interval) Value() int {
	if !i.IsSingleton() {
		panic(fmt.Sprintf("Value called on non-singleton interval %v", i))
	}
	return i.Lb
}

// Deinterpret returns the constant formula of a singleton interval.
// Like Value, it panics on non-singleton intervals.
func (i Interval) Deinterpret() *Formula {
	return NewInt(i.Value())
}

// Width returns Ub - Lb. The width of a singleton is 0; the width of an
// empty interval is negative.
func (i Interval) Width() int {
	return i.Ub - i.Lb
}

// Median returns the lower median value of a non-empty interval.
func (i Interval) Median() int {
	return i.Lb + (i.Ub-i.Lb)/2
}

// Meet returns the intersection, the tell operation of the interval lattice.
func (i Interval) Meet(o Interval) Interval {
	lb := i.Lb
	if o.Lb > lb {
		lb = o.Lb
	}
	ub := i.Ub
	if o.Ub < ub {
		ub = o.Ub
	}
	return NewInterval(lb, ub)
}

// Join returns the convex hull.
func (i Interval) Join(o Interval) Interval {
	if i.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return i
	}
	lb := i.Lb
	if o.Lb < lb {
		lb = o.Lb
	}
	ub := i.Ub
	if o.Ub > ub {
		ub = o.Ub
	}
	return Interval{Lb: lb, Ub: ub}
}

// Contains reports whether o fits entirely inside i. Every interval
// contains the empty interval. Used for entailment: a constraint cell
// entails the current value when the cell contains it.
func (i Interval) Contains(o Interval) bool {
	if o.IsEmpty() {
		return true
	}
	return i.Lb <= o.Lb && o.Ub <= i.Ub
}

// Equal reports structural equality (all empty intervals are canonical, so
// this is also semantic equality).
func (i Interval) Equal(o Interval) bool {
	return i == o
}

func (i Interval) String() string {
	if i.IsEmpty() {
		return "[]"
	}
	lb := "-inf"
	if i.Lb > NegInf {
		lb = fmt.Sprintf("%d", i.Lb)
	}
	ub := "+inf"
	if i.Ub < PosInf {
		ub = fmt.Sprintf("%d", i.Ub)
	}
	return fmt.Sprintf("[%s..%s]", lb, ub)
}

// satAdd adds two bounds, saturating at the infinities.
func satAdd(a, b int) int {
	s := a + b
	if s < NegInf {
		return NegInf
	}
	if s > PosInf {
		return PosInf
	}
	return s
}

// satSub subtracts two bounds, saturating at the infinities.
func satSub(a, b int) int {
	return satAdd(a, -b)
}
