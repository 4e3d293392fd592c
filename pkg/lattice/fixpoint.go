// Package lattice provides constraint solving over abstract domains.
// This file defines the Gauss-Seidel fixpoint iteration that drives
// indexed deduction families (propagators, table refinements).
package lattice

// GaussSeidel iterates an indexed family of deduction operators until a
// full round produces no change. Deductions see the effects of earlier
// deductions in the same round.
type GaussSeidel struct{}

// Fixpoint runs deduce(0..n-1) in rounds until stable and reports whether
// anything changed at all.
func (GaussSeidel) Fixpoint(n int, deduce func(i int) bool) bool {
	changed := false
	for again := true; again; {
		again = false
		for i := 0; i < n; i++ {
			if deduce(i) {
				changed = true
				again = true
			}
		}
	}
	return changed
}

// FixpointOf runs Fixpoint over a Deducer.
func (gs GaussSeidel) FixpointOf(d Deducer) bool {
	return gs.Fixpoint(d.NumDeductions(), d.DeduceAt)
}
