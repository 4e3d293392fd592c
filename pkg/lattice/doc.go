// Package lattice provides the search-and-optimization core of a
// lattice-based constraint solver.
//
// The package composes abstract domains into a complete branch-and-bound
// solver. An abstract domain is any state that supports telling constraints
// (narrowing by lattice meet), asking entailment, snapshot/restore for
// backtracking, and extraction of solutions. The shipped domains are:
//
//   - IntervalStore: a vector of integer intervals indexed by abstract
//     variables, the base store.
//   - Propagation: a list of bounds-consistency propagators over a shared
//     store (the constraint-propagation layer).
//   - Table: an extensional constraint in reduced product with the store.
//   - SearchTree: depth-first exploration of a sub-domain driven by a
//     SplitStrategy, with snapshot-based backtracking and deferred root
//     tells.
//   - BAB: branch-and-bound over a search tree, recording the best solution
//     and tightening the objective bound after each one.
//
// The Solver type assembles the full composition
// BAB(SearchTree(Table(Propagation(store)))) and runs the driving loop:
// propagate to fixpoint, record a solution if the current node is
// extractable, then step the search tree. Portfolio search over independent
// clones of the composition is available for multi-strategy runs.
package lattice
