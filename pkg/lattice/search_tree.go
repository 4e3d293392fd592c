// Package lattice provides constraint solving over abstract domains.
// This file defines SearchTree: depth-first exploration of a sub-domain,
// backtracking through snapshots of the root node and replaying the
// committed branch children on sibling switches.
package lattice

import "fmt"

// SearchTreeTell is the deduction payload of SearchTree: a sub-domain tell
// and/or a split-strategy tell. Either part may be nil.
type SearchTreeTell struct {
	Sub   Tell
	Split Tell
}

// searchTreeSnapshot captures the sub and split states together with the
// sub-domain pointer, so a restore can resume from a different node
// identity than the current one.
type searchTreeSnapshot struct {
	subSnap   DomainSnapshot
	splitSnap DomainSnapshot
	sub       Domain
}

// SearchTree explores the nodes of a sub-domain depth first. The sub
// pointer always reflects the node currently being refined; the stack of
// branches encodes the path from the root to that node. A snapshot of the
// root is kept so backtracking can restore it and replay the current path.
//
// Tells deduced while below the root are buffered and re-applied to the
// root on the next backtrack that reaches it, so constraints added
// mid-search (objective tightenings in particular) survive backtracking.
//
// The tree is exhausted when its current pointer is nil (IsBot). A tree
// whose root has become inconsistent stays on that root and reports IsTop.
type SearchTree struct {
	aty   AType
	a     Domain // nil once the whole tree has been explored
	split *SplitStrategy
	stack []*Branch

	rootSub   DomainSnapshot
	rootSplit DomainSnapshot

	rootSubTells   []Tell
	rootSplitTells []Tell
}

// NewSearchTree creates a tree over the shared sub-domain a and split
// strategy, capturing the root snapshot immediately.
func NewSearchTree(aty AType, a Domain, split *SplitStrategy) *SearchTree {
	return &SearchTree{
		aty:       aty,
		a:         a,
		split:     split,
		rootSub:   a.Snapshot(),
		rootSplit: split.Snapshot(),
	}
}

// Aty returns the tree's abstract type.
func (st *SearchTree) Aty() AType {
	return st.aty
}

// Split returns the split strategy driving the tree.
func (st *SearchTree) Split() *SplitStrategy {
	return st.split
}

// Sub returns the sub-domain of the current node, nil when exhausted.
func (st *SearchTree) Sub() Domain {
	return st.a
}

// IsSingleton reports whether the tree consists of the root node only.
func (st *SearchTree) IsSingleton() bool {
	return len(st.stack) == 0 && st.a != nil
}

// IsBot reports whether the whole tree has been explored.
func (st *SearchTree) IsBot() bool {
	return st.a == nil
}

// IsTop reports whether the tree is a single inconsistent root node.
func (st *SearchTree) IsTop() bool {
	return st.IsSingleton() && st.a.IsTop()
}

// Depth returns the current depth; the root node has depth 0.
func (st *SearchTree) Depth() int {
	return len(st.stack)
}

// Snapshot captures the tree state. Only a singleton tree can be
// snapshotted; callers snapshot before starting the exploration.
func (st *SearchTree) Snapshot() DomainSnapshot {
	if !st.IsSingleton() {
		panic("SearchTree.Snapshot: tree is not at its root")
	}
	return searchTreeSnapshot{
		subSnap:   st.a.Snapshot(),
		splitSnap: st.split.Snapshot(),
		sub:       st.a,
	}
}

// Restore reinstates a snapshot: the recorded sub pointer becomes the
// current node, both states are restored, the path is cleared and a fresh
// root snapshot is taken. Pending root tells are dropped.
func (st *SearchTree) Restore(snap DomainSnapshot) {
	sn := snap.(searchTreeSnapshot)
	st.a = sn.sub
	st.a.Restore(sn.subSnap)
	st.split.Restore(sn.splitSnap)
	st.stack = st.stack[:0]
	st.rootSub = st.a.Snapshot()
	st.rootSplit = st.split.Snapshot()
	st.rootSubTells = nil
	st.rootSplitTells = nil
}

// InterpretTell routes search annotations to the split strategy and every
// other formula to the sub-domain.
func (st *SearchTree) InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool) {
	if st.IsBot() {
		diags.Error("SearchTree", f, "the search tree is exhausted")
		return nil, false
	}
	if f.Kind == FESeq && f.Symbol == "search" {
		t, ok := st.split.InterpretTell(f, env, diags)
		if !ok {
			return nil, false
		}
		return SearchTreeTell{Split: t}, true
	}
	t, ok := st.a.InterpretTell(f, env, diags)
	if !ok {
		return nil, false
	}
	return SearchTreeTell{Sub: t}, true
}

// InterpretAsk delegates to the sub-domain.
func (st *SearchTree) InterpretAsk(f *Formula, env *Env, diags *Diagnostics) (AskPayload, bool) {
	if st.IsBot() {
		diags.Error("SearchTree", f, "the search tree is exhausted")
		return nil, false
	}
	return st.a.InterpretAsk(f, env, diags)
}

// deduceCurrent applies the tell to the node currently being explored.
func (st *SearchTree) deduceCurrent(t SearchTreeTell) bool {
	changed := false
	if t.Sub != nil {
		changed = st.a.Deduce(t.Sub)
	}
	if t.Split != nil {
		changed = st.split.Deduce(t.Split) || changed
	}
	return changed
}

// Deduce applies a tell to the current node. Below the root the tell is
// also buffered, to be replayed onto the root at the next backtrack that
// reaches it.
func (st *SearchTree) Deduce(t Tell) bool {
	tell, ok := t.(SearchTreeTell)
	if !ok {
		panic(fmt.Sprintf("SearchTree.Deduce: unexpected payload %T", t))
	}
	if st.IsBot() {
		return false
	}
	if !st.IsSingleton() {
		if tell.Sub != nil {
			st.rootSubTells = append(st.rootSubTells, tell.Sub)
		}
		if tell.Split != nil {
			st.rootSplitTells = append(st.rootSplitTells, tell.Split)
		}
	}
	return st.deduceCurrent(tell)
}

// Ask delegates to the sub-domain. An exhausted tree entails everything.
func (st *SearchTree) Ask(a AskPayload) bool {
	if st.IsBot() {
		return true
	}
	return st.a.Ask(a)
}

// Refine performs one node step: split the current node, push the branch,
// and commit to the next node (the left child, or after a backtrack the
// next sibling). A step on an exhausted tree is a no-op.
func (st *SearchTree) Refine() bool {
	if st.IsBot() {
		return false
	}
	return st.pop(st.push(st.split.Split()))
}

// push records a non-empty branch on the path, refreshing the root
// snapshot when pushing from the root. It reports whether the current node
// is pruned instead (empty branch: nothing to explore below).
func (st *SearchTree) push(b *Branch) bool {
	if b.Size() > 0 {
		if st.IsSingleton() {
			st.rootSub = st.a.Snapshot()
			st.rootSplit = st.split.Snapshot()
		}
		st.stack = append(st.stack, b)
		return false
	}
	return true
}

// pop commits to the next node: the left child when the current node was
// split, otherwise the next sibling after backtracking.
func (st *SearchTree) pop(pruned bool) bool {
	if !pruned {
		return st.commitLeft()
	}
	changed := st.backtrack()
	return st.commitRight() || changed
}

// commitLeft advances the deepest branch to its next child and deduces it
// into the current node.
func (st *SearchTree) commitLeft() bool {
	return st.a.Deduce(st.stack[len(st.stack)-1].Next())
}

// commitRight advances the deepest branch to the next sibling and replays
// the whole path from the root.
func (st *SearchTree) commitRight() bool {
	if len(st.stack) == 0 {
		return false
	}
	st.stack[len(st.stack)-1].Next()
	return st.replay()
}

// backtrack pops exhausted branches and restores the root. When branches
// remain, buffered root tells are applied to the restored root so the
// remaining nodes see them. When the path is exhausted the tree becomes
// bot, except that an inconsistent root is kept: it proves the remaining
// search space is empty, which optimization layers observe through IsTop.
func (st *SearchTree) backtrack() bool {
	for len(st.stack) > 0 && !st.stack[len(st.stack)-1].HasNext() {
		st.stack = st.stack[:len(st.stack)-1]
	}
	if len(st.stack) > 0 {
		st.a.Restore(st.rootSub)
		st.split.Restore(st.rootSplit)
		return st.deduceRoot()
	}
	if st.a != nil && !st.a.IsTop() {
		st.a = nil
		return true
	}
	return false
}

// deduceRoot applies the buffered tells to the root and re-snapshots it.
func (st *SearchTree) deduceRoot() bool {
	if len(st.rootSubTells) == 0 && len(st.rootSplitTells) == 0 {
		return false
	}
	changed := false
	for _, t := range st.rootSubTells {
		changed = st.a.Deduce(t) || changed
	}
	for _, t := range st.rootSplitTells {
		changed = st.split.Deduce(t) || changed
	}
	st.rootSubTells = nil
	st.rootSplitTells = nil
	st.rootSub = st.a.Snapshot()
	st.rootSplit = st.split.Snapshot()
	return changed
}

// replay re-applies every committed child tell from the root to the leaf.
func (st *SearchTree) replay() bool {
	changed := false
	for _, b := range st.stack {
		changed = st.a.Deduce(b.Current()) || changed
	}
	return changed
}

// Project returns the projection of x in the current node. An exhausted
// tree projects to the empty interval. Projection is defined at the root
// only; below the root the current node's projection is returned, which
// reflects the node under exploration rather than the whole tree.
func (st *SearchTree) Project(x AVar) Interval {
	if st.IsBot() {
		return EmptyInterval()
	}
	return st.a.Project(x)
}

// IsExtractable reports whether the current node is an under-approximation.
func (st *SearchTree) IsExtractable() bool {
	return !st.IsBot() && st.a.IsExtractable()
}

// Extract copies the current node into target. Extracting into another
// search tree produces a singleton tree holding the node.
func (st *SearchTree) Extract(target Domain) {
	if other, ok := target.(*SearchTree); ok {
		if other.a == nil {
			panic("SearchTree.Extract: target tree is exhausted")
		}
		st.a.Extract(other.a)
		other.stack = other.stack[:0]
		other.rootSubTells = nil
		other.rootSplitTells = nil
		return
	}
	st.a.Extract(target)
}

// CopyIn clones the tree; the sub-domain and split strategy clones are
// tracked so their sharing is preserved.
func (st *SearchTree) CopyIn(deps *AbstractDeps) Domain {
	clone := &SearchTree{aty: st.aty}
	deps.register(st, clone)
	clone.a = deps.Clone(st.a)
	clone.split = deps.cloneSplit(st.split)
	clone.stack = make([]*Branch, len(st.stack))
	for i, b := range st.stack {
		clone.stack[i] = b.clone()
	}
	clone.rootSub = st.rootSub
	clone.rootSplit = st.rootSplit
	clone.rootSubTells = append([]Tell(nil), st.rootSubTells...)
	clone.rootSplitTells = append([]Tell(nil), st.rootSplitTells...)
	return clone
}
