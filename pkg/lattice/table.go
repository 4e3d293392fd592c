// Package lattice provides constraint solving over abstract domains.
// This file defines Table, the extensional-constraint layer: a disjunction
// of rows of interval cells, propagated in reduced product with the
// underlying store.
package lattice

import "fmt"

const tableName = "Table"

// TableTell is the deduction payload of Table: either a sub-domain tell or
// a new table instance (header plus tell/ask rows).
type TableTell struct {
	Sub      Tell
	Header   []AVar
	TellRows [][]Interval
	AskRows  [][]Interval
}

// tableSnapshot captures the sub state, the instance count and the
// eliminated-row sets. Row elimination is search state, so it is rewound
// on restore.
type tableSnapshot struct {
	subSnap      DomainSnapshot
	numInstances int
	eliminated   []BitSet
}

// Table is an extensional constraint over interval cells: each instance is
// a disjunction of rows, a row a conjunction of per-column cells. All
// instances share one tell matrix and one ask matrix; an instance is a
// column renaming (its header) plus the set of rows it has eliminated.
//
// Propagation removes rows incompatible with the store and narrows each
// column's variable to the hull of the values the remaining rows allow — a
// reduced product between the table and the store.
type Table struct {
	aty AType
	sub Domain

	rows, cols int
	tellTable  []Interval // flattened rows x cols, shared by all instances
	askTable   []Interval

	headers    [][]AVar // per instance
	eliminated []BitSet // per instance
}

// NewTable creates an empty table layer over sub.
func NewTable(aty AType, sub Domain) *Table {
	return &Table{aty: aty, sub: sub}
}

// Aty returns the layer's abstract type.
func (t *Table) Aty() AType {
	return t.aty
}

// Sub returns the wrapped domain.
func (t *Table) Sub() Domain {
	return t.sub
}

// NumInstances returns the number of table instances told so far.
func (t *Table) NumInstances() int {
	return len(t.headers)
}

// IsBot reports whether neither the sub-domain nor the table carries
// information.
func (t *Table) IsBot() bool {
	return len(t.headers) == 0 && t.sub.IsBot()
}

// IsTop reports inconsistency: the sub-domain is inconsistent or some
// instance has eliminated all its rows.
func (t *Table) IsTop() bool {
	if t.sub.IsTop() {
		return true
	}
	for _, el := range t.eliminated {
		if t.rows > 0 && el.Count() == t.rows {
			return true
		}
	}
	return false
}

// Project delegates to the sub-domain.
func (t *Table) Project(x AVar) Interval {
	return t.sub.Project(x)
}

// Snapshot captures the sub state, instance count and eliminated rows.
func (t *Table) Snapshot() DomainSnapshot {
	eliminated := make([]BitSet, len(t.eliminated))
	for i, el := range t.eliminated {
		eliminated[i] = el.Clone()
	}
	return tableSnapshot{
		subSnap:      t.sub.Snapshot(),
		numInstances: len(t.headers),
		eliminated:   eliminated,
	}
}

// Restore reinstates a snapshot, dropping instances told since and
// rewinding row elimination.
func (t *Table) Restore(snap DomainSnapshot) {
	sn := snap.(tableSnapshot)
	t.sub.Restore(sn.subSnap)
	t.headers = t.headers[:sn.numInstances]
	t.eliminated = t.eliminated[:sn.numInstances]
	for i, el := range sn.eliminated {
		t.eliminated[i] = el.Clone()
	}
	if sn.numInstances == 0 {
		t.rows, t.cols = 0, 0
		t.tellTable, t.askTable = nil, nil
	}
}

// interpretCell translates a unary atom into its variable and interval.
func (t *Table) interpretCell(f *Formula, env *Env, diags *Diagnostics) (AVar, Interval, bool) {
	if NumVars(f) != 1 {
		diags.Error(tableName, f, "table cells must be unary formulas")
		return UntypedAVar(), Interval{}, false
	}
	store := &IntervalStore{}
	atom, ok := store.interpretAtom(f, env, diags)
	if !ok {
		return UntypedAVar(), Interval{}, false
	}
	return atom.X, atom.Itv, true
}

// interpretRows translates an Or of Ands of unary atoms into a header and
// rows of cells.
func (t *Table) interpretRows(f *Formula, env *Env, diags *Diagnostics) (*TableTell, bool) {
	tell := &TableTell{}
	for _, rowF := range f.Args {
		var atoms []*Formula
		switch {
		case rowF.Kind == FSeq && rowF.Sig == And:
			atoms = rowF.Args
		default:
			// A single atom is a one-column row.
			atoms = []*Formula{rowF}
		}
		tellRow := make([]Interval, len(tell.Header))
		askRow := make([]Interval, len(tell.Header))
		for i := range tellRow {
			tellRow[i] = EntireInterval()
			askRow[i] = EntireInterval()
		}
		for _, atom := range atoms {
			x, itv, ok := t.interpretCell(atom, env, diags)
			if !ok {
				return nil, false
			}
			col := -1
			for i, h := range tell.Header {
				if h == x {
					col = i
					break
				}
			}
			if col == -1 {
				// New column: extend the header and pad every row.
				col = len(tell.Header)
				tell.Header = append(tell.Header, x)
				for j := range tell.TellRows {
					tell.TellRows[j] = append(tell.TellRows[j], EntireInterval())
					tell.AskRows[j] = append(tell.AskRows[j], EntireInterval())
				}
				tellRow = append(tellRow, EntireInterval())
				askRow = append(askRow, EntireInterval())
			}
			tellRow[col] = tellRow[col].Meet(itv)
			askRow[col] = askRow[col].Meet(itv)
		}
		tell.TellRows = append(tell.TellRows, tellRow)
		tell.AskRows = append(tell.AskRows, askRow)
	}
	if len(tell.TellRows) == 0 {
		diags.Error(tableName, f, "table has no row")
		return nil, false
	}
	// Instances share one matrix; a new instance must match it.
	if t.askTable != nil {
		if len(tell.TellRows) != t.rows || len(tell.Header) != t.cols {
			diags.Error(tableName, f, "table shape %dx%d does not match the shared table %dx%d",
				len(tell.TellRows), len(tell.Header), t.rows, t.cols)
			return nil, false
		}
		for j, row := range tell.AskRows {
			for c, cell := range row {
				if !cell.Equal(t.askTable[j*t.cols+c]) {
					diags.Error(tableName, f, "table row %d differs from the shared table", j)
					return nil, false
				}
			}
		}
	}
	return tell, true
}

// InterpretTell translates a disjunction of conjunctions of unary atoms
// into a table instance. Any other formula, or a disjunction the table
// cannot represent, falls back to the sub-domain's interpretation.
func (t *Table) InterpretTell(f *Formula, env *Env, diags *Diagnostics) (Tell, bool) {
	if f.Kind == FSeq && f.Sig == Or {
		var tableDiags Diagnostics
		tell, ok := t.interpretRows(f, env, &tableDiags)
		if ok {
			return tell, true
		}
		sub, ok := t.sub.InterpretTell(f, env, diags)
		if !ok {
			diags.Merge(&tableDiags)
			return nil, false
		}
		return &TableTell{Sub: sub}, true
	}
	sub, ok := t.sub.InterpretTell(f, env, diags)
	if !ok {
		return nil, false
	}
	return &TableTell{Sub: sub}, true
}

// InterpretAsk delegates to the sub-domain.
func (t *Table) InterpretAsk(f *Formula, env *Env, diags *Diagnostics) (AskPayload, bool) {
	return t.sub.InterpretAsk(f, env, diags)
}

// Deduce applies a sub tell or registers a new table instance.
func (t *Table) Deduce(tl Tell) bool {
	switch tell := tl.(type) {
	case *TableTell:
		changed := false
		if tell.Sub != nil {
			changed = t.sub.Deduce(tell.Sub)
		}
		if len(tell.TellRows) > 0 {
			if t.askTable == nil {
				t.rows = len(tell.TellRows)
				t.cols = len(tell.Header)
				t.tellTable = make([]Interval, 0, t.rows*t.cols)
				t.askTable = make([]Interval, 0, t.rows*t.cols)
				for j := 0; j < t.rows; j++ {
					t.tellTable = append(t.tellTable, tell.TellRows[j]...)
					t.askTable = append(t.askTable, tell.AskRows[j]...)
				}
			}
			header := append([]AVar(nil), tell.Header...)
			t.headers = append(t.headers, header)
			t.eliminated = append(t.eliminated, NewBitSet(t.rows))
			changed = true
		}
		return changed
	case StoreTell:
		return t.sub.Deduce(tell)
	default:
		return t.sub.Deduce(tl)
	}
}

// Ask delegates to the sub-domain.
func (t *Table) Ask(a AskPayload) bool {
	return t.sub.Ask(a)
}

// NumDeductions returns one deduction per instance column.
func (t *Table) NumDeductions() int {
	return len(t.headers) * t.cols
}

// DeduceAt maps a deduction index to an (instance, column) refinement.
func (t *Table) DeduceAt(i int) bool {
	return t.RefineAt(i/t.cols, i%t.cols)
}

// RefineAt refines one column of one instance: rows whose cell is
// incompatible with the store are eliminated, and the column's variable is
// narrowed to the hull of the values the remaining rows allow.
func (t *Table) RefineAt(instance, col int) bool {
	header := t.headers[instance]
	el := t.eliminated[instance]
	x := header[col]
	current := t.sub.Project(x)
	u := EmptyInterval()
	changed := false
	for j := 0; j < t.rows; j++ {
		if el.Test(j) {
			continue
		}
		m := current.Meet(t.tellTable[j*t.cols+col])
		if m.IsEmpty() {
			el.Set(j)
			changed = true
			continue
		}
		u = u.Join(m)
	}
	return t.sub.Deduce(StoreTell{Atoms: []StoreAtom{{X: x, Itv: u}}}) || changed
}

// entailedInstance reports whether the instance has a row whose every cell
// contains the current projection of its column.
func (t *Table) entailedInstance(instance int) bool {
	header := t.headers[instance]
	for j := 0; j < t.rows; j++ {
		rowOK := true
		for c := 0; c < t.cols; c++ {
			if !t.askTable[j*t.cols+c].Contains(t.sub.Project(header[c])) {
				rowOK = false
				break
			}
		}
		if rowOK {
			return true
		}
	}
	return false
}

// Entailed reports whether every instance is entailed by the current
// store.
func (t *Table) Entailed() bool {
	for i := range t.headers {
		if !t.entailedInstance(i) {
			return false
		}
	}
	return true
}

// IsExtractable reports whether the sub-domain is extractable and every
// instance entailed.
func (t *Table) IsExtractable() bool {
	return !t.IsTop() && t.sub.IsExtractable() && t.Entailed()
}

// Extract copies the sub-domain solution into target.
func (t *Table) Extract(target Domain) {
	if other, ok := target.(*Table); ok {
		t.sub.Extract(other.sub)
		return
	}
	t.sub.Extract(target)
}

// CopyIn clones the layer; the sub-domain clone is tracked so sharing is
// preserved.
func (t *Table) CopyIn(deps *AbstractDeps) Domain {
	clone := &Table{aty: t.aty, rows: t.rows, cols: t.cols}
	deps.register(t, clone)
	clone.sub = deps.Clone(t.sub)
	clone.tellTable = append([]Interval(nil), t.tellTable...)
	clone.askTable = append([]Interval(nil), t.askTable...)
	clone.headers = make([][]AVar, len(t.headers))
	for i, h := range t.headers {
		clone.headers[i] = append([]AVar(nil), h...)
	}
	clone.eliminated = make([]BitSet, len(t.eliminated))
	for i, el := range t.eliminated {
		clone.eliminated[i] = el.Clone()
	}
	return clone
}

func (t *Table) String() string {
	return fmt.Sprintf("table{%d instances, %dx%d}", len(t.headers), t.rows, t.cols)
}
