package gridcalc

import "sync/atomic"

// Addend is a tagged variant: a formula term is either a literal int32
// or a reference to another cell. Exactly one of the two fields is
// meaningful; IsRef selects which.
type Addend struct {
	IsRef   bool
	Literal int32
	Ref     CellId
}

// LiteralAddend builds an Addend from a literal integer.
func LiteralAddend(v int32) Addend { return Addend{Literal: v} }

// RefAddend builds an Addend that references another cell.
func RefAddend(id CellId) Addend { return Addend{IsRef: true, Ref: id} }

// Formula is an ordered sum of addends; the cell's value is the wrapping
// signed 32-bit sum evaluated left to right.
type Formula []Addend

// HasRefs reports whether the formula references any other cell. A
// formula with no references is a starting cell: it can be evaluated
// without waiting on any predecessor.
func (f Formula) HasRefs() bool {
	for _, a := range f {
		if a.IsRef {
			return true
		}
	}
	return false
}

// cellState packs {calculated bool, value int32} into a single 64-bit
// word so the pair is read and written atomically as one unit. Bit 32
// holds the calculated flag; bits 0-31 hold the value's bit pattern.
// Without packing, a reader could observe a torn (calculated=true,
// value=stale) combination between two separate atomic operations.
type cellState uint64

const calculatedBit = uint64(1) << 32

func packState(calculated bool, value int32) cellState {
	w := uint64(uint32(value))
	if calculated {
		w |= calculatedBit
	}
	return cellState(w)
}

func (s cellState) calculated() bool { return uint64(s)&calculatedBit != 0 }
func (s cellState) value() int32     { return int32(uint32(s)) }

// CellSlot is the per-cell record owned by the CellStore. Name and
// Formula are immutable/caller-mutated outside evaluator runs; state and
// unresolved are the only fields the evaluator mutates while running.
type CellSlot struct {
	name    string
	formula Formula

	state      atomic.Uint64 // packed cellState
	unresolved atomic.Int32  // predecessors not yet calculated
}

// Value returns the slot's current value and whether it has been
// calculated yet.
func (s *CellSlot) Value() (int32, bool) {
	st := cellState(s.state.Load())
	return st.value(), st.calculated()
}

// tryCalculate attempts the single-winner transition from
// (calculated=false, *) to (calculated=true, v). Reports whether this
// call won the race; losers discard their computed sum.
func (s *CellSlot) tryCalculate(v int32) bool {
	for {
		old := s.state.Load()
		if cellState(old).calculated() {
			return false
		}
		if s.state.CompareAndSwap(old, uint64(packState(true, v))) {
			return true
		}
	}
}

// tryInvalidate attempts the single-winner transition from
// (calculated=true, *) back to (calculated=false, 0), the CAS at the
// heart of the edit-time invalidation BFS. Reports
// whether this call performed the transition; a losing or already-false
// slot reports false so the BFS does not revisit it.
func (s *CellSlot) tryInvalidate() bool {
	for {
		old := s.state.Load()
		if !cellState(old).calculated() {
			return false
		}
		if s.state.CompareAndSwap(old, 0) {
			return true
		}
	}
}

// CellStore is a dense indexed collection of CellSlot, one per CellId.
type CellStore struct {
	slots []*CellSlot
}

func newCellStore(n int) *CellStore {
	return &CellStore{slots: make([]*CellSlot, n)}
}

// Ensure idempotently creates or replaces the slot at index id with a
// fresh, uncalculated slot holding name/formula.
func (cs *CellStore) Ensure(id CellId, name string, formula Formula) {
	cs.grow(int(id) + 1)
	cs.slots[id] = &CellSlot{name: name, formula: formula}
}

// Slot returns the slot at id. Panics on an id outside the store, same
// contract as IdentTable.Name.
func (cs *CellStore) Slot(id CellId) *CellSlot {
	return cs.slots[id]
}

// Count returns the number of slots in the store.
func (cs *CellStore) Count() int {
	return len(cs.slots)
}

func (cs *CellStore) grow(n int) {
	if n <= len(cs.slots) {
		return
	}
	next := make([]*CellSlot, n)
	copy(next, cs.slots)
	cs.slots = next
}
