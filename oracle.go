package gridcalc

// Oracle is the single-threaded reference evaluator. It is the
// correctness baseline the Parallel evaluator is diff-tested against:
// same inputs, same edit sequence, same final values.
//
// Oracle does not detect cycles; a cyclic formula set causes unbounded
// recursion in evalCell. That is intentional — Oracle defines semantics
// for acyclic inputs only. Cycle rejection lives in detectCycle, which
// Parallel runs in buildPhaseA; Oracle itself never calls it.
type Oracle struct {
	ids *IdentTable

	formula    []Formula          // id -> formula
	dependents []map[CellId]bool  // id -> cells whose formula references id
	calculated []bool
	value      []int32
}

// NewOracle creates an Oracle sharing ids with whatever other evaluator
// it will be diff-tested against.
func NewOracle(ids *IdentTable) *Oracle {
	return &Oracle{ids: ids}
}

func (o *Oracle) grow(n int) {
	for len(o.formula) < n {
		o.formula = append(o.formula, nil)
		o.dependents = append(o.dependents, nil)
		o.calculated = append(o.calculated, false)
		o.value = append(o.value, 0)
	}
}

// InitialCalculate installs every input's formula, builds the reverse
// dependents map, then DFS-evaluates each cell: recurse into
// uncalculated predecessors first, then sum. Revisiting a calculated
// cell is a no-op.
func (o *Oracle) InitialCalculate(inputs []CellInput) error {
	o.grow(o.ids.Len())
	for _, in := range inputs {
		o.installFormula(in.Id, in.Formula)
	}
	for _, in := range inputs {
		o.evalCell(in.Id)
	}
	return nil
}

func (o *Oracle) installFormula(id CellId, f Formula) {
	o.grow(int(id) + 1)
	o.formula[id] = f
	for _, a := range f {
		if !a.IsRef {
			continue
		}
		o.grow(int(a.Ref) + 1)
		if o.dependents[a.Ref] == nil {
			o.dependents[a.Ref] = make(map[CellId]bool)
		}
		o.dependents[a.Ref][id] = true
	}
}

func (o *Oracle) evalCell(id CellId) {
	if o.calculated[id] {
		return
	}
	var sum int32
	for _, a := range o.formula[id] {
		if a.IsRef {
			o.evalCell(a.Ref)
			sum += o.value[a.Ref]
		} else {
			sum += a.Literal
		}
	}
	o.value[id] = sum
	o.calculated[id] = true
}

// ChangeCell removes id from the dependents of every cell its old
// formula referenced, installs newFormula, re-registers dependencies,
// then recomputes the transitive dependent closure (id plus every cell
// reachable via dependents) in DFS post-order, clearing `calculated`
// along the way before recomputing.
func (o *Oracle) ChangeCell(name string, newFormula Formula) error {
	id, ok := o.ids.Lookup(name)
	if !ok {
		return &UnknownCellError{Name: name}
	}
	o.grow(int(id) + 1)

	for _, a := range o.formula[id] {
		if a.IsRef && o.dependents[a.Ref] != nil {
			delete(o.dependents[a.Ref], id)
		}
	}
	o.installFormula(id, newFormula)

	visited := make(map[CellId]bool)
	var order []CellId
	var visit func(CellId)
	visit = func(c CellId) {
		if visited[c] {
			return
		}
		visited[c] = true
		for dep := range o.dependents[c] {
			visit(dep)
		}
		order = append(order, c)
	}
	visit(id)

	for _, c := range order {
		o.calculated[c] = false
	}
	for _, c := range order {
		o.evalCell(c)
	}
	return nil
}

// clone returns a deep copy of o's calculation state, sharing the same
// IdentTable. Used by property tests that replay edits from a snapshot
// without re-parsing input text for every run.
func (o *Oracle) clone() *Oracle {
	dup := &Oracle{
		ids:        o.ids,
		formula:    make([]Formula, len(o.formula)),
		dependents: make([]map[CellId]bool, len(o.dependents)),
		calculated: make([]bool, len(o.calculated)),
		value:      make([]int32, len(o.value)),
	}
	for i, f := range o.formula {
		dup.formula[i] = append(Formula(nil), f...)
	}
	for i, deps := range o.dependents {
		if deps == nil {
			continue
		}
		m := make(map[CellId]bool, len(deps))
		for k, v := range deps {
			m[k] = v
		}
		dup.dependents[i] = m
	}
	copy(dup.calculated, o.calculated)
	copy(dup.value, o.value)
	return dup
}

// GetCurrentValues returns name -> value for every interned cell.
func (o *Oracle) GetCurrentValues() map[string]int32 {
	out := make(map[string]int32, o.ids.Len())
	for id := 0; id < o.ids.Len(); id++ {
		out[o.ids.Name(CellId(id))] = o.value[id]
	}
	return out
}
