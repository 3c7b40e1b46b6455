package gridcalc

// detectCycle runs Kahn's algorithm over the formula set's reference
// graph before Parallel builds its store and DAG, reporting a cyclic formula
// set up front instead of letting the drain loop hang on it forever.
// It never enqueues into the production queue used by Parallel's
// drain — it works off its own scratch slices — so it cannot
// interfere with the invariant that the only enqueue sites are the
// unresolved-to-zero transition and the edited-cell seed.
func detectCycle(ids *IdentTable, inputs []CellInput) *CycleError {
	n := ids.Len()
	indegree := make([]int, n)
	dependents := make([][]CellId, n)

	for _, in := range inputs {
		for _, a := range in.Formula {
			if a.IsRef {
				indegree[in.Id]++
				dependents[a.Ref] = append(dependents[a.Ref], in.Id)
			}
		}
	}

	queue := make([]CellId, 0, len(inputs))
	for _, in := range inputs {
		if indegree[in.Id] == 0 {
			queue = append(queue, in.Id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[c] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited == len(inputs) {
		return nil
	}

	var stranded []string
	for _, in := range inputs {
		if indegree[in.Id] > 0 {
			stranded = append(stranded, in.Name)
		}
	}
	return &CycleError{Cells: stranded}
}
