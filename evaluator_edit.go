package gridcalc

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cellmesh/gridcalc/internal/queue"
	"github.com/cellmesh/gridcalc/internal/workerpool"
)

// ChangeCell implements the five-step edit recomputation: rewire the
// DAG, find the affected set via a parallel BFS, fall back to a full
// bulk rerun if that set is too large, recompute unresolved counts for
// the affected set, then drain seeded with just the edited cell.
func (p *Parallel) ChangeCell(name string, newFormula Formula) error {
	id, ok := p.ids.Lookup(name)
	if !ok || int(id) >= p.store.Count() || p.store.Slot(id) == nil {
		return &UnknownCellError{Name: name}
	}

	runID := uuid.New()
	start := time.Now()
	p.lastFallbackTriggered.Store(false)

	slot := p.store.Slot(id)
	oldFormula := slot.formula

	// Step 0: reject any ref the store has no slot for (a name interned
	// by the parser but never part of a prior InitialCalculate/ChangeCell)
	// before the cycle check below gets a chance to misattribute it as a
	// cyclic reference, and before rejecting a cycle the edit would
	// introduce. The ref check only looks at newFormula; the cycle check
	// runs against live DAG edges rather than rebuilding the whole cell
	// set, so its cost scales with id's current dependent fan-out, not
	// with cellCount. An edit either check rejects never reaches the
	// rewire below, so it leaves the graph and cell states untouched.
	for _, a := range newFormula {
		if a.IsRef && (int(a.Ref) >= p.store.Count() || p.store.Slot(a.Ref) == nil) {
			return &UnknownCellError{Name: p.ids.Name(a.Ref)}
		}
	}
	if p.wouldIntroduceCycle(id, newFormula) {
		return &CycleError{Cells: []string{name}}
	}

	// Step 1: rewire the DAG.
	for _, a := range oldFormula {
		if a.IsRef {
			p.dag.TombstoneEdges(a.Ref, id)
		}
	}
	slot.formula = newFormula
	for _, a := range newFormula {
		if a.IsRef {
			p.dag.AddEdge(a.Ref, id)
		}
	}

	// Step 2: find the affected set.
	needRecalc := p.findAffectedSet(id)

	// Step 3: fallback test.
	threshold := p.cfg.FallbackRatio * float64(p.cellCount)
	if float64(len(needRecalc)) > threshold {
		log.Printf("[gridcalc %s] change %s: %d/%d cells affected (> %.0f%%), falling back to full recalculation",
			runID, name, len(needRecalc), p.cellCount, p.cfg.FallbackRatio*100)
		p.lastFallbackTriggered.Store(true)
		return p.fallbackFullRecalculate(runID)
	}

	// Step 4: recompute unresolved counts for the affected set.
	for _, cid := range needRecalc {
		s := p.store.Slot(cid)
		var unresolved int32
		for _, a := range s.formula {
			if a.IsRef {
				if _, calc := p.store.Slot(a.Ref).Value(); !calc {
					unresolved++
				}
			}
		}
		s.unresolved.Store(unresolved)
	}

	// Step 5: drain, seeded with only the edited cell. Every other
	// invalidated cell is enqueued when its last unresolved
	// predecessor completes, so seeding just the edited cell is
	// sufficient.
	p.calculatedCount.Store(int64(p.cellCount - len(needRecalc)))
	q := queue.NewRing(len(needRecalc) + 1)
	q.Push(int32(id))
	p.drain(q)

	log.Printf("[gridcalc %s] change %s done in %v (%d cells recalculated)", runID, name, time.Since(start), len(needRecalc))
	return nil
}

// findAffectedSet runs a parallel BFS from the edited cell: dequeue a
// cell, CAS its state from (true,*) to (false,0); on success, record it
// and enqueue every live, non-tombstoned, still-calculated dependent.
//
// Worker termination uses a two-phase quiescence protocol: a worker
// only counts itself idle on the transition into an empty observation
// (not on every spin), counts itself busy again the moment it dequeues
// real work, and the worker that pushes the idle counter to the full
// worker count re-checks the queue once before declaring the BFS done.
func (p *Parallel) findAffectedSet(edited CellId) []CellId {
	q := queue.NewRing(p.cellCount + 1)
	q.Push(int32(edited))

	var mu sync.Mutex
	var need []CellId
	var idle atomic.Int32
	var finished atomic.Bool

	numWorkers := p.cfg.NumWorkers
	if numWorkers > p.cellCount+1 {
		numWorkers = p.cellCount + 1
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	process := func(cid CellId) {
		if !p.store.Slot(cid).tryInvalidate() {
			return
		}
		mu.Lock()
		need = append(need, cid)
		mu.Unlock()
		for _, e := range p.dag.Neighbors(cid) {
			if e.Tombstoned {
				continue
			}
			if _, calc := p.store.Slot(e.To).Value(); calc {
				for !q.Push(int32(e.To)) {
				}
			}
		}
	}

	_ = workerpool.Run(context.Background(), numWorkers, func(_ context.Context, _ int) error {
		wasIdle := false
		for {
			if finished.Load() {
				return nil
			}
			v, ok := q.Pop()
			if !ok {
				if !wasIdle {
					wasIdle = true
					if idle.Add(1) == int32(numWorkers) {
						if v2, ok2 := q.Pop(); ok2 {
							idle.Add(-1)
							wasIdle = false
							process(CellId(v2))
						} else {
							finished.Store(true)
							return nil
						}
					}
				}
				continue
			}
			if wasIdle {
				idle.Add(-1)
				wasIdle = false
			}
			process(CellId(v))
		}
	})

	return need
}

// wouldIntroduceCycle reports whether adding edit's new references to
// the live DAG would close a cycle back to id, without rebuilding or
// scanning the full cell set: a forward BFS from id over live edges
// only, bounded by id's current dependent fan-out rather than
// cellCount. A self-reference (newFormula referencing id) is always a
// cycle and is checked directly, since id has no outgoing edge to
// itself to discover via the BFS.
func (p *Parallel) wouldIntroduceCycle(id CellId, newFormula Formula) bool {
	refs := make(map[CellId]bool, len(newFormula))
	for _, a := range newFormula {
		if !a.IsRef {
			continue
		}
		if a.Ref == id {
			return true
		}
		refs[a.Ref] = true
	}
	if len(refs) == 0 {
		return false
	}

	visited := map[CellId]bool{id: true}
	frontier := []CellId{id}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, e := range p.dag.Neighbors(cur) {
			if e.Tombstoned {
				continue
			}
			if refs[e.To] {
				return true
			}
			if !visited[e.To] {
				visited[e.To] = true
				frontier = append(frontier, e.To)
			}
		}
	}
	return false
}

// currentInputs reconstructs the full CellInput set from the store's
// live formulas. Used to rebuild buildPhaseA's input shape for a full
// fallback recalculation, where the cost is already accepted because
// the affected set crossed the fallback-ratio threshold; by the time
// this runs, ChangeCell's Step 1 has already rewired the edited cell's
// formula in place, so the store already reflects the edit.
func (p *Parallel) currentInputs() []CellInput {
	inputs := make([]CellInput, p.cellCount)
	for id := 0; id < p.cellCount; id++ {
		inputs[id] = CellInput{Id: CellId(id), Name: p.ids.Name(CellId(id)), Formula: p.store.Slot(CellId(id)).formula}
	}
	return inputs
}

// fallbackFullRecalculate discards all invalidation state and reruns
// the initial-calculation build-and-drain sequence over the current
// formulas.
func (p *Parallel) fallbackFullRecalculate(runID uuid.UUID) error {
	inputs := p.currentInputs()

	store, dag, starting, err := p.buildPhaseA(inputs)
	if err != nil {
		return err
	}
	p.store = store
	p.dag = dag
	p.calculatedCount.Store(0)

	q := queue.NewRing(p.cellCount + 1)
	for _, id := range starting {
		q.Push(int32(id))
	}
	p.drain(q)

	log.Printf("[gridcalc %s] fallback full recalculation complete", runID)
	return nil
}
