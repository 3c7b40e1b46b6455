package gridcalc

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cellmesh/gridcalc/internal/queue"
	"github.com/cellmesh/gridcalc/internal/workerpool"
)

// Parallel is the concurrent queue-driven evaluator: a lock-free,
// bottom-up dependency-graph walker that performs both the initial
// bulk evaluation and, after ChangeCell, incremental recomputation with
// fallback to a full rerun when the affected fraction is large.
//
// Parallel owns all mutation of cell state during a run; it never
// observes a concurrent formula edit, and no goroutine it spawns
// outlives the InitialCalculate/ChangeCell call that spawned it.
type Parallel struct {
	ids *IdentTable
	cfg Config

	store *CellStore
	dag   *DAG

	calculatedCount atomic.Int64
	cellCount       int

	// lastFallbackTriggered is test-only instrumentation: whether the
	// most recent ChangeCell discarded invalidation state and reran the
	// full bulk evaluation.
	lastFallbackTriggered atomic.Bool
}

// NewParallel creates a Parallel evaluator sharing ids with whatever
// other evaluator it is diff-tested against.
func NewParallel(ids *IdentTable, cfg Config) *Parallel {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.FallbackRatio <= 0 {
		cfg.FallbackRatio = DefaultConfig().FallbackRatio
	}
	return &Parallel{ids: ids, cfg: cfg}
}

// InitialCalculate builds the store and DAG, seeds the queue with every
// starting cell (one with no predecessors), then drains until every
// cell is calculated.
func (p *Parallel) InitialCalculate(inputs []CellInput) error {
	runID := uuid.New()
	start := time.Now()
	log.Printf("[gridcalc %s] initial calculate: %d cells, %d workers", runID, len(inputs), p.cfg.NumWorkers)

	if len(inputs) == 0 {
		p.store = newCellStore(0)
		p.dag = newDAG(0)
		p.cellCount = 0
		p.calculatedCount.Store(0)
		return nil
	}

	store, dag, starting, err := p.buildPhaseA(inputs)
	if err != nil {
		return err
	}
	p.store = store
	p.dag = dag
	p.cellCount = store.Count()
	p.calculatedCount.Store(0)

	q := queue.NewRing(p.cellCount + 1)
	for _, id := range starting {
		q.Push(int32(id))
	}

	p.drain(q)

	log.Printf("[gridcalc %s] initial calculate done in %v (%d cells)", runID, time.Since(start), p.cellCount)
	return nil
}

// buildPhaseA sizes storage to ids.Len() slots (one per interned name,
// which equals len(inputs) when every interned name has exactly one
// input) and, for each input, installs a fresh slot and wires
// predecessor edges. Each input writes a distinct slot, and inputs that
// share a predecessor serialize on that bucket's mutex, so the edge
// wiring is split across the worker pool.
func (p *Parallel) buildPhaseA(inputs []CellInput) (*CellStore, *DAG, []CellId, error) {
	if cerr := detectCycle(p.ids, inputs); cerr != nil {
		return nil, nil, nil, cerr
	}

	n := p.ids.Len()
	store := newCellStore(n)
	dag := newDAG(n)

	for _, in := range inputs {
		store.Ensure(in.Id, in.Name, in.Formula)
	}

	var startingMu sync.Mutex
	var starting []CellId

	numWorkers := p.cfg.NumWorkers
	if numWorkers > len(inputs) {
		numWorkers = len(inputs)
	}
	chunkSize := (len(inputs) + numWorkers - 1) / numWorkers

	_ = workerpool.Run(context.Background(), numWorkers, func(_ context.Context, workerID int) error {
		lo := workerID * chunkSize
		if lo >= len(inputs) {
			return nil
		}
		hi := lo + chunkSize
		if hi > len(inputs) {
			hi = len(inputs)
		}

		var local []CellId
		for _, in := range inputs[lo:hi] {
			slot := store.Slot(in.Id)
			for _, a := range in.Formula {
				if a.IsRef {
					dag.AddEdge(a.Ref, in.Id)
					slot.unresolved.Add(1)
				}
			}
			if !in.Formula.HasRefs() {
				local = append(local, in.Id)
			}
		}
		if len(local) > 0 {
			startingMu.Lock()
			starting = append(starting, local...)
			startingMu.Unlock()
		}
		return nil
	})

	return store, dag, starting, nil
}

// drain spawns cfg.NumWorkers workers (one per hardware thread by
// default), each popping ready cells
// off q and evaluating them, until calculatedCount reaches cellCount.
// Shared by both InitialCalculate's bulk drain and ChangeCell's
// edit-seeded drain.
func (p *Parallel) drain(q *queue.Ring) {
	target := int64(p.cellCount)
	if p.calculatedCount.Load() >= target {
		return
	}

	_ = workerpool.Run(context.Background(), p.cfg.NumWorkers, func(_ context.Context, _ int) error {
		for p.calculatedCount.Load() < target {
			id, ok := q.Pop()
			if !ok {
				continue // transient empty queue; busy-retry
			}
			p.evaluateOne(CellId(id), q)
		}
		return nil
	})
}

// evaluateOne sums id's formula, wins the CAS to mark it calculated,
// then decrements the unresolved count of every live dependent,
// enqueuing any that reach zero. Shared by both InitialCalculate and
// ChangeCell's drain.
func (p *Parallel) evaluateOne(id CellId, q *queue.Ring) {
	slot := p.store.Slot(id)
	if _, calculated := slot.Value(); calculated {
		return
	}

	var sum int32
	for _, a := range slot.formula {
		if a.IsRef {
			// Invariant: a cell is enqueued only after its unresolved
			// count reaches zero, which only happens once every live
			// predecessor has won its tryCalculate below. So every
			// predecessor here is already calculated.
			v, _ := p.store.Slot(a.Ref).Value()
			sum += v
		} else {
			sum += a.Literal
		}
	}

	if !slot.tryCalculate(sum) {
		return // another worker won the race
	}
	p.calculatedCount.Add(1)

	for _, e := range p.dag.Neighbors(id) {
		if e.Tombstoned {
			continue
		}
		next := p.store.Slot(e.To)
		if _, calculated := next.Value(); calculated {
			continue
		}
		if next.unresolved.Add(-1) == 0 {
			for !q.Push(int32(e.To)) {
				// ring momentarily full; retry, mirroring the
				// busy-retry discipline of the dequeue side
			}
		}
	}
}

// GetCurrentValues returns name -> value for every slot. Must not be
// called concurrently with InitialCalculate or ChangeCell.
func (p *Parallel) GetCurrentValues() map[string]int32 {
	out := make(map[string]int32, p.cellCount)
	for id := 0; id < p.cellCount; id++ {
		v, _ := p.store.Slot(CellId(id)).Value()
		out[p.ids.Name(CellId(id))] = v
	}
	return out
}

// LastFallbackTriggered reports whether the most recent ChangeCell
// discarded invalidation state for a full bulk rerun. Test-only
// instrumentation.
func (p *Parallel) LastFallbackTriggered() bool {
	return p.lastFallbackTriggered.Load()
}
