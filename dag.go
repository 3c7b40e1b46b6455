package gridcalc

import "sync"

// Edge is a forward edge predecessor -> dependent. Tombstoned is set at
// edit time rather than physically removing the edge, so concurrent
// readers never observe a shrinking slice.
type Edge struct {
	To         CellId
	Tombstoned bool
}

// bucket is the per-predecessor edge list. A plain mutex guards append
// during the parallel DAG build; contention is low because each
// predecessor's bucket is only touched by cells that reference it, and
// tombstoning at edit time only ever flips a bit already present in
// the slice, never resizes it concurrently with a reader.
type bucket struct {
	mu    sync.Mutex
	edges []Edge
}

// DAG holds, for every CellId, the forward edges to its dependents.
// buckets holds one *bucket per CellId so growing the slice copies
// pointers, never the embedded mutex.
type DAG struct {
	buckets []*bucket
}

func newDAG(n int) *DAG {
	buckets := make([]*bucket, n)
	for i := range buckets {
		buckets[i] = &bucket{}
	}
	return &DAG{buckets: buckets}
}

func (d *DAG) grow(n int) {
	if n <= len(d.buckets) {
		return
	}
	next := make([]*bucket, n)
	copy(next, d.buckets)
	for i := len(d.buckets); i < n; i++ {
		next[i] = &bucket{}
	}
	d.buckets = next
}

// AddEdge appends a live edge from -> to. Safe to call concurrently for
// distinct "from" values; calls sharing a "from" serialize on that
// bucket's mutex.
func (d *DAG) AddEdge(from, to CellId) {
	b := d.buckets[from]
	b.mu.Lock()
	b.edges = append(b.edges, Edge{To: to})
	b.mu.Unlock()
}

// TombstoneEdges marks tombstoned every edge from -> victim. Used at
// edit time, before any worker starts, so no concurrent reader races
// the write.
func (d *DAG) TombstoneEdges(from, victim CellId) {
	b := d.buckets[from]
	b.mu.Lock()
	for i := range b.edges {
		if b.edges[i].To == victim {
			b.edges[i].Tombstoned = true
		}
	}
	b.mu.Unlock()
}

// Neighbors returns a snapshot of all edges from id, tombstoned or not;
// callers must check Edge.Tombstoned themselves.
func (d *DAG) Neighbors(from CellId) []Edge {
	b := d.buckets[from]
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Edge, len(b.edges))
	copy(out, b.edges)
	return out
}
