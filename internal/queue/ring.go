// Package queue implements a bounded lock-free multi-producer
// multi-consumer ring buffer of CellIds, the concurrent queue the
// parallel evaluator drains.
//
// The algorithm is the classic bounded MPMC queue
// (1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue):
// each slot carries a sequence number alongside its value so a
// producer/consumer can tell, with a single atomic load, whether the
// slot is currently theirs to claim. Producers and consumers each own a
// single CAS on a shared head/tail counter; losers just retry.
package queue

import "sync/atomic"

type cell struct {
	seq   uint64
	value int32
}

// Ring is a fixed-capacity MPMC queue of int32 (CellId values). Capacity
// is rounded up to the next power of two.
type Ring struct {
	mask uint64
	buf  []cell
	head atomic.Uint64
	tail atomic.Uint64
}

// NewRing creates a ring able to hold at least capacity elements without
// blocking a producer.
func NewRing(capacity int) *Ring {
	n := uint64(1)
	for n < uint64(capacity) {
		n <<= 1
	}
	buf := make([]cell, n)
	for i := range buf {
		buf[i].seq = uint64(i)
	}
	return &Ring{mask: n - 1, buf: buf}
}

// Push enqueues v. Reports false if the ring is full; callers
// busy-retry rather than block.
func (r *Ring) Push(v int32) bool {
	for {
		tail := r.tail.Load()
		slot := &r.buf[tail&r.mask]
		seq := atomic.LoadUint64(&slot.seq)
		diff := int64(seq) - int64(tail)
		if diff == 0 {
			if r.tail.CompareAndSwap(tail, tail+1) {
				slot.value = v
				atomic.StoreUint64(&slot.seq, tail+1)
				return true
			}
			continue
		}
		if diff < 0 {
			return false // full
		}
		// another producer claimed this slot first; re-read tail
	}
}

// Pop dequeues the oldest element. Reports false if the ring is
// currently empty — a transient condition during drain, a terminal one
// at completion.
func (r *Ring) Pop() (int32, bool) {
	for {
		head := r.head.Load()
		slot := &r.buf[head&r.mask]
		seq := atomic.LoadUint64(&slot.seq)
		diff := int64(seq) - int64(head+1)
		if diff == 0 {
			if r.head.CompareAndSwap(head, head+1) {
				v := slot.value
				atomic.StoreUint64(&slot.seq, head+r.mask+1)
				return v, true
			}
			continue
		}
		if diff < 0 {
			return 0, false // empty
		}
	}
}
