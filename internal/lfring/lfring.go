// Package lfring implements a bounded, lock-free, single-consumer /
// multi-producer ring buffer.
//
// The CAS-loop shape (load the index, compute the next value, retry on a
// failed compare-and-swap) is adapted from the teacher's
// runtime/lfstack.go, rewritten against the portable sync/atomic package
// instead of the runtime-internal one, and changed from an unbounded
// intrusive stack to a bounded ring with independent head/tail cursors
// (the shape spec.md's signal queue actually needs).
package lfring

import (
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// NextPow2 rounds n up to the smallest power of two >= n, clamping to 1 for
// n <= 0. Shared by New and by callers (config.go's capacity option) that
// need to report the capacity a given size will actually round up to.
func NextPow2[T constraints.Integer](n T) T {
	if n <= 0 {
		return 1
	}
	var out T = 1
	for out < n {
		out <<= 1
	}
	return out
}

// Ring is a bounded ring buffer of capacity cap (a power of two), safe for
// any number of concurrent producers calling Push and exactly one consumer
// calling Pop.
//
// The zero value is not usable; construct with New.
type Ring[E any] struct {
	slots []atomic.Pointer[E]
	mask  uint64
	head  uint64 // advanced only by the consumer
	tail  uint64 // advanced by producers via CAS
}

// New constructs a Ring whose capacity is the smallest power of two >= size.
func New[E any](size int) *Ring[E] {
	cap := NextPow2(size)
	return &Ring[E]{
		slots: make([]atomic.Pointer[E], cap),
		mask:  uint64(cap - 1),
	}
}

// Cap returns the ring's capacity.
func (r *Ring[E]) Cap() int { return len(r.slots) }

// Push reserves the next slot by CAS-advancing tail, then publishes val
// into it. It returns false if the ring was full at the time of the
// reservation attempt (the caller owns val's disposal in that case).
//
// Publication happens strictly after the CAS succeeds, matching the
// contract in spec.md §3: "the producer must publish the record pointer
// into slots[old_tail] after the CAS".
func (r *Ring[E]) Push(val *E) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		head := atomic.LoadUint64(&r.head)
		if tail-head >= uint64(len(r.slots)) {
			return false
		}
		if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
			r.slots[tail&r.mask].Store(val)
			return true
		}
	}
}

// Pop removes and returns the oldest published element, or nil if the ring
// is empty or the slot reserved by a concurrent producer has not yet been
// published (treated as empty "at this moment", per spec.md §3's
// not-yet-published race rule — the caller is expected to retry later via
// the normal has-signal-counter poll, not spin here).
func (r *Ring[E]) Pop() *E {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head == tail {
		return nil
	}
	slot := &r.slots[head&r.mask]
	val := slot.Load()
	if val == nil {
		return nil
	}
	slot.Store(nil)
	atomic.AddUint64(&r.head, 1)
	return val
}

// Len reports the number of elements currently reserved (including any not
// yet published by a racing producer). It is a snapshot, not a guarantee.
func (r *Ring[E]) Len() int {
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	return int(tail - head)
}
