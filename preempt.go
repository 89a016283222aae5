package sigcore

import "sync/atomic"

// DisablePreempt increments the thread's preempt counter, forbidding the
// delivery engine from running until it drops back to ≤ 1 (spec.md §4.7).
// Returns the post-increment value.
func (t *Thread) DisablePreempt() int32 {
	return atomic.AddInt32(&t.preempt, 1)
}

// EnablePreempt decrements the preempt counter.
func (t *Thread) EnablePreempt() int32 {
	return atomic.AddInt32(&t.preempt, -1)
}

// preemptAllows reports whether the delivery engine may run right now.
func (t *Thread) preemptAllows() bool {
	return atomic.LoadInt32(&t.preempt) <= 1
}

// clearMayDeliver lowers the may-deliver flag, returning its previous
// value. Used at the top of sysret handling, per the clear-test-set
// discipline spec.md §4.7 specifies.
func (t *Thread) clearMayDeliver() bool {
	return atomic.SwapInt32(&t.mayDeliver, 0) != 0
}

// resyncMayDeliver re-raises the may-deliver flag if the has-signal
// counter is still non-zero, closing the race with a concurrent producer
// that enqueued between the clear and this check.
func (t *Thread) resyncMayDeliver() {
	if t.HasSignal() {
		t.setMayDeliver()
	}
}

// mayDeliverNow reports the current may-deliver flag value without
// mutating it.
func (t *Thread) mayDeliverNow() bool {
	return atomic.LoadInt32(&t.mayDeliver) != 0
}
