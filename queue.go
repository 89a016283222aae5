package sigcore

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/goliboscore/sigcore/internal/lfring"
)

// SignalRecord owns one captured signal occurrence. It is allocated by the
// producer at enqueue time and freed (by the garbage collector, in this
// Go rendition — there is no explicit free()) once the consumer has
// dequeued and either built a frame from it or discarded it as ignored.
type SignalRecord struct {
	Info SigInfo
}

// signalLog is the per-thread, per-signal array of rings from spec.md §3
// ("Per-thread signal log"): one lfring.Ring[SignalRecord] per known
// signal number.
type signalLog struct {
	rings [NSIG]*lfring.Ring[SignalRecord]
}

func newSignalLog(capacity int) *signalLog {
	if capacity <= 0 {
		capacity = RingCapacity
	}
	l := &signalLog{}
	for i := range l.rings {
		l.rings[i] = lfring.New[SignalRecord](capacity)
	}
	return l
}

// enqueue is C1's enqueue(thread, sig, record) operation: reserve a slot,
// and on success bump the has-signal counter and raise the may-deliver
// flag. Returns false ("full") if the ring had no room; the caller is
// responsible for diagnosing the drop (router.go / signal_core.go do
// this, matching spec.md §7's queue-overflow taxonomy).
func (t *Thread) enqueue(sig unix.Signal, rec *SignalRecord) bool {
	if sig <= 0 || int(sig) >= NSIG {
		return false
	}
	if !t.log.rings[sig-1].Push(rec) {
		return false
	}
	atomic.AddInt64(&t.hasSignal, 1)
	t.setMayDeliver()
	return true
}

// dequeue is C1's dequeue(thread, sig) operation.
func (t *Thread) dequeue(sig unix.Signal) *SignalRecord {
	if sig <= 0 || int(sig) >= NSIG {
		return nil
	}
	rec := t.log.rings[sig-1].Pop()
	if rec == nil {
		return nil
	}
	atomic.AddInt64(&t.hasSignal, -1)
	return rec
}

// drainQueue discards every currently queued record for sig without
// delivering them, used when a signal resolves to "ignore" (get_signal_to_
// deliver's "drain the queue" branch).
func (t *Thread) drainQueue(sig unix.Signal) {
	for t.dequeue(sig) != nil {
	}
}

// HasSignal reports the thread's has-signal counter, matching spec.md's
// fast-path test ("Zero implies no work").
func (t *Thread) HasSignal() bool {
	return atomic.LoadInt64(&t.hasSignal) != 0
}
