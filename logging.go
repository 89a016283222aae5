package sigcore

import (
	"github.com/joeycumines/go-utilpkg/logiface"
	"github.com/joeycumines/go-utilpkg/logiface/stumpy"
	"golang.org/x/sys/unix"
)

// log is the package-level structured logger used for the diagnostics
// spec.md §7 names: internal faults, queue overflows, allocation
// failures. It is deliberately package-level rather than per-Thread,
// since these are process-wide events by nature (a paused internal
// thread, a dropped signal); SetLogger is the supported way to replace
// it.
var log = logiface.New[*stumpy.Event](stumpy.L.WithStumpy())

// logInternalFault reports an internal fault per spec.md §7: an event
// whose interrupted IP lands inside LibOS or PAL code, or whose thread is
// an internal LibOS thread. This is always fatal — the caller pauses the
// thread after logging.
func logInternalFault(event Event, tid int32, ip uintptr) {
	log.Crit().Int("event", int(event)).Int("tid", int(tid)).Uint64("ip", uint64(ip)).
		Log("internal fault: interrupted IP inside LibOS/PAL code")
}

// logQueueOverflow reports a dropped signal record (spec.md §7's "Queue
// overflow"): the queue for (tid, sig) was full, so the incoming
// occurrence is discarded without a kill.
func logQueueOverflow(tid int32, sig unix.Signal) {
	log.Warning().Int("tid", int(tid)).Int("signo", int(sig)).
		Log("signal queue full, dropping record")
}

// logAllocationFailure reports spec.md §7's "Allocation failure building a
// signal record": the producer silently drops the signal without
// queueing it, after this diagnostic.
func logAllocationFailure(tid int32, sig unix.Signal) {
	log.Err().Int("tid", int(tid)).Int("signo", int(sig)).
		Log("failed to allocate signal record, dropping signal")
}

// SetLogger replaces the package-level logger, letting an embedding LibOS
// route these diagnostics into its own log sink.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	if l != nil {
		log = l
	}
}
