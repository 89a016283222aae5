package sigcore

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

// ipOf extracts the interrupted instruction pointer from a PAL context,
// or 0 if no context was supplied (some upcalls, e.g. a pure inter-thread
// quit notification, may not carry one).
func ipOf(ctx *Context) uintptr {
	if ctx == nil {
		return 0
	}
	return uintptr(ctx.Regs.RIP)
}

// ErrNoPAL is returned by InitSignal when the thread has no PAL
// configured to register upcalls with.
var ErrNoPAL = errors.New("sigcore: thread has no PAL configured")

// InitSignal implements init_signal (§6): registers this thread's six
// PAL exception upcalls. The write-fault bit for EventMemFault is read
// from the interrupted context's error-code field (bit 1 of ERR, the
// x86-64 page-fault error code layout).
func (t *Thread) InitSignal() error {
	if t.pal == nil {
		return ErrNoPAL
	}

	t.pal.SetExceptionHandler(EventArithmetic, func(_ Event, arg uintptr, ctx *Context) {
		t.OnArithmeticFault(ipOf(ctx), arg, ctx)
	})
	t.pal.SetExceptionHandler(EventMemFault, func(_ Event, arg uintptr, ctx *Context) {
		write := ctx != nil && ctx.Regs.ERR&2 != 0
		t.OnMemoryFault(ipOf(ctx), arg, write, ctx)
	})
	t.pal.SetExceptionHandler(EventIllegal, func(_ Event, arg uintptr, ctx *Context) {
		ip := ipOf(ctx)
		var opcode [2]byte
		if b0, faulted := t.pal.ProbeReadByte(ip); !faulted {
			opcode[0] = b0
		}
		if b1, faulted := t.pal.ProbeReadByte(ip + 1); !faulted {
			opcode[1] = b1
		}
		t.OnIllegalInstruction(ip, opcode, ctx)
	})
	t.pal.SetExceptionHandler(EventQuit, func(_ Event, arg uintptr, ctx *Context) {
		t.OnQuit(ipOf(ctx), int32(arg), ctx)
	})
	t.pal.SetExceptionHandler(EventSuspend, func(_ Event, arg uintptr, ctx *Context) {
		t.OnSuspend(ipOf(ctx), int32(arg), ctx)
	})
	t.pal.SetExceptionHandler(EventResume, func(_ Event, _ uintptr, ctx *Context) {
		t.OnResume(ipOf(ctx), ctx)
	})
	return nil
}

// AppendSignal implements append_signal (§6): a cross-thread enqueue onto
// target, waking it if needInterrupt is set and the enqueue succeeded.
//
// SIGCHLD special case (supplemented from original_source, not present in
// spec.md's distillation): an ignored-and-masked SIGCHLD is discarded
// immediately rather than queued, matching POSIX child-reap semantics —
// ordinary ignored-and-masked signals stay queued pending an eventual
// unmask, but a masked SIGCHLD observer has no use for a stale
// notification once it is unmasked.
func AppendSignal(ctx context.Context, target *Thread, sig unix.Signal, info SigInfo, needInterrupt bool) bool {
	if sig == unix.SIGCHLD && target.GetSigMask().Has(sig) && target.isIgnored(sig) {
		return true
	}

	info.Signo = sig
	if !target.enqueue(sig, &SignalRecord{Info: info}) {
		logQueueOverflow(target.tid, sig)
		return false
	}
	if needInterrupt {
		_ = target.Wakeup(ctx)
	}
	return true
}

// RequestCheckpoint marks a checkpoint join as pending for this thread:
// the next delivery-engine invocation short-circuits into join_checkpoint
// instead of scanning for a deliverable signal, matching original_source's
// SIGCP handling inside get_signal_to_deliver's loop. join_checkpoint
// itself is an out-of-scope collaborator (spec.md §1); only the branch
// that calls it is modeled here.
func (t *Thread) RequestCheckpoint(session int64) {
	t.mu.Lock()
	t.checkpointPending = true
	t.checkpointSession = session
	t.mu.Unlock()
	t.setMayDeliver()
}

// checkpointShortCircuit is consulted first by every delivery-engine entry
// point (HandleSignal, HandleNextSignal, DeliverSignalOnSysret): if a
// checkpoint join is pending, it runs instead of any normal signal
// delivery this call, and reports true so the caller stops.
func (t *Thread) checkpointShortCircuit(ctx context.Context) bool {
	t.mu.Lock()
	pending := t.checkpointPending
	session := t.checkpointSession
	if pending {
		t.checkpointPending = false
	}
	t.mu.Unlock()
	if !pending {
		return false
	}
	if t.tc != nil {
		_ = t.tc.JoinCheckpoint(ctx, t.tid, session)
	}
	return true
}

// HandleSysretSignal implements handle_sysret_signal (§6): the
// clear-test-set flag maintenance C7 specifies, run independently of
// whether a signal actually gets delivered on this syscall return.
func (t *Thread) HandleSysretSignal() {
	t.clearMayDeliver()
	t.resyncMayDeliver()
}

// HandleExitSignal implements handle_exit_signal (§6): drains every
// queue belonging to this thread, invoking only default terminate
// actions (no user handler ever runs during exit — there is no longer
// any application code to run it on).
func (t *Thread) HandleExitSignal(ctx context.Context) {
	for s := unix.Signal(1); int(s) < NSIG; s++ {
		for {
			rec := t.dequeue(s)
			if rec == nil {
				break
			}
			if IsDefaultFatal(s) {
				t.runDefault(ctx, s, rec.Info)
			}
		}
	}
}
