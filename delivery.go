package sigcore

import (
	"context"

	"golang.org/x/sys/unix"
)

// nextDeliverable is C6's deliverable-signal selection: scan signo
// ascending, skip masked signals, pop the first record whose resolved
// handler is non-null, draining (and continuing past) any signal whose
// handler resolves to ignore.
func (t *Thread) nextDeliverable() (unix.Signal, *SignalRecord, SigAction, bool) {
	mask := t.GetSigMask()
	for s := unix.Signal(1); int(s) < NSIG; s++ {
		if mask.Has(s) {
			continue
		}
		rec := t.dequeue(s)
		if rec == nil {
			continue
		}

		act := t.resolveForDelivery(s)
		if s == unix.SIGABRT {
			// SIGABRT's default action always wins: spec.md §8 scenario 5
			// requires the whole process to terminate even if a user
			// handler is installed, so any disposition resolves as
			// SIG_DFL here.
			act = SigAction{Handler: SigDfl}
		}
		ignored := act.Handler == SigIgn || (act.Handler == SigDfl && defaultKindFor(s) == defaultIgnore)
		if ignored {
			t.drainQueue(s)
			continue
		}
		return s, rec, act, true
	}
	return 0, nil, SigAction{}, false
}

// enterHandlerOrDefault is the shared tail of every delivery path: the
// direct-call optimization for fatal defaults (spec.md §4.5 — these never
// return, so no frame is built), or full signal-frame construction and
// context rewrite into the user handler (spec.md §4.6 step 5).
func (t *Thread) enterHandlerOrDefault(ctx context.Context, sig unix.Signal, rec *SignalRecord, act SigAction, palCtx *Context) {
	if act.Handler == SigDfl {
		t.runDefault(ctx, sig, rec.Info)
		return
	}

	stackTop := t.selectStackTop(palCtx)
	frame := t.buildFrame(rec.Info, palCtx, act, stackTop)

	addrs := FrameAddrs{Base: frame.Layout.Base, InfoAddr: frame.Layout.InfoAddr, UCAddr: frame.Layout.UCAddr}
	if t.pal != nil {
		t.pal.InstallSignalFrame(frame)
	}

	palCtx.Regs.RIP = uint64(act.Handler)
	palCtx.Regs.RSP = uint64(addrs.Base)
	palCtx.Regs.RDI = uint64(sig)
	palCtx.Regs.RSI = uint64(addrs.InfoAddr)
	palCtx.Regs.RDX = uint64(addrs.UCAddr)
	palCtx.Regs.RAX = 0
}

// HandleSignal is the voluntary poll C7 names: a no-op unless the preempt
// counter allows delivery and either a checkpoint join is pending (which
// then runs instead of delivery) or the has-signal counter is non-zero.
func (t *Thread) HandleSignal(ctx context.Context, palCtx *Context) {
	if palCtx == nil || !t.preemptAllows() {
		return
	}
	if t.checkpointShortCircuit(ctx) {
		return
	}
	if !t.HasSignal() {
		return
	}
	sig, rec, act, ok := t.nextDeliverable()
	if !ok {
		return
	}
	t.enterHandlerOrDefault(ctx, sig, rec, act, palCtx)
}

// HandleNextSignal implements handle_next_signal, called from a
// simulated sigreturn: if another signal is deliverable, it is entered
// using userUC and this returns true; otherwise sigreturn should proceed
// normally and this returns false.
func (t *Thread) HandleNextSignal(ctx context.Context, userUC *Context) bool {
	if userUC == nil || !t.preemptAllows() {
		return false
	}
	if t.checkpointShortCircuit(ctx) {
		return false
	}
	if !t.HasSignal() {
		return false
	}
	sig, rec, act, ok := t.nextDeliverable()
	if !ok {
		return false
	}
	t.enterHandlerOrDefault(ctx, sig, rec, act, userUC)
	return true
}

// DeliverSignalOnSysret implements deliver_signal_on_sysret: if a signal
// is deliverable, rewrite sysretCtx to enter its handler (or run its
// fatal default) and return 0; otherwise syscallRet passes through
// unchanged, with sysretCtx untouched.
func (t *Thread) DeliverSignalOnSysret(ctx context.Context, sysretCtx *Context, syscallRet int64) int64 {
	if sysretCtx == nil || !t.preemptAllows() {
		return syscallRet
	}
	if t.checkpointShortCircuit(ctx) {
		return syscallRet
	}
	if !t.HasSignal() {
		return syscallRet
	}
	sig, rec, act, ok := t.nextDeliverable()
	if !ok {
		return syscallRet
	}
	sysretCtx.Regs.RAX = uint64(syscallRet)
	t.enterHandlerOrDefault(ctx, sig, rec, act, sysretCtx)
	return 0
}

// DeliverSignal implements deliver_signal: synthesize a signal on the
// current thread from info, enqueue it, and attempt immediate delivery
// if a PAL context is available and preemption allows it.
func (t *Thread) DeliverSignal(ctx context.Context, info SigInfo, palCtx *Context) {
	t.raise(info.Signo, info)
	if palCtx != nil {
		t.HandleSignal(ctx, palCtx)
	}
}
