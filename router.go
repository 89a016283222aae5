package sigcore

import (
	"context"

	"golang.org/x/sys/unix"
)

// isInternal is C2's common classification rule: an event is internal if
// the current thread is itself an internal LibOS thread, or the
// interrupted IP lies in the LibOS or PAL code range.
func (t *Thread) isInternal(ip uintptr) bool {
	if t.tc != nil && t.tc.IsInternalThread(t.tid) {
		return true
	}
	if t.libosText.Contains(ip) {
		return true
	}
	if t.pal != nil {
		start, end := t.pal.TextRange()
		if start != 0 && ip >= start && ip <= end {
			return true
		}
	}
	return false
}

// pauseInternal implements the "internal fault" branch of spec.md §7: log
// once, then park the thread forever rather than recovering. With no PAL
// configured there is nothing to yield to, and it returns after logging.
func (t *Thread) pauseInternal(event Event, ip uintptr) {
	logInternalFault(event, t.tid, ip)
	for {
		if t.pal == nil {
			return
		}
		t.pal.ThreadYieldExecution()
	}
}

// raise enqueues a synthesized signal for this thread, logging and
// dropping it on queue overflow per spec.md §7. Go's allocator does not
// fail the way original_source's arena allocator could, so the
// "allocation failure" branch has no reachable analogue here;
// logAllocationFailure is kept for a host that wires a bounded allocator
// behind PAL and wants to report that condition the same way.
func (t *Thread) raise(sig unix.Signal, info SigInfo) {
	info.Signo = sig
	if !t.enqueue(sig, &SignalRecord{Info: info}) {
		logQueueOverflow(t.tid, sig)
	}
}

// OnArithmeticFault is the PAL upcall for EventArithmetic.
func (t *Thread) OnArithmeticFault(ip uintptr, faultAddr uintptr, ctx *Context) {
	if t.isInternal(ip) {
		t.pauseInternal(EventArithmetic, ip)
	} else {
		t.raise(unix.SIGFPE, SigInfo{Code: FpeIntDiv, Addr: faultAddr})
	}
	if t.pal != nil {
		t.pal.ExceptionReturn(EventArithmetic)
	}
}

// OnMemoryFault is the PAL upcall for EventMemFault.
func (t *Thread) OnMemoryFault(ip uintptr, faultAddr uintptr, write bool, ctx *Context) {
	if !t.handleProbeFault(faultAddr) {
		if t.isInternal(ip) {
			t.pauseInternal(EventMemFault, ip)
		} else if t.vmaIsInternal(faultAddr) {
			// original_source's memfault_upcall treats a fault on a
			// VMA_INTERNAL mapping as fatal even when the interrupted IP
			// itself is ordinary user code — isInternal's IP/tid check
			// alone cannot see this.
			t.pauseInternal(EventMemFault, ip)
		} else {
			sig, code := t.classifyMemFault(faultAddr, write)
			t.raise(sig, SigInfo{Code: code, Addr: faultAddr})
		}
	}
	if t.pal != nil {
		t.pal.ExceptionReturn(EventMemFault)
	}
}

// vmaIsInternal reports whether addr falls in a mapping the VMA resolver
// flags VMA_INTERNAL (spec.md §6's lookup_vma flags), the LibOS-owned
// mapping case original_source's memfault_upcall fatal-diagnoses before it
// ever reaches signal classification.
func (t *Thread) vmaIsInternal(addr uintptr) bool {
	if addr == 0 || t.vma == nil {
		return false
	}
	info, found := t.vma.LookupVMA(addr)
	return found && info.Internal
}

// classifyMemFault picks the signal/code pair for a non-probe,
// non-internal memory fault, following spec.md §4.2's VMA rules.
func (t *Thread) classifyMemFault(addr uintptr, write bool) (unix.Signal, int32) {
	if addr == 0 {
		return unix.SIGSEGV, SegvMapErr
	}
	if t.vma == nil {
		return unix.SIGSEGV, SegvAccErr
	}
	info, found := t.vma.LookupVMA(addr)
	if !found {
		return unix.SIGSEGV, SegvMapErr
	}
	if info.FileBacked {
		fileEnd := info.VMAAddr + info.FileSize - info.VMAOffset
		if addr >= fileEnd {
			return unix.SIGBUS, BusAdrErr
		}
		if write && !info.Writable {
			return unix.SIGSEGV, SegvAccErr
		}
		// XXX: need more sophisticated judgement (original_source's own
		// comment) — conservative fallback for a mapped, file-backed,
		// in-range access that is neither past EOF nor a write fault.
		return unix.SIGBUS, BusAdrErr
	}
	// Anonymous (non-file-backed) mapped VMA: original_source's `else
	// { code = SEGV_ACCERR; }` branch applies unconditionally here,
	// regardless of the write flag.
	return unix.SIGSEGV, SegvAccErr
}

// syscallOpcode is the two-byte x86-64 `syscall` instruction.
var syscallOpcode = [2]byte{0x0F, 0x05}

// OnIllegalInstruction is the PAL upcall for EventIllegal. opcode carries
// the two bytes at the interrupted IP.
//
// TODO: original_source guards a SIGSYS/seccomp emulation path behind
// `#if 0` and never enables it; this upcall preserves that gap rather than
// guessing the intended behavior (Design Notes §9, open question (b)) — no
// seccomp-filter trap is recognized here, only the `syscall` opcode and
// genuine illegal-instruction traps.
func (t *Thread) OnIllegalInstruction(ip uintptr, opcode [2]byte, ctx *Context) {
	switch {
	case opcode == syscallOpcode && t.syscallTrampoline != 0 && ctx != nil:
		ctx.Regs.RCX = uint64(ip) + 2
		ctx.Regs.R11 = ctx.Regs.EFL
		ctx.Regs.RIP = uint64(t.syscallTrampoline)
	case t.isInternal(ip):
		t.pauseInternal(EventIllegal, ip)
	default:
		t.raise(unix.SIGILL, SigInfo{Code: IllIllOpc, Addr: ip})
	}
	if t.pal != nil {
		t.pal.ExceptionReturn(EventIllegal)
	}
}

// OnQuit is the PAL upcall for EventQuit (host asked the process to
// terminate).
func (t *Thread) OnQuit(ip uintptr, senderPid int32, ctx *Context) {
	t.sysretRewind(ip, ctx)
	if !t.isInternal(ip) {
		t.raise(unix.SIGTERM, SigInfo{Code: SiUser, Pid: senderPid})
	}
	if t.pal != nil {
		t.pal.ExceptionReturn(EventQuit)
	}
}

// OnSuspend is the PAL upcall for EventSuspend.
func (t *Thread) OnSuspend(ip uintptr, senderPid int32, ctx *Context) {
	t.sysretRewind(ip, ctx)
	if !t.isInternal(ip) {
		t.raise(unix.SIGINT, SigInfo{Code: SiUser, Pid: senderPid})
	}
	if t.pal != nil {
		t.pal.ExceptionReturn(EventSuspend)
	}
}

// OnResume is the PAL upcall for EventResume: rewind if needed, then run
// the delivery engine immediately if preemption allows.
func (t *Thread) OnResume(ip uintptr, ctx *Context) {
	t.sysretRewind(ip, ctx)
	if t.preemptAllows() {
		t.HandleSignal(context.Background(), ctx)
	}
	if t.pal != nil {
		t.pal.ExceptionReturn(EventResume)
	}
}
