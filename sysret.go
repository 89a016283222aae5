package sigcore

import "golang.org/x/sys/unix"

// FIXME: the user's blocked-signal mask is not consulted while a thread is
// parked in a blocking LibOS syscall, so a signal appended during that
// window is queued but cannot interrupt the wait the way a real kernel's
// mask-aware wakeup would. original_source carries the identical gap in
// deliver_signal_on_sysret. Resolving it needs a restore-mask-on-return
// discipline in the blocking-syscall layer, which is out of scope here
// (spec.md §1); peekSignalLog below is the unused seam such a fix would
// extend.

// peekSignalLog would let a blocking syscall layer poll whether sig is
// pending without dequeuing it, so it could decide to return early for an
// unmasked signal instead of resuming the wait. Never called: wiring it up
// requires the blocking-syscall collaborator this core does not own.
func (t *Thread) peekSignalLog(sig unix.Signal) bool {
	if sig <= 0 || int(sig) >= NSIG {
		return false
	}
	return t.log.rings[sig-1].Len() > 0
}

// sysretRewind implements C8: if ip falls inside one of the three
// recognized syscall-return windows, rewrite ctx so it looks like a pure
// application context before any signal is considered for delivery.
func (t *Thread) sysretRewind(ip uintptr, ctx *Context) {
	if ctx == nil {
		return
	}

	t.mu.Lock()
	body, finalJump, sigpending := t.trampolineBody, t.trampolineFinalJump, t.sigpendingCheck
	saved, tmpRip := t.savedRegs, t.tmpRip
	t.mu.Unlock()

	switch {
	case body.Contains(ip):
		ctx.Regs = saved
		t.SetRegisterSaveArea(Registers{})

	case finalJump.Contains(ip):
		ctx.Regs.RIP = uint64(tmpRip)

	case sigpending.Contains(ip):
		if t.pal == nil {
			return
		}
		word, ok := t.pal.ReadWord(uintptr(ctx.Regs.RSP))
		if !ok {
			return
		}
		ctx.Regs.RIP = word
		ctx.Regs.RSP += 8
	}
}
