package sigcore

import "golang.org/x/sys/unix"

// GetAction returns the thread's current disposition for sig (the
// rt_sigaction "oldact" read), per spec.md §3's disposition table.
func (t *Thread) GetAction(sig unix.Signal) SigAction {
	if sig <= 0 || int(sig) >= NSIG {
		return SigAction{Handler: SigDfl}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dispositions[sig-1]
}

// SetAction installs act as the disposition for sig and returns the
// previous disposition, mirroring rt_sigaction's act/oldact pair.
// SIGKILL and SIGSTOP dispositions cannot be changed; the caller's act is
// ignored and the unmodified SIG_DFL entry is returned for them.
func (t *Thread) SetAction(sig unix.Signal, act SigAction) SigAction {
	if sig <= 0 || int(sig) >= NSIG {
		return SigAction{Handler: SigDfl}
	}
	if sig == unix.SIGKILL || sig == unix.SIGSTOP {
		return SigAction{Handler: SigDfl}
	}
	act.Mask = act.Mask.sanitize()

	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.dispositions[sig-1]
	t.dispositions[sig-1] = act
	return old
}

// resolveForDelivery returns the disposition to act on for sig, and, if
// SA_RESETHAND is set, atomically resets the disposition to SIG_DFL
// first — the "one-shot handler" rule original_source's __handle_signal
// applies before building the frame.
func (t *Thread) resolveForDelivery(sig unix.Signal) SigAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	act := t.dispositions[sig-1]
	if act.Flags&SaResetHand != 0 {
		t.dispositions[sig-1] = SigAction{Handler: SigDfl}
	}
	return act
}

// isIgnored reports whether sig currently resolves to "ignore" — either an
// explicit SIG_IGN, or SIG_DFL over a signal whose default action is to do
// nothing. Unlike resolveForDelivery, this never applies SA_RESETHAND; it
// is a read-only check used by append_signal's SIGCHLD special case.
func (t *Thread) isIgnored(sig unix.Signal) bool {
	act := t.GetAction(sig)
	return act.Handler == SigIgn || (act.Handler == SigDfl && defaultKindFor(sig) == defaultIgnore)
}

// AltStack returns the thread's currently configured alternate stack.
func (t *Thread) AltStack() AltStack {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.altStack
}

// SetAltStack installs a new alternate-stack descriptor, returning the
// previous one (the sigaltstack(2) oss semantics).
func (t *Thread) SetAltStack(stack AltStack) AltStack {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.altStack
	t.altStack = stack
	return old
}
