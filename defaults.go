package sigcore

import (
	"context"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// defaultKind is one of the three outcomes original_source's
// default_sighandler table maps every signal to.
type defaultKind int

const (
	defaultIgnore defaultKind = iota
	defaultTerminate
	defaultTerminateCoreDump
)

// defaultTable mirrors shim_signal.c's static default_sighandler array: for
// every standard signal, whether the default action is to terminate the
// process, terminate and flag a core dump, or do nothing.
var defaultTable = buildDefaultTable()

func buildDefaultTable() [NSIG]defaultKind {
	var t [NSIG]defaultKind
	coreDump := []unix.Signal{
		unix.SIGQUIT, unix.SIGILL, unix.SIGABRT, unix.SIGFPE, unix.SIGSEGV,
		unix.SIGBUS, unix.SIGSYS, unix.SIGTRAP, unix.SIGXCPU, unix.SIGXFSZ,
	}
	terminate := []unix.Signal{
		unix.SIGHUP, unix.SIGINT, unix.SIGKILL, unix.SIGPIPE, unix.SIGALRM,
		unix.SIGTERM, unix.SIGUSR1, unix.SIGUSR2, unix.SIGVTALRM, unix.SIGPROF,
		unix.SIGIO, unix.SIGPWR, unix.SIGSTKFLT,
	}
	for _, s := range coreDump {
		t[s-1] = defaultTerminateCoreDump
	}
	for _, s := range terminate {
		t[s-1] = defaultTerminate
	}
	return t
}

// defaultKindFor looks up sig's default action.
func defaultKindFor(sig unix.Signal) defaultKind {
	if sig <= 0 || int(sig) >= NSIG {
		return defaultIgnore
	}
	return defaultTable[sig-1]
}

// IsDefaultFatal reports whether sig's default action terminates the
// process (with or without a core dump). HandleExitSignal uses it to
// decide which drained records run their default action.
func IsDefaultFatal(sig unix.Signal) bool {
	k := defaultKindFor(sig)
	return k == defaultTerminate || k == defaultTerminateCoreDump
}

// runDefault executes C5's terminate path for sig, or does nothing for an
// ignored signal (the caller has already drained the queue in that case).
//
// Scope rule (spec.md §4.5): SIGABRT always kills the whole process.
// SIGTERM/SIGINT kill the whole process only when info.Pid == 0 (the
// signal came from the host rather than another process); otherwise only
// the targeted thread terminates.
func (t *Thread) runDefault(ctx context.Context, sig unix.Signal, info SigInfo) {
	kind := defaultKindFor(sig)
	if kind == defaultIgnore {
		return
	}

	coreDump := kind == defaultTerminateCoreDump
	wholeProcess := true
	if (sig == unix.SIGTERM || sig == unix.SIGINT) && info.Pid != 0 {
		wholeProcess = false
	}

	if !wholeProcess {
		t.terminateSelf(ctx, sig, coreDump)
		return
	}
	t.terminateProcess(ctx, sig, coreDump)
}

// terminateSelf exits only the calling thread, used for the SIGTERM/SIGINT
// single-thread-target case.
func (t *Thread) terminateSelf(ctx context.Context, sig unix.Signal, coreDump bool) {
	status := exitStatus(sig, coreDump)
	if t.tc != nil {
		t.tc.ExitThreadOrProcess(ctx, status, sig)
	}
	t.MarkExited()
}

// terminateProcess implements the three-step terminate protocol: winner
// election, SIGKILL broadcast to the process group, then wait for the
// winner to be the last thread alive before exiting the whole process.
func (t *Thread) terminateProcess(ctx context.Context, sig unix.Signal, coreDump bool) {
	if t.reg == nil {
		t.terminateSelf(ctx, sig, coreDump)
		return
	}
	if !atomic.CompareAndSwapInt32(&t.reg.terminating, 0, 1) {
		// A loser: another thread already won the race. Per
		// original_source's winner-election contract, losers never
		// return from here — they yield until the winner's
		// ExitThreadOrProcess call tears the process down around them.
		for {
			t.pal.ThreadYieldExecution()
		}
	}

	if t.tc != nil {
		_ = t.tc.KillProcessGroup(ctx, t.tgid, unix.SIGKILL)
	}

	for !t.group.LastAlive(t) {
		if t.pal != nil {
			t.pal.ThreadYieldExecution()
		}
	}

	status := exitStatus(sig, coreDump)
	if t.tc != nil {
		t.tc.ExitThreadOrProcess(ctx, status, sig)
	}
	t.MarkExited()
}

// exitStatus encodes the signal number into a wait-status-shaped integer,
// setting bit 7 (the WCOREDUMP bit) when coreDump is true.
func exitStatus(sig unix.Signal, coreDump bool) int {
	status := int(sig)
	if coreDump {
		status |= 0x80
	}
	return status
}
