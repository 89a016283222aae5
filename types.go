// Package sigcore implements the signal-delivery core of a library
// operating system: lock-free per-signal queues fed by fault upcalls and
// cross-thread signals, the logic that decides when it is safe to deliver
// a signal, construction of a binary-compatible signal frame on the
// target thread's own (or alternate) stack, and the memory-probe
// primitives that share the same fault machinery.
//
// The host platform is never touched directly: every interaction with
// hardware faults, thread control, and VMA lookup goes through the PAL
// interface (pal.go), which a LibOS embeds this package into.
package sigcore

import "golang.org/x/sys/unix"

// NSIG is the number of standard signals this core tracks, matching
// spec.md's N=32.
const NSIG = 32

// RingCapacity is the default per-(thread,signal) queue depth (spec.md's
// design value K=32).
const RingCapacity = 32

// SigInfo is the captured payload of one signal occurrence: a Go-native
// analogue of a siginfo_t, carrying exactly the fields original_source's
// ALLOC_SIGINFO macro ever populates plus the sender pid and syscall
// number slots spec.md's data model names.
type SigInfo struct {
	Signo   unix.Signal
	Code    int32
	Errno   int32
	Addr    uintptr // si_addr: faulting address
	Pid     int32   // si_pid: sender, 0 if from the host
	Syscall int32   // si_syscall, for SIGSYS
}

// si_code values used by this package. golang.org/x/sys/unix does not
// export these (they are bits/siginfo.h constants, not syscall numbers),
// so they are defined here against their well-known POSIX values.
const (
	SegvMapErr = 1 // SEGV_MAPERR
	SegvAccErr = 2 // SEGV_ACCERR
	BusAdrErr  = 2 // BUS_ADRERR (Code is disambiguated by Signo)
	FpeIntDiv  = 1 // FPE_INTDIV
	IllIllOpc  = 1 // ILL_ILLOPC
	SiUser     = 0 // SI_USER
)

// SigMask is a 32-bit bitset over signal numbers 1..NSIG-1.
type SigMask uint32

// bit returns the bitmask for signal sig (signals are 1-indexed).
func bit(sig unix.Signal) SigMask {
	if sig <= 0 || int(sig) >= NSIG {
		return 0
	}
	return 1 << uint(sig-1)
}

// Has reports whether sig is a member of the mask.
func (m SigMask) Has(sig unix.Signal) bool {
	return m&bit(sig) != 0
}

// Add returns m with sig added.
func (m SigMask) Add(sig unix.Signal) SigMask {
	return m | bit(sig)
}

// Del returns m with sig removed.
func (m SigMask) Del(sig unix.Signal) SigMask {
	return m &^ bit(sig)
}

// sanitize removes SIGKILL and SIGSTOP, which spec.md §3 requires be
// forcibly absent from any assigned mask.
func (m SigMask) sanitize() SigMask {
	return m.Del(unix.SIGKILL).Del(unix.SIGSTOP)
}

// SigAction mirrors the fields of a disposition entry from spec.md §3:
// k_sa_handler, sa_flags, sa_restorer and the handler's own signal mask.
type SigAction struct {
	Handler  uintptr // SIG_DFL (0), SIG_IGN (1), or a user handler address
	Flags    uint32
	Restorer uintptr
	Mask     SigMask
}

const (
	SigDfl uintptr = 0
	SigIgn uintptr = 1

	SaResetHand uint32 = 0x80000000
)

// AltStack is a per-thread alternate signal stack descriptor, per spec.md
// §3 ("Alternate stack").
type AltStack struct {
	Base    uintptr
	Size    uintptr
	Disable bool
}

// RedZoneSize is the ABI red-zone spec.md's alt-stack rules reserve below
// the stack pointer.
const RedZoneSize = 128

// TestRange is the per-thread memory-probe bookkeeping record from
// spec.md §3: the range under test, the fault-continuation address, and
// whether a fault was observed. At most one is active per thread.
type TestRange struct {
	Start    uintptr
	End      uintptr
	ContAddr uintptr
	HasFault bool
}

// Active reports whether a probe is currently in flight for this thread.
func (t *TestRange) Active() bool {
	return t.ContAddr != 0
}

// SafePoint describes one of C8's recognized interrupted-IP windows: the
// syscall-return trampoline body, its final indirect jump, and the
// sigpending-check window.
type SafePoint struct {
	Begin uintptr
	End   uintptr
}

// Contains reports whether ip falls within [Begin, End].
func (s SafePoint) Contains(ip uintptr) bool {
	return s.Begin != 0 && ip >= s.Begin && ip <= s.End
}
