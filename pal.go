package sigcore

import (
	"context"

	"golang.org/x/sys/unix"
)

// Registers is a plain data aggregate of the x86-64 general-purpose
// register set, laid out to match the host ucontext's gregs array. Per
// Design Notes §9, the PAL context is modeled as a flat struct of 64-bit
// values rather than anything richer, since the delivery engine only ever
// copies whole registers in and out of it.
type Registers struct {
	R8, R9, R10, R11, R12, R13, R14, R15 uint64
	RDI, RSI, RBP, RBX, RDX, RAX, RCX    uint64
	RSP, RIP                             uint64
	EFL                                  uint64
	CSGSFS                               uint64
	ERR                                  uint64
	TRAPNO                               uint64
	OLDMASK                              uint64
	CR2                                  uint64
}

// Context is the interrupted execution context the PAL hands to an
// exception upcall: the general registers plus an opaque pointer to the
// saved extended FP state (nil if none was captured), matching
// original_source's PAL_CONTEXT.
type Context struct {
	Regs   Registers
	FPRegs FPState
}

// FPState is the opaque handle to a saved extended FP/xstate save area.
// Concrete PAL implementations decide the representation; this core only
// ever asks for its size and asks the PAL to save/reset it.
type FPState interface {
	// XStateSize inspects the software-reserved magic fields of the save
	// area and returns the extended size, or 0 to signal "use the legacy
	// fallback size" (spec.md §4.6 step 1).
	XStateSize() uint32
}

// VMAInfo is what lookup_vma reports about the mapping containing a
// faulting address (spec.md §6).
type VMAInfo struct {
	Internal    bool
	Writable    bool
	FileBacked  bool
	FileSize    uintptr
	VMAOffset   uintptr
	VMAAddr     uintptr
	WriteFault  bool
	FoundMapped bool
}

// VMAResolver is the "Consumed from LibOS collaborators" VMA lookup
// surface §6 names: lookup_vma and is_in_adjacent_vmas.
type VMAResolver interface {
	LookupVMA(addr uintptr) (VMAInfo, bool)
	IsInAdjacentVMAs(addr uintptr, size uintptr) bool
}

// ThreadController is the subset of thread-lifecycle collaborators §6
// names that this core calls into: wakeup, process-group kill routing,
// checkpoint join, process/thread exit, and internal-thread lookup. The
// last-thread-alive check is not part of it; the terminate path asks
// internal/threadgroup's LastAlive instead.
//
// Methods that can block in a real LibOS take a context.Context, per the
// instruction to model blocking operations that way; this core itself
// never blocks (§5), only these injected collaborators might.
type ThreadController interface {
	Wakeup(ctx context.Context, tid int32) error
	KillProcessGroup(ctx context.Context, tgid int32, sig unix.Signal) error
	JoinCheckpoint(ctx context.Context, tid int32, session int64) error
	ExitThreadOrProcess(ctx context.Context, status int, sig unix.Signal)
	// IsInternalThread reports whether tid belongs to the LibOS itself
	// rather than the application, the is_internal_tid collaborator §6
	// names — origin classification treats faults on these as fatal.
	IsInternalThread(tid int32) bool
}

// PAL is the host-abstraction surface consumed from the platform
// abstraction layer (§6): setting the six exception upcalls, returning
// control after handling one, and resuming/yielding a thread.
type PAL interface {
	// SetExceptionHandler registers upcall for the given event. The six
	// events are the package-level Event constants below.
	SetExceptionHandler(event Event, upcall UpcallFunc)
	// ExceptionReturn resumes normal execution after an upcall handled
	// (or diagnosed) its event.
	ExceptionReturn(event Event)
	ThreadResume(tid int32)
	ThreadYieldExecution()
	// TextRange reports the PAL's own code range, used by origin
	// classification (context_is_pal).
	TextRange() (start, end uintptr)
	// HostType reports the PAL control block's host type string;
	// "Linux-SGX" selects the enclave (VMA-walk) probe strategy.
	HostType() string

	// ProbeTouch performs the actual touch-and-trap memory access for
	// test_user_memory's non-enclave strategy: the PAL owns the hardware
	// boundary, so it is the only thing that can safely attempt the
	// access and report whether it faulted.
	ProbeTouch(addr uintptr, write bool) (faulted bool)
	// ProbeReadByte reads one byte for test_user_string's NUL scan,
	// reporting a fault instead of the byte value when the access traps.
	ProbeReadByte(addr uintptr) (b byte, faulted bool)
	// ReadWord reads one 64-bit word from addr, used by C8's
	// sigpending-check rewind to pop a return address off the stack.
	ReadWord(addr uintptr) (value uint64, ok bool)
	// InstallSignalFrame writes frame's extended FP state, ucontext, and
	// siginfo into the target thread's own memory at the addresses
	// frame.Layout already resolved (spec.md §4.6 step 2's alignment
	// arithmetic happens entirely in this core, in frame.go — the PAL
	// only performs the byte-copy, since only the PAL can write guest
	// memory).
	InstallSignalFrame(frame *Frame)
}

// Event identifies which of the six PAL exception callbacks an upcall is
// for.
type Event int

const (
	EventArithmetic Event = iota
	EventMemFault
	EventIllegal
	EventQuit
	EventSuspend
	EventResume
)

// UpcallFunc is the signature PAL exception callbacks use: an event
// handle, the faulting address/argument (meaning depends on the event),
// and the interrupted context (nil for events that carry none).
type UpcallFunc func(event Event, arg uintptr, ctx *Context)
