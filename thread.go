package sigcore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliboscore/sigcore/internal/threadgroup"
)

// Thread is the per-thread state the signal core keeps alongside the
// LibOS's own thread control block: the signal log, disposition table,
// mask, alt stack, and the preemption/may-deliver bookkeeping from spec.md
// §3 and §5.
type Thread struct {
	tid  int32
	tgid int32

	log       *signalLog
	hasSignal int64 // atomic: total queued records across all signals

	mayDeliver int32 // atomic bool: "may deliver" flag, C7
	preempt    int32 // atomic: signed preempt counter, C7

	mu           sync.Mutex
	dispositions [NSIG]SigAction
	mask         SigMask
	altStack     AltStack
	testRange    TestRange

	alive int32 // atomic bool

	pal   PAL
	vma   VMAResolver
	tc    ThreadController
	group *threadgroup.Group
	reg   *Registry

	libosText         SafePoint
	syscallTrampoline uintptr

	checkpointPending bool
	checkpointSession int64

	trampolineBody      SafePoint
	trampolineFinalJump SafePoint
	sigpendingCheck     SafePoint
	savedRegs           Registers
	tmpRip              uintptr
}

// SetSyscallReturnWindows records the three interrupted-IP windows C8
// recognizes: the trampoline body, its final indirect jump, and the
// signal-pending check.
func (t *Thread) SetSyscallReturnWindows(body, finalJump, sigpendingCheck SafePoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trampolineBody = body
	t.trampolineFinalJump = finalJump
	t.sigpendingCheck = sigpendingCheck
}

// SetRegisterSaveArea records the general registers the LibOS saved
// before entering the syscall-return trampoline, consulted by C8 when
// rewinding a context interrupted inside the trampoline body.
func (t *Thread) SetRegisterSaveArea(regs Registers) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.savedRegs = regs
}

// SetTmpRip records the trampoline's staged return IP, consulted by C8's
// final-jump rewind.
func (t *Thread) SetTmpRip(addr uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tmpRip = addr
}

// SetLibOSTextRange records the LibOS's own code range, used alongside
// the PAL's TextRange by origin classification (router.go) to decide
// whether an interrupted IP belongs to trusted infrastructure rather than
// the application.
func (t *Thread) SetLibOSTextRange(start, end uintptr) {
	t.libosText = SafePoint{Begin: start, End: end}
}

// SetSyscallTrampoline records the address the illegal-instruction
// upcall redirects to when it recognizes the two-byte `syscall` opcode
// (spec.md §4.2).
func (t *Thread) SetSyscallTrampoline(addr uintptr) {
	t.syscallTrampoline = addr
}

// NewThread constructs a Thread ready to be registered with a process-wide
// Registry. The caller supplies the collaborators this core consumes from
// the PAL and the rest of the LibOS (pal.go).
func NewThread(tid, tgid int32, pal PAL, vma VMAResolver, tc ThreadController, group *threadgroup.Group) *Thread {
	return newThreadWithCapacity(tid, tgid, pal, vma, tc, group, RingCapacity)
}

func newThreadWithCapacity(tid, tgid int32, pal PAL, vma VMAResolver, tc ThreadController, group *threadgroup.Group, ringCapacity int) *Thread {
	t := &Thread{
		tid:   tid,
		tgid:  tgid,
		log:   newSignalLog(ringCapacity),
		alive: 1,
		pal:   pal,
		vma:   vma,
		tc:    tc,
		group: group,
	}
	for i := range t.dispositions {
		t.dispositions[i] = SigAction{Handler: SigDfl}
	}
	if group != nil {
		group.Register(t)
	}
	return t
}

// TID implements threadgroup.Member.
func (t *Thread) TID() int32 { return t.tid }

// Alive implements threadgroup.Member.
func (t *Thread) Alive() bool { return atomic.LoadInt32(&t.alive) != 0 }

// MarkExited flips Alive to false and deregisters the thread from its
// group, matching handle_exit_signal's bookkeeping (§6).
func (t *Thread) MarkExited() {
	atomic.StoreInt32(&t.alive, 0)
	if t.group != nil {
		t.group.Unregister(t.tid)
	}
}

// setMayDeliver raises the may-deliver flag; C7 owns the clear-test-set
// discipline around it.
func (t *Thread) setMayDeliver() {
	atomic.StoreInt32(&t.mayDeliver, 1)
}

// GetSigMask returns the thread's current blocked-signal mask (§6).
func (t *Thread) GetSigMask() SigMask {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mask
}

// SetSigMask installs a new blocked-signal mask, scrubbing SIGKILL and
// SIGSTOP per spec.md §3, and returns the mask that was actually applied.
func (t *Thread) SetSigMask(m SigMask) SigMask {
	m = m.sanitize()
	t.mu.Lock()
	t.mask = m
	t.mu.Unlock()
	return m
}

// Registry is the process-wide lookup table of live threads, keyed by tid.
// It is the public entry point for obtaining a Thread handle given a raw
// thread identifier.
type Registry struct {
	mu          sync.RWMutex
	threads     map[int32]*Thread
	group       *threadgroup.Group
	terminating int32 // atomic: CAS winner-election flag for C5's terminate path
	config      Config
}

// NewRegistry returns an empty Registry backed by a fresh threadgroup.Group,
// applying opts atop the default Config (config.go).
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		threads: make(map[int32]*Thread),
		group:   threadgroup.NewGroup(),
		config:  newConfig(opts...),
	}
}

// Group exposes the underlying threadgroup.Group that every spawned Thread
// registers with; the terminate path (defaults.go) checks LastAlive on it
// through the Thread's own group field.
func (r *Registry) Group() *threadgroup.Group { return r.group }

// Spawn creates and registers a new Thread.
func (r *Registry) Spawn(tid, tgid int32, pal PAL, vma VMAResolver, tc ThreadController) *Thread {
	t := newThreadWithCapacity(tid, tgid, pal, vma, tc, r.group, r.config.ringCapacity)
	t.reg = r
	r.mu.Lock()
	r.threads[tid] = t
	r.mu.Unlock()
	return t
}

// Lookup returns the Thread for tid, or nil if no such thread is registered.
func (r *Registry) Lookup(tid int32) *Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threads[tid]
}

// Threads returns a snapshot of every currently registered thread.
func (r *Registry) Threads() []*Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Thread, 0, len(r.threads))
	for _, t := range r.threads {
		out = append(out, t)
	}
	return out
}

// Remove drops tid from the registry and marks it exited.
func (r *Registry) Remove(tid int32) {
	r.mu.Lock()
	t := r.threads[tid]
	delete(r.threads, tid)
	r.mu.Unlock()
	if t != nil {
		t.MarkExited()
	}
}

// Wakeup asks the thread's controller to interrupt it so it observes a
// freshly queued signal, matching append_signal's need_interrupt path
// (spec.md §4.1's third argument).
func (t *Thread) Wakeup(ctx context.Context) error {
	if t.tc == nil {
		return nil
	}
	return t.tc.Wakeup(ctx, t.tid)
}
