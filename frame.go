package sigcore

// legacyFPStateSize is the fallback extended-FP save size used when the
// saved FP state's software-reserved magic fields report 0 (spec.md
// §4.6 step 1: "fall back to legacy-sized FP save").
const legacyFPStateSize = 512

// ucontext flag bits, matching the Linux x86-64 ABI names spec.md §4.6
// step 3 references.
const (
	UCSigcontextSS    uint32 = 1 << 1
	UCStrictRestoreSS uint32 = 1 << 2
	UCFPXstate        uint32 = 1 << 24
)

// UContext is this core's model of the ucontext_t a signal frame carries:
// enough to let a handler (and sigreturn) round-trip the interrupted
// register state, alt-stack descriptor, and FP-state presence.
type UContext struct {
	Flags uint32
	Stack AltStack
	Regs  Registers
	// Mask is always empty: spec.md §4.6 step 4 documents the signal
	// mask in the frame as an acknowledged gap, not a real value.
	Mask  SigMask
	HasFP bool
}

// Frame is the structured, binary-layout-free value this core builds for
// one signal delivery. A concrete PAL's InstallSignalFrame turns it into
// real bytes in the target thread's address space at the addresses this
// core has already computed in Layout — only the final byte-copy crosses
// the PAL boundary, since only the PAL can write guest memory.
type Frame struct {
	Restorer   uintptr
	Info       SigInfo
	UC         UContext
	XStateSize uint32
	Layout     FrameLayout
}

// FrameAddrs are the addresses the delivery engine populates rsp/rsi/rdx
// with (spec.md §4.6 step 5): the stack pointer the handler will run
// with, and the addresses of the siginfo and ucontext sub-structures it
// carries. The delivery engine fills it from the Base/InfoAddr/UCAddr this
// core already computed in FrameLayout; InstallSignalFrame returns nothing
// and cannot change these addresses.
type FrameAddrs struct {
	Base     uintptr
	InfoAddr uintptr
	UCAddr   uintptr
}

// x86-64 ABI alignment and layout constants for the signal frame, the
// part of spec.md §4.6 step 2 that §1 calls out as "the hard part".
// original_source's get_signal_stack computes these as pure pointer
// arithmetic with no PAL/hardware boundary involved — only the final
// memcpy touches guest memory — so this core computes them the same way.
const (
	xstateAlign = 64
	frameAlign  = 16

	// restorerSize is struct sigframe's leading `void *restorer` field:
	// with the ucontext 16-byte aligned, the frame base (the handler's
	// rsp) sits at 8 mod 16, as if right after a function call.
	restorerSize = 8
	// ucontextSize and siginfoSize are sizeof(ucontext_t) and
	// sizeof(siginfo_t) on the x86-64 Linux ABI struct sigframe carries
	// immediately after restorer.
	ucontextSize = 968
	siginfoSize  = 128
)

// alignDown rounds addr down to the nearest multiple of align, mirroring
// original_source's ALIGN_DOWN_PTR.
func alignDown(addr uintptr, align uintptr) uintptr {
	return addr &^ (align - 1)
}

// FrameLayout is the fully-resolved set of addresses a signal frame
// occupies below a stack top, computed entirely in this core.
type FrameLayout struct {
	Base       uintptr // stack pointer (rsp) the handler runs with
	UCAddr     uintptr
	InfoAddr   uintptr
	XStateAddr uintptr
}

// layoutFrame computes where a frame lands below stackTop, following
// original_source's get_signal_stack: the extended FP/xstate save area
// first, aligned down to 64 bytes, then struct sigframe's ucontext+
// siginfo tail, aligned down to 16 bytes, with the frame itself
// (user_sigframe, via container_of) starting restorerSize bytes below
// the ucontext.
func layoutFrame(stackTop uintptr, xstateSize uint32) FrameLayout {
	sp := alignDown(stackTop-uintptr(xstateSize), xstateAlign)
	xstateAddr := sp

	sp = alignDown(sp-(ucontextSize+siginfoSize), frameAlign)
	ucAddr := sp
	base := ucAddr - restorerSize

	return FrameLayout{
		Base:       base,
		UCAddr:     ucAddr,
		InfoAddr:   ucAddr + ucontextSize,
		XStateAddr: xstateAddr,
	}
}

// selectStackTop applies spec.md §3's alt-stack rules: SS_DISABLE or no
// alt stack configured uses the current stack minus the red zone;
// nested delivery (SP already inside the alt stack) reuses the current
// stack minus the red zone too; otherwise switches to the top of the alt
// stack.
func (t *Thread) selectStackTop(ctx *Context) uintptr {
	alt := t.AltStack()
	sp := uintptr(ctx.Regs.RSP)

	if alt.Disable || alt.Base == 0 {
		return sp - RedZoneSize
	}
	if sp >= alt.Base && sp < alt.Base+alt.Size {
		return sp - RedZoneSize
	}
	return alt.Base + alt.Size
}

// buildFrame constructs the Frame for delivering sig to act's handler,
// given the interrupted context and the stack top selectStackTop chose.
// xstate_size_get(NULL) returns 0 in original_source: a PAL context that
// never captured FP state (ctx.FPRegs == nil) reserves no xstate area at
// all, distinct from a captured-but-unrecognized state, which falls back
// to the legacy size.
func (t *Thread) buildFrame(info SigInfo, ctx *Context, act SigAction, stackTop uintptr) *Frame {
	var xstateSize uint32
	hasFP := false
	if ctx.FPRegs != nil {
		hasFP = true
		xstateSize = ctx.FPRegs.XStateSize()
		if xstateSize == 0 {
			xstateSize = legacyFPStateSize
		}
	}

	flags := UCSigcontextSS | UCStrictRestoreSS
	if hasFP {
		flags |= UCFPXstate
	}

	return &Frame{
		Restorer:   act.Restorer,
		Info:       info,
		XStateSize: xstateSize,
		Layout:     layoutFrame(stackTop, xstateSize),
		UC: UContext{
			Flags: flags,
			Stack: t.AltStack(),
			Regs:  ctx.Regs,
			HasFP: hasFP,
		},
	}
}
