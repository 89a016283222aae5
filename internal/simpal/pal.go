// Package simpal is a deterministic, in-process stand-in for a real
// Platform Abstraction Layer: no hardware fault trapping, just a map-based
// memory model and synchronous upcall dispatch, sufficient to drive
// sigcore's end-to-end scenarios as ordinary Go tests.
//
// Cross-thread notification (ThreadController.Wakeup) follows the same
// buffered-channel, non-blocking-send shape the rest of this corpus uses
// for delivering async events into a consumer loop, rather than simpal's
// own synchronous exception dispatch — a real wakeup crosses goroutines
// and must not block the waker.
package simpal

import (
	"sync"

	"github.com/goliboscore/sigcore"
)

// PAL implements sigcore.PAL over an in-memory address space.
type PAL struct {
	mu       sync.Mutex
	handlers map[sigcore.Event]sigcore.UpcallFunc
	hostType string

	textStart, textEnd uintptr

	memory map[uintptr]byte
	words  map[uintptr]uint64
	faults map[uintptr]bool // pages that fault on touch

	installed []*sigcore.Frame
	resumed   []int32
	yields    int
}

// New returns a PAL with an empty address space. hostType selects the
// probe strategy in sigcore's Memory Probe component; "Linux-SGX"
// selects the enclave (VMA-walk) strategy.
func New(hostType string) *PAL {
	return &PAL{
		handlers: make(map[sigcore.Event]sigcore.UpcallFunc),
		hostType: hostType,
		memory:   make(map[uintptr]byte),
		words:    make(map[uintptr]uint64),
		faults:   make(map[uintptr]bool),
	}
}

// SetTextRange configures the PAL's own code range, used by origin
// classification.
func (p *PAL) SetTextRange(start, end uintptr) {
	p.textStart, p.textEnd = start, end
}

// MapPage marks a page as accessible, writing the given bytes starting at
// addr.
func (p *PAL) MapPage(addr uintptr, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, b := range data {
		p.memory[addr+uintptr(i)] = b
	}
}

// MapWord records an 8-byte value at addr, for the syscall-return
// sigpending-check rewind scenario.
func (p *PAL) MapWord(addr uintptr, value uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.words[addr] = value
}

// FaultPage marks every address in the page containing addr as one that
// traps on any access — the stand-in for an unmapped or permission-denied
// page.
func (p *PAL) FaultPage(addr uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults[pageOf(addr)] = true
}

const pageSize = 4096

func pageOf(addr uintptr) uintptr { return addr &^ (pageSize - 1) }

func (p *PAL) SetExceptionHandler(event sigcore.Event, upcall sigcore.UpcallFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[event] = upcall
}

func (p *PAL) ExceptionReturn(event sigcore.Event) {}

func (p *PAL) ThreadResume(tid int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumed = append(p.resumed, tid)
}

func (p *PAL) ThreadYieldExecution() {
	p.mu.Lock()
	p.yields++
	p.mu.Unlock()
}

func (p *PAL) TextRange() (uintptr, uintptr) { return p.textStart, p.textEnd }

func (p *PAL) HostType() string { return p.hostType }

func (p *PAL) ProbeTouch(addr uintptr, write bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.faults[pageOf(addr)]
}

func (p *PAL) ProbeReadByte(addr uintptr) (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.faults[pageOf(addr)] {
		return 0, true
	}
	return p.memory[addr], false
}

func (p *PAL) ReadWord(addr uintptr) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.faults[pageOf(addr)] {
		return 0, false
	}
	w, ok := p.words[addr]
	return w, ok
}

// InstallSignalFrame records the frame for inspection by the test driving
// this PAL. The addresses are already resolved in frame.Layout; this
// stand-in has no real address space to copy into, so it only keeps the
// frame for assertions.
func (p *PAL) InstallSignalFrame(frame *sigcore.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installed = append(p.installed, frame)
}

// Installed returns every frame InstallSignalFrame has recorded so far.
func (p *PAL) Installed() []*sigcore.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*sigcore.Frame, len(p.installed))
	copy(out, p.installed)
	return out
}

// Fire synchronously invokes the registered upcall for ev, if any — the
// stand-in for a real hardware trap or host notification landing on the
// victim thread's own stack.
func (p *PAL) Fire(ev sigcore.Event, arg uintptr, ctx *sigcore.Context) {
	p.mu.Lock()
	h := p.handlers[ev]
	p.mu.Unlock()
	if h != nil {
		h(ev, arg, ctx)
	}
}
