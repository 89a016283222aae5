package sigcore

// fakePAL is a deterministic, in-process stand-in for a real PAL,
// sufficient to drive this package's own tests without any actual
// hardware fault trapping.
type fakePAL struct {
	hostType       string
	textStart      uintptr
	textEnd        uintptr
	handlers       map[Event]UpcallFunc
	faultingPages  map[uintptr]bool
	memory         map[uintptr]byte
	words          map[uintptr]uint64
	resumeCalls     []int32
	yieldCalls      int
	exceptionGoals  []Event
	installedFrames []*Frame
}

func newFakePAL() *fakePAL {
	return &fakePAL{
		handlers:      make(map[Event]UpcallFunc),
		faultingPages: make(map[uintptr]bool),
		memory:        make(map[uintptr]byte),
		words:         make(map[uintptr]uint64),
	}
}

func (p *fakePAL) SetExceptionHandler(event Event, upcall UpcallFunc) {
	p.handlers[event] = upcall
}

func (p *fakePAL) ExceptionReturn(event Event) {
	p.exceptionGoals = append(p.exceptionGoals, event)
}

func (p *fakePAL) ThreadResume(tid int32) { p.resumeCalls = append(p.resumeCalls, tid) }

func (p *fakePAL) ThreadYieldExecution() { p.yieldCalls++ }

func (p *fakePAL) TextRange() (uintptr, uintptr) { return p.textStart, p.textEnd }

func (p *fakePAL) HostType() string { return p.hostType }

func (p *fakePAL) ProbeTouch(addr uintptr, write bool) bool {
	return p.faultingPages[addr&^(pageSize-1)]
}

func (p *fakePAL) ProbeReadByte(addr uintptr) (byte, bool) {
	if p.faultingPages[addr&^(pageSize-1)] {
		return 0, true
	}
	return p.memory[addr], false
}

func (p *fakePAL) ReadWord(addr uintptr) (uint64, bool) {
	if p.faultingPages[addr&^(pageSize-1)] {
		return 0, false
	}
	w, ok := p.words[addr]
	return w, ok
}

func (p *fakePAL) InstallSignalFrame(frame *Frame) {
	p.installedFrames = append(p.installedFrames, frame)
}

// fire invokes the registered upcall for event, if any was installed.
func (p *fakePAL) fire(event Event, arg uintptr, ctx *Context) {
	if h := p.handlers[event]; h != nil {
		h(event, arg, ctx)
	}
}

type fakeVMA struct {
	adjacent map[uintptr]bool
	vmas     map[uintptr]VMAInfo
}

func newFakeVMA() *fakeVMA {
	return &fakeVMA{adjacent: make(map[uintptr]bool), vmas: make(map[uintptr]VMAInfo)}
}

func (v *fakeVMA) LookupVMA(addr uintptr) (VMAInfo, bool) {
	info, ok := v.vmas[pageOf(addr)]
	return info, ok
}

func (v *fakeVMA) IsInAdjacentVMAs(addr uintptr, size uintptr) bool {
	return v.adjacent[pageOf(addr)]
}

func pageOf(addr uintptr) uintptr { return addr &^ (pageSize - 1) }
