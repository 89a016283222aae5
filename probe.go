package sigcore

// pageSize is the probe's touch granularity: one access per page is
// enough to provoke a fault anywhere a mapping boundary falls.
const pageSize = 4096

// probeContinuation is a non-zero sentinel marking a test-range as
// active. A real trampoline target needs an address the PAL can rewind
// an interrupted context to; since the actual touch is delegated to
// PAL.ProbeTouch (which reports faults synchronously) rather than
// happening inline in this core, no such address ever needs to be jumped
// to, and this sentinel only needs to be non-zero.
const probeContinuation uintptr = 1

// TestUserMemory implements C3's test_user_memory: reports whether
// touching every page in [addr, addr+size) would fault. A zero size is
// always safe per spec.md §4.3.
func (t *Thread) TestUserMemory(addr, size uintptr, write bool) bool {
	if size == 0 {
		return false
	}
	if t.pal != nil && t.pal.HostType() == "Linux-SGX" {
		if t.vma == nil {
			return true
		}
		return !t.vma.IsInAdjacentVMAs(addr, size)
	}
	return t.touchRange(addr, size, write)
}

func (t *Thread) touchRange(addr, size uintptr, write bool) bool {
	t.DisablePreempt()
	defer t.EnablePreempt()

	t.mu.Lock()
	t.testRange = TestRange{Start: addr, End: addr + size - 1, ContAddr: probeContinuation}
	t.mu.Unlock()

	faulted := false
	if t.pal != nil {
		start := addr &^ (pageSize - 1)
		for page := start; page < addr+size; page += pageSize {
			if t.pal.ProbeTouch(page, write) {
				faulted = true
				break
			}
		}
	}

	t.mu.Lock()
	if t.testRange.HasFault {
		faulted = true
	}
	t.testRange = TestRange{}
	t.mu.Unlock()

	return faulted
}

// TestUserString implements C3's test_user_string: scans forward from
// addr for a NUL terminator, returning the string length (excluding the
// terminator) or reporting a fault if the scan ran off a mapping. Under
// the enclave host type the first byte's address is first checked for VMA
// adjacency (reporting a fault if it fails); the same byte scan then runs,
// and bytes past the first are not adjacency-checked.
func (t *Thread) TestUserString(addr uintptr) (length int, hasFault bool) {
	if t.pal != nil && t.pal.HostType() == "Linux-SGX" {
		if t.vma != nil && !t.vma.IsInAdjacentVMAs(addr, 1) {
			return 0, true
		}
	}

	t.DisablePreempt()
	defer t.EnablePreempt()

	t.mu.Lock()
	t.testRange = TestRange{Start: addr, End: addr, ContAddr: probeContinuation}
	t.mu.Unlock()

	n := 0
	faulted := false
	if t.pal != nil {
		for {
			b, fault := t.pal.ProbeReadByte(addr + uintptr(n))
			if fault {
				faulted = true
				break
			}
			if b == 0 {
				break
			}
			n++
		}
	}

	t.mu.Lock()
	if t.testRange.HasFault {
		faulted = true
	}
	t.testRange = TestRange{}
	t.mu.Unlock()

	return n, faulted
}

// handleProbeFault is C2's first check on every memory-fault upcall: if a
// probe is active on this thread and addr falls within its range, record
// the fault and tell the router to stop (no signal is synthesized for an
// expected probe fault, per spec.md §7).
func (t *Thread) handleProbeFault(addr uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.testRange.Active() {
		return false
	}
	if addr < t.testRange.Start || addr > t.testRange.End {
		return false
	}
	t.testRange.HasFault = true
	return true
}
