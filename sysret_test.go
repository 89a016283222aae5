package sigcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSysretRewindTrampolineBodyRestoresSavedRegs(t *testing.T) {
	th := NewThread(1, 1, newFakePAL(), nil, nil, nil)
	th.SetSyscallReturnWindows(SafePoint{Begin: 0x1000, End: 0x1010}, SafePoint{}, SafePoint{})
	th.SetRegisterSaveArea(Registers{RAX: 42, RIP: 0x9999})

	ctx := &Context{Regs: Registers{RIP: 0x1004}}
	th.sysretRewind(0x1004, ctx)

	assert.Equal(t, uint64(42), ctx.Regs.RAX)
	assert.Equal(t, uint64(0x9999), ctx.Regs.RIP)
	assert.Equal(t, Registers{}, th.savedRegs, "save area must be cleared after rewind")
}

func TestSysretRewindFinalJumpCopiesTmpRip(t *testing.T) {
	th := NewThread(1, 1, newFakePAL(), nil, nil, nil)
	th.SetSyscallReturnWindows(SafePoint{}, SafePoint{Begin: 0x2000, End: 0x2000}, SafePoint{})
	th.SetTmpRip(0xABCD)

	ctx := &Context{Regs: Registers{RIP: 0x2000}}
	th.sysretRewind(0x2000, ctx)

	assert.Equal(t, uint64(0xABCD), ctx.Regs.RIP)
}

func TestSysretRewindSigpendingPopsReturnAddress(t *testing.T) {
	pal := newFakePAL()
	pal.words[0x7ff0] = 0x4242
	th := NewThread(1, 1, pal, nil, nil, nil)
	th.SetSyscallReturnWindows(SafePoint{}, SafePoint{}, SafePoint{Begin: 0x3000, End: 0x3010})

	ctx := &Context{Regs: Registers{RIP: 0x3005, RSP: 0x7ff0}}
	th.sysretRewind(0x3005, ctx)

	assert.Equal(t, uint64(0x4242), ctx.Regs.RIP)
	assert.Equal(t, uint64(0x7ff8), ctx.Regs.RSP)
}

func TestSysretRewindOutsideAnyWindowIsNoOp(t *testing.T) {
	th := NewThread(1, 1, newFakePAL(), nil, nil, nil)
	ctx := &Context{Regs: Registers{RIP: 0x9000}}
	th.sysretRewind(0x9000, ctx)
	assert.Equal(t, uint64(0x9000), ctx.Regs.RIP)
}
