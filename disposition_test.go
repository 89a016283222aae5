package sigcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestSetActionRejectsKillStop(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	old := th.SetAction(unix.SIGKILL, SigAction{Handler: 0x1000})
	assert.Equal(t, uintptr(SigDfl), old.Handler)
	assert.Equal(t, uintptr(SigDfl), th.GetAction(unix.SIGKILL).Handler)
}

func TestSetActionScrubsMask(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	th.SetAction(unix.SIGUSR1, SigAction{
		Handler: 0x1000,
		Mask:    SigMask(0).Add(unix.SIGKILL).Add(unix.SIGUSR2),
	})
	got := th.GetAction(unix.SIGUSR1)
	assert.False(t, got.Mask.Has(unix.SIGKILL))
	assert.True(t, got.Mask.Has(unix.SIGUSR2))
}

func TestResolveForDeliveryResetsHandOnce(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	th.SetAction(unix.SIGUSR1, SigAction{Handler: 0x1000, Flags: SaResetHand})

	first := th.resolveForDelivery(unix.SIGUSR1)
	assert.Equal(t, uintptr(0x1000), first.Handler)

	second := th.GetAction(unix.SIGUSR1)
	assert.Equal(t, uintptr(SigDfl), second.Handler)
}

func TestAltStackRoundTrip(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	old := th.SetAltStack(AltStack{Base: 0x7000, Size: 8192})
	assert.Equal(t, uintptr(0), old.Base)
	assert.Equal(t, AltStack{Base: 0x7000, Size: 8192}, th.AltStack())
}
