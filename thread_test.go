package sigcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type nopTC struct{ woke []int32 }

func (n *nopTC) Wakeup(ctx context.Context, tid int32) error {
	n.woke = append(n.woke, tid)
	return nil
}
func (n *nopTC) KillProcessGroup(ctx context.Context, tgid int32, sig unix.Signal) error { return nil }
func (n *nopTC) JoinCheckpoint(ctx context.Context, tid int32, session int64) error      { return nil }
func (n *nopTC) ExitThreadOrProcess(ctx context.Context, status int, sig unix.Signal)    {}
func (n *nopTC) IsInternalThread(tid int32) bool                                        { return false }

func TestRegistrySpawnLookupRemove(t *testing.T) {
	r := NewRegistry()
	tc := &nopTC{}
	th := r.Spawn(1, 1, nil, nil, tc)
	require.NotNil(t, th)
	assert.Same(t, th, r.Lookup(1))
	assert.Equal(t, 1, r.Group().Len())

	r.Remove(1)
	assert.Nil(t, r.Lookup(1))
	assert.False(t, th.Alive())
	assert.Equal(t, 0, r.Group().Len())
}

func TestThreadSetSigMaskScrubsKillStop(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	applied := th.SetSigMask(SigMask(0).Add(unix.SIGKILL).Add(unix.SIGSTOP).Add(unix.SIGUSR1))
	assert.False(t, applied.Has(unix.SIGKILL))
	assert.False(t, applied.Has(unix.SIGSTOP))
	assert.True(t, applied.Has(unix.SIGUSR1))
	assert.Equal(t, applied, th.GetSigMask())
}

func TestThreadEnqueueDequeueTracksHasSignal(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	assert.False(t, th.HasSignal())

	ok := th.enqueue(unix.SIGUSR1, &SignalRecord{Info: SigInfo{Signo: unix.SIGUSR1}})
	require.True(t, ok)
	assert.True(t, th.HasSignal())

	rec := th.dequeue(unix.SIGUSR1)
	require.NotNil(t, rec)
	assert.Equal(t, unix.SIGUSR1, rec.Info.Signo)
	assert.False(t, th.HasSignal())
}

func TestThreadWakeupDelegatesToController(t *testing.T) {
	tc := &nopTC{}
	th := NewThread(7, 7, nil, nil, tc, nil)
	require.NoError(t, th.Wakeup(context.Background()))
	assert.Equal(t, []int32{7}, tc.woke)
}
