package sigcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestInitSignalRegistersAllSixUpcalls(t *testing.T) {
	pal := newFakePAL()
	th := NewThread(1, 1, pal, nil, nil, nil)
	require.NoError(t, th.InitSignal())

	pal.fire(EventArithmetic, 0x401000, &Context{Regs: Registers{RIP: 0x401000}})
	rec := th.dequeue(unix.SIGFPE)
	require.NotNil(t, rec)
}

func TestInitSignalErrorsWithoutPAL(t *testing.T) {
	th := NewThread(1, 1, nil, nil, nil, nil)
	assert.ErrorIs(t, th.InitSignal(), ErrNoPAL)
}

func TestAppendSignalWakesTargetOnSuccess(t *testing.T) {
	tc := &nopTC{}
	th := NewThread(9, 9, newFakePAL(), nil, tc, nil)

	ok := AppendSignal(context.Background(), th, unix.SIGUSR1, SigInfo{Pid: 55}, true)
	require.True(t, ok)
	assert.Equal(t, []int32{9}, tc.woke)

	rec := th.dequeue(unix.SIGUSR1)
	require.NotNil(t, rec)
	assert.Equal(t, int32(55), rec.Info.Pid)
}

func TestAppendSignalNoWakeupWithoutFlag(t *testing.T) {
	tc := &nopTC{}
	th := NewThread(9, 9, newFakePAL(), nil, tc, nil)

	ok := AppendSignal(context.Background(), th, unix.SIGUSR1, SigInfo{}, false)
	require.True(t, ok)
	assert.Empty(t, tc.woke)
}

func TestHandleSysretSignalClearTestSet(t *testing.T) {
	th := NewThread(1, 1, newFakePAL(), nil, nil, nil)
	require.True(t, th.enqueue(unix.SIGUSR1, &SignalRecord{}))

	th.HandleSysretSignal()
	assert.True(t, th.mayDeliverNow(), "flag re-raised because has_signal is still non-zero")
}

func TestRequestCheckpointShortCircuitsDeliveryInstead(t *testing.T) {
	tc := &recordingTC{}
	th := NewThread(3, 3, newFakePAL(), nil, tc, nil)
	th.SetAction(unix.SIGUSR1, SigAction{Handler: 0x2000})
	require.True(t, th.enqueue(unix.SIGUSR1, &SignalRecord{Info: SigInfo{Signo: unix.SIGUSR1}}))
	th.RequestCheckpoint(77)

	delivered := th.HandleNextSignal(context.Background(), &Context{})
	assert.False(t, delivered, "checkpoint join takes priority over normal delivery this call")
	assert.Equal(t, 1, tc.checkpointCalls)
	assert.Equal(t, int32(3), tc.checkpointTid)
	assert.Equal(t, int64(77), tc.checkpointSess)

	// The pending SIGUSR1 is untouched and still deliverable on the next call.
	uc := &Context{}
	delivered = th.HandleNextSignal(context.Background(), uc)
	assert.True(t, delivered)
	assert.Equal(t, uint64(0x2000), uc.Regs.RIP, "the signal queued before the checkpoint request is still delivered")
	assert.Equal(t, 1, tc.checkpointCalls, "checkpoint join runs at most once per request")
}

func TestAppendSignalDropsIgnoredMaskedSIGCHLD(t *testing.T) {
	tc := &nopTC{}
	th := NewThread(5, 5, newFakePAL(), nil, tc, nil)
	th.SetAction(unix.SIGCHLD, SigAction{Handler: SigIgn})
	th.SetSigMask(SigMask(0).Add(unix.SIGCHLD))

	ok := AppendSignal(context.Background(), th, unix.SIGCHLD, SigInfo{}, false)
	require.True(t, ok)
	assert.Nil(t, th.dequeue(unix.SIGCHLD), "ignored-and-masked SIGCHLD must not be queued")
}

func TestAppendSignalQueuesMaskedSIGCHLDWithoutIgnore(t *testing.T) {
	tc := &nopTC{}
	th := NewThread(5, 5, newFakePAL(), nil, tc, nil)
	th.SetAction(unix.SIGCHLD, SigAction{Handler: 0x401000})
	th.SetSigMask(SigMask(0).Add(unix.SIGCHLD))

	ok := AppendSignal(context.Background(), th, unix.SIGCHLD, SigInfo{}, false)
	require.True(t, ok)
	assert.NotNil(t, th.dequeue(unix.SIGCHLD), "masked but non-ignored SIGCHLD stays queued pending unmask")
}

func TestHandleExitSignalOnlyRunsFatalDefaults(t *testing.T) {
	tc := &recordingTC{}
	reg := NewRegistry()
	th := reg.Spawn(1, 1, newFakePAL(), nil, tc)

	require.True(t, th.enqueue(unix.SIGCHLD, &SignalRecord{Info: SigInfo{Signo: unix.SIGCHLD}}))
	require.True(t, th.enqueue(unix.SIGABRT, &SignalRecord{Info: SigInfo{Signo: unix.SIGABRT}}))

	th.HandleExitSignal(context.Background())

	assert.True(t, tc.exited)
	assert.Equal(t, unix.SIGABRT, tc.exitedSig)
	assert.False(t, th.HasSignal())
}
