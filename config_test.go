package sigcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestWithRingCapacityAppliesToSpawnedThreads(t *testing.T) {
	reg := NewRegistry(WithRingCapacity(2))
	th := reg.Spawn(1, 1, nil, nil, nil)

	require := assert.New(t)
	require.True(th.enqueue(unix.SIGUSR1, &SignalRecord{}))
	require.True(th.enqueue(unix.SIGUSR1, &SignalRecord{}))
	require.False(th.enqueue(unix.SIGUSR1, &SignalRecord{}), "capacity 2 rounds to 2, third push must drop")
}
