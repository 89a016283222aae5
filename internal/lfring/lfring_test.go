package lfring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	r := New[int](4)
	require.Equal(t, 4, r.Cap())

	vals := []int{1, 2, 3}
	for i := range vals {
		require.True(t, r.Push(&vals[i]))
	}

	for i := range vals {
		got := r.Pop()
		require.NotNil(t, got)
		assert.Equal(t, vals[i], *got)
	}
	assert.Nil(t, r.Pop())
}

func TestFullDropsIncoming(t *testing.T) {
	r := New[int](2)
	a, b, c := 1, 2, 3
	require.True(t, r.Push(&a))
	require.True(t, r.Push(&b))
	assert.False(t, r.Push(&c), "ring at capacity must reject further pushes")

	got := r.Pop()
	require.NotNil(t, got)
	assert.Equal(t, 1, *got)
}

func TestConcurrentProducersNoLossNoDuplication(t *testing.T) {
	const producers = 8
	const perProducer = 200
	r := New[int](2048)

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				for !r.Push(&v) {
					// capacity chosen large enough that this shouldn't spin in practice
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for {
		v := r.Pop()
		if v == nil {
			break
		}
		require.False(t, seen[*v], "duplicate value popped: %d", *v)
		seen[*v] = true
	}
	assert.Equal(t, producers*perProducer, len(seen))
}

func TestNewRoundsCapacityToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, New[int](0).Cap())
	assert.Equal(t, 8, New[int](5).Cap())
	assert.Equal(t, 32, New[int](32).Cap())
}
