package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_CapacityEviction(t *testing.T) {
	buf := New[string](2, 0)
	buf.Push("a")
	buf.Push("b")
	buf.Push("c")

	assert.Equal(t, []string{"b", "c"}, buf.Values())
	assert.Equal(t, 1, buf.DropStats().CapacityEvictions)
	require.NotNil(t, buf.DropStats().LastEvictionAt)
}

func TestBuffer_OverflowPlusTTL(t *testing.T) {
	now := time.Now()
	clockTick := 0
	ticks := []time.Time{now, now, now, now.Add(10 * time.Millisecond)}
	clock := func() time.Time {
		if clockTick >= len(ticks) {
			return ticks[len(ticks)-1]
		}
		tm := ticks[clockTick]
		clockTick++
		return tm
	}

	buf := New[string](2, 5*time.Millisecond).WithClock(clock)
	buf.Push("a")
	buf.Push("b")
	buf.Push("c") // evicts a

	require.Equal(t, 1, buf.DropStats().CapacityEvictions)

	removed := buf.Prune()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, buf.DropStats().TTLExpirations)
	assert.Equal(t, 1, buf.DropStats().CapacityEvictions, "capacity evictions must not change on prune")
	assert.Empty(t, buf.Values())
}

func TestBuffer_TTLZeroDisablesPrune(t *testing.T) {
	buf := New[int](4, 0)
	buf.Push(1)
	buf.Push(2)
	removed := buf.Prune()
	assert.Equal(t, 0, removed)
	assert.Equal(t, 0, buf.DropStats().TTLExpirations)
}

func TestBuffer_PruneAllOlderThanTTL(t *testing.T) {
	base := time.Now()
	calls := 0
	clock := func() time.Time {
		calls++
		if calls <= 3 {
			return base
		}
		return base.Add(time.Second)
	}
	buf := New[int](10, 100*time.Millisecond).WithClock(clock)
	buf.Push(1)
	buf.Push(2)
	buf.Push(3)

	removed := buf.Prune()
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, buf.Len())
}

func TestBuffer_LastAndLen(t *testing.T) {
	buf := New[int](3, 0)
	_, ok := buf.Last()
	assert.False(t, ok)

	buf.Push(7)
	buf.Push(9)
	v, ok := buf.Last()
	require.True(t, ok)
	assert.Equal(t, 9, v)
	assert.Equal(t, 2, buf.Len())
}
