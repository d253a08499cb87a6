package eventhub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishSubscribeOrder(t *testing.T) {
	h := New(Config{})
	ch := System(ChannelTool)

	var mu sync.Mutex
	var received []string
	done := make(chan struct{}, 10)

	unsub := h.Subscribe(ch, 0, func(e Event) {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
		done <- struct{}{}
	})
	defer unsub()

	h.Publish(ch, "a", nil, nil)
	h.Publish(ch, "b", nil, nil)
	h.Publish(ch, "c", nil, nil)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, received)
}

func TestHub_ReplayOnSubscribe(t *testing.T) {
	h := New(Config{})
	ch := Session(ChannelSession, "sess-1")

	h.Publish(ch, "before-1", nil, nil)
	h.Publish(ch, "before-2", nil, nil)

	var mu sync.Mutex
	var received []string
	done := make(chan struct{}, 10)

	unsub := h.Subscribe(ch, 5, func(e Event) {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
		done <- struct{}{}
	})
	defer unsub()

	for i := 0; i < 2; i++ {
		<-done
	}

	mu.Lock()
	assert.Equal(t, []string{"before-1", "before-2"}, received)
	mu.Unlock()
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := New(Config{})
	ch := System(ChannelMaintenance)
	unsub := h.Subscribe(ch, 0, func(Event) {})
	unsub()
	require.NotPanics(t, func() { unsub() })
}

func TestHub_SlowSubscriberNeverBlocksPublisher(t *testing.T) {
	h := New(Config{SubscriberQueue: 1})
	ch := System(ChannelSnapshot)

	block := make(chan struct{})
	h.Subscribe(ch, 0, func(Event) {
		<-block
	})

	publishDone := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			h.Publish(ch, "x", nil, nil)
		}
		close(publishDone)
	}()

	select {
	case <-publishDone:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
	close(block)
	assert.GreaterOrEqual(t, h.DropCount(), int64(1))
}

// TestHub_ConcurrentPublishPreservesOrderPerSubscriber is the regression
// test for the backlog-push/subscriber-fan-out ordering race: two
// goroutines publishing on the same channel must be observed by a given
// subscriber in the same relative order they landed in the channel's
// backlog, never the reverse.
func TestHub_ConcurrentPublishPreservesOrderPerSubscriber(t *testing.T) {
	h := New(Config{BacklogCapacity: 4096, SubscriberQueue: 4096})
	ch := System(ChannelSession)

	const goroutines = 8
	const perGoroutine = 200

	var mu sync.Mutex
	var received []uint64
	done := make(chan struct{}, goroutines*perGoroutine)

	unsub := h.Subscribe(ch, 0, func(e Event) {
		mu.Lock()
		received = append(received, e.Seq)
		mu.Unlock()
		done <- struct{}{}
	})
	defer unsub()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				h.Publish(ch, "event", nil, nil)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < goroutines*perGoroutine; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	h.mu.Lock()
	backlog := h.chans[ch].buffer.Values()
	h.mu.Unlock()

	require.Len(t, received, goroutines*perGoroutine)
	require.Len(t, backlog, goroutines*perGoroutine)

	mu.Lock()
	defer mu.Unlock()
	for i, evt := range backlog {
		assert.Equal(t, evt.Seq, received[i], "subscriber delivery order diverged from backlog order at index %d", i)
	}
}

func TestNoopHub_SatisfiesBus(t *testing.T) {
	var bus Bus = NoopHub{}
	bus.Publish(System(ChannelSystem), "x", nil, nil)
	unsub := bus.Subscribe(System(ChannelSystem), 0, func(Event) {})
	unsub()
	assert.Equal(t, int64(0), bus.DropCount())
}
