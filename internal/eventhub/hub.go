// Package eventhub implements the channel-addressed pub/sub substrate
// every coordination core publishes through. It is built directly on
// top of internal/ringbuffer for per-channel backlog/replay.
//
// Delivery uses a mutex-guarded subscriber set, non-blocking
// offer-then-drop sends, and careful handling of the closed-channel
// case, generalized to support multiple named channels and replay
// instead of one global feed.
package eventhub

import (
	"sync"
	"sync/atomic"
	"time"

	"acfsgateway/internal/ringbuffer"
	"acfsgateway/internal/shared/logging"
)

// Event is a single published occurrence.
type Event struct {
	Seq        uint64
	Channel    Channel
	Type       string
	Payload    any
	Meta       map[string]any
	EnqueuedAt time.Time
}

// Callback receives events for a single subscription, invoked
// single-threaded and in publication order for that subscriber.
type Callback func(Event)

// Bus is the interface both Hub and NoopHub satisfy, letting consumers
// hold an Option<Hub>-equivalent instead of nil-checking a *Hub pointer,
// replacing silent ignore-if-uninitialized behavior with an explicit
// no-op implementation.
type Bus interface {
	Publish(channel Channel, eventType string, payload any, meta map[string]any)
	Subscribe(channel Channel, replay int, cb Callback) (unsubscribe func())
	DropCount() int64
}

const defaultSubscriberQueue = 64

// Config configures backlog sizing for newly created channels.
type Config struct {
	BacklogCapacity int           // per-channel replay buffer capacity
	BacklogTTL      time.Duration // per-channel replay buffer TTL (0 = no TTL)
	SubscriberQueue int           // per-subscriber delivery queue depth
}

func (c Config) normalized() Config {
	if c.BacklogCapacity <= 0 {
		c.BacklogCapacity = 256
	}
	if c.SubscriberQueue <= 0 {
		c.SubscriberQueue = defaultSubscriberQueue
	}
	return c
}

// Hub is the concrete pub/sub implementation.
type Hub struct {
	cfg    Config
	mu     sync.Mutex
	chans  map[Channel]*channelState
	seq    atomic.Uint64
	drops  atomic.Int64
	logger *logging.Logger
}

type channelState struct {
	buffer *ringbuffer.Buffer[Event]
	subs   map[uint64]*subscription
}

type subscription struct {
	id    uint64
	queue chan Event
	done  chan struct{}
}

// New creates a Hub with the given backlog configuration.
func New(cfg Config) *Hub {
	cfg = cfg.normalized()
	return &Hub{
		cfg:    cfg,
		chans:  make(map[Channel]*channelState),
		logger: logging.NewComponentLogger("EventHub"),
	}
}

func (h *Hub) channelLocked(ch Channel) *channelState {
	cs, ok := h.chans[ch]
	if !ok {
		cs = &channelState{
			buffer: ringbuffer.New[Event](h.cfg.BacklogCapacity, h.cfg.BacklogTTL),
			subs:   make(map[uint64]*subscription),
		}
		h.chans[ch] = cs
	}
	return cs
}

// Publish appends the event to the channel's backlog and delivers it to
// current subscribers. It never blocks on a slow subscriber: delivery is
// offered to each subscriber's queue and dropped (counted) if full.
// Publish never fails from the caller's perspective.
//
// The backlog push and the subscriber fan-out happen under the same
// lock acquisition, so two concurrent Publish calls on the same channel
// are delivered to every subscriber in the same relative order they were
// appended to the backlog, preserving the publish-order guarantee. This
// is safe because every subscriber send is non-blocking (select/default),
// so the lock is never held across a blocking I/O or subscriber-controlled
// wait.
func (h *Hub) Publish(channel Channel, eventType string, payload any, meta map[string]any) {
	evt := Event{
		Seq:        h.seq.Add(1),
		Channel:    channel,
		Type:       eventType,
		Payload:    payload,
		Meta:       meta,
		EnqueuedAt: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cs := h.channelLocked(channel)
	cs.buffer.Push(evt)

	for _, s := range cs.subs {
		select {
		case s.queue <- evt:
		default:
			h.drops.Add(1)
			h.logger.Debug("dropped event for slow subscriber", "channel_type", string(channel.Type), "channel_id", channel.ID, "event_type", eventType)
		}
	}
}

// Subscribe registers cb against channel, replaying up to `replay` of the
// most recent buffered events (in publication order) before delivering
// live events. The returned func unsubscribes idempotently.
func (h *Hub) Subscribe(channel Channel, replay int, cb Callback) func() {
	if cb == nil {
		return func() {}
	}

	h.mu.Lock()
	cs := h.channelLocked(channel)

	sub := &subscription{
		id:    h.seq.Add(1),
		queue: make(chan Event, h.cfg.SubscriberQueue),
		done:  make(chan struct{}),
	}

	if replay > 0 {
		entries := cs.buffer.Snapshot()
		start := 0
		if len(entries) > replay {
			start = len(entries) - replay
		}
		for _, e := range entries[start:] {
			select {
			case sub.queue <- e.Value:
			default:
				// Queue smaller than requested replay window; replay is
				// offered oldest first, so the newest entries that do not
				// fit are dropped (and counted) rather than block
				// registration.
				h.drops.Add(1)
			}
		}
	}

	cs.subs[sub.id] = sub
	h.mu.Unlock()

	go h.deliverLoop(sub, cb)

	return func() { h.unsubscribe(channel, sub.id) }
}

func (h *Hub) deliverLoop(sub *subscription, cb Callback) {
	for {
		select {
		case evt := <-sub.queue:
			cb(evt)
		case <-sub.done:
			return
		}
	}
}

func (h *Hub) unsubscribe(channel Channel, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cs, ok := h.chans[channel]
	if !ok {
		return
	}
	sub, ok := cs.subs[id]
	if !ok {
		return
	}
	delete(cs.subs, id)
	close(sub.done)
}

// DropCount returns the cumulative number of events dropped due to a full
// subscriber queue, across all channels.
func (h *Hub) DropCount() int64 { return h.drops.Load() }

// SubscriberCount returns the number of live subscribers on channel.
func (h *Hub) SubscriberCount(channel Channel) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	cs, ok := h.chans[channel]
	if !ok {
		return 0
	}
	return len(cs.subs)
}

var _ Bus = (*Hub)(nil)
