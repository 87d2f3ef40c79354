package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// DefaultSubscriptionBuffer is the number of events a subscriber may lag behind.
const DefaultSubscriptionBuffer = 64

// Broker fans events out to subscribers. Slow subscribers lose events instead
// of blocking the scheduler.
type Broker struct {
	subs   map[*Subscription]struct{}
	buffer int
	mu     sync.Mutex
}

// Subscription receives the events of the kinds it subscribed to.
type Subscription struct {
	broker  *Broker
	ch      chan alarm.Event
	kinds   map[alarm.EventKind]bool
	dropped atomic.Uint64
	once    sync.Once
}

// NewBroker creates a broker. buffer <= 0 uses DefaultSubscriptionBuffer.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}

	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber for the given kinds. No kinds means all.
func (b *Broker) Subscribe(kinds ...alarm.EventKind) *Subscription {
	sub := &Subscription{
		broker: b,
		ch:     make(chan alarm.Event, b.buffer),
		kinds:  make(map[alarm.EventKind]bool, len(kinds)),
	}

	for _, k := range kinds {
		sub.kinds[k] = true
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Emit implements Sink by publishing the event to matching subscribers.
func (b *Broker) Emit(_ context.Context, e alarm.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if len(sub.kinds) > 0 && !sub.kinds[e.Kind()] {
			continue
		}

		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// C returns the event channel. It is closed by Close.
func (s *Subscription) C() <-chan alarm.Event {
	return s.ch
}

// Dropped returns the number of events lost because the subscriber lagged.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		close(s.ch)
		s.broker.mu.Unlock()
	})
}
