// Package bus provides a typed, synchronous, in-process event bus.
//
// Handlers run in the publisher's goroutine, in the order they subscribed.
// Subscribing or cancelling from inside a handler is allowed; the change takes
// effect from the next Publish, except that a cancelled handler is never
// invoked after Cancel returns.
package bus

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type subscription[E any] struct {
	id      string
	handler Handler[E]
	active  atomic.Bool
	cancel  func()
}

func (s *subscription[E]) ID() string     { return s.id }
func (s *subscription[E]) IsActive() bool { return s.active.Load() }
func (s *subscription[E]) Cancel() error {
	if s.active.CompareAndSwap(true, false) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Bus fans events of type E out to its subscribers.
type Bus[E any] struct {
	name string

	mu sync.RWMutex
	// subs is copy-on-write so Publish can iterate without holding the lock.
	subs      []*subscription[E]
	observers []Observer
	metrics   Metrics
}

// New creates an empty bus. name only labels observer callbacks.
func New[E any](name string) *Bus[E] {
	return &Bus[E]{name: name}
}

// Name returns the label given to New.
func (b *Bus[E]) Name() string {
	return b.name
}

// Subscribe appends handler to the delivery order.
func (b *Bus[E]) Subscribe(handler Handler[E]) Subscription {
	s := &subscription[E]{id: uuid.NewString(), handler: handler}
	s.active.Store(true)
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(slices.Clone(b.subs), func(x *subscription[E]) bool { return x == s })
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]*subscription[E], len(b.subs), len(b.subs)+1)
	copy(next, b.subs)
	b.subs = append(next, s)
	return s
}

// Unsubscribe cancels sub. It is safe to call with nil.
func (b *Bus[E]) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

// Len returns the number of active subscriptions.
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers event to every active subscriber and joins their errors.
func (b *Bus[E]) Publish(event E) error {
	b.mu.RLock()
	subs := b.subs
	observing := len(b.observers) > 0
	b.mu.RUnlock()

	var start time.Time
	if observing {
		start = time.Now()
	}

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	if observing {
		b.observe(delivered, all, time.Since(start))
	}
	return all
}

// PublishBatch publishes events in order and aggregates errors across them.
func (b *Bus[E]) PublishBatch(events ...E) error {
	var all error
	for _, e := range events {
		if err := b.Publish(e); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

func (b *Bus[E]) observe(delivered int, err error, elapsed time.Duration) {
	b.mu.Lock()
	b.metrics.Published++
	b.metrics.DeliveredHandlers += uint64(delivered)
	if err != nil {
		b.metrics.Errors++
	}
	b.metrics.SubscribersActive = uint64(len(b.subs))
	observers := b.observers
	b.mu.Unlock()

	for _, obs := range observers {
		obs.OnDelivered(b.name, delivered, err, elapsed)
	}
}

// AddObserver registers obs for delivery callbacks and enables metrics.
func (b *Bus[E]) AddObserver(obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(slices.Clone(b.observers), obs)
}

// RemoveObserver unregisters obs.
func (b *Bus[E]) RemoveObserver(obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = slices.DeleteFunc(slices.Clone(b.observers), func(o Observer) bool { return o == obs })
}

// GetMetrics returns a snapshot of the counters.
func (b *Bus[E]) GetMetrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}
