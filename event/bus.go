// Package event provides the in-process event plane for the partition
// fabric.
//
// The partition service publishes PartitionChangeEvent and
// ClusterTopologyChangeEvent values here; interested components register
// handlers to rebuild their subscriptions when ownership moves.
package event

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/fabriq/internal/logger"
	"github.com/arloliu/fabriq/types"
)

// Handler receives published events. Handlers run synchronously with the
// publishing call and must not re-enter the partition service.
type Handler func(event any)

// Bus fans events out to registered handlers in registration order.
type Bus struct {
	logger types.Logger

	mu          sync.RWMutex
	subscribers []subscriber
	nextID      atomic.Uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Compile-time assertion that Bus implements EventPublisher.
var _ types.EventPublisher = (*Bus)(nil)

// NewBus creates an event bus.
//
// Parameters:
//   - log: Logger for handler failures (a no-op logger is used when nil)
//
// Returns:
//   - *Bus: Initialized bus with no subscribers
func NewBus(log types.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}

	return &Bus{logger: log}
}

// Subscribe registers a handler and returns its subscription id.
//
// Handlers are invoked in registration order on every Publish until
// Unsubscribe is called with the returned id.
func (b *Bus) Subscribe(handler Handler) uint64 {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return id
}

// Unsubscribe removes the handler registered under id.
//
// Returns:
//   - bool: true when a handler was removed, false for unknown ids
func (b *Bus) Unsubscribe(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.id == id {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return true
		}
	}

	return false
}

// Publish delivers event to every subscriber, in registration order,
// synchronously with the caller.
//
// A panicking handler is logged and skipped; remaining subscribers are still
// invoked.
func (b *Bus) Publish(event any) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub subscriber, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscription_id", sub.id,
				"event_type", fmt.Sprintf("%T", event),
				"panic", r,
			)
		}
	}()

	sub.handler(event)
}
