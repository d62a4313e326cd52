package memqueue

import (
	"sync"
	"time"

	"github.com/arloliu/fabriq/types"
)

// pollGranularity is how often an idle Poll re-checks its topics while
// waiting for the first message.
const pollGranularity = 5 * time.Millisecond

// Consumer receives messages of type T from the in-memory topic registry.
//
// Construction subscribes the consumer to its base topic; Subscribe replaces
// the subscription with the full topic names of a partition set, which is how
// workers follow partition-change events.
type Consumer[T types.QueueMsg] struct {
	storage *Storage
	topic   string

	mu     sync.RWMutex
	topics []string
}

// Compile-time assertion that Consumer implements the consumer contract.
var _ types.Consumer[*types.DefaultMsg] = (*Consumer[*types.DefaultMsg])(nil)

// NewConsumer creates a consumer subscribed to its base topic.
//
// Parameters:
//   - storage: Topic registry shared with the producers
//   - topic: Base topic to subscribe to
//
// Returns:
//   - *Consumer[T]: Initialized, subscribed consumer
func NewConsumer[T types.QueueMsg](storage *Storage, topic string) *Consumer[T] {
	return &Consumer[T]{
		storage: storage,
		topic:   topic,
		topics:  []string{topic},
	}
}

// Topic returns the base topic the consumer was built for.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Subscribe replaces the consumer's subscriptions with the full topic names
// of the given partitions. With no arguments it restores the base topic
// subscription.
func (c *Consumer[T]) Subscribe(partitions ...*types.TopicPartitionInfo) {
	topics := make([]string, 0, max(len(partitions), 1))
	if len(partitions) == 0 {
		topics = append(topics, c.topic)
	}
	for _, tpi := range partitions {
		topics = append(topics, tpi.FullTopicName())
	}

	c.mu.Lock()
	c.topics = topics
	c.mu.Unlock()
}

// Poll returns the messages currently available on the subscribed topics.
//
// When none are available it waits up to timeout for the first message to
// arrive, then returns whatever has accumulated by then. An empty result
// after the timeout is the normal idle outcome. Messages of a different
// concrete type than T are dropped; pair one message type per topic.
func (c *Consumer[T]) Poll(timeout time.Duration) []T {
	deadline := time.Now().Add(timeout)

	for {
		msgs := c.drainAll()
		if len(msgs) > 0 {
			return msgs
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return msgs
		}

		time.Sleep(min(pollGranularity, remaining))
	}
}

// Commit acknowledges the messages returned by the previous Poll. Draining
// already removed them from the registry, so this is a no-op; the method
// exists because the same contract serves transports with real offsets.
func (c *Consumer[T]) Commit() {}

// Unsubscribe releases all subscriptions. A later Subscribe call makes the
// consumer usable again.
func (c *Consumer[T]) Unsubscribe() {
	c.mu.Lock()
	c.topics = nil
	c.mu.Unlock()
}

func (c *Consumer[T]) drainAll() []T {
	c.mu.RLock()
	topics := c.topics
	c.mu.RUnlock()

	var result []T
	for _, topic := range topics {
		for _, msg := range c.storage.Drain(topic) {
			if typed, ok := msg.(T); ok {
				result = append(result, typed)
			}
		}
	}

	return result
}
