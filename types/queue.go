package types

import (
	"time"

	"github.com/google/uuid"
)

// Headers carries string-keyed binary metadata on a queue message.
type Headers map[string][]byte

// Put stores a header value, replacing any previous value for the key.
func (h Headers) Put(key string, value []byte) {
	h[key] = value
}

// Get returns the header value for key, or nil when absent.
func (h Headers) Get(key string) []byte {
	return h[key]
}

// QueueMsg is the message contract shared by queue producers and consumers.
type QueueMsg interface {
	// MsgKey returns the message key used for correlation and partitioning.
	MsgKey() uuid.UUID

	// MsgHeaders returns the mutable message headers.
	MsgHeaders() Headers

	// MsgData returns the message payload.
	MsgData() []byte
}

// DefaultMsg is the basic QueueMsg implementation used by the in-memory
// transport and tests. Transport integrations may define their own carriers
// as long as they satisfy QueueMsg.
type DefaultMsg struct {
	Key     uuid.UUID
	Headers Headers
	Data    []byte
}

// Compile-time assertion that DefaultMsg implements QueueMsg.
var _ QueueMsg = (*DefaultMsg)(nil)

// NewDefaultMsg creates a message with empty headers.
func NewDefaultMsg(key uuid.UUID, data []byte) *DefaultMsg {
	return &DefaultMsg{Key: key, Headers: Headers{}, Data: data}
}

// MsgKey returns the message key.
func (m *DefaultMsg) MsgKey() uuid.UUID { return m.Key }

// MsgHeaders returns the mutable message headers.
func (m *DefaultMsg) MsgHeaders() Headers { return m.Headers }

// MsgData returns the message payload.
func (m *DefaultMsg) MsgData() []byte { return m.Data }

// Callback receives the outcome of an asynchronous send.
//
// The in-memory transport invokes OnSuccess synchronously with the enqueue;
// distributed transports may invoke either method later from their own
// goroutines.
type Callback interface {
	OnSuccess()
	OnFailure(err error)
}

// Producer sends messages of type T to a topic.
//
// A producer is bound to a default topic at construction; Send may target any
// resolved TopicPartitionInfo.
type Producer[T QueueMsg] interface {
	// DefaultTopic returns the topic the producer was built for.
	DefaultTopic() string

	// Send enqueues msg for the destination described by tpi.
	// callback may be nil when the caller does not care about the outcome.
	Send(tpi *TopicPartitionInfo, msg T, callback Callback)

	// Stop releases producer resources.
	Stop()
}

// Consumer receives messages of type T from subscribed topics.
//
// Construction subscribes the consumer to its base topic. Subscribe replaces
// the subscription with the topics of the given partitions, which is how
// workers follow partition-change events.
type Consumer[T QueueMsg] interface {
	// Topic returns the base topic the consumer was built for.
	Topic() string

	// Subscribe replaces the consumer's subscriptions with the full topic
	// names of the given partitions. With no arguments it restores the base
	// topic subscription.
	Subscribe(partitions ...*TopicPartitionInfo)

	// Poll returns the messages currently available on the subscribed topics.
	// When none are available it waits up to timeout for the first message,
	// then returns whatever has accumulated. An empty slice after the timeout
	// is the normal idle result.
	Poll(timeout time.Duration) []T

	// Commit acknowledges the messages returned by the previous Poll.
	// The in-memory transport treats this as a no-op.
	Commit()

	// Unsubscribe releases all subscriptions.
	Unsubscribe()
}
