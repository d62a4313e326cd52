package memqueue

import "github.com/arloliu/fabriq/types"

// Producer sends messages of type T into the in-memory topic registry.
type Producer[T types.QueueMsg] struct {
	storage      *Storage
	defaultTopic string
}

// Compile-time assertion that Producer implements the producer contract.
var _ types.Producer[*types.DefaultMsg] = (*Producer[*types.DefaultMsg])(nil)

// NewProducer creates a producer bound to a default topic.
//
// Parameters:
//   - storage: Topic registry shared with the consumers
//   - defaultTopic: Topic used when Send is called with a nil destination
//
// Returns:
//   - *Producer[T]: Initialized producer
func NewProducer[T types.QueueMsg](storage *Storage, defaultTopic string) *Producer[T] {
	return &Producer[T]{storage: storage, defaultTopic: defaultTopic}
}

// DefaultTopic returns the topic the producer was built for.
func (p *Producer[T]) DefaultTopic() string {
	return p.defaultTopic
}

// Send enqueues msg for the destination described by tpi, or the default
// topic when tpi is nil.
//
// The in-memory enqueue cannot fail, so a non-nil callback always receives
// OnSuccess, synchronously. The callback parameter exists because the same
// contract serves distributed transports, where failure is real and late.
func (p *Producer[T]) Send(tpi *types.TopicPartitionInfo, msg T, callback types.Callback) {
	topic := p.defaultTopic
	if tpi != nil {
		topic = tpi.FullTopicName()
	}

	p.storage.Enqueue(topic, msg)

	if callback != nil {
		callback.OnSuccess()
	}
}

// Stop releases producer resources. The in-memory producer holds none.
func (p *Producer[T]) Stop() {}
