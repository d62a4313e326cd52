package memqueue

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/fabriq/internal/metrics"
	"github.com/arloliu/fabriq/types"
)

// Storage is the process-wide topic registry: a mapping from topic name to an
// unbounded FIFO queue shared by all producers and consumers of that topic.
//
// Queues are created lazily on first use. After creation, enqueue and drain
// take only the per-queue lock, so topics do not contend with each other.
type Storage struct {
	metrics types.MetricsCollector
	queues  *xsync.Map[string, *fifo]
}

// NewStorage creates an empty topic registry.
//
// Parameters:
//   - collector: Metrics collector for queue operations (a no-op collector is
//     used when nil)
//
// Returns:
//   - *Storage: Initialized registry with no topics
func NewStorage(collector types.MetricsCollector) *Storage {
	if collector == nil {
		collector = metrics.NewNop()
	}

	return &Storage{
		metrics: collector,
		queues:  xsync.NewMap[string, *fifo](),
	}
}

// Enqueue appends msg to the topic's queue, creating the queue when the
// topic is new. Order within a topic is the linearized order of Enqueue
// calls across all producers.
func (s *Storage) Enqueue(topic string, msg types.QueueMsg) {
	s.queue(topic).put(msg)
	s.metrics.RecordEnqueue(topic)
}

// Drain removes and returns all messages currently queued on the topic.
// An unknown topic yields nil without creating a queue.
func (s *Storage) Drain(topic string) []types.QueueMsg {
	q, ok := s.queues.Load(topic)
	if !ok {
		return nil
	}

	msgs := q.drain()
	if len(msgs) > 0 {
		s.metrics.RecordPoll(topic, len(msgs))
	}

	return msgs
}

// Len returns the number of messages queued on the topic.
func (s *Storage) Len(topic string) int {
	q, ok := s.queues.Load(topic)
	if !ok {
		return 0
	}

	return q.len()
}

func (s *Storage) queue(topic string) *fifo {
	if q, ok := s.queues.Load(topic); ok {
		return q
	}

	q, _ := s.queues.LoadOrStore(topic, &fifo{})

	return q
}

// fifo is one topic's unbounded multi-producer / multi-consumer queue.
type fifo struct {
	mu   sync.Mutex
	msgs []types.QueueMsg
}

func (q *fifo) put(msg types.QueueMsg) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
}

func (q *fifo) drain() []types.QueueMsg {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) == 0 {
		return nil
	}

	msgs := q.msgs
	q.msgs = nil

	return msgs
}

func (q *fifo) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.msgs)
}
