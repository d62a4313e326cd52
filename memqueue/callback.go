package memqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/fabriq/internal/logger"
	"github.com/arloliu/fabriq/types"
)

// Pack tracks acknowledgement of one polled batch of messages.
//
// A worker pool polls a batch, hands each message to a processor together
// with that message's Callback, and awaits the pack before committing and
// polling again. The pack completes when every message has been acknowledged,
// successfully or not.
type Pack struct {
	logger  types.Logger
	pending *xsync.Map[uuid.UUID, types.QueueMsg]
	done    chan struct{}
	once    sync.Once
}

// NewPack creates a pack over a polled batch, keyed by message key.
//
// Parameters:
//   - msgs: The batch returned by one Poll
//   - log: Logger for processing failures (a no-op logger is used when nil)
//
// Returns:
//   - *Pack: Pack awaiting one acknowledgement per message
func NewPack(msgs []types.QueueMsg, log types.Logger) *Pack {
	if log == nil {
		log = logger.NewNop()
	}

	p := &Pack{
		logger:  log,
		pending: xsync.NewMap[uuid.UUID, types.QueueMsg](),
		done:    make(chan struct{}),
	}
	for _, msg := range msgs {
		p.pending.Store(msg.MsgKey(), msg)
	}
	if len(msgs) == 0 {
		p.complete()
	}

	return p
}

// Callback returns the acknowledgement callback for the message with the
// given key.
func (p *Pack) Callback(id uuid.UUID) *PackCallback {
	return &PackCallback{pack: p, id: id}
}

// Await blocks until every message is acknowledged or the timeout elapses.
//
// Returns:
//   - bool: true when the pack completed, false on timeout
func (p *Pack) Await(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Pack) ack(id uuid.UUID, err error) {
	msg, ok := p.pending.LoadAndDelete(id)
	if !ok {
		return
	}
	if err != nil {
		p.logger.Warn("failed to process message", "key", id.String(), "size", len(msg.MsgData()), "error", err)
	}
	if p.pending.Size() == 0 {
		p.complete()
	}
}

func (p *Pack) complete() {
	p.once.Do(func() { close(p.done) })
}

// PackCallback acknowledges one message of a Pack.
//
// Both outcomes release the message; a failure is logged but does not hold
// the rest of the batch hostage.
type PackCallback struct {
	pack *Pack
	id   uuid.UUID
}

// Compile-time assertion that PackCallback implements Callback.
var _ types.Callback = (*PackCallback)(nil)

// OnSuccess marks the message as processed.
func (c *PackCallback) OnSuccess() {
	c.pack.ack(c.id, nil)
}

// OnFailure marks the message as failed; the pack still progresses.
func (c *PackCallback) OnFailure(err error) {
	c.pack.ack(c.id, err)
}
