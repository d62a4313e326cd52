package reqresp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/fabriq/internal/logger"
	"github.com/arloliu/fabriq/internal/metrics"
	"github.com/arloliu/fabriq/types"
)

// RequestIDHeader is the message header carrying the correlation UUID.
// Responders must copy it from the request into the response verbatim.
const RequestIDHeader = "requestId"

// Config configures a request/response template.
type Config struct {
	// MaxPendingRequests bounds the number of outstanding requests. Send
	// fails synchronously with ErrQueueFull at capacity.
	MaxPendingRequests int

	// MaxRequestTimeout is the per-call deadline for a response.
	MaxRequestTimeout time.Duration

	// PollInterval is both the response consumer poll timeout and the period
	// of the expiry tick.
	PollInterval time.Duration
}

// Option configures a Template with optional dependencies.
type Option func(*templateOptions)

type templateOptions struct {
	logger  types.Logger
	metrics types.MetricsCollector
}

// WithLogger sets a logger.
func WithLogger(log types.Logger) Option {
	return func(o *templateOptions) {
		o.logger = log
	}
}

// WithMetrics sets a metrics collector.
func WithMetrics(collector types.MetricsCollector) Option {
	return func(o *templateOptions) {
		o.metrics = collector
	}
}

// Template correlates responses to outstanding requests by generated id.
//
// One goroutine polls the response consumer and completes matching futures;
// a second ticks every PollInterval and fails futures whose deadline passed.
// Each future is completed at most once, whichever path gets there first.
type Template[Req, Resp types.QueueMsg] struct {
	producer types.Producer[Req]
	consumer types.Consumer[Resp]
	cfg      Config
	logger   types.Logger
	metrics  types.MetricsCollector

	pending      *xsync.Map[uuid.UUID, *pendingRequest[Resp]]
	pendingCount atomic.Int64

	started atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// pendingRequest tracks one outstanding send.
//
// Lifecycle: created by Send, then completed exactly once by the response
// poller, the expiry tick, a send failure callback, or shutdown.
type pendingRequest[Resp types.QueueMsg] struct {
	future   *Future[Resp]
	request  types.QueueMsg
	sentAt   time.Time
	deadline time.Time
}

// NewTemplate creates a request/response template over a producer/consumer
// pair.
//
// The producer's default topic is the request channel; the consumer's
// subscription is the response channel. Topics are parameterized per
// template, so different roles never share a channel implicitly.
//
// Parameters:
//   - producer: Request channel
//   - consumer: Response channel
//   - cfg: Capacity and timing configuration
//   - opts: Optional logger and metrics collector
//
// Returns:
//   - *Template[Req, Resp]: Initialized template (call Start before Send)
//
// Example:
//
//	producer := memqueue.NewProducer[*types.DefaultMsg](storage, cfg.TransportAPI.RequestsTopic)
//	consumer := memqueue.NewConsumer[*types.DefaultMsg](storage, cfg.TransportAPI.ResponsesTopic)
//	template := reqresp.NewTemplate(producer, consumer, reqresp.Config{
//	    MaxPendingRequests: cfg.TransportAPI.MaxPendingRequests,
//	    MaxRequestTimeout:  cfg.TransportAPI.MaxRequestsTimeout,
//	    PollInterval:       cfg.TransportAPI.PollInterval,
//	})
//	template.Start()
//	defer template.Stop()
func NewTemplate[Req, Resp types.QueueMsg](
	producer types.Producer[Req],
	consumer types.Consumer[Resp],
	cfg Config,
	opts ...Option,
) *Template[Req, Resp] {
	options := templateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.NewNop()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}

	return &Template[Req, Resp]{
		producer: producer,
		consumer: consumer,
		cfg:      cfg,
		logger:   options.logger,
		metrics:  options.metrics,
		pending:  xsync.NewMap[uuid.UUID, *pendingRequest[Resp]](),
	}
}

// Start launches the response poller and the expiry tick.
//
// Returns:
//   - error: ErrAlreadyStarted when the template is already running
func (t *Template[Req, Resp]) Start() error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	t.stopCh = make(chan struct{})
	t.wg.Go(t.pollResponses)
	t.wg.Go(t.expirePending)

	return nil
}

// Send stamps request with a fresh correlation id, enqueues it, and returns
// the future for the correlated response.
//
// Send fails synchronously with ErrQueueFull when MaxPendingRequests
// futures are outstanding; no request is enqueued in that case.
//
// Parameters:
//   - request: Request message; its headers receive the correlation id
//
// Returns:
//   - *Future[Resp]: Completes with the response, ErrRequestTimeout, or
//     ErrCancelled
//   - error: ErrNotStarted or ErrQueueFull
func (t *Template[Req, Resp]) Send(request Req) (*Future[Resp], error) {
	if !t.started.Load() {
		return nil, ErrNotStarted
	}

	count := t.pendingCount.Add(1)
	if count > int64(t.cfg.MaxPendingRequests) {
		t.pendingCount.Add(-1)
		return nil, ErrQueueFull
	}

	requestID := uuid.New()
	request.MsgHeaders().Put(RequestIDHeader, requestID[:])

	now := time.Now()
	entry := &pendingRequest[Resp]{
		future:   newFuture[Resp](),
		request:  request,
		sentAt:   now,
		deadline: now.Add(t.cfg.MaxRequestTimeout),
	}
	t.pending.Store(requestID, entry)
	t.metrics.RecordRequestEnqueued(int(count))

	t.producer.Send(nil, request, &sendCallback[Req, Resp]{template: t, requestID: requestID})

	return entry.future, nil
}

// Stop shuts the template down: the poller and the tick exit, every
// outstanding future completes with ErrCancelled, and the underlying
// producer and consumer are released.
//
// Returns:
//   - error: ErrNotStarted when the template is not running
func (t *Template[Req, Resp]) Stop() error {
	if !t.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}

	close(t.stopCh)
	t.wg.Wait()

	var zero Resp
	t.pending.Range(func(id uuid.UUID, _ *pendingRequest[Resp]) bool {
		t.completeEntry(id, zero, ErrCancelled, "cancelled")
		return true
	})

	t.consumer.Unsubscribe()
	t.producer.Stop()

	return nil
}

// PendingCount returns the number of outstanding requests.
func (t *Template[Req, Resp]) PendingCount() int {
	return int(t.pendingCount.Load())
}

// pollResponses drains the response channel and completes matching futures.
// A response with no pending entry (already timed out, or never ours) is
// logged and discarded.
func (t *Template[Req, Resp]) pollResponses() {
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		for _, response := range t.consumer.Poll(t.cfg.PollInterval) {
			header := response.MsgHeaders().Get(RequestIDHeader)
			requestID, err := uuid.FromBytes(header)
			if err != nil {
				t.logger.Warn("response without valid correlation id", "key", response.MsgKey().String())
				continue
			}

			if !t.completeEntry(requestID, response, nil, "success") {
				t.logger.Warn("response for unknown request", "requestId", requestID.String())
			}
		}
	}
}

// expirePending fails futures whose deadline passed.
func (t *Template[Req, Resp]) expirePending() {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case now := <-ticker.C:
			var zero Resp
			t.pending.Range(func(id uuid.UUID, entry *pendingRequest[Resp]) bool {
				if entry.deadline.Before(now) {
					t.completeEntry(id, zero, ErrRequestTimeout, "timeout")
				}
				return true
			})
		}
	}
}

// completeEntry removes the pending entry and completes its future. Removal
// and completion are both idempotent, so the response path, the expiry tick,
// a send failure, and shutdown can race safely.
func (t *Template[Req, Resp]) completeEntry(requestID uuid.UUID, response Resp, err error, outcome string) bool {
	entry, ok := t.pending.LoadAndDelete(requestID)
	if !ok {
		return false
	}

	t.pendingCount.Add(-1)
	if entry.future.complete(response, err) {
		t.metrics.RecordRequestCompleted(outcome, time.Since(entry.sentAt).Seconds())
	}

	return true
}

// sendCallback fails the future when the transport reports a send failure.
// Other pending requests are unaffected.
type sendCallback[Req, Resp types.QueueMsg] struct {
	template  *Template[Req, Resp]
	requestID uuid.UUID
}

var _ types.Callback = (*sendCallback[*types.DefaultMsg, *types.DefaultMsg])(nil)

// OnSuccess is a no-op; the future waits for the correlated response.
func (c *sendCallback[Req, Resp]) OnSuccess() {}

// OnFailure removes the pending entry and fails the future with err.
func (c *sendCallback[Req, Resp]) OnFailure(err error) {
	var zero Resp
	c.template.completeEntry(c.requestID, zero, err, "failed")
}
