package memqueue

import (
	"github.com/arloliu/fabriq/event"
	"github.com/arloliu/fabriq/internal/logger"
	"github.com/arloliu/fabriq/types"
)

// SubscriptionHelper keeps a consumer subscribed to the partitions the local
// instance owns for one ServiceKey.
//
// The helper listens for PartitionChangeEvent on the event bus and replaces
// the consumer's subscription with each new owned set, closing the loop
// between the partition service's recomputation and the worker's poll loop.
type SubscriptionHelper[T types.QueueMsg] struct {
	bus        *event.Bus
	consumer   types.Consumer[T]
	serviceKey types.ServiceKey
	logger     types.Logger

	subscriptionID uint64
}

// NewSubscriptionHelper creates a helper and registers it on the bus.
//
// The consumer's subscription is updated synchronously with event delivery,
// so messages for newly owned partitions are picked up by the next Poll.
//
// Parameters:
//   - bus: Event bus the partition service publishes to
//   - consumer: Consumer whose subscription tracks ownership
//   - serviceKey: The (role, tenant) scope to follow
//   - log: Logger for subscription updates (a no-op logger is used when nil)
//
// Returns:
//   - *SubscriptionHelper[T]: Registered helper
//
// Example:
//
//	consumer := memqueue.NewConsumer[*types.DefaultMsg](storage, cfg.Core.Topic)
//	helper := memqueue.NewSubscriptionHelper[*types.DefaultMsg](bus, consumer,
//	    types.ServiceKey{ServiceType: types.ServiceTypeCore, TenantID: types.NilTenantID}, log)
//	defer helper.Close()
func NewSubscriptionHelper[T types.QueueMsg](
	bus *event.Bus,
	consumer types.Consumer[T],
	serviceKey types.ServiceKey,
	log types.Logger,
) *SubscriptionHelper[T] {
	if log == nil {
		log = logger.NewNop()
	}

	h := &SubscriptionHelper[T]{
		bus:        bus,
		consumer:   consumer,
		serviceKey: serviceKey,
		logger:     log,
	}
	h.subscriptionID = bus.Subscribe(h.onEvent)

	return h
}

// Close unregisters the helper from the bus. The consumer keeps its last
// subscription.
func (h *SubscriptionHelper[T]) Close() {
	h.bus.Unsubscribe(h.subscriptionID)
}

func (h *SubscriptionHelper[T]) onEvent(evt any) {
	change, ok := evt.(types.PartitionChangeEvent)
	if !ok || change.ServiceKey != h.serviceKey {
		return
	}

	if len(change.Partitions) == 0 {
		h.consumer.Unsubscribe()
	} else {
		h.consumer.Subscribe(change.Partitions...)
	}
	h.logger.Info("updated consumer subscription",
		"serviceKey", h.serviceKey.String(),
		"partitions", len(change.Partitions),
	)
}
