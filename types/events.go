package types

// PartitionChangeEvent announces that the set of partitions owned by the
// local instance changed for one ServiceKey. One event is published per
// changed key per recomputation.
type PartitionChangeEvent struct {
	// ServiceKey identifies the (role, tenant) scope whose ownership changed.
	ServiceKey ServiceKey

	// Partitions is the complete new owned set, not a delta.
	Partitions []*TopicPartitionInfo
}

// ClusterTopologyChangeEvent announces that the peer membership changed for
// one or more ServiceKeys. At most one event is published per recomputation,
// batching every changed key.
type ClusterTopologyChangeEvent struct {
	ServiceKeys []ServiceKey
}

// EventPublisher publishes fabric events to in-process subscribers.
//
// Delivery is synchronous with the publishing call. Handlers must not
// re-enter the partition service.
type EventPublisher interface {
	// Publish delivers the event to all registered subscribers.
	Publish(event any)
}
