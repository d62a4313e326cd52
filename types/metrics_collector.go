package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods may be called concurrently and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	PartitionMetrics
	QueueMetrics
	RequestMetrics
}

// PartitionMetrics defines metrics for the partition service.
type PartitionMetrics interface {
	// RecordRecalculation records one partition recomputation.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - changedKeys: Number of ServiceKeys whose owned set changed
	RecordRecalculation(duration float64, changedKeys int)

	// RecordOwnedPartitions sets the number of partitions owned by the local
	// instance for a ServiceKey (gauge metric).
	RecordOwnedPartitions(key ServiceKey, count int)

	// RecordResolve records one entity resolution and whether it was served
	// from the TPI cache.
	RecordResolve(cacheHit bool)
}

// QueueMetrics defines metrics for the topic queues.
type QueueMetrics interface {
	// RecordEnqueue records a message appended to a topic queue.
	RecordEnqueue(topic string)

	// RecordPoll records one consumer poll and the number of messages it drained.
	RecordPoll(topic string, messages int)
}

// RequestMetrics defines metrics for the request/response template.
type RequestMetrics interface {
	// RecordRequestEnqueued sets the pending-request count after a successful send.
	RecordRequestEnqueued(pending int)

	// RecordRequestCompleted records a completed request.
	//
	// Parameters:
	//   - outcome: "success", "timeout", "cancelled", or "failed"
	//   - latency: Seconds between send and completion
	RecordRequestCompleted(outcome string, latency float64)
}
