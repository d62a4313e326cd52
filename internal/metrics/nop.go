// Package metrics provides MetricsCollector implementations for the fabriq
// library.
package metrics

import "github.com/arloliu/fabriq/types"

// NopMetrics is a no-op metrics collector that discards all measurements.
//
// Useful for tests and for deployments that handle observability elsewhere.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: Collector that performs no operations
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordRecalculation discards the measurement.
func (n *NopMetrics) RecordRecalculation(_ /* duration */ float64, _ /* changedKeys */ int) {}

// RecordOwnedPartitions discards the measurement.
func (n *NopMetrics) RecordOwnedPartitions(_ /* key */ types.ServiceKey, _ /* count */ int) {}

// RecordResolve discards the measurement.
func (n *NopMetrics) RecordResolve(_ /* cacheHit */ bool) {}

// RecordEnqueue discards the measurement.
func (n *NopMetrics) RecordEnqueue(_ /* topic */ string) {}

// RecordPoll discards the measurement.
func (n *NopMetrics) RecordPoll(_ /* topic */ string, _ /* messages */ int) {}

// RecordRequestEnqueued discards the measurement.
func (n *NopMetrics) RecordRequestEnqueued(_ /* pending */ int) {}

// RecordRequestCompleted discards the measurement.
func (n *NopMetrics) RecordRequestCompleted(_ /* outcome */ string, _ /* latency */ float64) {}
