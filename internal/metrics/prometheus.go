package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/fabriq/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	recalcDuration    prometheus.Histogram
	recalcChangedKeys prometheus.Histogram
	ownedPartitions   *prometheus.GaugeVec
	resolves          *prometheus.CounterVec

	enqueues *prometheus.CounterVec
	polls    *prometheus.CounterVec

	pendingRequests prometheus.Gauge
	requestOutcomes *prometheus.CounterVec
	requestLatency  prometheus.Histogram
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "fabriq" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "fabriq"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.recalcDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "partitions",
			Name:      "recalculation_duration_seconds",
			Help:      "Duration of partition recomputations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us .. ~0.2s
		})
		p.recalcChangedKeys = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "partitions",
			Name:      "recalculation_changed_keys",
			Help:      "Number of service keys whose ownership changed per recomputation.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		})
		p.ownedPartitions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "partitions",
			Name:      "owned_total",
			Help:      "Partitions currently owned by this instance per service key.",
		}, []string{"service_key"})
		p.resolves = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitions",
			Name:      "resolves_total",
			Help:      "Entity resolutions by cache outcome (hit/miss).",
		}, []string{"cache"})

		p.enqueues = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "queue",
			Name:      "enqueues_total",
			Help:      "Messages enqueued per topic.",
		}, []string{"topic"})
		p.polls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "queue",
			Name:      "polled_messages_total",
			Help:      "Messages drained by consumers per topic.",
		}, []string{"topic"})

		p.pendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "pending_current",
			Help:      "Outstanding request/response calls.",
		})
		p.requestOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "completed_total",
			Help:      "Completed request/response calls by outcome.",
		}, []string{"outcome"})
		p.requestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "latency_seconds",
			Help:      "Latency between send and completion in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		})

		collectors := []prometheus.Collector{
			p.recalcDuration, p.recalcChangedKeys, p.ownedPartitions, p.resolves,
			p.enqueues, p.polls,
			p.pendingRequests, p.requestOutcomes, p.requestLatency,
		}
		for _, c := range collectors {
			// AlreadyRegisteredError is tolerated so multiple collectors can
			// share a registerer in tests.
			_ = p.reg.Register(c)
		}
	})
}

// RecordRecalculation records one partition recomputation.
func (p *PrometheusCollector) RecordRecalculation(duration float64, changedKeys int) {
	p.ensureRegistered()
	p.recalcDuration.Observe(duration)
	p.recalcChangedKeys.Observe(float64(changedKeys))
}

// RecordOwnedPartitions sets the owned-partition gauge for a service key.
func (p *PrometheusCollector) RecordOwnedPartitions(key types.ServiceKey, count int) {
	p.ensureRegistered()
	p.ownedPartitions.WithLabelValues(key.String()).Set(float64(count))
}

// RecordResolve records one entity resolution.
func (p *PrometheusCollector) RecordResolve(cacheHit bool) {
	p.ensureRegistered()
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	p.resolves.WithLabelValues(outcome).Inc()
}

// RecordEnqueue records a message appended to a topic queue.
func (p *PrometheusCollector) RecordEnqueue(topic string) {
	p.ensureRegistered()
	p.enqueues.WithLabelValues(topic).Inc()
}

// RecordPoll records one consumer poll.
func (p *PrometheusCollector) RecordPoll(topic string, messages int) {
	p.ensureRegistered()
	p.polls.WithLabelValues(topic).Add(float64(messages))
}

// RecordRequestEnqueued sets the pending-request gauge.
func (p *PrometheusCollector) RecordRequestEnqueued(pending int) {
	p.ensureRegistered()
	p.pendingRequests.Set(float64(pending))
}

// RecordRequestCompleted records a completed request.
func (p *PrometheusCollector) RecordRequestCompleted(outcome string, latency float64) {
	p.ensureRegistered()
	p.requestOutcomes.WithLabelValues(outcome).Inc()
	p.requestLatency.Observe(latency)
}
