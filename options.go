package fabriq

import "github.com/arloliu/fabriq/types"

// Option configures a PartitionService with optional dependencies.
type Option func(*serviceOptions)

// serviceOptions holds optional PartitionService configuration.
type serviceOptions struct {
	logger          types.Logger
	metrics         types.MetricsCollector
	isolationSource types.IsolatedTenantSource
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewPartitionService
//
// Example:
//
//	logger := logging.NewSlogDefault()
//	svc, err := fabriq.NewPartitionService(cfg, provider, bus, fabriq.WithLogger(logger))
func WithLogger(logger types.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewPartitionService
//
// Example:
//
//	collector := metrics.NewPrometheus(nil, "fabriq")
//	svc, err := fabriq.NewPartitionService(cfg, provider, bus, fabriq.WithMetrics(collector))
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *serviceOptions) {
		o.metrics = metrics
	}
}

// WithIsolatedTenantSource replaces the default isolation derivation.
//
// Without a source, tenant isolation is accumulated from peer advertisements
// and never pruned. With a source installed, every recomputation takes the
// source's map as the complete isolation state, which is how a database-backed
// implementation plugs in.
//
// Parameters:
//   - source: IsolatedTenantSource implementation
//
// Returns:
//   - Option: Functional option for NewPartitionService
func WithIsolatedTenantSource(source types.IsolatedTenantSource) Option {
	return func(o *serviceOptions) {
		o.isolationSource = source
	}
}
