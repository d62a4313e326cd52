package fabriq

import "github.com/arloliu/fabriq/types"

// Re-export types from the internal types package.
//
// This file provides a stable, backward-compatible public API for the library's
// core types and interfaces. It uses type aliases to re-export definitions
// from the `types` subpackage, which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing internal packages
// to depend on `types` without depending on the root `fabriq` package, while
// still providing a convenient `fabriq.ServiceKey`, `fabriq.Logger`, etc. for users.
type (
	ServiceType                = types.ServiceType
	ServiceInfo                = types.ServiceInfo
	ServiceKey                 = types.ServiceKey
	TenantID                   = types.TenantID
	TopicPartitionInfo         = types.TopicPartitionInfo
	PartitionChangeEvent       = types.PartitionChangeEvent
	ClusterTopologyChangeEvent = types.ClusterTopologyChangeEvent
)

// Re-export interfaces from the internal types package for convenience.
type (
	ServiceInfoProvider  = types.ServiceInfoProvider
	IsolatedTenantSource = types.IsolatedTenantSource
	EventPublisher       = types.EventPublisher
	Logger               = types.Logger
	MetricsCollector     = types.MetricsCollector
)

// Re-export service role constants from the internal types package.
const (
	ServiceTypeCore       = types.ServiceTypeCore
	ServiceTypeRuleEngine = types.ServiceTypeRuleEngine
	ServiceTypeTransport  = types.ServiceTypeTransport
)

// NilTenantID is the shared-scope tenant identifier.
var NilTenantID = types.NilTenantID
