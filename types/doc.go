// Package types provides core type definitions and interfaces for the fabriq library.
//
// This package contains shared types that are used across multiple packages in the
// fabriq library. By keeping these types in a separate package, we avoid import cycles
// between the main fabriq package and its internal implementations.
//
// Key types:
//   - ServiceInfo: Advertised identity of a live service instance
//   - ServiceKey: Unit of partition isolation (role, tenant)
//   - TopicPartitionInfo: Immutable addressing value for a resolved destination
//   - QueueMsg: Message contract shared by queue producers and consumers
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
