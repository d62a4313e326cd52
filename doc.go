// Package fabriq provides the partition assignment and routing fabric for a
// clustered message platform.
//
// Stateless service instances of the core and rule-engine roles cooperate to
// process tenant-scoped messages keyed by entity UUIDs. Each role's logical
// topic is subdivided into a fixed number of partitions; fabriq maps every
// (role, tenant, entity) triple to a partition and decides which live
// instance currently owns each partition, recomputing with minimal churn when
// membership changes.
//
// # Quick Start
//
//	import (
//	    "github.com/arloliu/fabriq"
//	    "github.com/arloliu/fabriq/discovery"
//	    "github.com/arloliu/fabriq/event"
//	)
//
//	cfg := fabriq.DefaultConfig()
//	provider := discovery.NewStatic("core-0", []string{"TB_CORE"}, fabriq.NilTenantID)
//	bus := event.NewBus(nil)
//
//	svc, err := fabriq.NewPartitionService(cfg, provider, bus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.RecalculatePartitions(provider.ServiceInfo(), nil)
//
//	tpi, _ := svc.Resolve(fabriq.ServiceTypeCore, fabriq.NilTenantID, deviceID)
//
// # Key Features
//
//   - Consistent Hashing: Per-(role, tenant) rings with virtual nodes keep
//     reassignment near P/R partitions when one of R instances joins or leaves
//   - Tenant Isolation: Tenants with dedicated instances get their own rings
//     and their own topic namespace
//   - Event Plane: Partition-change and topology-change events let consumers
//     rebuild subscriptions when ownership moves
//   - In-Memory Queue Fabric: Topic registry, producer/consumer handles, and
//     a request/response template, all behind transport-agnostic contracts
//
// # Architecture
//
// The discovery layer feeds membership snapshots into
// PartitionService.RecalculatePartitions. Upstream code resolves entities to
// TopicPartitionInfo values, obtains producers for the resolved topics, and
// worker pools poll consumers subscribed to the partitions they own. The
// memqueue package provides the in-memory transport; the reqresp package
// correlates request/response pairs over any producer/consumer combination.
//
// See the cmd/fabriqd directory for a complete wiring example.
package fabriq
