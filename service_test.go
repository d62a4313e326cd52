package fabriq

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/fabriq/discovery"
	"github.com/arloliu/fabriq/types"
)

// eventRecorder captures every published fabric event in order.
type eventRecorder struct {
	events []any
}

func (r *eventRecorder) Publish(event any) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) partitionChanges() []types.PartitionChangeEvent {
	var result []types.PartitionChangeEvent
	for _, evt := range r.events {
		if change, ok := evt.(types.PartitionChangeEvent); ok {
			result = append(result, change)
		}
	}

	return result
}

func (r *eventRecorder) topologyChanges() []types.ClusterTopologyChangeEvent {
	var result []types.ClusterTopologyChangeEvent
	for _, evt := range r.events {
		if change, ok := evt.(types.ClusterTopologyChangeEvent); ok {
			result = append(result, change)
		}
	}

	return result
}

func (r *eventRecorder) reset() {
	r.events = nil
}

func coreInfo(serviceID string) types.ServiceInfo {
	return types.ServiceInfo{
		ServiceID:    serviceID,
		ServiceTypes: []string{"TB_CORE"},
		TenantID:     types.NilTenantID,
	}
}

func newTestService(t *testing.T, info types.ServiceInfo) (*PartitionService, *eventRecorder) {
	t.Helper()

	recorder := &eventRecorder{}
	provider := discovery.NewStatic(info.ServiceID, info.ServiceTypes, info.TenantID)
	svc, err := NewPartitionService(DefaultConfig(), provider, recorder)
	require.NoError(t, err)

	return svc, recorder
}

func TestNewPartitionService(t *testing.T) {
	t.Run("requires provider and publisher", func(t *testing.T) {
		_, err := NewPartitionService(DefaultConfig(), nil, &eventRecorder{})
		require.ErrorIs(t, err, ErrServiceInfoProviderRequired)

		provider := discovery.NewStatic("a", []string{"TB_CORE"}, types.NilTenantID)
		_, err = NewPartitionService(DefaultConfig(), provider, nil)
		require.ErrorIs(t, err, ErrEventPublisherRequired)
	})

	t.Run("fails fast on unknown hash function", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Partitions.HashFunctionName = "fnv1a"

		provider := discovery.NewStatic("a", []string{"TB_CORE"}, types.NilTenantID)
		_, err := NewPartitionService(cfg, provider, &eventRecorder{})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestResolve(t *testing.T) {
	current := coreInfo("core-0")
	svc, _ := newTestService(t, current)
	svc.RecalculatePartitions(current, nil)

	t.Run("is deterministic and in range", func(t *testing.T) {
		for range 20 {
			entityID := uuid.New()
			first, err := svc.Resolve(types.ServiceTypeCore, types.NilTenantID, entityID)
			require.NoError(t, err)
			second, err := svc.Resolve(types.ServiceTypeCore, types.NilTenantID, entityID)
			require.NoError(t, err)

			require.Equal(t, first.Topic, second.Topic)
			require.Equal(t, first.Partition, second.Partition)
			require.GreaterOrEqual(t, first.Partition, 0)
			require.Less(t, first.Partition, 100)
		}
	})

	t.Run("agrees across independent instances", func(t *testing.T) {
		other, _ := newTestService(t, current)
		other.RecalculatePartitions(current, nil)

		for range 20 {
			entityID := uuid.New()
			mine, err := svc.Resolve(types.ServiceTypeRuleEngine, types.NilTenantID, entityID)
			require.NoError(t, err)
			theirs, err := other.Resolve(types.ServiceTypeRuleEngine, types.NilTenantID, entityID)
			require.NoError(t, err)
			require.Equal(t, mine.Partition, theirs.Partition)
		}
	})

	t.Run("caches the built value", func(t *testing.T) {
		entityID := uuid.New()
		first, err := svc.Resolve(types.ServiceTypeCore, types.NilTenantID, entityID)
		require.NoError(t, err)
		second, err := svc.Resolve(types.ServiceTypeCore, types.NilTenantID, entityID)
		require.NoError(t, err)
		require.Same(t, first, second)
	})

	t.Run("rejects unconfigured roles", func(t *testing.T) {
		_, err := svc.Resolve(types.ServiceTypeTransport, types.NilTenantID, uuid.New())
		require.ErrorIs(t, err, ErrUnknownServiceType)
	})
}

func TestSoloCluster(t *testing.T) {
	current := coreInfo("core-0")
	svc, recorder := newTestService(t, current)
	svc.RecalculatePartitions(current, nil)

	t.Run("owns every partition", func(t *testing.T) {
		partitions := svc.GetCurrentPartitions(types.ServiceTypeCore)
		require.Len(t, partitions, 100)

		seen := make(map[int]struct{})
		for _, tpi := range partitions {
			require.True(t, tpi.MyPartition)
			require.True(t, tpi.TenantID.IsNil())
			seen[tpi.Partition] = struct{}{}
		}
		require.Len(t, seen, 100)
	})

	t.Run("resolves everything as owned", func(t *testing.T) {
		tpi, err := svc.Resolve(types.ServiceTypeCore, types.NilTenantID, uuid.New())
		require.NoError(t, err)
		require.True(t, tpi.MyPartition)
	})

	t.Run("publishes one partition change and no topology event", func(t *testing.T) {
		changes := recorder.partitionChanges()
		require.Len(t, changes, 1)
		require.Equal(t, types.ServiceKey{ServiceType: types.ServiceTypeCore, TenantID: types.NilTenantID}, changes[0].ServiceKey)
		require.Len(t, changes[0].Partitions, 100)
		require.Empty(t, recorder.topologyChanges())
	})

	t.Run("reports empty for roles it does not own", func(t *testing.T) {
		require.Empty(t, svc.GetCurrentPartitions(types.ServiceTypeRuleEngine))
	})
}

func TestTwoPeerSymmetry(t *testing.T) {
	infoA := coreInfo("core-a")
	infoB := coreInfo("core-b")

	svcA, _ := newTestService(t, infoA)
	svcB, _ := newTestService(t, infoB)

	svcA.RecalculatePartitions(infoA, []types.ServiceInfo{infoB})
	svcB.RecalculatePartitions(infoB, []types.ServiceInfo{infoA})

	ownedA := svcA.GetCurrentPartitions(types.ServiceTypeCore)
	ownedB := svcB.GetCurrentPartitions(types.ServiceTypeCore)

	t.Run("assignment partitions the space without overlap or gap", func(t *testing.T) {
		require.Equal(t, 100, len(ownedA)+len(ownedB))

		seen := make(map[int]string)
		for _, tpi := range ownedA {
			seen[tpi.Partition] = "a"
		}
		for _, tpi := range ownedB {
			_, dup := seen[tpi.Partition]
			require.False(t, dup, "partition %d owned by both peers", tpi.Partition)
			seen[tpi.Partition] = "b"
		}
		require.Len(t, seen, 100)
	})

	t.Run("both peers carry load", func(t *testing.T) {
		require.NotEmpty(t, ownedA)
		require.NotEmpty(t, ownedB)
	})

	t.Run("ownership flag matches the owned set", func(t *testing.T) {
		owned := make(map[int]struct{}, len(ownedA))
		for _, tpi := range ownedA {
			owned[tpi.Partition] = struct{}{}
		}

		for range 50 {
			tpi, err := svcA.Resolve(types.ServiceTypeCore, types.NilTenantID, uuid.New())
			require.NoError(t, err)
			_, mine := owned[tpi.Partition]
			require.Equal(t, mine, tpi.MyPartition)
		}
	})
}

func TestIsolatedTenant(t *testing.T) {
	tenant1 := types.NewTenantID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	tenant2 := types.NewTenantID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))

	current := coreInfo("core-0")
	isolatedPeer := types.ServiceInfo{
		ServiceID:    "core-t1",
		ServiceTypes: []string{"TB_CORE"},
		TenantID:     tenant1,
	}

	svc, _ := newTestService(t, current)
	svc.RecalculatePartitions(current, []types.ServiceInfo{isolatedPeer})

	t.Run("isolated tenant resolves into its own scope", func(t *testing.T) {
		tpi, err := svc.Resolve(types.ServiceTypeCore, tenant1, uuid.New())
		require.NoError(t, err)
		require.Equal(t, tenant1, tpi.TenantID)
		require.False(t, tpi.MyPartition)
	})

	t.Run("non-isolated tenant stays in the shared scope", func(t *testing.T) {
		tpi, err := svc.Resolve(types.ServiceTypeCore, tenant2, uuid.New())
		require.NoError(t, err)
		require.True(t, tpi.TenantID.IsNil())
	})

	t.Run("isolation is per role", func(t *testing.T) {
		tpi, err := svc.Resolve(types.ServiceTypeRuleEngine, tenant1, uuid.New())
		require.NoError(t, err)
		require.True(t, tpi.TenantID.IsNil())
	})

	t.Run("the isolated peer owns its whole ring", func(t *testing.T) {
		peerSvc, _ := newTestService(t, isolatedPeer)
		peerSvc.RecalculatePartitions(isolatedPeer, []types.ServiceInfo{current})

		owned := peerSvc.GetCurrentPartitions(types.ServiceTypeCore)
		require.Len(t, owned, 100)
		for _, tpi := range owned {
			require.Equal(t, tenant1, tpi.TenantID)
			require.True(t, tpi.MyPartition)
		}
	})
}

func TestMembershipChange(t *testing.T) {
	infoA := coreInfo("core-a")
	infoB := coreInfo("core-b")
	coreKey := types.ServiceKey{ServiceType: types.ServiceTypeCore, TenantID: types.NilTenantID}

	svc, recorder := newTestService(t, infoA)
	svc.RecalculatePartitions(infoA, []types.ServiceInfo{infoB})

	ownedBefore := make(map[int]struct{})
	for _, tpi := range svc.GetCurrentPartitions(types.ServiceTypeCore) {
		ownedBefore[tpi.Partition] = struct{}{}
	}

	recorder.reset()
	svc.RecalculatePartitions(infoA, nil)

	t.Run("emits the full new assignment", func(t *testing.T) {
		changes := recorder.partitionChanges()
		require.Len(t, changes, 1)
		require.Equal(t, coreKey, changes[0].ServiceKey)
		require.Len(t, changes[0].Partitions, 100)
	})

	t.Run("emits one batched topology event", func(t *testing.T) {
		topology := recorder.topologyChanges()
		require.Len(t, topology, 1)
		require.Contains(t, topology[0].ServiceKeys, coreKey)
	})

	t.Run("partition events precede the topology event", func(t *testing.T) {
		_, isPartition := recorder.events[0].(types.PartitionChangeEvent)
		require.True(t, isPartition)
		_, isTopology := recorder.events[len(recorder.events)-1].(types.ClusterTopologyChangeEvent)
		require.True(t, isTopology)
	})

	t.Run("kept partitions stay put", func(t *testing.T) {
		kept := 0
		for _, tpi := range svc.GetCurrentPartitions(types.ServiceTypeCore) {
			if _, ok := ownedBefore[tpi.Partition]; ok {
				kept++
			}
		}
		require.Equal(t, len(ownedBefore), kept, "partitions owned with two peers must survive the shrink")
	})

	t.Run("unchanged membership emits nothing", func(t *testing.T) {
		recorder.reset()
		svc.RecalculatePartitions(infoA, nil)
		require.Empty(t, recorder.partitionChanges())
		require.Empty(t, recorder.topologyChanges())
	})

	t.Run("cache never serves a stale ownership flag", func(t *testing.T) {
		for range 50 {
			tpi, err := svc.Resolve(types.ServiceTypeCore, types.NilTenantID, uuid.New())
			require.NoError(t, err)
			require.True(t, tpi.MyPartition, "solo instance owns every partition after the shrink")
		}
	})
}

func TestUnknownRoleInPeerAdvertisement(t *testing.T) {
	current := coreInfo("core-0")
	peer := types.ServiceInfo{
		ServiceID:    "hybrid-1",
		ServiceTypes: []string{"TB_CORE", "TB_ANALYTICS"},
		TenantID:     types.NilTenantID,
	}

	svc, _ := newTestService(t, current)
	svc.RecalculatePartitions(current, []types.ServiceInfo{peer})

	t.Run("peer stays valid for its known roles", func(t *testing.T) {
		ids := svc.GetAllServiceIDs(types.ServiceTypeCore)
		require.Equal(t, []string{"core-0", "hybrid-1"}, ids)
	})

	t.Run("assignment still covers the space", func(t *testing.T) {
		owned := len(svc.GetCurrentPartitions(types.ServiceTypeCore))
		require.Greater(t, owned, 0)
		require.Less(t, owned, 100)
	})
}

func TestGetAllServiceIDs(t *testing.T) {
	current := types.ServiceInfo{
		ServiceID:    "monolith-0",
		ServiceTypes: []string{"TB_CORE", "TB_RULE_ENGINE"},
		TenantID:     types.NilTenantID,
	}
	svc, _ := newTestService(t, current)

	t.Run("includes only the local instance before any snapshot", func(t *testing.T) {
		require.Equal(t, []string{"monolith-0"}, svc.GetAllServiceIDs(types.ServiceTypeCore))
	})

	t.Run("filters peers by declared role", func(t *testing.T) {
		ruleEngine := types.ServiceInfo{ServiceID: "re-1", ServiceTypes: []string{"TB_RULE_ENGINE"}, TenantID: types.NilTenantID}
		svc.RecalculatePartitions(current, []types.ServiceInfo{ruleEngine})

		require.Equal(t, []string{"monolith-0"}, svc.GetAllServiceIDs(types.ServiceTypeCore))
		require.Equal(t, []string{"monolith-0", "re-1"}, svc.GetAllServiceIDs(types.ServiceTypeRuleEngine))
	})
}

func TestGetNotificationsTopic(t *testing.T) {
	current := coreInfo("core-0")
	svc, _ := newTestService(t, current)

	t.Run("names the channel by role and instance", func(t *testing.T) {
		tpi := svc.GetNotificationsTopic(types.ServiceTypeCore, "core-7")
		require.Equal(t, "tb_core.notifications.core-7", tpi.Topic)
		require.Equal(t, types.NoPartition, tpi.Partition)
		require.True(t, tpi.TenantID.IsNil())

		tpi = svc.GetNotificationsTopic(types.ServiceTypeRuleEngine, "re-3")
		require.Equal(t, "tb_rule_engine.notifications.re-3", tpi.Topic)
	})

	t.Run("memoizes core and rule-engine channels", func(t *testing.T) {
		first := svc.GetNotificationsTopic(types.ServiceTypeCore, "core-9")
		second := svc.GetNotificationsTopic(types.ServiceTypeCore, "core-9")
		require.Same(t, first, second)
	})

	t.Run("builds other roles fresh", func(t *testing.T) {
		first := svc.GetNotificationsTopic(types.ServiceTypeTransport, "mqtt-0")
		second := svc.GetNotificationsTopic(types.ServiceTypeTransport, "mqtt-0")
		require.NotSame(t, first, second)
		require.Equal(t, *first, *second)
		require.Equal(t, "tb_transport.notifications.mqtt-0", first.Topic)
	})
}

func TestChurnOnScaleOut(t *testing.T) {
	infoA := coreInfo("core-a")
	infoB := coreInfo("core-b")
	infoC := coreInfo("core-c")

	svc, _ := newTestService(t, infoA)
	svc.RecalculatePartitions(infoA, []types.ServiceInfo{infoB})

	before := make(map[int]struct{})
	for _, tpi := range svc.GetCurrentPartitions(types.ServiceTypeCore) {
		before[tpi.Partition] = struct{}{}
	}

	svc.RecalculatePartitions(infoA, []types.ServiceInfo{infoB, infoC})

	// A never gains partitions when a node joins; it only cedes some to C.
	kept := 0
	after := svc.GetCurrentPartitions(types.ServiceTypeCore)
	for _, tpi := range after {
		_, ok := before[tpi.Partition]
		require.True(t, ok, "partition %d moved to the surviving node on scale-out", tpi.Partition)
		kept++
	}
	require.Greater(t, kept, 0)
	require.LessOrEqual(t, kept, len(before))
}

func TestIsolatedTenantSourceOverride(t *testing.T) {
	tenant := types.NewTenantID(uuid.MustParse("33333333-3333-3333-3333-333333333333"))

	recorder := &eventRecorder{}
	provider := discovery.NewStatic("core-0", []string{"TB_CORE"}, types.NilTenantID)
	source := staticIsolationSource{tenant: tenant}
	svc, err := NewPartitionService(DefaultConfig(), provider, recorder, WithIsolatedTenantSource(source))
	require.NoError(t, err)

	svc.RecalculatePartitions(provider.ServiceInfo(), nil)

	tpi, err := svc.Resolve(types.ServiceTypeCore, tenant, uuid.New())
	require.NoError(t, err)
	require.Equal(t, tenant, tpi.TenantID)
}

type staticIsolationSource struct {
	tenant types.TenantID
}

func (s staticIsolationSource) IsolatedTenants() map[types.TenantID][]types.ServiceType {
	return map[types.TenantID][]types.ServiceType{
		s.tenant: {types.ServiceTypeCore},
	}
}
