package fabriq

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/fabriq/internal/hashing"
	"github.com/arloliu/fabriq/internal/logger"
	"github.com/arloliu/fabriq/internal/metrics"
	"github.com/arloliu/fabriq/internal/ring"
	"github.com/arloliu/fabriq/types"
)

// PartitionService maps entities to partitions and partitions to live service
// instances using per-(role, tenant) consistent hash rings.
//
// Read paths (Resolve, GetCurrentPartitions, GetAllServiceIDs,
// GetNotificationsTopic) are safe for concurrent callers. The snapshot state
// they read (owned partitions, isolation map, TPI cache, peer list) is
// replaced by reference on every RecalculatePartitions call, so readers
// observe either the previous or the next state as a whole.
//
// RecalculatePartitions is expected to be serialized by the discovery layer
// that invokes it; a mutex guards it against accidental overlap anyway.
type PartitionService struct {
	cfg             Config
	hashFn          hashing.Function
	provider        types.ServiceInfoProvider
	publisher       types.EventPublisher
	isolationSource types.IsolatedTenantSource
	logger          types.Logger
	metrics         types.MetricsCollector

	// Populated at construction, read-only afterwards.
	partitionTopics map[types.ServiceType]string
	partitionSizes  map[types.ServiceType]int

	// Serializes RecalculatePartitions.
	recalcMu sync.Mutex

	myPartitions    atomic.Pointer[map[types.ServiceKey][]int]
	isolatedTenants atomic.Pointer[map[types.TenantID]map[types.ServiceType]struct{}]
	tpiCache        atomic.Pointer[xsync.Map[tpiCacheKey, *types.TopicPartitionInfo]]
	otherServices   atomic.Pointer[[]types.ServiceInfo]

	coreNotificationTopics       *xsync.Map[string, *types.TopicPartitionInfo]
	ruleEngineNotificationTopics *xsync.Map[string, *types.TopicPartitionInfo]
}

// tpiCacheKey memoizes resolve results. TenantID stays zero for partitions in
// the shared scope so isolated and shared lookups never collide.
type tpiCacheKey struct {
	serviceType types.ServiceType
	tenantID    types.TenantID
	partition   int
}

// NewPartitionService creates a partition service.
//
// The service recognizes the core and rule-engine roles; their topics and
// partition counts come from cfg. An unknown hash function name is a fatal
// configuration error surfaced here, before the service can be used.
//
// Parameters:
//   - cfg: Fabric configuration (missing values are defaulted)
//   - provider: Supplies the local instance's ServiceInfo
//   - publisher: Receives partition-change and topology-change events
//   - opts: Optional logger, metrics collector, and isolation source
//
// Returns:
//   - *PartitionService: Initialized service with an empty assignment snapshot
//   - error: Configuration or dependency error
//
// Example:
//
//	bus := event.NewBus(log)
//	svc, err := fabriq.NewPartitionService(cfg, provider, bus, fabriq.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	svc.RecalculatePartitions(provider.ServiceInfo(), nil)
func NewPartitionService(
	cfg Config,
	provider types.ServiceInfoProvider,
	publisher types.EventPublisher,
	opts ...Option,
) (*PartitionService, error) {
	if provider == nil {
		return nil, ErrServiceInfoProviderRequired
	}
	if publisher == nil {
		return nil, ErrEventPublisherRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.NewNop()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}

	hashFn, err := hashing.ForName(cfg.Partitions.HashFunctionName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s := &PartitionService{
		cfg:             cfg,
		hashFn:          hashFn,
		provider:        provider,
		publisher:       publisher,
		isolationSource: options.isolationSource,
		logger:          options.logger,
		metrics:         options.metrics,
		partitionTopics: map[types.ServiceType]string{
			types.ServiceTypeCore:       cfg.Core.Topic,
			types.ServiceTypeRuleEngine: cfg.RuleEngine.Topic,
		},
		partitionSizes: map[types.ServiceType]int{
			types.ServiceTypeCore:       cfg.Core.Partitions,
			types.ServiceTypeRuleEngine: cfg.RuleEngine.Partitions,
		},
		coreNotificationTopics:       xsync.NewMap[string, *types.TopicPartitionInfo](),
		ruleEngineNotificationTopics: xsync.NewMap[string, *types.TopicPartitionInfo](),
	}

	emptyPartitions := map[types.ServiceKey][]int{}
	s.myPartitions.Store(&emptyPartitions)
	emptyIsolated := map[types.TenantID]map[types.ServiceType]struct{}{}
	s.isolatedTenants.Store(&emptyIsolated)
	s.tpiCache.Store(xsync.NewMap[tpiCacheKey, *types.TopicPartitionInfo]())

	return s, nil
}

// Resolve maps an entity to its topic partition.
//
// Resolution is deterministic and independent of cluster membership: the
// entity UUID's two big-endian halves are hashed and reduced modulo the
// role's partition count. The returned value is shared through an internal
// cache; callers must treat it as immutable.
//
// Parameters:
//   - serviceType: Role whose topic the entity is routed to
//   - tenantID: Tenant scope of the message (NilTenantID for system messages)
//   - entityID: Entity UUID that determines the partition
//
// Returns:
//   - *types.TopicPartitionInfo: Resolved destination
//   - error: ErrUnknownServiceType when the role has no configured partitions
func (s *PartitionService) Resolve(
	serviceType types.ServiceType,
	tenantID types.TenantID,
	entityID uuid.UUID,
) (*types.TopicPartitionInfo, error) {
	size, ok := s.partitionSizes[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownServiceType, serviceType)
	}

	msb, lsb := types.UUIDBits(entityID)
	hash := s.hashFn.New().PutLong(msb).PutLong(lsb).Sum().AsInt32()
	partition := absMod(int64(hash), int64(size))

	key := tpiCacheKey{serviceType: serviceType, partition: partition}
	if s.isIsolated(serviceType, tenantID) {
		key.tenantID = tenantID
	}

	cache := s.tpiCache.Load()
	if tpi, ok := cache.Load(key); ok {
		s.metrics.RecordResolve(true)
		return tpi, nil
	}

	tpi, _ := cache.LoadOrStore(key, s.buildTopicPartitionInfo(serviceType, tenantID, partition))
	s.metrics.RecordResolve(false)

	return tpi, nil
}

// RecalculatePartitions rebuilds the ownership snapshot from a membership
// snapshot.
//
// For every declared role of every instance, virtualNodesSize ring positions
// are computed from hash(serviceId || index); partition i is owned by the
// instance at the first ring position >= hash(i). Peers computing from the
// same snapshot with the same configuration arrive at the same ownership,
// partitioning the index space without overlap or gap.
//
// A PartitionChangeEvent is published for every ServiceKey whose owned list
// changed, including keys that lost all partitions. When the peer list
// changed per ServiceKey, one batched ClusterTopologyChangeEvent follows. No
// topology event is published on the first call; the snapshot is simply
// stored. The TPI cache is discarded wholesale so later resolves never carry
// a stale ownership flag.
//
// The discovery layer is expected to serialize calls.
//
// Parameters:
//   - current: The local instance's advertisement
//   - others: Advertisements of all other live instances
func (s *PartitionService) RecalculatePartitions(current types.ServiceInfo, others []types.ServiceInfo) {
	s.recalcMu.Lock()
	defer s.recalcMu.Unlock()

	start := time.Now()

	s.logServiceInfo(current)
	for _, other := range others {
		s.logServiceInfo(other)
	}

	circles := make(map[types.ServiceKey]*ring.Circle[types.ServiceInfo])
	s.addNode(circles, current)

	newIsolated := s.cloneIsolatedTenants()
	for _, other := range others {
		s.addNode(circles, other)
		if other.TenantID.IsNil() {
			continue
		}
		for _, name := range other.ServiceTypes {
			serviceType, err := types.ParseServiceType(name)
			if err != nil {
				continue // already logged by addNode
			}
			roles, ok := newIsolated[other.TenantID]
			if !ok {
				roles = make(map[types.ServiceType]struct{})
				newIsolated[other.TenantID] = roles
			}
			roles[serviceType] = struct{}{}
		}
	}
	if s.isolationSource != nil {
		newIsolated = make(map[types.TenantID]map[types.ServiceType]struct{})
		for tenantID, serviceTypes := range s.isolationSource.IsolatedTenants() {
			roles := make(map[types.ServiceType]struct{}, len(serviceTypes))
			for _, serviceType := range serviceTypes {
				roles[serviceType] = struct{}{}
			}
			newIsolated[tenantID] = roles
		}
	}
	s.isolatedTenants.Store(&newIsolated)

	oldPartitions := *s.myPartitions.Load()
	newPartitions := make(map[types.ServiceKey][]int)
	myTenantID := current.TenantID

	for _, serviceType := range s.sortedServiceTypes() {
		size := s.partitionSizes[serviceType]
		circle := circles[types.ServiceKey{ServiceType: serviceType, TenantID: myTenantID}]
		for i := range size {
			owner, ok := s.resolveByPartitionIdx(circle, i)
			if !ok {
				continue
			}
			if owner.Equal(current) {
				key := types.ServiceKey{ServiceType: serviceType, TenantID: owner.TenantID}
				newPartitions[key] = append(newPartitions[key], i)
			}
		}
	}

	s.myPartitions.Store(&newPartitions)

	changedKeys := 0
	for _, key := range sortedServiceKeys(newPartitions) {
		partitions := newPartitions[key]
		s.metrics.RecordOwnedPartitions(key, len(partitions))
		if slices.Equal(partitions, oldPartitions[key]) {
			continue
		}
		s.logger.Info("new partitions", "serviceKey", key.String(), "partitions", partitions)
		tpis := make([]*types.TopicPartitionInfo, 0, len(partitions))
		for _, partition := range partitions {
			tpis = append(tpis, s.buildTopicPartitionInfo(key.ServiceType, key.TenantID, partition))
		}
		s.publisher.Publish(types.PartitionChangeEvent{ServiceKey: key, Partitions: tpis})
		changedKeys++
	}
	for _, key := range sortedServiceKeys(oldPartitions) {
		if _, ok := newPartitions[key]; ok {
			continue
		}
		s.metrics.RecordOwnedPartitions(key, 0)
		s.logger.Info("released all partitions", "serviceKey", key.String())
		s.publisher.Publish(types.PartitionChangeEvent{ServiceKey: key, Partitions: nil})
		changedKeys++
	}

	s.tpiCache.Store(xsync.NewMap[tpiCacheKey, *types.TopicPartitionInfo]())

	prev := s.otherServices.Load()
	newList := slices.Clone(others)
	s.otherServices.Store(&newList)
	if prev != nil {
		s.publishTopologyChanges(*prev, newList)
	}

	s.metrics.RecordRecalculation(time.Since(start).Seconds(), changedKeys)
}

// GetCurrentPartitions returns the partitions the local instance currently
// owns for a role, as TPIs over the last recomputation's snapshot.
//
// A role with no owned partitions (including one the instance never owned)
// yields an empty slice.
func (s *PartitionService) GetCurrentPartitions(serviceType types.ServiceType) []*types.TopicPartitionInfo {
	tenantID := s.provider.ServiceInfo().TenantID
	key := types.ServiceKey{ServiceType: serviceType, TenantID: tenantID}
	partitions := (*s.myPartitions.Load())[key]

	result := make([]*types.TopicPartitionInfo, 0, len(partitions))
	for _, partition := range partitions {
		tpi := &types.TopicPartitionInfo{
			Topic:       s.partitionTopics[serviceType],
			Partition:   partition,
			MyPartition: true,
		}
		if !tenantID.IsNil() {
			tpi.TenantID = tenantID
		}
		result = append(result, tpi)
	}

	return result
}

// GetAllServiceIDs returns the IDs of every known instance (local and peers)
// declaring the given role, sorted for stable output.
func (s *PartitionService) GetAllServiceIDs(serviceType types.ServiceType) []string {
	seen := make(map[string]struct{})

	current := s.provider.ServiceInfo()
	if current.HasServiceType(serviceType) {
		seen[current.ServiceID] = struct{}{}
	}
	if others := s.otherServices.Load(); others != nil {
		for _, other := range *others {
			if other.HasServiceType(serviceType) {
				seen[other.ServiceID] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	slices.Sort(result)

	return result
}

// GetNotificationsTopic returns the stable per-instance notification channel
// for a role: "<role-lowercase>.notifications.<serviceId>", unpartitioned and
// unscoped.
//
// Values for the core and rule-engine roles are memoized per serviceId; other
// roles get a fresh value each call.
func (s *PartitionService) GetNotificationsTopic(serviceType types.ServiceType, serviceID string) *types.TopicPartitionInfo {
	switch serviceType {
	case types.ServiceTypeCore:
		tpi, _ := s.coreNotificationTopics.LoadOrStore(serviceID, buildNotificationsTopicPartitionInfo(serviceType, serviceID))
		return tpi
	case types.ServiceTypeRuleEngine:
		tpi, _ := s.ruleEngineNotificationTopics.LoadOrStore(serviceID, buildNotificationsTopicPartitionInfo(serviceType, serviceID))
		return tpi
	default:
		return buildNotificationsTopicPartitionInfo(serviceType, serviceID)
	}
}

// buildTopicPartitionInfo constructs the TPI for one resolved partition,
// stamping the tenant for isolated scopes and the current ownership flag.
func (s *PartitionService) buildTopicPartitionInfo(
	serviceType types.ServiceType,
	tenantID types.TenantID,
	partition int,
) *types.TopicPartitionInfo {
	tpi := &types.TopicPartitionInfo{
		Topic:     s.partitionTopics[serviceType],
		Partition: partition,
	}

	searchKey := types.ServiceKey{ServiceType: serviceType, TenantID: types.NilTenantID}
	if s.isIsolated(serviceType, tenantID) {
		tpi.TenantID = tenantID
		searchKey.TenantID = tenantID
	}

	if partitions, ok := (*s.myPartitions.Load())[searchKey]; ok {
		tpi.MyPartition = slices.Contains(partitions, partition)
	}

	return tpi
}

func buildNotificationsTopicPartitionInfo(serviceType types.ServiceType, serviceID string) *types.TopicPartitionInfo {
	return &types.TopicPartitionInfo{
		Topic:     strings.ToLower(string(serviceType)) + ".notifications." + serviceID,
		Partition: types.NoPartition,
	}
}

func (s *PartitionService) isIsolated(serviceType types.ServiceType, tenantID types.TenantID) bool {
	roles, ok := (*s.isolatedTenants.Load())[tenantID]
	if !ok {
		return false
	}
	_, isolated := roles[serviceType]

	return isolated
}

// addNode places an instance's virtual nodes on the circle of every role it
// declares. Unknown role names are logged and skipped; the instance stays
// valid for its remaining roles.
func (s *PartitionService) addNode(circles map[types.ServiceKey]*ring.Circle[types.ServiceInfo], instance types.ServiceInfo) {
	for _, name := range instance.ServiceTypes {
		serviceType, err := types.ParseServiceType(name)
		if err != nil {
			s.logger.Warn("skipping unknown service type in advertisement",
				"serviceId", instance.ServiceID, "serviceType", name)

			continue
		}

		key := types.ServiceKey{ServiceType: serviceType, TenantID: instance.TenantID}
		circle, ok := circles[key]
		if !ok {
			circle = ring.New[types.ServiceInfo]()
			circles[key] = circle
		}

		for i := range s.cfg.Partitions.VirtualNodesSize {
			h := s.hashFn.New().PutString(instance.ServiceID).PutInt(int32(i)).Sum().AsInt64() //nolint:gosec
			circle.Put(h, instance)
		}
	}
}

// resolveByPartitionIdx returns the owner of partition idx on the circle, or
// false for a nil or empty circle.
func (s *PartitionService) resolveByPartitionIdx(circle *ring.Circle[types.ServiceInfo], idx int) (types.ServiceInfo, bool) {
	if circle == nil || circle.IsEmpty() {
		return types.ServiceInfo{}, false
	}

	h := s.hashFn.New().PutInt(int32(idx)).Sum().AsInt64() //nolint:gosec

	return circle.Get(h)
}

// publishTopologyChanges diffs the peer list per ServiceKey and publishes one
// batched event when anything changed.
func (s *PartitionService) publishTopologyChanges(prev, next []types.ServiceInfo) {
	prevMap := s.serviceKeyListMap(prev)
	nextMap := s.serviceKeyListMap(next)

	changes := make(map[types.ServiceKey]struct{})
	for key, list := range prevMap {
		if !equalServiceLists(list, nextMap[key]) {
			changes[key] = struct{}{}
		}
	}
	for key := range nextMap {
		if _, ok := prevMap[key]; !ok {
			changes[key] = struct{}{}
		}
	}

	if len(changes) == 0 {
		return
	}

	keys := make([]types.ServiceKey, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareServiceKeys)

	s.logger.Info("cluster topology changed", "serviceKeys", keys)
	s.publisher.Publish(types.ClusterTopologyChangeEvent{ServiceKeys: keys})
}

// serviceKeyListMap groups instances by (role, tenant), preserving input
// order within each group. Unknown role names are skipped.
func (s *PartitionService) serviceKeyListMap(services []types.ServiceInfo) map[types.ServiceKey][]types.ServiceInfo {
	result := make(map[types.ServiceKey][]types.ServiceInfo)
	for _, info := range services {
		for _, name := range info.ServiceTypes {
			serviceType, err := types.ParseServiceType(name)
			if err != nil {
				continue
			}
			key := types.ServiceKey{ServiceType: serviceType, TenantID: info.TenantID}
			result[key] = append(result[key], info)
		}
	}

	return result
}

func (s *PartitionService) logServiceInfo(info types.ServiceInfo) {
	if info.TenantID.IsNil() {
		s.logger.Info("found common server", "serviceId", info.ServiceID, "serviceTypes", info.ServiceTypes)
	} else {
		s.logger.Info("found tenant-specific server",
			"serviceId", info.ServiceID, "tenantId", info.TenantID.String(), "serviceTypes", info.ServiceTypes)
	}
}

// cloneIsolatedTenants deep-copies the isolation map so the previous snapshot
// stays untouched for concurrent readers.
func (s *PartitionService) cloneIsolatedTenants() map[types.TenantID]map[types.ServiceType]struct{} {
	prev := *s.isolatedTenants.Load()
	next := make(map[types.TenantID]map[types.ServiceType]struct{}, len(prev))
	for tenantID, roles := range prev {
		copied := make(map[types.ServiceType]struct{}, len(roles))
		for role := range roles {
			copied[role] = struct{}{}
		}
		next[tenantID] = copied
	}

	return next
}

// sortedServiceTypes returns the configured roles in stable order so
// recomputation walks partitions and publishes events deterministically.
func (s *PartitionService) sortedServiceTypes() []types.ServiceType {
	result := make([]types.ServiceType, 0, len(s.partitionSizes))
	for serviceType := range s.partitionSizes {
		result = append(result, serviceType)
	}
	slices.Sort(result)

	return result
}

func sortedServiceKeys(m map[types.ServiceKey][]int) []types.ServiceKey {
	keys := make([]types.ServiceKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareServiceKeys)

	return keys
}

func compareServiceKeys(a, b types.ServiceKey) int {
	if a.ServiceType != b.ServiceType {
		if a.ServiceType < b.ServiceType {
			return -1
		}

		return 1
	}

	return strings.Compare(a.TenantID.String(), b.TenantID.String())
}

func equalServiceLists(a, b []types.ServiceInfo) bool {
	return slices.EqualFunc(a, b, types.ServiceInfo.Equal)
}

// absMod reduces a 32-bit hash into [0, size) using |h mod size|. The
// arithmetic is done in 64 bits so the most negative 32-bit value does not
// overflow on negation.
func absMod(h, size int64) int {
	m := h % size
	if m < 0 {
		m = -m
	}

	return int(m)
}
