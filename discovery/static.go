// Package discovery contains service-info providers for the partition
// fabric.
//
// The source of truth for cluster membership is an external collaborator;
// this package only supplies the local instance's identity and a static
// implementation for tests and single-node deployments.
package discovery

import (
	"sync"

	"github.com/arloliu/fabriq/types"
)

// Static implements a service-info provider with a fixed advertisement.
type Static struct {
	mu   sync.RWMutex
	info types.ServiceInfo
}

var _ types.ServiceInfoProvider = (*Static)(nil)

// NewStatic creates a static service-info provider.
//
// Useful for testing and for deployments where the instance identity is
// known at startup.
//
// Parameters:
//   - serviceID: Unique instance identifier
//   - serviceTypes: Role names this instance declares
//   - tenantID: Dedicated tenant, or NilTenantID for a shared instance
//
// Returns:
//   - *Static: Initialized provider
//
// Example:
//
//	provider := discovery.NewStatic("core-0", []string{"TB_CORE"}, types.NilTenantID)
//	svc, err := fabriq.NewPartitionService(cfg, provider, bus)
func NewStatic(serviceID string, serviceTypes []string, tenantID types.TenantID) *Static {
	return &Static{
		info: types.ServiceInfo{
			ServiceID:    serviceID,
			ServiceTypes: serviceTypes,
			TenantID:     tenantID,
		},
	}
}

// ServiceInfo returns the local instance's advertisement.
func (s *Static) ServiceInfo() types.ServiceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.info
}

// Update replaces the advertisement.
//
// This allows the static provider to simulate identity changes, which is
// useful for testing re-registration scenarios.
func (s *Static) Update(info types.ServiceInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info = info
}
