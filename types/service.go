package types

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ServiceType identifies the logical role of a service instance.
//
// The fabric assigns partitions for the core and rule-engine roles. Other
// roles (such as transport) are valid cluster members but do not own
// partitions.
type ServiceType string

// Known service roles.
const (
	ServiceTypeCore       ServiceType = "TB_CORE"
	ServiceTypeRuleEngine ServiceType = "TB_RULE_ENGINE"
	ServiceTypeTransport  ServiceType = "TB_TRANSPORT"
)

// ParseServiceType converts an advertised role name into a ServiceType.
//
// Matching is case-insensitive. Unknown names return an error so callers can
// skip roles they do not recognize without discarding the whole peer.
//
// Parameters:
//   - name: Role name as advertised by a service instance
//
// Returns:
//   - ServiceType: The matching role
//   - error: Non-nil when the name does not match any known role
func ParseServiceType(name string) (ServiceType, error) {
	switch ServiceType(strings.ToUpper(name)) {
	case ServiceTypeCore:
		return ServiceTypeCore, nil
	case ServiceTypeRuleEngine:
		return ServiceTypeRuleEngine, nil
	case ServiceTypeTransport:
		return ServiceTypeTransport, nil
	default:
		return "", fmt.Errorf("unknown service type %q", name)
	}
}

// TenantID is a 128-bit tenant identifier.
//
// The zero value (all-zero UUID) denotes the shared "system" scope; any other
// value identifies a single isolated tenant.
type TenantID struct {
	uuid.UUID
}

// NilTenantID is the shared-scope tenant identifier.
var NilTenantID = TenantID{}

// NewTenantID wraps a UUID as a TenantID.
func NewTenantID(id uuid.UUID) TenantID {
	return TenantID{UUID: id}
}

// TenantIDFromBits reconstructs a TenantID from its two big-endian 64-bit
// halves, most significant half first. Both halves zero yield NilTenantID.
func TenantIDFromBits(msb, lsb int64) TenantID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[0:8], uint64(msb))
	binary.BigEndian.PutUint64(id[8:16], uint64(lsb))

	return TenantID{UUID: id}
}

// IsNil reports whether the tenant identifier denotes the shared scope.
func (t TenantID) IsNil() bool {
	return t.UUID == uuid.Nil
}

// UUIDBits splits id into its two big-endian 64-bit halves, most significant
// half first. The halves feed the entity hash, so the split must stay stable
// across releases and peers.
func UUIDBits(id uuid.UUID) (msb, lsb int64) {
	msb = int64(binary.BigEndian.Uint64(id[0:8]))  //nolint:gosec
	lsb = int64(binary.BigEndian.Uint64(id[8:16])) //nolint:gosec

	return msb, lsb
}

// ServiceInfo describes one live service instance as advertised by the
// discovery layer.
//
// ServiceTypes carries the raw advertised role names; unknown names are
// skipped (and logged) during partition recomputation rather than
// invalidating the whole record.
type ServiceInfo struct {
	// ServiceID is the unique instance identifier.
	ServiceID string

	// ServiceTypes lists the role names this instance declares.
	ServiceTypes []string

	// TenantID is the tenant this instance is dedicated to.
	// NilTenantID marks a shared ("system") instance.
	TenantID TenantID
}

// Equal reports whether two records describe the same instance with the same
// advertisement.
func (s ServiceInfo) Equal(o ServiceInfo) bool {
	return s.ServiceID == o.ServiceID &&
		s.TenantID == o.TenantID &&
		slices.Equal(s.ServiceTypes, o.ServiceTypes)
}

// HasServiceType reports whether the instance advertises the given role.
func (s ServiceInfo) HasServiceType(serviceType ServiceType) bool {
	for _, name := range s.ServiceTypes {
		if st, err := ParseServiceType(name); err == nil && st == serviceType {
			return true
		}
	}

	return false
}

// ServiceKey is the unit of partition isolation: one role of one tenant
// scope. Every (role, tenant) combination has its own hash ring and its own
// independent partition assignment.
type ServiceKey struct {
	ServiceType ServiceType
	TenantID    TenantID
}

// String renders the key for logs, e.g. "TB_CORE[system]".
func (k ServiceKey) String() string {
	if k.TenantID.IsNil() {
		return string(k.ServiceType) + "[system]"
	}

	return string(k.ServiceType) + "[" + k.TenantID.String() + "]"
}
