package fabriq

import "errors"

// Sentinel errors returned by the partition service.
var (
	// ErrInvalidConfig is returned when the configuration is invalid,
	// including an unknown hash function name.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrServiceInfoProviderRequired is returned when the service info provider is nil.
	ErrServiceInfoProviderRequired = errors.New("service info provider is required")

	// ErrEventPublisherRequired is returned when the event publisher is nil.
	ErrEventPublisherRequired = errors.New("event publisher is required")

	// ErrUnknownServiceType is returned when resolving against a role with no
	// configured topic and partition count.
	ErrUnknownServiceType = errors.New("service type has no configured partitions")
)
