package fabriq

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/fabriq/internal/hashing"
)

// QueueConfig configures one role's partitioned topic.
type QueueConfig struct {
	// Topic is the logical topic name for the role.
	Topic string `yaml:"topic"`

	// Partitions is the fixed partition count for the role's topic.
	// Changing it across a running cluster invalidates every peer's
	// assignment, so treat it as immutable after the first deployment.
	Partitions int `yaml:"partitions"`
}

// PartitionsConfig controls partition placement.
type PartitionsConfig struct {
	// HashFunctionName selects the hash family used for entity resolution and
	// ring placement. Every peer must use the same family.
	// One of: murmur3_32, murmur3_128, crc32, md5, xxh3_64.
	HashFunctionName string `yaml:"hashFunctionName"`

	// VirtualNodesSize is the number of ring positions per instance per
	// (role, tenant) ring. Higher values smooth distribution at the cost of
	// slightly longer recomputations.
	VirtualNodesSize int `yaml:"virtualNodesSize"`
}

// TransportAPIConfig configures the request/response template between
// transports and the core.
type TransportAPIConfig struct {
	// RequestsTopic carries transport API requests.
	RequestsTopic string `yaml:"requestsTopic"`

	// ResponsesTopic carries transport API responses.
	ResponsesTopic string `yaml:"responsesTopic"`

	// MaxPendingRequests bounds the number of outstanding requests; further
	// sends fail synchronously until capacity frees up.
	MaxPendingRequests int `yaml:"maxPendingRequests"`

	// MaxRequestsTimeout is the per-call deadline for a response.
	MaxRequestsTimeout time.Duration `yaml:"maxRequestsTimeout"`

	// PollInterval is both the response consumer poll timeout and the period
	// of the expiry tick.
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Config is the configuration for the partition fabric.
//
// All duration fields accept standard Go duration strings like "25ms", "10s".
type Config struct {
	// Core configures the TB_CORE role's topic.
	Core QueueConfig `yaml:"core"`

	// RuleEngine configures the TB_RULE_ENGINE role's topic.
	RuleEngine QueueConfig `yaml:"ruleEngine"`

	// Partitions controls hash family and virtual node count.
	Partitions PartitionsConfig `yaml:"partitions"`

	// TransportAPI configures the request/response template.
	TransportAPI TransportAPIConfig `yaml:"transportApi"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Core:       QueueConfig{Topic: "tb.core", Partitions: 100},
		RuleEngine: QueueConfig{Topic: "tb.rule-engine", Partitions: 100},
		Partitions: PartitionsConfig{
			HashFunctionName: hashing.Murmur3_128,
			VirtualNodesSize: 16,
		},
		TransportAPI: TransportAPIConfig{
			RequestsTopic:      "tb.transport.api.requests",
			ResponsesTopic:     "tb.transport.api.responses",
			MaxPendingRequests: 10000,
			MaxRequestsTimeout: 10 * time.Second,
			PollInterval:       25 * time.Millisecond,
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Core.Topic == "" {
		cfg.Core.Topic = defaults.Core.Topic
	}
	if cfg.Core.Partitions == 0 {
		cfg.Core.Partitions = defaults.Core.Partitions
	}
	if cfg.RuleEngine.Topic == "" {
		cfg.RuleEngine.Topic = defaults.RuleEngine.Topic
	}
	if cfg.RuleEngine.Partitions == 0 {
		cfg.RuleEngine.Partitions = defaults.RuleEngine.Partitions
	}
	if cfg.Partitions.HashFunctionName == "" {
		cfg.Partitions.HashFunctionName = defaults.Partitions.HashFunctionName
	}
	if cfg.Partitions.VirtualNodesSize == 0 {
		cfg.Partitions.VirtualNodesSize = defaults.Partitions.VirtualNodesSize
	}
	if cfg.TransportAPI.RequestsTopic == "" {
		cfg.TransportAPI.RequestsTopic = defaults.TransportAPI.RequestsTopic
	}
	if cfg.TransportAPI.ResponsesTopic == "" {
		cfg.TransportAPI.ResponsesTopic = defaults.TransportAPI.ResponsesTopic
	}
	if cfg.TransportAPI.MaxPendingRequests == 0 {
		cfg.TransportAPI.MaxPendingRequests = defaults.TransportAPI.MaxPendingRequests
	}
	if cfg.TransportAPI.MaxRequestsTimeout == 0 {
		cfg.TransportAPI.MaxRequestsTimeout = defaults.TransportAPI.MaxRequestsTimeout
	}
	if cfg.TransportAPI.PollInterval == 0 {
		cfg.TransportAPI.PollInterval = defaults.TransportAPI.PollInterval
	}
}

// Validate checks configuration constraints and returns an error for invalid values.
//
// Hard validation rules:
//   - Core and rule-engine topics must be non-empty
//   - Partition counts and virtual node count must be positive
//   - HashFunctionName must name a registered hash family
//   - Transport API capacity and timings must be positive
//
// Returns:
//   - error: Validation error with a clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Core.Topic == "" {
		return fmt.Errorf("core topic must not be empty")
	}
	if cfg.RuleEngine.Topic == "" {
		return fmt.Errorf("rule engine topic must not be empty")
	}
	if cfg.Core.Partitions <= 0 {
		return fmt.Errorf("core partitions must be > 0, got %d", cfg.Core.Partitions)
	}
	if cfg.RuleEngine.Partitions <= 0 {
		return fmt.Errorf("rule engine partitions must be > 0, got %d", cfg.RuleEngine.Partitions)
	}
	if cfg.Partitions.VirtualNodesSize <= 0 {
		return fmt.Errorf("virtual nodes size must be > 0, got %d", cfg.Partitions.VirtualNodesSize)
	}
	if _, err := hashing.ForName(cfg.Partitions.HashFunctionName); err != nil {
		return err
	}
	if cfg.TransportAPI.MaxPendingRequests <= 0 {
		return fmt.Errorf("max pending requests must be > 0, got %d", cfg.TransportAPI.MaxPendingRequests)
	}
	if cfg.TransportAPI.MaxRequestsTimeout <= 0 {
		return fmt.Errorf("max requests timeout must be > 0, got %v", cfg.TransportAPI.MaxRequestsTimeout)
	}
	if cfg.TransportAPI.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %v", cfg.TransportAPI.PollInterval)
	}

	return nil
}

// LoadFile reads a YAML configuration file and applies defaults for any
// missing values.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: Read or parse error
func LoadFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	SetDefaults(&cfg)

	return cfg, nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Partition counts are small and request/response timings are tight so tests
// iterate quickly. Use DefaultConfig() for production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.Core.Partitions = 10
	cfg.RuleEngine.Partitions = 10
	cfg.TransportAPI.MaxPendingRequests = 16
	cfg.TransportAPI.MaxRequestsTimeout = 200 * time.Millisecond
	cfg.TransportAPI.PollInterval = 5 * time.Millisecond

	return cfg
}
