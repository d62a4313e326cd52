package fabriq

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	require.Equal(t, 100, cfg.Core.Partitions)
	require.Equal(t, 100, cfg.RuleEngine.Partitions)
	require.Equal(t, "murmur3_128", cfg.Partitions.HashFunctionName)
	require.Equal(t, 16, cfg.Partitions.VirtualNodesSize)
}

func TestSetDefaults(t *testing.T) {
	cfg := Config{}
	SetDefaults(&cfg)

	require.NoError(t, cfg.Validate())
	require.Equal(t, DefaultConfig(), cfg)

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg := Config{Core: QueueConfig{Topic: "custom.core", Partitions: 12}}
		SetDefaults(&cfg)

		require.Equal(t, "custom.core", cfg.Core.Topic)
		require.Equal(t, 12, cfg.Core.Partitions)
		require.Equal(t, DefaultConfig().RuleEngine, cfg.RuleEngine)
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty core topic", func(c *Config) { c.Core.Topic = "" }},
		{"empty rule engine topic", func(c *Config) { c.RuleEngine.Topic = "" }},
		{"negative core partitions", func(c *Config) { c.Core.Partitions = -1 }},
		{"unknown hash function", func(c *Config) { c.Partitions.HashFunctionName = "adler32" }},
		{"negative virtual nodes", func(c *Config) { c.Partitions.VirtualNodesSize = -16 }},
		{"negative max pending", func(c *Config) { c.TransportAPI.MaxPendingRequests = -1 }},
		{"negative request timeout", func(c *Config) { c.TransportAPI.MaxRequestsTimeout = -time.Second }},
		{"negative poll interval", func(c *Config) { c.TransportAPI.PollInterval = -time.Millisecond }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("parses yaml and applies defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fabriq.yaml")
		content := `
core:
  topic: iot.core
  partitions: 64
partitions:
  hashFunctionName: murmur3_32
transportApi:
  maxRequestsTimeout: 2s
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		require.Equal(t, "iot.core", cfg.Core.Topic)
		require.Equal(t, 64, cfg.Core.Partitions)
		require.Equal(t, "murmur3_32", cfg.Partitions.HashFunctionName)
		require.Equal(t, 2*time.Second, cfg.TransportAPI.MaxRequestsTimeout)
		// Untouched sections fall back to defaults.
		require.Equal(t, DefaultConfig().RuleEngine, cfg.RuleEngine)
		require.Equal(t, 16, cfg.Partitions.VirtualNodesSize)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("fails on malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("core: ["), 0o600))

		_, err := LoadFile(path)
		require.Error(t, err)
	})
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	require.NoError(t, cfg.Validate())
	require.Less(t, cfg.Core.Partitions, DefaultConfig().Core.Partitions)
	require.Less(t, cfg.TransportAPI.MaxRequestsTimeout, DefaultConfig().TransportAPI.MaxRequestsTimeout)
}
