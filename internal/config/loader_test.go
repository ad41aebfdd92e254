package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbalancer/internal/config"
	"gridbalancer/internal/types"
)

func TestLoadFromBytes(t *testing.T) {
	t.Run("Empty config gets defaults", func(t *testing.T) {
		cfg, err := config.LoadFromBytes([]byte("{}"), "yaml")
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.ListenAddr)
		assert.Equal(t, 5*time.Second, cfg.Poller.Interval)
		assert.Equal(t, 2*time.Second, cfg.Poller.Timeout)
		assert.Equal(t, 12, cfg.Poller.EvictThreshold)
		assert.Equal(t, "/charge", cfg.Forward.ChargePath)
		assert.True(t, cfg.CircuitBreaker.Enabled)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("File values override defaults", func(t *testing.T) {
		data := []byte(`
listen_addr: ":9090"
poller:
  interval: 10s
  timeout: 3s
  evict_threshold: 0
substations:
  - http://sub-1:8000
  - https://sub-2:8443
`)
		cfg, err := config.LoadFromBytes(data, "yaml")
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.ListenAddr)
		assert.Equal(t, 10*time.Second, cfg.Poller.Interval)
		assert.Equal(t, 3*time.Second, cfg.Poller.Timeout)
		assert.Zero(t, cfg.Poller.EvictThreshold)
		assert.Equal(t, []string{"http://sub-1:8000", "https://sub-2:8443"}, cfg.Substations)
	})

	t.Run("Probe timeout must stay under the poll interval", func(t *testing.T) {
		data := []byte(`
poller:
  interval: 2s
  timeout: 2s
`)
		_, err := config.LoadFromBytes(data, "yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
		assert.Contains(t, err.Error(), "poller.timeout")
	})

	t.Run("Negative evict threshold rejected", func(t *testing.T) {
		data := []byte(`
poller:
  evict_threshold: -1
`)
		_, err := config.LoadFromBytes(data, "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "evict_threshold")
	})

	t.Run("Unknown log level rejected", func(t *testing.T) {
		data := []byte(`
logging:
  level: verbose
`)
		_, err := config.LoadFromBytes(data, "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level")
	})

	t.Run("Seed substations must be http URLs", func(t *testing.T) {
		data := []byte(`
substations:
  - sub-1:8000
`)
		_, err := config.LoadFromBytes(data, "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "substations")
	})

	t.Run("Malformed yaml is an error", func(t *testing.T) {
		_, err := config.LoadFromBytes([]byte("listen_addr: [unclosed"), "yaml")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *types.Config {
		cfg, err := config.LoadFromBytes([]byte("{}"), "yaml")
		require.NoError(t, err)
		return cfg
	}

	t.Run("Defaults pass", func(t *testing.T) {
		assert.NoError(t, config.Validate(valid()))
	})

	t.Run("Breaker fields checked only when enabled", func(t *testing.T) {
		cfg := valid()
		cfg.CircuitBreaker.Enabled = false
		cfg.CircuitBreaker.FailureThreshold = 0
		assert.NoError(t, config.Validate(cfg))

		cfg.CircuitBreaker.Enabled = true
		assert.Error(t, config.Validate(cfg))
	})

	t.Run("Rate limit fields checked only when enabled", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RPS = 0
		assert.Error(t, config.Validate(cfg))
	})

	t.Run("Empty listen address rejected", func(t *testing.T) {
		cfg := valid()
		cfg.ListenAddr = ""
		assert.Error(t, config.Validate(cfg))
	})
}
