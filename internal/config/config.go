// Package config provides configuration management for gridbalancer
package config

import (
	"github.com/spf13/viper"
)

// setDefaults sets default configuration values on the global viper
func setDefaults() {
	setDefaultsOn(viper.GetViper())
}

// setDefaultsOn sets default configuration values
func setDefaultsOn(v *viper.Viper) {
	// Server defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("read_timeout", "30s")
	v.SetDefault("write_timeout", "30s")
	v.SetDefault("idle_timeout", "120s")
	v.SetDefault("shutdown_timeout", "30s")

	// Poller defaults
	v.SetDefault("poller.interval", "5s")
	v.SetDefault("poller.timeout", "2s")
	v.SetDefault("poller.evict_threshold", 12)

	// Forward defaults
	v.SetDefault("forward.timeout", "10s")
	v.SetDefault("forward.charge_path", "/charge")

	// Circuit breaker defaults
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.timeout", "30s")

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 100)
	v.SetDefault("rate_limit.burst", 200)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	v.SetDefault("logging.level", "info")
}
