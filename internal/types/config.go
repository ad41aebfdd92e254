package types

import "time"

// Config represents the complete gridbalancer configuration
type Config struct {
	// Server configuration
	ListenAddr      string        `mapstructure:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Poller configuration
	Poller PollerConfig `mapstructure:"poller"`

	// Forwarding configuration
	Forward struct {
		Timeout    time.Duration `mapstructure:"timeout"`
		ChargePath string        `mapstructure:"charge_path"`
	} `mapstructure:"forward"`

	// Circuit breaker
	CircuitBreaker struct {
		Enabled          bool          `mapstructure:"enabled"`
		FailureThreshold int           `mapstructure:"failure_threshold"`
		Timeout          time.Duration `mapstructure:"timeout"`
	} `mapstructure:"circuit_breaker"`

	// Rate limiting
	RateLimit struct {
		Enabled  bool   `mapstructure:"enabled"`
		RPS      int    `mapstructure:"rps"`
		Burst    int    `mapstructure:"burst"`
		ByHeader string `mapstructure:"by_header"`
	} `mapstructure:"rate_limit"`

	// Metrics
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"metrics"`

	// Logging
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`

	// Substations seeded at startup; the admin API can add more at runtime
	Substations []string `mapstructure:"substations"`
}

// PollerConfig tunes the background poll loop. It is the only part of the
// configuration applied live on reload.
type PollerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	EvictThreshold int           `mapstructure:"evict_threshold"`
}
