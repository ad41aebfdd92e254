package config

import (
	"net/url"

	"gridbalancer/internal/types"
)

// Validate checks the configuration for errors. Any error here is fatal
// at startup.
func Validate(cfg *types.Config) error {
	if cfg.ListenAddr == "" {
		return types.ValidationError{Field: "listen_addr", Message: "cannot be empty"}
	}

	if cfg.Poller.Interval <= 0 {
		return types.ValidationError{Field: "poller.interval", Message: "must be positive"}
	}
	if cfg.Poller.Timeout <= 0 {
		return types.ValidationError{Field: "poller.timeout", Message: "must be positive"}
	}
	// Probes must finish before the next cycle starts, otherwise slow
	// substations make cycles pile up.
	if cfg.Poller.Timeout >= cfg.Poller.Interval {
		return types.ValidationError{Field: "poller.timeout", Message: "must be shorter than poller.interval"}
	}
	if cfg.Poller.EvictThreshold < 0 {
		return types.ValidationError{Field: "poller.evict_threshold", Message: "cannot be negative"}
	}

	if cfg.Forward.Timeout <= 0 {
		return types.ValidationError{Field: "forward.timeout", Message: "must be positive"}
	}

	if cfg.CircuitBreaker.Enabled {
		if cfg.CircuitBreaker.FailureThreshold <= 0 {
			return types.ValidationError{Field: "circuit_breaker.failure_threshold", Message: "must be positive"}
		}
		if cfg.CircuitBreaker.Timeout <= 0 {
			return types.ValidationError{Field: "circuit_breaker.timeout", Message: "must be positive"}
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			return types.ValidationError{Field: "rate_limit.rps", Message: "must be positive"}
		}
		if cfg.RateLimit.Burst <= 0 {
			return types.ValidationError{Field: "rate_limit.burst", Message: "must be positive"}
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		return types.ValidationError{Field: "metrics.path", Message: "cannot be empty"}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return types.ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}

	for _, address := range cfg.Substations {
		if err := validateSubstationAddress(address); err != nil {
			return err
		}
	}

	return nil
}

func validateSubstationAddress(address string) error {
	u, err := url.Parse(address)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.ValidationError{Field: "substations", Message: "must be http(s) URLs with a host: " + address}
	}
	return nil
}
