package types

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrSubstationNotFound indicates the requested substation does not exist
	ErrSubstationNotFound = errors.New("substation not found")

	// ErrNoHealthySubstations indicates no substation is eligible for routing
	ErrNoHealthySubstations = errors.New("no healthy substations available")

	// ErrForwardFailed indicates the selected substation rejected or timed out
	ErrForwardFailed = errors.New("forward to substation failed")

	// ErrCircuitBreakerOpen indicates the substation's circuit breaker is open
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// ErrRateLimitExceeded indicates the rate limit has been exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidConfiguration indicates invalid configuration
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidAddress indicates an unparseable substation address
	ErrInvalidAddress = errors.New("invalid substation address")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// RoutingError wraps an error with the operation and substation involved
type RoutingError struct {
	Op         string // Operation that failed
	Substation string // Substation involved
	Err        error  // Original error
}

func (e RoutingError) Error() string {
	if e.Substation != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Substation, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e RoutingError) Unwrap() error {
	return e.Err
}

// ProbeError wraps a failed load-report probe with its substation
type ProbeError struct {
	Substation string
	Err        error
}

func (e ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Substation, e.Err)
}

func (e ProbeError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}
