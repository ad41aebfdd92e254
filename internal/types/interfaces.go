// Package types defines the core interfaces for the gridbalancer router
package types

import (
	"context"
	"net/http"
	"time"
)

// Registry is the authoritative in-memory set of known substations.
// It owns all mutation of substation state; callers only ever see copies.
type Registry interface {
	// Upsert registers a substation by address, returning the existing
	// entry when the address is already known
	Upsert(address string) (*Substation, bool, error)
	// Remove deletes a substation by id
	Remove(id string) error
	// Get returns a copy of one substation
	Get(id string) (*Substation, error)
	// Snapshot returns a point-in-time copy of all entries, sorted by id
	Snapshot() []*Substation
	// ApplyPollResult records one poll attempt; stale results are dropped
	ApplyPollResult(id string, report LoadReport, healthy bool, polledAt time.Time) (*Substation, bool)
	// MarkUnhealthy demotes a substation outside the poll cycle
	MarkUnhealthy(id string) bool
}

// Selector picks one substation from a registry snapshot
type Selector interface {
	// Select returns the substation to route to
	Select(substations []*Substation) (*Substation, error)
}

// Prober fetches one substation's load report
type Prober interface {
	// Probe queries the substation's load-report endpoint
	Probe(ctx context.Context, address string) (LoadReport, error)
}

// Forwarder delivers a charge request to a selected substation
type Forwarder interface {
	// Forward submits the request to the substation's work-acceptance endpoint
	Forward(ctx context.Context, substation *Substation, req ChargeRequest) (*ChargeResponse, error)
}

// CircuitBreaker protects substations from cascading failures
type CircuitBreaker interface {
	// Execute runs the function with circuit breaker protection
	Execute(substationID string, fn func() error) error
	// Forget drops breaker state for a removed substation
	Forget(substationID string)
}

// MetricsCollector gathers routing and substation metrics
type MetricsCollector interface {
	// RecordRequest counts one inbound charge request
	RecordRequest()
	// RecordRoutingDecision counts one routing decision per substation
	RecordRoutingDecision(substationID string)
	// RecordRoutingFailure counts one failed routing attempt by reason
	RecordRoutingFailure(reason string)
	// RecordPollDuration observes one probe duration
	RecordPollDuration(d time.Duration)
	// SetSubstationLoad updates the per-substation load gauge
	SetSubstationLoad(substationID string, pct float64)
	// SetSubstationHealth updates the per-substation health gauge
	SetSubstationHealth(substationID string, healthy bool)
	// Forget removes labeled series for a deregistered substation
	Forget(substationID string)
	// Handler returns the metrics endpoint handler
	Handler() http.Handler
}

// Middleware wraps HTTP handlers
type Middleware func(http.Handler) http.Handler

// Logger provides structured logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}
