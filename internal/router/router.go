// Package router routes charge requests to the least-loaded substation
package router

import (
	"context"
	"errors"
	"fmt"

	"gridbalancer/internal/metrics"
	"gridbalancer/internal/types"
)

// Router selects a substation for each charge request and forwards the
// request to it. It reads a stable registry snapshot per request and
// mutates nothing beyond recording the routing outcome.
type Router struct {
	registry  types.Registry
	selector  types.Selector
	forwarder types.Forwarder
	breaker   types.CircuitBreaker
	metrics   types.MetricsCollector
	logger    types.Logger
}

// New creates a new router
func New(registry types.Registry, selector types.Selector, forwarder types.Forwarder, breaker types.CircuitBreaker, collector types.MetricsCollector, logger types.Logger) *Router {
	return &Router{
		registry:  registry,
		selector:  selector,
		forwarder: forwarder,
		breaker:   breaker,
		metrics:   collector,
		logger:    logger,
	}
}

// Route forwards one charge request to the least-loaded healthy
// substation. A failed forward demotes the substation and is returned to
// the caller as-is; there is no retry against a second substation.
func (rt *Router) Route(ctx context.Context, req types.ChargeRequest) (*types.ChargeResponse, error) {
	rt.metrics.RecordRequest()

	snapshot := rt.registry.Snapshot()

	selected, err := rt.selector.Select(snapshot)
	if err != nil {
		rt.metrics.RecordRoutingFailure(metrics.ReasonNoBackend)
		rt.logger.Warn("no substation available for charge request", "ev_id", req.EVID)
		return nil, err
	}

	var resp *types.ChargeResponse
	err = rt.breaker.Execute(selected.ID, func() error {
		var forwardErr error
		resp, forwardErr = rt.forwarder.Forward(ctx, selected, req)
		return forwardErr
	})
	if err != nil {
		rt.registry.MarkUnhealthy(selected.ID)
		rt.metrics.SetSubstationHealth(selected.ID, false)
		rt.metrics.RecordRoutingFailure(metrics.ReasonForwardError)

		rt.logger.Error("forward failed",
			"substation_id", selected.ID,
			"ev_id", req.EVID,
			"error", err,
		)

		return nil, types.RoutingError{
			Op:         "forward",
			Substation: selected.ID,
			Err:        fmt.Errorf("%w: %v", types.ErrForwardFailed, err),
		}
	}

	rt.metrics.RecordRoutingDecision(selected.ID)

	rt.logger.Info("charge request routed",
		"substation_id", selected.ID,
		"ev_id", req.EVID,
		"requested_kw", req.RequestedKW,
		"load_pct", selected.LoadPercentage(),
	)

	if resp.SubstationID == "" {
		resp.SubstationID = selected.ID
	}
	return resp, nil
}

// IsNoBackend reports whether err means no substation was eligible
func IsNoBackend(err error) bool {
	return errors.Is(err, types.ErrNoHealthySubstations)
}

// IsForwardFailure reports whether err means the selected substation
// rejected or timed out the forwarded request
func IsForwardFailure(err error) bool {
	return errors.Is(err, types.ErrForwardFailed) || errors.Is(err, types.ErrCircuitBreakerOpen)
}
