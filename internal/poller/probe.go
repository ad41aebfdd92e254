package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"gridbalancer/internal/types"
)

// Metric families the substation load-report endpoint exposes
const (
	metricCurrentLoad    = "current_load"
	metricTotalCapacity  = "total_capacity"
	metricActiveChargers = "active_chargers"
)

// httpProber reads a substation's Prometheus exposition and extracts
// the load-report gauges from it.
type httpProber struct {
	client *http.Client
	path   string
}

// NewHTTPProber creates a prober that queries <address>/metrics with the
// given timeout per probe.
func NewHTTPProber(timeout time.Duration) types.Prober {
	return &httpProber{
		client: &http.Client{
			Timeout: timeout,
		},
		path: "/metrics",
	}
}

// Probe queries the substation's load-report endpoint. Failures come back
// wrapped in a types.ProbeError naming the substation.
func (p *httpProber) Probe(ctx context.Context, address string) (types.LoadReport, error) {
	report, err := p.fetch(ctx, address)
	if err != nil {
		return report, types.ProbeError{Substation: address, Err: err}
	}
	return report, nil
}

func (p *httpProber) fetch(ctx context.Context, address string) (types.LoadReport, error) {
	var report types.LoadReport

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+p.path, nil)
	if err != nil {
		return report, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return report, fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return report, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return report, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return report, fmt.Errorf("parse metrics: %w", err)
	}

	load, ok := gaugeValue(families, metricCurrentLoad)
	if !ok {
		return report, fmt.Errorf("missing %s metric", metricCurrentLoad)
	}
	capacity, ok := gaugeValue(families, metricTotalCapacity)
	if !ok {
		return report, fmt.Errorf("missing %s metric", metricTotalCapacity)
	}

	report.LoadKW = load
	report.CapacityKW = capacity

	// Optional: older substations don't report charger counts
	if chargers, ok := gaugeValue(families, metricActiveChargers); ok {
		report.ActiveChargers = int(chargers)
	}

	return report, nil
}

func gaugeValue(families map[string]*dto.MetricFamily, name string) (float64, bool) {
	family, ok := families[name]
	if !ok || len(family.GetMetric()) == 0 {
		return 0, false
	}

	m := family.GetMetric()[0]
	if g := m.GetGauge(); g != nil {
		return g.GetValue(), true
	}
	if u := m.GetUntyped(); u != nil {
		return u.GetValue(), true
	}
	return 0, false
}
