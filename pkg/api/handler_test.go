package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbalancer/internal/balancer"
	"gridbalancer/internal/circuit"
	"gridbalancer/internal/metrics"
	"gridbalancer/internal/registry"
	"gridbalancer/internal/router"
	"gridbalancer/internal/types"
	"gridbalancer/pkg/api"
)

// testLogger is a simple logger implementation for tests
type testLogger struct{}

func (l *testLogger) Debug(msg string, fields ...interface{}) {}
func (l *testLogger) Info(msg string, fields ...interface{})  {}
func (l *testLogger) Warn(msg string, fields ...interface{})  {}
func (l *testLogger) Error(msg string, fields ...interface{}) {}
func (l *testLogger) With(fields ...interface{}) types.Logger { return l }

func testConfig() *types.Config {
	cfg := &types.Config{ListenAddr: ":0"}
	cfg.Poller.Interval = 5 * time.Second
	cfg.Poller.Timeout = 2 * time.Second
	cfg.Forward.Timeout = time.Second
	cfg.Forward.ChargePath = "/charge"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

type testApp struct {
	registry types.Registry
	api      *api.Handler
	handler  http.Handler
}

func newTestApp(cfg *types.Config) *testApp {
	logger := &testLogger{}
	collector := metrics.NewCollector()
	reg := registry.New(logger)

	rt := router.New(
		reg,
		balancer.NewLeastLoad(),
		router.NewHTTPForwarder(cfg.Forward.Timeout, cfg.Forward.ChargePath),
		circuit.NopBreaker{},
		collector,
		logger,
	)

	handler := api.New(reg, rt, collector, circuit.NopBreaker{}, cfg, logger)
	return &testApp{registry: reg, api: handler, handler: handler.Router()}
}

func (app *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	return rec
}

func TestSubstationEndpoints(t *testing.T) {
	t.Run("Register returns created entry", func(t *testing.T) {
		app := newTestApp(testConfig())

		rec := app.do(t, "POST", "/substations", api.RegisterRequest{Address: "http://sub-1:8000"})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp api.SubstationResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "sub-1:8000", resp.ID)
		assert.False(t, resp.Healthy)
	})

	t.Run("Re-register is idempotent", func(t *testing.T) {
		app := newTestApp(testConfig())

		first := app.do(t, "POST", "/substations", api.RegisterRequest{Address: "http://sub-1:8000"})
		require.Equal(t, http.StatusCreated, first.Code)

		second := app.do(t, "POST", "/substations", api.RegisterRequest{Address: "http://sub-1:8000"})
		assert.Equal(t, http.StatusOK, second.Code)

		list := app.do(t, "GET", "/substations", nil)
		var resp api.SubstationListResponse
		require.NoError(t, json.NewDecoder(list.Body).Decode(&resp))
		assert.Len(t, resp.Substations, 1)
	})

	t.Run("Register rejects bad bodies", func(t *testing.T) {
		app := newTestApp(testConfig())

		rec := app.do(t, "POST", "/substations", api.RegisterRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(t, "POST", "/substations", api.RegisterRequest{Address: "not-a-url"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("List exposes registry snapshot", func(t *testing.T) {
		app := newTestApp(testConfig())

		sub, _, err := app.registry.Upsert("http://sub-1:8000")
		require.NoError(t, err)
		_, applied := app.registry.ApplyPollResult(sub.ID, types.LoadReport{LoadKW: 30, CapacityKW: 120}, true, time.Now())
		require.True(t, applied)

		rec := app.do(t, "GET", "/substations", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.SubstationListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Substations, 1)
		assert.Equal(t, "sub-1:8000", resp.Substations[0].ID)
		assert.True(t, resp.Substations[0].Healthy)
		assert.InDelta(t, 25.0, resp.Substations[0].LoadPercentage, 0.001)
	})

	t.Run("Deregister removes entry", func(t *testing.T) {
		app := newTestApp(testConfig())

		_, _, err := app.registry.Upsert("http://sub-1:8000")
		require.NoError(t, err)

		rec := app.do(t, "DELETE", "/substations/sub-1:8000", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, app.registry.Snapshot())
	})

	t.Run("Deregister unknown id is 404", func(t *testing.T) {
		app := newTestApp(testConfig())

		rec := app.do(t, "DELETE", "/substations/nope:1234", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestChargeEndpoint(t *testing.T) {
	t.Run("Routes to substation and returns its response", func(t *testing.T) {
		substation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req types.ChargeRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(types.ChargeResponse{
				SessionID:   "session-42",
				Status:      "charging",
				EVID:        req.EVID,
				RequestedKW: req.RequestedKW,
			})
		}))
		defer substation.Close()

		app := newTestApp(testConfig())
		sub, _, err := app.registry.Upsert(substation.URL)
		require.NoError(t, err)
		_, applied := app.registry.ApplyPollResult(sub.ID, types.LoadReport{LoadKW: 10, CapacityKW: 100}, true, time.Now())
		require.True(t, applied)

		rec := app.do(t, "POST", "/charge", types.ChargeRequest{EVID: "ev-7"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result api.ChargeResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
		assert.Equal(t, sub.ID, result.SubstationID)
		assert.Equal(t, "session-42", result.Response.SessionID)
		assert.Equal(t, 10.0, result.Response.RequestedKW, "requested_kw defaults when omitted")
	})

	t.Run("Missing ev_id is a client error", func(t *testing.T) {
		app := newTestApp(testConfig())

		rec := app.do(t, "POST", "/charge", types.ChargeRequest{RequestedKW: 5})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("No substation available is 503", func(t *testing.T) {
		app := newTestApp(testConfig())

		rec := app.do(t, "POST", "/charge", types.ChargeRequest{EVID: "ev-1"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Error, "No substation available")
	})

	t.Run("Forward failure is 502", func(t *testing.T) {
		app := newTestApp(testConfig())
		sub, _, err := app.registry.Upsert("http://127.0.0.1:1")
		require.NoError(t, err)
		_, applied := app.registry.ApplyPollResult(sub.ID, types.LoadReport{LoadKW: 10, CapacityKW: 100}, true, time.Now())
		require.True(t, applied)

		rec := app.do(t, "POST", "/charge", types.ChargeRequest{EVID: "ev-1"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	t.Run("Health reports the process alive", func(t *testing.T) {
		app := newTestApp(testConfig())

		rec := app.do(t, "GET", "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "gridbalancer", resp.Service)
	})

	t.Run("Status summarizes registry and system", func(t *testing.T) {
		app := newTestApp(testConfig())

		sub, _, err := app.registry.Upsert("http://sub-1:8000")
		require.NoError(t, err)
		_, _, err = app.registry.Upsert("http://sub-2:8000")
		require.NoError(t, err)
		_, applied := app.registry.ApplyPollResult(sub.ID, types.LoadReport{LoadKW: 10, CapacityKW: 100}, true, time.Now())
		require.True(t, applied)

		rec := app.do(t, "GET", "/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.StatusResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 2, resp.Substations)
		assert.Equal(t, 1, resp.HealthySubstations)
		assert.Equal(t, "5s", resp.PollInterval)
		assert.Len(t, resp.Entries, 2)
		assert.Positive(t, resp.System.Goroutines)
	})

	t.Run("Metrics endpoint exposes routing counters", func(t *testing.T) {
		app := newTestApp(testConfig())

		// One request with nothing registered: counted as received and
		// as a no-backend failure.
		rec := app.do(t, "POST", "/charge", types.ChargeRequest{EVID: "ev-1"})
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		rec = app.do(t, "GET", "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "load_balancer_requests_total 1")
		assert.Contains(t, body, `routing_failures_total{reason="no_backend"} 1`)
	})

	t.Run("Poll interval retune is safe under concurrent requests", func(t *testing.T) {
		app := newTestApp(testConfig())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 1; i <= 50; i++ {
				app.api.SetPollInterval(time.Duration(i) * time.Second)
			}
		}()

		for i := 0; i < 50; i++ {
			rec := app.do(t, "GET", "/status", nil)
			require.Equal(t, http.StatusOK, rec.Code)
		}
		<-done

		rec := app.do(t, "GET", "/status", nil)
		var resp api.StatusResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "50s", resp.PollInterval)
	})

	t.Run("Rate limit rejects instead of queueing", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RPS = 1
		cfg.RateLimit.Burst = 1
		app := newTestApp(cfg)

		first := app.do(t, "GET", "/health", nil)
		assert.Equal(t, http.StatusOK, first.Code)

		second := app.do(t, "GET", "/health", nil)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})
}
