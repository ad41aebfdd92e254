// Package api implements the HTTP surface of gridbalancer
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"gridbalancer/internal/middleware"
	"gridbalancer/internal/router"
	"gridbalancer/internal/types"
)

// Default power draw when a charge request does not specify one
const defaultRequestedKW = 10

// Handler provides the REST API implementation. It takes its own copy of
// the configuration at construction; a live reload never mutates shared
// state under a running handler. The one value that is retuned at runtime,
// the poll interval shown by /status, goes through SetPollInterval.
type Handler struct {
	registry  types.Registry
	router    *router.Router
	collector types.MetricsCollector
	breaker   types.CircuitBreaker
	config    types.Config
	logger    types.Logger
	startedAt time.Time

	mu           sync.RWMutex
	pollInterval time.Duration
}

// New creates a new API handler instance
func New(registry types.Registry, rt *router.Router, collector types.MetricsCollector, breaker types.CircuitBreaker, cfg *types.Config, logger types.Logger) *Handler {
	return &Handler{
		registry:     registry,
		router:       rt,
		collector:    collector,
		breaker:      breaker,
		config:       *cfg,
		logger:       logger,
		startedAt:    time.Now(),
		pollInterval: cfg.Poller.Interval,
	}
}

// SetPollInterval updates the poll interval reported by /status after a
// live configuration reload.
func (h *Handler) SetPollInterval(d time.Duration) {
	h.mu.Lock()
	h.pollInterval = d
	h.mu.Unlock()
}

func (h *Handler) currentPollInterval() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pollInterval
}

// Router returns the HTTP handler for the API
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/charge", h.handleCharge).Methods("POST")

	r.HandleFunc("/substations", h.handleListSubstations).Methods("GET")
	r.HandleFunc("/substations", h.handleRegisterSubstation).Methods("POST")
	r.HandleFunc("/substations/{id}", h.handleDeregisterSubstation).Methods("DELETE")

	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/status", h.handleStatus).Methods("GET")

	if h.config.Metrics.Enabled {
		r.Handle(h.config.Metrics.Path, h.collector.Handler()).Methods("GET")
	}

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.AccessLogging(h.logger),
	)
	if h.config.RateLimit.Enabled {
		chain.Use(middleware.RateLimit(h.config.RateLimit.RPS, h.config.RateLimit.Burst, h.config.RateLimit.ByHeader))
	}

	return chain.Then(r)
}

// handleCharge handles POST /charge
func (h *Handler) handleCharge(w http.ResponseWriter, r *http.Request) {
	var req types.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.EVID == "" {
		respondError(w, http.StatusBadRequest, "ev_id is required")
		return
	}
	if req.RequestedKW <= 0 {
		req.RequestedKW = defaultRequestedKW
	}

	resp, err := h.router.Route(r.Context(), req)
	if err != nil {
		switch {
		case router.IsNoBackend(err):
			respondError(w, http.StatusServiceUnavailable, "No substation available")
		case router.IsForwardFailure(err):
			respondError(w, http.StatusBadGateway, "Substation rejected or timed out: "+err.Error())
		default:
			h.logger.Error("charge request failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to route charge request")
		}
		return
	}

	respondJSON(w, http.StatusOK, ChargeResult{
		SubstationID: resp.SubstationID,
		Response:     resp,
	})
}

// handleListSubstations handles GET /substations
func (h *Handler) handleListSubstations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, substationsToResponse(h.registry.Snapshot()))
}

// handleRegisterSubstation handles POST /substations
func (h *Handler) handleRegisterSubstation(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	sub, created, err := h.registry.Upsert(req.Address)
	if err != nil {
		if errors.Is(err, types.ErrInvalidAddress) {
			respondError(w, http.StatusBadRequest, "address must be an http(s) URL")
			return
		}
		h.logger.Error("failed to register substation", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to register substation")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		// Visible on the dashboard right away; stays out of routing
		// until its first successful poll.
		h.collector.SetSubstationHealth(sub.ID, false)
	}
	respondJSON(w, status, substationToResponse(sub))
}

// handleDeregisterSubstation handles DELETE /substations/{id}
func (h *Handler) handleDeregisterSubstation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.registry.Remove(id); err != nil {
		if errors.Is(err, types.ErrSubstationNotFound) {
			respondError(w, http.StatusNotFound, "Substation not found")
			return
		}
		h.logger.Error("failed to deregister substation", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to deregister substation")
		return
	}

	h.collector.Forget(id)
	h.breaker.Forget(id)

	respondJSON(w, http.StatusNoContent, nil)
}

// handleHealth handles GET /health — liveness of this process, not of
// any substation.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "gridbalancer",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// handleStatus handles GET /status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Snapshot()

	healthy := 0
	entries := make([]SubstationResponse, 0, len(snapshot))
	for _, sub := range snapshot {
		if sub.Healthy {
			healthy++
		}
		entries = append(entries, substationToResponse(sub))
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		Substations:        len(snapshot),
		HealthySubstations: healthy,
		PollInterval:       h.currentPollInterval().String(),
		Entries:            entries,
		System:             h.systemStats(),
	})
}

func (h *Handler) systemStats() SystemStats {
	stats := SystemStats{
		Goroutines: runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedMB = float64(vm.Used) / 1024 / 1024
		stats.MemoryPercent = vm.UsedPercent
	}

	return stats
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent, nothing left to do
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
