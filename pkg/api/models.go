package api

import (
	"time"

	"gridbalancer/internal/types"
)

// RegisterRequest is the body of POST /substations
type RegisterRequest struct {
	Address string `json:"address"`
}

// SubstationResponse is one registry entry as exposed by the API
type SubstationResponse struct {
	ID                  string    `json:"id"`
	Address             string    `json:"address"`
	LoadPercentage      float64   `json:"load_percentage"`
	ReportedLoadKW      float64   `json:"reported_load_kw"`
	CapacityKW          float64   `json:"capacity_kw"`
	ActiveChargers      int       `json:"active_chargers"`
	Healthy             bool      `json:"healthy"`
	LastPolledAt        time.Time `json:"last_polled_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// SubstationListResponse is the body of GET /substations
type SubstationListResponse struct {
	Substations []SubstationResponse `json:"substations"`
}

// ChargeResult is the body of a successful POST /charge
type ChargeResult struct {
	SubstationID string                `json:"substation_id"`
	Response     *types.ChargeResponse `json:"response"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	Substations        int                  `json:"substations"`
	HealthySubstations int                  `json:"healthy_substations"`
	PollInterval       string               `json:"poll_interval"`
	Entries            []SubstationResponse `json:"entries"`
	System             SystemStats          `json:"system"`
}

// SystemStats reports process-level resource usage
type SystemStats struct {
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryPercent float64 `json:"memory_percent"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func substationToResponse(sub *types.Substation) SubstationResponse {
	return SubstationResponse{
		ID:                  sub.ID,
		Address:             sub.Address,
		LoadPercentage:      sub.LoadPercentage(),
		ReportedLoadKW:      sub.ReportedLoadKW,
		CapacityKW:          sub.CapacityKW,
		ActiveChargers:      sub.ActiveChargers,
		Healthy:             sub.Healthy,
		LastPolledAt:        sub.LastPolledAt,
		ConsecutiveFailures: sub.ConsecutiveFailures,
	}
}

func substationsToResponse(subs []*types.Substation) SubstationListResponse {
	resp := SubstationListResponse{
		Substations: make([]SubstationResponse, 0, len(subs)),
	}
	for _, sub := range subs {
		resp.Substations = append(resp.Substations, substationToResponse(sub))
	}
	return resp
}
