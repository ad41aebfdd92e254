package types

import (
	"time"
)

// Substation represents a registered charging substation and its last
// known state as reported by the poller.
type Substation struct {
	ID                  string    `json:"id"`
	Address             string    `json:"address"`
	ReportedLoadKW      float64   `json:"reported_load_kw"`
	CapacityKW          float64   `json:"capacity_kw"`
	ActiveChargers      int       `json:"active_chargers"`
	Healthy             bool      `json:"healthy"`
	LastPolledAt        time.Time `json:"last_polled_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	RegisteredAt        time.Time `json:"registered_at"`
}

// LoadPercentage derives the current load percentage from the last
// reported values. An entry without a known capacity reports 100 so it
// never looks more attractive than a substation with real data.
func (s *Substation) LoadPercentage() float64 {
	if s.CapacityKW <= 0 {
		return 100
	}
	return s.ReportedLoadKW / s.CapacityKW * 100
}

// LoadReport is the result of one successful load-report probe.
type LoadReport struct {
	LoadKW         float64
	CapacityKW     float64
	ActiveChargers int
}

// ChargeRequest identifies one unit of charging work to route.
type ChargeRequest struct {
	EVID        string  `json:"ev_id"`
	RequestedKW float64 `json:"requested_kw"`
}

// ChargeResponse is the substation's answer to a forwarded charge request.
type ChargeResponse struct {
	SubstationID string  `json:"substation_id,omitempty"`
	SessionID    string  `json:"session_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	EVID         string  `json:"ev_id,omitempty"`
	RequestedKW  float64 `json:"requested_kw,omitempty"`
}
