// Package registry implements the in-memory substation registry
package registry

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"gridbalancer/internal/types"
)

// memoryRegistry implements types.Registry using an in-memory map.
// A single lock over the map is sufficient for the expected scale
// (tens of substations, not thousands).
type memoryRegistry struct {
	mu          sync.RWMutex
	substations map[string]*types.Substation
	logger      types.Logger
}

// New creates a new in-memory registry instance
func New(logger types.Logger) types.Registry {
	return &memoryRegistry{
		substations: make(map[string]*types.Substation),
		logger:      logger,
	}
}

// DeriveID returns the registry key for a substation address.
// The host:port portion of the URL uniquely identifies a substation.
func DeriveID(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", types.ErrInvalidAddress
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", types.ErrInvalidAddress
	}
	return u.Host, nil
}

// Upsert registers a substation by address. Re-registering a known address
// returns the existing entry unchanged; the second return value reports
// whether a new entry was created.
func (m *memoryRegistry) Upsert(address string) (*types.Substation, bool, error) {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	id, err := DeriveID(address)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.substations[id]; ok {
		existingCopy := *existing
		return &existingCopy, false, nil
	}

	// New entries start unhealthy: a substation is not eligible for
	// routing until its first successful poll.
	sub := &types.Substation{
		ID:           id,
		Address:      address,
		Healthy:      false,
		RegisteredAt: time.Now(),
	}
	m.substations[id] = sub

	m.logger.Info("substation registered", "id", id, "address", address)

	subCopy := *sub
	return &subCopy, true, nil
}

// Remove deletes a substation by id. A poll in flight for the removed entry
// is simply discarded when its result arrives.
func (m *memoryRegistry) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.substations[id]; !ok {
		return types.ErrSubstationNotFound
	}
	delete(m.substations, id)

	m.logger.Info("substation removed", "id", id)
	return nil
}

// Get returns a copy of one substation
func (m *memoryRegistry) Get(id string) (*types.Substation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.substations[id]
	if !ok {
		return nil, types.ErrSubstationNotFound
	}

	subCopy := *sub
	return &subCopy, nil
}

// Snapshot returns a point-in-time copy of all entries sorted by id, so
// consumers iterate in a reproducible order even when loads tie.
func (m *memoryRegistry) Snapshot() []*types.Substation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	substations := make([]*types.Substation, 0, len(m.substations))
	for _, sub := range m.substations {
		subCopy := *sub
		substations = append(substations, &subCopy)
	}

	sort.Slice(substations, func(i, j int) bool {
		return substations[i].ID < substations[j].ID
	})

	return substations
}

// ApplyPollResult records one poll attempt for id. The update is dropped
// when the entry no longer exists or when polledAt is not newer than the
// stored timestamp, so a slow in-flight probe never overwrites fresher
// data. Returns the updated copy and whether the result was applied.
func (m *memoryRegistry) ApplyPollResult(id string, report types.LoadReport, healthy bool, polledAt time.Time) (*types.Substation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.substations[id]
	if !ok {
		return nil, false
	}
	if !polledAt.After(sub.LastPolledAt) {
		return nil, false
	}

	sub.LastPolledAt = polledAt
	if healthy {
		sub.ReportedLoadKW = report.LoadKW
		sub.CapacityKW = report.CapacityKW
		sub.ActiveChargers = report.ActiveChargers
		sub.ConsecutiveFailures = 0
		if !sub.Healthy {
			sub.Healthy = true
			m.logger.Info("substation marked healthy", "id", id)
		}
	} else {
		sub.ConsecutiveFailures++
		if sub.Healthy {
			sub.Healthy = false
			m.logger.Warn("substation marked unhealthy",
				"id", id,
				"consecutive_failures", sub.ConsecutiveFailures,
			)
		}
	}

	subCopy := *sub
	return &subCopy, true
}

// MarkUnhealthy demotes a substation after a failed forward, without
// waiting for the next poll cycle. Returns false if the entry is gone.
func (m *memoryRegistry) MarkUnhealthy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.substations[id]
	if !ok {
		return false
	}
	if sub.Healthy {
		sub.Healthy = false
		m.logger.Warn("substation marked unhealthy after failed forward", "id", id)
	}
	return true
}
