// Package balancer implements substation selection for gridbalancer
package balancer

import (
	"gridbalancer/internal/types"
)

// leastLoad selects the healthy substation with the lowest load percentage
type leastLoad struct{}

// NewLeastLoad creates a new least-load selector
func NewLeastLoad() types.Selector {
	return &leastLoad{}
}

// Select returns the healthy substation with the minimum load percentage.
// Ties break on the lowest id; snapshots arrive sorted by id, so the first
// minimum seen wins and repeated calls are reproducible.
func (ll *leastLoad) Select(substations []*types.Substation) (*types.Substation, error) {
	var selected *types.Substation
	minLoad := 0.0

	for _, sub := range substations {
		if !sub.Healthy {
			continue
		}

		load := sub.LoadPercentage()
		if selected == nil || load < minLoad || (load == minLoad && sub.ID < selected.ID) {
			selected = sub
			minLoad = load
		}
	}

	if selected == nil {
		return nil, types.ErrNoHealthySubstations
	}

	return selected, nil
}
