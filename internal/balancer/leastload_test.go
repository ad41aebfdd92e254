package balancer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbalancer/internal/balancer"
	"gridbalancer/internal/types"
)

func substation(id string, loadKW, capacityKW float64, healthy bool) *types.Substation {
	return &types.Substation{
		ID:             id,
		Address:        "http://" + id,
		ReportedLoadKW: loadKW,
		CapacityKW:     capacityKW,
		Healthy:        healthy,
	}
}

func TestLeastLoadSelect(t *testing.T) {
	selector := balancer.NewLeastLoad()

	t.Run("Picks minimum load percentage", func(t *testing.T) {
		subs := []*types.Substation{
			substation("x:8000", 20, 100, true),
			substation("y:8000", 50, 100, true),
			substation("z:8000", 80, 100, true),
		}

		selected, err := selector.Select(subs)
		require.NoError(t, err)
		assert.Equal(t, "x:8000", selected.ID)
	})

	t.Run("Unhealthy entries excluded regardless of load", func(t *testing.T) {
		// Z reports the lowest load but is unhealthy; X must win.
		subs := []*types.Substation{
			substation("x:8000", 20, 100, true),
			substation("y:8000", 50, 100, true),
			substation("z:8000", 5, 100, false),
		}

		selected, err := selector.Select(subs)
		require.NoError(t, err)
		assert.Equal(t, "x:8000", selected.ID)
	})

	t.Run("Percentage not absolute load decides", func(t *testing.T) {
		subs := []*types.Substation{
			substation("big:8000", 50, 200, true),  // 25%
			substation("small:8000", 20, 40, true), // 50%
		}

		selected, err := selector.Select(subs)
		require.NoError(t, err)
		assert.Equal(t, "big:8000", selected.ID)
	})

	t.Run("Ties break on lowest id", func(t *testing.T) {
		subs := []*types.Substation{
			substation("charlie:8000", 30, 100, true),
			substation("alpha:8000", 30, 100, true),
			substation("bravo:8000", 30, 100, true),
		}

		for i := 0; i < 10; i++ {
			selected, err := selector.Select(subs)
			require.NoError(t, err)
			assert.Equal(t, "alpha:8000", selected.ID)
		}
	})

	t.Run("Empty set returns no healthy substations", func(t *testing.T) {
		selected, err := selector.Select(nil)
		assert.Nil(t, selected)
		assert.ErrorIs(t, err, types.ErrNoHealthySubstations)
	})

	t.Run("All unhealthy returns no healthy substations", func(t *testing.T) {
		subs := []*types.Substation{
			substation("x:8000", 20, 100, false),
			substation("y:8000", 50, 100, false),
		}

		selected, err := selector.Select(subs)
		assert.Nil(t, selected)
		assert.ErrorIs(t, err, types.ErrNoHealthySubstations)
	})

	t.Run("Zero capacity never beats real data", func(t *testing.T) {
		subs := []*types.Substation{
			substation("known:8000", 90, 100, true), // 90%
			substation("unknown:8000", 0, 0, true),  // no capacity reported
		}

		selected, err := selector.Select(subs)
		require.NoError(t, err)
		assert.Equal(t, "known:8000", selected.ID)
	})
}
