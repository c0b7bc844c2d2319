package geo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamplan/roamplan-api/internal/types"
)

func anchor(lat, lng float64) types.Anchor {
	return types.Anchor{StopID: uuid.New(), Location: types.Coordinate{Lat: lat, Lng: lng}}
}

func TestBestInsertionPoint(t *testing.T) {
	t.Run("empty anchors is a contract violation", func(t *testing.T) {
		_, err := BestInsertionPoint(nil, types.Coordinate{Lat: 1, Lng: 1})
		require.ErrorIs(t, err, ErrNoAnchors)
	})

	t.Run("single anchor inserts after it", func(t *testing.T) {
		a := anchor(34.05, -118.24)
		cand := types.Coordinate{Lat: 34.10, Lng: -118.24}

		pt, err := BestInsertionPoint([]types.Anchor{a}, cand)
		require.NoError(t, err)
		assert.Equal(t, a.StopID, pt.InsertAfterStopID)
		assert.InDelta(t, DistanceKm(a.Location, cand), pt.DetourKm, 1e-9)
	})

	t.Run("picks pair with minimal added distance", func(t *testing.T) {
		// Three anchors on a line going north; candidate sits just east of
		// the second segment's midpoint.
		a := anchor(34.00, -118.24)
		b := anchor(34.10, -118.24)
		c := anchor(34.20, -118.24)
		cand := types.Coordinate{Lat: 34.15, Lng: -118.23}

		pt, err := BestInsertionPoint([]types.Anchor{a, b, c}, cand)
		require.NoError(t, err)
		assert.Equal(t, b.StopID, pt.InsertAfterStopID)

		wantDelta := DistanceKm(b.Location, cand) + DistanceKm(cand, c.Location) - DistanceKm(b.Location, c.Location)
		assert.InDelta(t, wantDelta, pt.DetourKm, 1e-9)
		assert.GreaterOrEqual(t, pt.DetourKm, -1e-9)
	})

	t.Run("detour equals minimum over all adjacent pairs", func(t *testing.T) {
		anchors := []types.Anchor{
			anchor(38.71, -9.14),
			anchor(38.74, -9.15),
			anchor(38.77, -9.10),
			anchor(38.80, -9.18),
		}
		cand := types.Coordinate{Lat: 38.755, Lng: -9.12}

		pt, err := BestInsertionPoint(anchors, cand)
		require.NoError(t, err)

		min := -1.0
		for i := 0; i < len(anchors)-1; i++ {
			delta := DistanceKm(anchors[i].Location, cand) +
				DistanceKm(cand, anchors[i+1].Location) -
				DistanceKm(anchors[i].Location, anchors[i+1].Location)
			if min < 0 || delta < min {
				min = delta
			}
		}
		assert.InDelta(t, min, pt.DetourKm, 1e-9)
	})

	t.Run("ties break to earliest pair in route order", func(t *testing.T) {
		// Two identical segments equidistant from the candidate: the first
		// one must win because later pairs only replace on strict improvement.
		a := anchor(10, 0)
		b := anchor(10, 1)
		c := anchor(10, 0)
		d := anchor(10, 1)
		cand := types.Coordinate{Lat: 10.5, Lng: 0.5}

		pt, err := BestInsertionPoint([]types.Anchor{a, b, c, d}, cand)
		require.NoError(t, err)
		// Every adjacent pair covers the same segment, so all deltas tie.
		assert.Equal(t, a.StopID, pt.InsertAfterStopID)
	})

	t.Run("candidate on the route has near-zero detour", func(t *testing.T) {
		a := anchor(0, 0)
		b := anchor(0, 2)
		cand := types.Coordinate{Lat: 0, Lng: 1}

		pt, err := BestInsertionPoint([]types.Anchor{a, b}, cand)
		require.NoError(t, err)
		assert.InDelta(t, 0, pt.DetourKm, 1e-6)
	})
}
