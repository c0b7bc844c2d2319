package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roamplan/roamplan-api/internal/types"
)

func TestDistanceKm(t *testing.T) {
	lisbon := types.Coordinate{Lat: 38.7223, Lng: -9.1393}
	porto := types.Coordinate{Lat: 41.1579, Lng: -8.6291}

	t.Run("known pair", func(t *testing.T) {
		// Lisbon to Porto is roughly 274 km great-circle.
		d := DistanceKm(lisbon, porto)
		assert.InDelta(t, 274, d, 5)
	})

	t.Run("symmetry", func(t *testing.T) {
		assert.InDelta(t, DistanceKm(lisbon, porto), DistanceKm(porto, lisbon), 1e-9)
	})

	t.Run("identity", func(t *testing.T) {
		assert.InDelta(t, 0, DistanceKm(lisbon, lisbon), 1e-9)
	})

	t.Run("antimeridian", func(t *testing.T) {
		a := types.Coordinate{Lat: 0, Lng: 179.5}
		b := types.Coordinate{Lat: 0, Lng: -179.5}
		// One degree of longitude at the equator, not 359 degrees.
		assert.InDelta(t, 111.19, DistanceKm(a, b), 0.5)
	})
}
