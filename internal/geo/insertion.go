package geo

import (
	"errors"

	"github.com/roamplan/roamplan-api/internal/types"
)

// ErrNoAnchors is returned when the solver is called with an empty route.
// Callers must check anchor-count eligibility before invoking the solver, so
// hitting this is a programming-contract violation, not a runtime condition.
var ErrNoAnchors = errors.New("best insertion point requires at least one anchor")

// BestInsertionPoint finds the position in the anchor sequence where visiting
// the candidate adds the least travel distance.
//
// With a single anchor the only option is to insert after it, at a detour
// equal to the anchor-candidate distance. With two or more anchors, every
// adjacent pair (a, b) is scored with
//
//	delta = dist(a, cand) + dist(cand, b) - dist(a, b)
//
// and the first strict minimum in route order wins.
func BestInsertionPoint(anchors []types.Anchor, candidate types.Coordinate) (types.InsertionPoint, error) {
	if len(anchors) == 0 {
		return types.InsertionPoint{}, ErrNoAnchors
	}

	if len(anchors) == 1 {
		return types.InsertionPoint{
			InsertAfterStopID: anchors[0].StopID,
			DetourKm:          DistanceKm(anchors[0].Location, candidate),
		}, nil
	}

	best := types.InsertionPoint{
		InsertAfterStopID: anchors[0].StopID,
		DetourKm:          insertionDelta(anchors[0].Location, anchors[1].Location, candidate),
	}
	for i := 1; i < len(anchors)-1; i++ {
		delta := insertionDelta(anchors[i].Location, anchors[i+1].Location, candidate)
		if delta < best.DetourKm {
			best = types.InsertionPoint{InsertAfterStopID: anchors[i].StopID, DetourKm: delta}
		}
	}
	return best, nil
}

func insertionDelta(a, b, candidate types.Coordinate) float64 {
	return DistanceKm(a, candidate) + DistanceKm(candidate, b) - DistanceKm(a, b)
}
