package discover

import (
	"github.com/roamplan/roamplan-api/internal/geo"
	"github.com/roamplan/roamplan-api/internal/types"
)

// guardrailRadiusKm is the spatial sanity limit for enrichment-sourced
// candidates. Free-text name resolution occasionally latches onto a
// same-named place in a different city; anything farther than this from
// every anchor is considered a mis-resolution and dropped.
const guardrailRadiusKm = 50

// withinGuardrail reports whether a location is within guardrailRadiusKm of
// at least one anchor.
func withinGuardrail(anchors []types.Anchor, location types.Coordinate) bool {
	for _, a := range anchors {
		if geo.DistanceKm(a.Location, location) <= guardrailRadiusKm {
			return true
		}
	}
	return false
}

// passesGuardrail applies the validator to one candidate. Structured-search
// candidates are exempt: the search itself is already radius-constrained
// around the route center, so they cannot be wrong-city results.
func passesGuardrail(anchors []types.Anchor, c types.Candidate) bool {
	if c.SourceKind != types.SourceEnrichment {
		return true
	}
	return withinGuardrail(anchors, c.Location)
}
