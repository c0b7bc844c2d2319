package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roamplan/roamplan-api/internal/places"
	"github.com/roamplan/roamplan-api/internal/types"
	"github.com/roamplan/roamplan-api/internal/websearch"
)

// maxSourceLinks caps the citation list carried on a merged candidate.
const maxSourceLinks = 5

func candidateFromPlace(p places.Place, source types.SourceKind) types.Candidate {
	return types.Candidate{
		CandidateID:     uuid.New(),
		ExternalPlaceID: p.PlaceID,
		Name:            p.Name,
		Address:         p.Address,
		Location:        p.Location,
		Types:           p.Types,
		Rating:          p.Rating,
		ReviewCount:     p.ReviewCount,
		SourceKind:      source,
	}
}

// candidateSet deduplicates candidates by external place id while preserving
// discovery order.
type candidateSet struct {
	byPlaceID map[string]int
	ordered   []types.Candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byPlaceID: make(map[string]int)}
}

// add inserts a candidate, merging it with an already-known record for the
// same external place id.
func (s *candidateSet) add(c types.Candidate) {
	if idx, ok := s.byPlaceID[c.ExternalPlaceID]; ok {
		s.ordered[idx] = mergeCandidates(s.ordered[idx], c)
		return
	}
	s.byPlaceID[c.ExternalPlaceID] = len(s.ordered)
	s.ordered = append(s.ordered, c)
}

func (s *candidateSet) len() int { return len(s.ordered) }

func (s *candidateSet) values() []types.Candidate { return s.ordered }

// mergeCandidates combines two discoveries of the same place: source links
// are unioned (capped), the richer highlight set wins, and the source kind is
// promoted to "both" only when the two sources disagree.
func mergeCandidates(existing, incoming types.Candidate) types.Candidate {
	merged := existing

	if incoming.SourceKind != existing.SourceKind {
		merged.SourceKind = types.SourceBoth
	}

	seen := make(map[string]bool, len(existing.SourceLinks))
	for _, link := range existing.SourceLinks {
		seen[link] = true
	}
	for _, link := range incoming.SourceLinks {
		if len(merged.SourceLinks) >= maxSourceLinks {
			break
		}
		if !seen[link] {
			merged.SourceLinks = append(merged.SourceLinks, link)
			seen[link] = true
		}
	}

	if len(incoming.Highlights) > len(merged.Highlights) {
		merged.Highlights = incoming.Highlights
	}
	if merged.Address == "" {
		merged.Address = incoming.Address
	}
	if merged.Rating == 0 {
		merged.Rating = incoming.Rating
		merged.ReviewCount = incoming.ReviewCount
	}
	return merged
}

// resolveHint turns a free-text search hint into a candidate by resolving it
// against the canonical places provider: a details lookup when a usable id
// hint exists, otherwise a find-place lookup biased toward the route center.
// Hints that resolve to nothing return (nil, nil) — absence of a match is
// expected and common, not an error.
func (s *ServiceImpl) resolveHint(ctx context.Context, hint websearch.Hint, bias places.LocationBias) (*types.Candidate, error) {
	l := s.logger.With(slog.String("service", "resolveHint"))

	var place *places.Place
	var err error

	if hint.PlaceIDHint != "" {
		place, err = s.places.Details(ctx, hint.PlaceIDHint)
		if err != nil && !errors.Is(err, places.ErrNoMatch) {
			if errors.Is(err, places.ErrMisconfigured) {
				return nil, err
			}
			// A bad id hint is recoverable; fall back to text resolution.
			l.DebugContext(ctx, "details lookup for hint failed, trying find-place",
				slog.String("place_id_hint", hint.PlaceIDHint), slog.Any("error", err))
			place = nil
		}
	}

	if place == nil {
		if hint.NameHint == "" {
			return nil, nil
		}
		place, err = s.places.FindPlace(ctx, hint.NameHint, bias)
		if errors.Is(err, places.ErrNoMatch) {
			return nil, nil
		}
		if err != nil {
			if errors.Is(err, places.ErrMisconfigured) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to resolve hint %q: %w", hint.NameHint, err)
		}
	}

	cand := candidateFromPlace(*place, types.SourceEnrichment)
	if len(hint.SourceLinks) > maxSourceLinks {
		cand.SourceLinks = hint.SourceLinks[:maxSourceLinks]
	} else {
		cand.SourceLinks = hint.SourceLinks
	}
	cand.Highlights = hint.Details
	return &cand, nil
}
