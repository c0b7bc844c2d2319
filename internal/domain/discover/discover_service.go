package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/roamplan/roamplan-api/internal/geo"
	"github.com/roamplan/roamplan-api/internal/llm"
	"github.com/roamplan/roamplan-api/internal/places"
	"github.com/roamplan/roamplan-api/internal/types"
	"github.com/roamplan/roamplan-api/internal/websearch"
)

const (
	// searchRadiusMeters bounds each structured category search around the
	// route center.
	searchRadiusMeters = 10000

	// searchZoom is the map zoom hint passed to the web search provider.
	searchZoom = 13

	// maxHintResolutions caps hint-to-place lookups per invocation, bounding
	// secondary API usage regardless of how many hints come back.
	maxHintResolutions = 12

	// maxCandidates caps the candidate set handed to the ranking stage.
	maxCandidates = 80

	// DefaultLimit and MaxLimit bound the requested result count.
	DefaultLimit = 6
	MaxLimit     = 20
)

// searchCategories is the fixed structured-search fan-out set.
var searchCategories = []string{"tourist_attraction", "restaurant", "cafe"}

// Service produces insertable place suggestions for a single day's route.
type Service interface {
	// DiscoverDay runs the full pipeline and returns the ranked selection.
	DiscoverDay(ctx context.Context, day *types.Day, limit int) ([]types.Candidate, error)

	// DiscoverDayStream runs the same pipeline but emits each ranked
	// suggestion onto events as soon as it is finalized. The channel is not
	// closed by the service; the final event has IsFinal set.
	DiscoverDayStream(ctx context.Context, day *types.Day, limit int, events chan<- types.StreamEvent) error
}

// ServiceImpl orchestrates the two-source aggregation pipeline.
type ServiceImpl struct {
	places   places.Client
	search   websearch.Client // nil when no enrichment key is configured
	aiClient llm.ChatClient   // nil selects deterministic ranking
	logger   *slog.Logger
}

// NewServiceImpl wires a discover service. search and aiClient may be nil;
// the pipeline degrades to structured-only gathering and deterministic
// ranking respectively.
func NewServiceImpl(placesClient places.Client, searchClient websearch.Client, aiClient llm.ChatClient, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		places:   placesClient,
		search:   searchClient,
		aiClient: aiClient,
		logger:   logger,
	}
}

// ValidateDayEligibility checks the Discover preconditions: the day must
// have at least one stop, and at least one stop with a valid coordinate.
func ValidateDayEligibility(day *types.Day) error {
	if day == nil || len(day.Destinations) == 0 {
		return types.ErrNoStops
	}
	if len(day.Anchors()) == 0 {
		return types.ErrNoMappedStops
	}
	return nil
}

// ClampLimit bounds a requested result count to [1, MaxLimit], applying the
// default when unset.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// DiscoverDay implements Service in batch mode: the same selection logic as
// streaming, collected into a single list.
func (s *ServiceImpl) DiscoverDay(ctx context.Context, day *types.Day, limit int) ([]types.Candidate, error) {
	ctx, span := otel.Tracer("DiscoverService").Start(ctx, "DiscoverDay")
	defer span.End()
	limit = ClampLimit(limit)
	span.SetAttributes(attribute.Int("discover.limit", limit))

	candidates, err := s.gatherCandidates(ctx, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to gather candidates")
		return nil, err
	}
	if len(candidates) == 0 {
		// Nothing nearby or novel: a valid, non-error outcome.
		return []types.Candidate{}, nil
	}

	rankCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	selected := make([]types.Candidate, 0, limit)
	seen := make(map[uuid.UUID]bool)
	for rc := range s.rankStream(rankCtx, itinerarySummary(day), candidates, limit) {
		if seen[rc.CandidateID] {
			continue
		}
		seen[rc.CandidateID] = true
		selected = append(selected, rc)
		if len(selected) == limit {
			cancel()
			break
		}
	}

	span.SetAttributes(attribute.Int("discover.selected", len(selected)))
	return selected, nil
}

// DiscoverDayStream implements Service in streaming mode. Each suggestion is
// emitted as its own event; a terminal event (complete or error) always
// closes the logical stream.
func (s *ServiceImpl) DiscoverDayStream(ctx context.Context, day *types.Day, limit int, events chan<- types.StreamEvent) error {
	ctx, span := otel.Tracer("DiscoverService").Start(ctx, "DiscoverDayStream")
	defer span.End()
	l := s.logger.With(slog.String("service", "DiscoverDayStream"))
	limit = ClampLimit(limit)

	candidates, err := s.gatherCandidates(ctx, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to gather candidates")
		emitEvent(ctx, events, types.StreamEvent{
			Type:      types.EventError,
			Error:     err.Error(),
			Timestamp: time.Now(),
			EventID:   uuid.NewString(),
			IsFinal:   true,
		})
		return err
	}

	rankCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sent := 0
	seen := make(map[uuid.UUID]bool)
	for rc := range s.rankStream(rankCtx, itinerarySummary(day), candidates, limit) {
		// The ranking stage is not trusted to avoid duplicates.
		if seen[rc.CandidateID] {
			continue
		}
		seen[rc.CandidateID] = true

		suggestion := rc
		if !emitEvent(ctx, events, types.StreamEvent{
			Type:       types.EventSuggestion,
			Suggestion: &suggestion,
			Timestamp:  time.Now(),
			EventID:    uuid.NewString(),
		}) {
			// Caller disconnected; stop upstream ranking work promptly.
			cancel()
			return ctx.Err()
		}
		suggestionsEmitted.Inc()

		sent++
		if sent == limit {
			cancel()
			break
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	l.InfoContext(ctx, "discover stream completed",
		slog.Int("candidates", len(candidates)),
		slog.Int("emitted", sent))
	span.SetAttributes(attribute.Int("discover.emitted", sent))

	emitEvent(ctx, events, types.StreamEvent{
		Type:      types.EventComplete,
		Timestamp: time.Now(),
		EventID:   uuid.NewString(),
		IsFinal:   true,
	})
	return nil
}

// emitEvent sends an event unless the caller has gone away.
func emitEvent(ctx context.Context, events chan<- types.StreamEvent, ev types.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// gatherCandidates runs steps 1-9 of the aggregation pipeline: preconditions,
// structured fan-out, optional enrichment pass, dedupe/merge, guardrail
// validation, insertion-point annotation, and the pre-ranking cap.
func (s *ServiceImpl) gatherCandidates(ctx context.Context, day *types.Day) ([]types.Candidate, error) {
	ctx, span := otel.Tracer("DiscoverService").Start(ctx, "gatherCandidates")
	defer span.End()
	l := s.logger.With(slog.String("service", "gatherCandidates"))

	// Callers are expected to have checked eligibility already; re-validate
	// defensively rather than producing a silent empty result.
	if err := ValidateDayEligibility(day); err != nil {
		return nil, err
	}
	anchors := day.Anchors()

	// Recency bias: discover near where the day currently ends.
	center := anchors[len(anchors)-1].Location
	span.SetAttributes(
		attribute.Int("discover.anchors", len(anchors)),
		attribute.Float64("discover.center_lat", center.Lat),
		attribute.Float64("discover.center_lng", center.Lng),
	)

	existing := existingPlaceIDs(day)
	set := newCandidateSet()

	structured, err := s.fanOutStructuredSearches(ctx, center)
	if err != nil {
		return nil, err
	}
	for _, p := range structured {
		if existing[p.PlaceID] {
			continue
		}
		set.add(candidateFromPlace(p, types.SourceStructured))
	}

	if s.search != nil {
		if err := s.enrich(ctx, day, center, anchors, existing, set); err != nil {
			return nil, err
		}
	}

	candidates := make([]types.Candidate, 0, set.len())
	for _, c := range set.values() {
		if !passesGuardrail(anchors, c) {
			// Expected-case filtering of wrong-city resolutions, not an error.
			l.DebugContext(ctx, "candidate rejected by guardrail",
				slog.String("name", c.Name),
				slog.String("external_place_id", c.ExternalPlaceID))
			guardrailRejections.Inc()
			continue
		}
		point, err := geo.BestInsertionPoint(anchors, c.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to compute insertion point: %w", err)
		}
		c.DetourKm = point.DetourKm
		c.InsertAfterStopID = point.InsertAfterStopID
		candidates = append(candidates, c)

		if len(candidates) == maxCandidates {
			break
		}
	}

	span.SetAttributes(attribute.Int("discover.candidates", len(candidates)))
	return candidates, nil
}

// fanOutStructuredSearches launches all category searches concurrently and
// joins them. A misconfigured provider aborts the whole invocation with an
// actionable error; any other single-category failure just contributes zero
// candidates for that category.
func (s *ServiceImpl) fanOutStructuredSearches(ctx context.Context, center types.Coordinate) ([]places.Place, error) {
	l := s.logger.With(slog.String("service", "fanOutStructuredSearches"))

	results := make([][]places.Place, len(searchCategories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range searchCategories {
		g.Go(func() error {
			found, err := s.places.NearbySearch(gctx, center, searchRadiusMeters, category)
			if err != nil {
				if errors.Is(err, places.ErrMisconfigured) {
					return err
				}
				l.WarnContext(gctx, "category search failed, continuing without it",
					slog.String("category", category),
					slog.Any("error", err))
				return nil
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("structured search failed: %w", err)
	}

	var merged []places.Place
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// enrich performs the single budgeted web-search call and resolves up to
// maxHintResolutions of its hints into candidates. Quota exhaustion and
// other enrichment failures degrade softly: the pipeline continues with
// structured candidates only.
func (s *ServiceImpl) enrich(ctx context.Context, day *types.Day, center types.Coordinate, anchors []types.Anchor, existing map[string]bool, set *candidateSet) error {
	l := s.logger.With(slog.String("service", "enrich"))

	query := fmt.Sprintf("best places to visit near %s", locationText(day))
	hints, err := s.search.Search(ctx, query, &center, searchZoom)
	if err != nil {
		if errors.Is(err, websearch.ErrQuotaExceeded) {
			l.WarnContext(ctx, "web search quota exceeded, continuing without enrichment")
			enrichmentQuotaHits.Inc()
			return nil
		}
		l.WarnContext(ctx, "web search failed, continuing without enrichment", slog.Any("error", err))
		return nil
	}

	bias := places.LocationBias{Center: center, RadiusMeters: searchRadiusMeters}
	resolved := 0
	for _, hint := range hints {
		if resolved == maxHintResolutions {
			break
		}
		resolved++

		cand, err := s.resolveHint(ctx, hint, bias)
		if err != nil {
			if errors.Is(err, places.ErrMisconfigured) {
				return fmt.Errorf("hint resolution failed: %w", err)
			}
			l.WarnContext(ctx, "failed to resolve hint", slog.Any("error", err))
			continue
		}
		if cand == nil || existing[cand.ExternalPlaceID] {
			continue
		}
		set.add(*cand)
	}
	return nil
}

func existingPlaceIDs(day *types.Day) map[string]bool {
	ids := make(map[string]bool)
	for i := range day.Destinations {
		if id := day.Destinations[i].ExternalPlaceID; id != "" {
			ids[id] = true
		}
	}
	return ids
}

// locationText derives an approximate location string for the enrichment
// query from the last mapped stop: its address with the street part trimmed
// when possible, else its name.
func locationText(day *types.Day) string {
	for i := len(day.Destinations) - 1; i >= 0; i-- {
		stop := &day.Destinations[i]
		if !stop.HasLocation() {
			continue
		}
		if stop.Address != "" {
			if idx := strings.Index(stop.Address, ","); idx >= 0 && idx+1 < len(stop.Address) {
				return strings.TrimSpace(stop.Address[idx+1:])
			}
			return stop.Address
		}
		return stop.Name
	}
	return day.Label
}

func itinerarySummary(day *types.Day) string {
	var b strings.Builder
	if day.Label != "" {
		b.WriteString(day.Label)
		b.WriteString(": ")
	}
	for i := range day.Destinations {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(day.Destinations[i].Name)
	}
	return b.String()
}
