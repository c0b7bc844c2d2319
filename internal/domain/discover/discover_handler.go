package discover

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roamplan/roamplan-api/internal/domain/trip"
	"github.com/roamplan/roamplan-api/internal/places"
	"github.com/roamplan/roamplan-api/internal/types"
	"github.com/roamplan/roamplan-api/pkg/api"
)

// Handler exposes the Discover engine over HTTP.
type Handler struct {
	svc    Service
	trips  trip.Service
	logger *slog.Logger
}

// NewHandler wires a Discover handler.
func NewHandler(svc Service, trips trip.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		trips:  trips,
		logger: logger,
	}
}

// DiscoverDay handles POST /trips/{tripID}/days/{dayID}/discover.
//
// With ?stream=true the response is newline-delimited JSON: one StreamEvent
// per line, flushed as each suggestion is finalized, always terminated by a
// complete or error record. Without it, the ranked selection is returned as
// a single collected list.
func (h *Handler) DiscoverDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DiscoverHandler").Start(r.Context(), "DiscoverDay")
	defer span.End()
	l := h.logger.With(slog.String("handler", "DiscoverDay"))

	tripID, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid trip id")
		return
	}
	dayID, err := uuid.Parse(chi.URLParam(r, "dayID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid day id")
		return
	}
	span.SetAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.String("day.id", dayID.String()),
	)

	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = ClampLimit(parsed)
	}
	stream := r.URL.Query().Get("stream") == "true"

	t, err := h.trips.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "trip not found")
			return
		}
		l.ErrorContext(ctx, "failed to load trip", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to load trip")
		return
	}
	day := t.DayByID(dayID)
	if day == nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "day not found")
		return
	}

	// Precondition failures are caller errors, reported before any upstream
	// call or stream header is written.
	if err := ValidateDayEligibility(day); err != nil {
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if stream {
		h.streamDiscover(w, r, day, limit)
		return
	}

	suggestions, err := h.svc.DiscoverDay(ctx, day, limit)
	if err != nil {
		h.writeDiscoverError(w, r, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "discover failed")
		return
	}

	// An empty list is a valid outcome, distinct from an error.
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
	})
}

func (h *Handler) streamDiscover(w http.ResponseWriter, r *http.Request, day *types.Day, limit int) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "streamDiscover"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		l.ErrorContext(ctx, "response writer does not support flushing")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events := make(chan types.StreamEvent, 100)
	go func() {
		defer close(events)
		if err := h.svc.DiscoverDayStream(ctx, day, limit, events); err != nil && !errors.Is(err, ctx.Err()) {
			l.ErrorContext(ctx, "discover stream failed", slog.Any("error", err))
		}
	}()

	encoder := json.NewEncoder(w)
	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if err := encoder.Encode(ev); err != nil {
				l.WarnContext(ctx, "failed to write stream event", slog.Any("error", err))
				return
			}
			flusher.Flush()
			if ev.IsFinal {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) writeDiscoverError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNoStops), errors.Is(err, types.ErrNoMappedStops):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, places.ErrMisconfigured):
		// Surface the specific misconfiguration so an operator can fix it
		// without guessing.
		api.ErrorResponse(w, r, http.StatusBadGateway, err.Error())
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("discover failed: %s", err.Error()))
	}
}
