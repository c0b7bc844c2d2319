package trip

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roamplan/roamplan-api/internal/types"
	"github.com/roamplan/roamplan-api/pkg/api"
)

// Handler exposes trip, day and stop management over HTTP.
type Handler struct {
	svc    Service
	shares *ShareTokenManager
	logger *slog.Logger
}

func NewHandler(svc Service, shares *ShareTokenManager, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		shares: shares,
		logger: logger,
	}
}

type createTripRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}
	t, err := h.svc.CreateTrip(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, t)
}

func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	t, err := h.svc.GetTrip(r.Context(), tripID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.svc.ListTrips(r.Context(), 20)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if trips == nil {
		trips = []types.Trip{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"trips": trips})
}

func (h *Handler) RenameTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}
	t, err := h.svc.RenameTrip(r.Context(), tripID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	if err := h.svc.DeleteTrip(r.Context(), tripID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dayRequest struct {
	Label string `json:"label"`
}

func (h *Handler) AddDay(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	var req dayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.AddDay(r.Context(), tripID, req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, t)
}

func (h *Handler) RenameDay(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	dayID, ok := h.uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	var req dayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "label is required")
		return
	}
	t, err := h.svc.RenameDay(r.Context(), tripID, dayID, req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	dayID, ok := h.uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	t, err := h.svc.DeleteDay(r.Context(), tripID, dayID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func (h *Handler) AddStop(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	dayID, ok := h.uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	var input StopInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "stop name is required")
		return
	}
	t, err := h.svc.AddStop(r.Context(), tripID, dayID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, t)
}

func (h *Handler) UpdateStop(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	dayID, ok := h.uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	stopID, ok := h.uuidParam(w, r, "stopID")
	if !ok {
		return
	}
	var input StopInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.UpdateStop(r.Context(), tripID, dayID, stopID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func (h *Handler) DeleteStop(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	dayID, ok := h.uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	stopID, ok := h.uuidParam(w, r, "stopID")
	if !ok {
		return
	}
	t, err := h.svc.DeleteStop(r.Context(), tripID, dayID, stopID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

type moveStopRequest struct {
	FromDayID uuid.UUID `json:"from_day_id"`
	ToDayID   uuid.UUID `json:"to_day_id"`
}

func (h *Handler) MoveStop(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	stopID, ok := h.uuidParam(w, r, "stopID")
	if !ok {
		return
	}
	var req moveStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.MoveStop(r.Context(), tripID, req.FromDayID, req.ToDayID, stopID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func (h *Handler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	dayID, ok := h.uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	var candidate types.Candidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil || candidate.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid suggestion payload")
		return
	}
	t, err := h.svc.AcceptSuggestion(r.Context(), tripID, dayID, candidate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, t)
}

type shareRequest struct {
	Role string `json:"role"`
}

func (h *Handler) ShareTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := h.uuidParam(w, r, "tripID")
	if !ok {
		return
	}
	// Only share trips that exist.
	if _, err := h.svc.GetTrip(r.Context(), tripID); err != nil {
		h.writeError(w, r, err)
		return
	}

	req := shareRequest{Role: RoleViewer}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	token, err := h.shares.IssueShareToken(tripID, req.Role)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"token": token, "role": req.Role})
}

// ResolveShare handles GET /shared/{token}: capability-token access to a trip.
func (h *Handler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	tripID, role, err := h.shares.VerifyShareToken(token)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusForbidden, err.Error())
		return
	}
	t, err := h.svc.GetTrip(r.Context(), tripID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"trip": t, "role": role})
}

func (h *Handler) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, types.ErrLastDay):
		api.ErrorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrBadRequest):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "trip operation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal error")
	}
}
