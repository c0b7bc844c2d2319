package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the envelope used for error payloads.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteJSONResponse writes data as a JSON body with the given status.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", slog.Any("error", err))
	}
}

// ErrorResponse writes a JSON error envelope with the given status.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, Response{Success: false, Message: message})
}
