package types

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind records which provider(s) surfaced a candidate.
type SourceKind string

const (
	SourceStructured SourceKind = "structured"
	SourceEnrichment SourceKind = "enrichment"
	SourceBoth       SourceKind = "both"
)

// Candidate is a transient suggested place produced by a single Discover
// invocation. It is never persisted: the caller either converts it into a
// real Stop (with a fresh id) or dismisses it.
type Candidate struct {
	CandidateID       uuid.UUID  `json:"candidate_id"`
	ExternalPlaceID   string     `json:"external_place_id"`
	Name              string     `json:"name"`
	Address           string     `json:"address,omitempty"`
	Location          Coordinate `json:"location"`
	Types             []string   `json:"types,omitempty"`
	Rating            float64    `json:"rating,omitempty"`
	ReviewCount       int        `json:"review_count,omitempty"`
	DetourKm          float64    `json:"detour_km"`
	InsertAfterStopID uuid.UUID  `json:"insert_after_stop_id"`
	SourceKind        SourceKind `json:"source_kind"`
	SourceLinks       []string   `json:"source_links,omitempty"`
	Highlights        []string   `json:"highlights,omitempty"`
	Rationale         string     `json:"rationale,omitempty"`
}

// InsertionPoint is the solver's answer for one candidate coordinate.
type InsertionPoint struct {
	InsertAfterStopID uuid.UUID `json:"insert_after_stop_id"`
	DetourKm          float64   `json:"detour_km"`
}

// DiscoverRequest carries the caller's knobs for one invocation.
type DiscoverRequest struct {
	Limit  int  `json:"limit,omitempty"`
	Stream bool `json:"stream,omitempty"`
}

// Stream event types emitted by the delivery adapter.
const (
	EventSuggestion = "suggestion"
	EventComplete   = "complete"
	EventError      = "error"
)

// StreamEvent is one self-contained NDJSON record of a Discover stream.
type StreamEvent struct {
	Type       string     `json:"type"`
	Suggestion *Candidate `json:"suggestion,omitempty"`
	Error      string     `json:"error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	EventID    string     `json:"event_id"`
	IsFinal    bool       `json:"is_final,omitempty"`
}
