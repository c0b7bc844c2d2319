package types

import "errors"

// Domain specific errors shared across services and handlers.
var (
	ErrNotFound   = errors.New("requested item not found")
	ErrConflict   = errors.New("item already exists or conflict")
	ErrForbidden  = errors.New("action forbidden")
	ErrBadRequest = errors.New("bad request")

	// Discover preconditions. Both are caller-visible 4xx rejections, never
	// silent empty results.
	ErrNoStops       = errors.New("add at least one destination to this day first")
	ErrNoMappedStops = errors.New("discover requires at least one mapped destination with coordinates")

	// ErrLastDay guards the "a trip always has at least one day" invariant.
	ErrLastDay = errors.New("cannot delete the last remaining day of a trip")
)
