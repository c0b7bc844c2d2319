package types

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Coordinate is a WGS84 point. Both fields must be finite; a stop without a
// usable coordinate is a note and never participates in routing.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite numbers.
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lng) && !math.IsInf(c.Lng, 0)
}

// Stop is a single entry in a day's itinerary. Stops with a location are
// destinations; stops without one are free-form notes.
type Stop struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	ExternalPlaceID string      `json:"external_place_id,omitempty"`
	Address         string      `json:"address,omitempty"`
	Location        *Coordinate `json:"location,omitempty"`
	Notes           string      `json:"notes"`
}

// HasLocation reports whether the stop carries a usable coordinate.
func (s *Stop) HasLocation() bool {
	return s.Location != nil && s.Location.Valid()
}

// Day holds an ordered sequence of stops. Order is significant: it defines
// route order and display order identically.
type Day struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	Destinations []Stop    `json:"destinations"`
}

// Anchor is the projection of a stop onto routing geometry: its id and its
// coordinate. Only stops with valid coordinates become anchors.
type Anchor struct {
	StopID   uuid.UUID  `json:"stop_id"`
	Location Coordinate `json:"location"`
}

// Anchors returns the day's geolocated stops in route order.
func (d *Day) Anchors() []Anchor {
	var anchors []Anchor
	for i := range d.Destinations {
		s := &d.Destinations[i]
		if s.HasLocation() {
			anchors = append(anchors, Anchor{StopID: s.ID, Location: *s.Location})
		}
	}
	return anchors
}

// Trip is the root itinerary document, stored and fetched as a whole.
type Trip struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Days      []Day     `json:"days"`
}

// DayByID returns a pointer into the trip's day slice, or nil.
func (t *Trip) DayByID(dayID uuid.UUID) *Day {
	for i := range t.Days {
		if t.Days[i].ID == dayID {
			return &t.Days[i]
		}
	}
	return nil
}
