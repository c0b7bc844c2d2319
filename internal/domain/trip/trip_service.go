package trip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roamplan/roamplan-api/internal/types"
)

// StopInput carries the caller-editable fields of a stop.
type StopInput struct {
	Name            string            `json:"name"`
	ExternalPlaceID string            `json:"external_place_id,omitempty"`
	Address         string            `json:"address,omitempty"`
	Location        *types.Coordinate `json:"location,omitempty"`
	Notes           string            `json:"notes"`
}

// Service owns trip document mutations. Every mutation loads the whole
// document, changes it, bumps UpdatedAt and writes it back whole.
type Service interface {
	CreateTrip(ctx context.Context, name string) (*types.Trip, error)
	GetTrip(ctx context.Context, tripID uuid.UUID) (*types.Trip, error)
	ListTrips(ctx context.Context, limit int) ([]types.Trip, error)
	RenameTrip(ctx context.Context, tripID uuid.UUID, name string) (*types.Trip, error)
	DeleteTrip(ctx context.Context, tripID uuid.UUID) error

	AddDay(ctx context.Context, tripID uuid.UUID, label string) (*types.Trip, error)
	RenameDay(ctx context.Context, tripID, dayID uuid.UUID, label string) (*types.Trip, error)
	DeleteDay(ctx context.Context, tripID, dayID uuid.UUID) (*types.Trip, error)

	AddStop(ctx context.Context, tripID, dayID uuid.UUID, input StopInput) (*types.Trip, error)
	UpdateStop(ctx context.Context, tripID, dayID, stopID uuid.UUID, input StopInput) (*types.Trip, error)
	DeleteStop(ctx context.Context, tripID, dayID, stopID uuid.UUID) (*types.Trip, error)
	MoveStop(ctx context.Context, tripID, fromDayID, toDayID, stopID uuid.UUID) (*types.Trip, error)

	// AcceptSuggestion converts a Discover candidate into a real stop with a
	// fresh id, inserted right after its insertion anchor.
	AcceptSuggestion(ctx context.Context, tripID, dayID uuid.UUID, candidate types.Candidate) (*types.Trip, error)
}

type ServiceImpl struct {
	repo   Repository
	logger *slog.Logger
}

func NewServiceImpl(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *ServiceImpl) CreateTrip(ctx context.Context, name string) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "CreateTrip")
	defer span.End()
	l := s.logger.With(slog.String("service", "CreateTrip"))

	now := time.Now().UTC()
	t := &types.Trip{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		// A trip always contains at least one day.
		Days: []types.Day{{ID: uuid.New(), Label: "Day 1"}},
	}
	if err := s.repo.SaveTrip(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	span.SetAttributes(attribute.String("trip.id", t.ID.String()))
	l.InfoContext(ctx, "trip created", slog.String("trip_id", t.ID.String()))
	return t, nil
}

func (s *ServiceImpl) GetTrip(ctx context.Context, tripID uuid.UUID) (*types.Trip, error) {
	return s.repo.GetTrip(ctx, tripID)
}

func (s *ServiceImpl) ListTrips(ctx context.Context, limit int) ([]types.Trip, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListTrips(ctx, limit)
}

func (s *ServiceImpl) RenameTrip(ctx context.Context, tripID uuid.UUID, name string) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		t.Name = name
		return nil
	})
}

func (s *ServiceImpl) DeleteTrip(ctx context.Context, tripID uuid.UUID) error {
	return s.repo.DeleteTrip(ctx, tripID)
}

func (s *ServiceImpl) AddDay(ctx context.Context, tripID uuid.UUID, label string) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		if label == "" {
			label = fmt.Sprintf("Day %d", len(t.Days)+1)
		}
		t.Days = append(t.Days, types.Day{ID: uuid.New(), Label: label})
		return nil
	})
}

func (s *ServiceImpl) RenameDay(ctx context.Context, tripID, dayID uuid.UUID, label string) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		day := t.DayByID(dayID)
		if day == nil {
			return types.ErrNotFound
		}
		day.Label = label
		return nil
	})
}

func (s *ServiceImpl) DeleteDay(ctx context.Context, tripID, dayID uuid.UUID) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		if len(t.Days) == 1 {
			return types.ErrLastDay
		}
		for i := range t.Days {
			if t.Days[i].ID == dayID {
				t.Days = append(t.Days[:i], t.Days[i+1:]...)
				return nil
			}
		}
		return types.ErrNotFound
	})
}

func (s *ServiceImpl) AddStop(ctx context.Context, tripID, dayID uuid.UUID, input StopInput) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		day := t.DayByID(dayID)
		if day == nil {
			return types.ErrNotFound
		}
		day.Destinations = append(day.Destinations, stopFromInput(input))
		return nil
	})
}

func (s *ServiceImpl) UpdateStop(ctx context.Context, tripID, dayID, stopID uuid.UUID, input StopInput) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		day := t.DayByID(dayID)
		if day == nil {
			return types.ErrNotFound
		}
		for i := range day.Destinations {
			if day.Destinations[i].ID == stopID {
				stop := &day.Destinations[i]
				stop.Name = input.Name
				stop.ExternalPlaceID = input.ExternalPlaceID
				stop.Address = input.Address
				stop.Location = input.Location
				stop.Notes = input.Notes
				return nil
			}
		}
		return types.ErrNotFound
	})
}

func (s *ServiceImpl) DeleteStop(ctx context.Context, tripID, dayID, stopID uuid.UUID) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		day := t.DayByID(dayID)
		if day == nil {
			return types.ErrNotFound
		}
		for i := range day.Destinations {
			if day.Destinations[i].ID == stopID {
				day.Destinations = append(day.Destinations[:i], day.Destinations[i+1:]...)
				return nil
			}
		}
		return types.ErrNotFound
	})
}

// MoveStop transfers a stop between days as a single atomic
// remove-then-append inside one document write. A stop is owned by exactly
// one day; it is never copied.
func (s *ServiceImpl) MoveStop(ctx context.Context, tripID, fromDayID, toDayID, stopID uuid.UUID) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		from := t.DayByID(fromDayID)
		to := t.DayByID(toDayID)
		if from == nil || to == nil {
			return types.ErrNotFound
		}
		for i := range from.Destinations {
			if from.Destinations[i].ID == stopID {
				moved := from.Destinations[i]
				from.Destinations = append(from.Destinations[:i], from.Destinations[i+1:]...)
				to.Destinations = append(to.Destinations, moved)
				return nil
			}
		}
		return types.ErrNotFound
	})
}

func (s *ServiceImpl) AcceptSuggestion(ctx context.Context, tripID, dayID uuid.UUID, candidate types.Candidate) (*types.Trip, error) {
	return s.mutate(ctx, tripID, func(t *types.Trip) error {
		day := t.DayByID(dayID)
		if day == nil {
			return types.ErrNotFound
		}

		location := candidate.Location
		stop := types.Stop{
			ID:              uuid.New(),
			Name:            candidate.Name,
			ExternalPlaceID: candidate.ExternalPlaceID,
			Address:         candidate.Address,
			Location:        &location,
			Notes:           candidate.Rationale,
		}

		// Insert right after the anchor the detour was computed against;
		// append if the anchor has since been removed.
		for i := range day.Destinations {
			if day.Destinations[i].ID == candidate.InsertAfterStopID {
				day.Destinations = append(day.Destinations[:i+1],
					append([]types.Stop{stop}, day.Destinations[i+1:]...)...)
				return nil
			}
		}
		day.Destinations = append(day.Destinations, stop)
		return nil
	})
}

// mutate applies fn to the loaded trip document and persists it with a fresh
// UpdatedAt.
func (s *ServiceImpl) mutate(ctx context.Context, tripID uuid.UUID, fn func(*types.Trip) error) (*types.Trip, error) {
	t, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveTrip(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save trip: %w", err)
	}
	return t, nil
}

func stopFromInput(input StopInput) types.Stop {
	stop := types.Stop{
		ID:              uuid.New(),
		Name:            input.Name,
		ExternalPlaceID: input.ExternalPlaceID,
		Address:         input.Address,
		Notes:           input.Notes,
	}
	if input.Location != nil && input.Location.Valid() {
		stop.Location = input.Location
	}
	return stop
}
