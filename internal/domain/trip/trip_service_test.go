package trip

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roamplan/roamplan-api/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockRepository) SaveTrip(ctx context.Context, t *types.Trip) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListTrips(ctx context.Context, limit int) ([]types.Trip, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Trip), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func twoDayTrip() *types.Trip {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &types.Trip{
		ID:        uuid.New(),
		Name:      "Portugal",
		CreatedAt: created,
		UpdatedAt: created,
		Days: []types.Day{
			{
				ID:    uuid.New(),
				Label: "Day 1",
				Destinations: []types.Stop{
					{ID: uuid.New(), Name: "Sao Bento Station"},
					{ID: uuid.New(), Name: "Ribeira Square"},
				},
			},
			{ID: uuid.New(), Label: "Day 2"},
		},
	}
}

func TestCreateTrip(t *testing.T) {
	repo := new(MockRepository)
	repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

	svc := NewServiceImpl(repo, testLogger())
	got, err := svc.CreateTrip(context.Background(), "Summer in Portugal")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "Summer in Portugal", got.Name)
	// A trip is never dayless.
	require.Len(t, got.Days, 1)
	assert.Equal(t, "Day 1", got.Days[0].Label)
	repo.AssertExpectations(t)
}

func TestDeleteDay(t *testing.T) {
	t.Run("removes the day", func(t *testing.T) {
		trip := twoDayTrip()
		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
		repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

		svc := NewServiceImpl(repo, testLogger())
		got, err := svc.DeleteDay(context.Background(), trip.ID, trip.Days[1].ID)
		require.NoError(t, err)
		assert.Len(t, got.Days, 1)
	})

	t.Run("refuses to delete the last day", func(t *testing.T) {
		trip := twoDayTrip()
		trip.Days = trip.Days[:1]
		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)

		svc := NewServiceImpl(repo, testLogger())
		_, err := svc.DeleteDay(context.Background(), trip.ID, trip.Days[0].ID)
		assert.ErrorIs(t, err, types.ErrLastDay)
		repo.AssertNotCalled(t, "SaveTrip", mock.Anything, mock.Anything)
	})

	t.Run("unknown day", func(t *testing.T) {
		trip := twoDayTrip()
		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)

		svc := NewServiceImpl(repo, testLogger())
		_, err := svc.DeleteDay(context.Background(), trip.ID, uuid.New())
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestMoveStop(t *testing.T) {
	t.Run("single write moves the stop", func(t *testing.T) {
		trip := twoDayTrip()
		stopID := trip.Days[0].Destinations[1].ID

		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
		repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

		svc := NewServiceImpl(repo, testLogger())
		got, err := svc.MoveStop(context.Background(), trip.ID, trip.Days[0].ID, trip.Days[1].ID, stopID)
		require.NoError(t, err)

		assert.Len(t, got.Days[0].Destinations, 1)
		require.Len(t, got.Days[1].Destinations, 1)
		assert.Equal(t, stopID, got.Days[1].Destinations[0].ID)
		// One load, one save: the transfer is a single document write.
		repo.AssertNumberOfCalls(t, "SaveTrip", 1)
	})

	t.Run("unknown stop leaves the document unwritten", func(t *testing.T) {
		trip := twoDayTrip()
		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)

		svc := NewServiceImpl(repo, testLogger())
		_, err := svc.MoveStop(context.Background(), trip.ID, trip.Days[0].ID, trip.Days[1].ID, uuid.New())
		assert.ErrorIs(t, err, types.ErrNotFound)
		repo.AssertNotCalled(t, "SaveTrip", mock.Anything, mock.Anything)
	})
}

func TestAcceptSuggestion(t *testing.T) {
	candidate := types.Candidate{
		CandidateID:     uuid.New(),
		ExternalPlaceID: "pl-lello",
		Name:            "Livraria Lello",
		Address:         "R. das Carmelitas 144, Porto",
		Location:        types.Coordinate{Lat: 41.1470, Lng: -8.6148},
		Rationale:       "One of the most beautiful bookshops in the world.",
	}

	t.Run("inserts after the anchor with a fresh id", func(t *testing.T) {
		trip := twoDayTrip()
		day := &trip.Days[0]
		candidate.InsertAfterStopID = day.Destinations[0].ID

		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
		repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

		svc := NewServiceImpl(repo, testLogger())
		got, err := svc.AcceptSuggestion(context.Background(), trip.ID, day.ID, candidate)
		require.NoError(t, err)

		stops := got.Days[0].Destinations
		require.Len(t, stops, 3)
		assert.Equal(t, "Livraria Lello", stops[1].Name)
		assert.NotEqual(t, candidate.CandidateID, stops[1].ID)
		assert.Equal(t, candidate.Rationale, stops[1].Notes)
		require.NotNil(t, stops[1].Location)
		assert.Equal(t, candidate.Location, *stops[1].Location)
	})

	t.Run("appends when the anchor is gone", func(t *testing.T) {
		trip := twoDayTrip()
		day := &trip.Days[0]
		candidate.InsertAfterStopID = uuid.New()

		repo := new(MockRepository)
		repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
		repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

		svc := NewServiceImpl(repo, testLogger())
		got, err := svc.AcceptSuggestion(context.Background(), trip.ID, day.ID, candidate)
		require.NoError(t, err)

		stops := got.Days[0].Destinations
		require.Len(t, stops, 3)
		assert.Equal(t, "Livraria Lello", stops[2].Name)
	})
}

func TestMutateBumpsUpdatedAt(t *testing.T) {
	trip := twoDayTrip()
	before := trip.UpdatedAt

	repo := new(MockRepository)
	repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
	repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

	svc := NewServiceImpl(repo, testLogger())
	got, err := svc.RenameTrip(context.Background(), trip.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.UpdatedAt.After(before))
	assert.Equal(t, trip.CreatedAt, got.CreatedAt)
}

func TestAddStopWithoutLocationIsANote(t *testing.T) {
	trip := twoDayTrip()
	repo := new(MockRepository)
	repo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
	repo.On("SaveTrip", mock.Anything, mock.Anything).Return(nil)

	svc := NewServiceImpl(repo, testLogger())
	got, err := svc.AddStop(context.Background(), trip.ID, trip.Days[1].ID, StopInput{Name: "Just a note", Notes: "no coordinates"})
	require.NoError(t, err)

	stops := got.Days[1].Destinations
	require.Len(t, stops, 1)
	assert.Nil(t, stops[0].Location)
	assert.False(t, stops[0].HasLocation())
}
