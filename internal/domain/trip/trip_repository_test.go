package trip

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamplan/roamplan-api/internal/types"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresRepository(mockPool, testLogger()), mockPool
}

func TestPostgresRepositoryGetTrip(t *testing.T) {
	t.Run("decodes the stored document", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)

		want := types.Trip{
			ID:   uuid.New(),
			Name: "Portugal",
			Days: []types.Day{{ID: uuid.New(), Label: "Day 1"}},
		}
		doc, err := json.Marshal(want)
		require.NoError(t, err)

		mockPool.ExpectQuery("SELECT doc FROM trips WHERE id").
			WithArgs(want.ID).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

		got, err := repo.GetTrip(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, "Portugal", got.Name)
		require.Len(t, got.Days, 1)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		id := uuid.New()

		mockPool.ExpectQuery("SELECT doc FROM trips WHERE id").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetTrip(context.Background(), id)
		assert.ErrorIs(t, err, types.ErrNotFound)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresRepositorySaveTrip(t *testing.T) {
	repo, mockPool := newRepoWithMock(t)

	now := time.Now().UTC()
	trip := &types.Trip{ID: uuid.New(), Name: "Portugal", CreatedAt: now, UpdatedAt: now}

	mockPool.ExpectExec("INSERT INTO trips").
		WithArgs(trip.ID, pgxmock.AnyArg(), trip.CreatedAt, trip.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SaveTrip(context.Background(), trip))
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresRepositoryDeleteTrip(t *testing.T) {
	t.Run("deletes the row", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		id := uuid.New()

		mockPool.ExpectExec("DELETE FROM trips WHERE id").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.DeleteTrip(context.Background(), id))
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("zero rows maps to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		id := uuid.New()

		mockPool.ExpectExec("DELETE FROM trips WHERE id").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.DeleteTrip(context.Background(), id), types.ErrNotFound)
	})
}

func TestPostgresRepositoryListTrips(t *testing.T) {
	repo, mockPool := newRepoWithMock(t)

	first, err := json.Marshal(types.Trip{ID: uuid.New(), Name: "Portugal"})
	require.NoError(t, err)
	second, err := json.Marshal(types.Trip{ID: uuid.New(), Name: "Japan"})
	require.NoError(t, err)

	mockPool.ExpectQuery("SELECT doc FROM trips ORDER BY updated_at DESC").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow(first).
			AddRow([]byte("{broken")).
			AddRow(second))

	got, err := repo.ListTrips(context.Background(), 20)
	require.NoError(t, err)
	// The undecodable row is skipped, not fatal.
	require.Len(t, got, 2)
	assert.Equal(t, "Portugal", got[0].Name)
	assert.Equal(t, "Japan", got[1].Name)
	require.NoError(t, mockPool.ExpectationsWereMet())
}
