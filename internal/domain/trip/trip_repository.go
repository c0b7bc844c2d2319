package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roamplan/roamplan-api/internal/types"
)

// DBTX is the slice of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores trips as opaque whole documents: get, set, delete by id.
// The planner never decomposes a trip relationally; the document is the unit
// of ownership and of atomic mutation.
type Repository interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error)
	SaveTrip(ctx context.Context, t *types.Trip) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	ListTrips(ctx context.Context, limit int) ([]types.Trip, error)
}

// PostgresRepository keeps each trip as a JSONB document row.
type PostgresRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPostgresRepository(db DBTX, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

func (r *PostgresRepository) GetTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM trips WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	var t types.Trip
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("failed to decode trip document: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) SaveTrip(ctx context.Context, t *types.Trip) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode trip document: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO trips (id, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		t.ID, doc, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListTrips(ctx context.Context, limit int) ([]types.Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT doc FROM trips ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []types.Trip
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan trip document: %w", err)
		}
		var t types.Trip
		if err := json.Unmarshal(doc, &t); err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable trip document", slog.Any("error", err))
			continue
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}
