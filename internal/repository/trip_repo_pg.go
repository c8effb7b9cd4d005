package repository

import (
	"context"
	"errors"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTripNotFound = errors.New("trip not found")

type TripRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
}

type PGTripRepository struct {
	db *pgxpool.Pool
}

func NewTripRepository(db *pgxpool.Pool) TripRepository {
	return &PGTripRepository{db: db}
}

func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `SELECT id, route_name, vessel_name, departure_time, arrival_time, created_at, updated_at FROM trips WHERE id=$1`, id)
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.RouteName, &t.VesselName, &t.DepartureTime, &t.ArrivalTime, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &t, nil
}

var _ TripRepository = (*PGTripRepository)(nil)
