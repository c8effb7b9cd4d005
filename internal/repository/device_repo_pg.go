package repository

import (
	"context"
	"errors"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDeviceNotFound = errors.New("access device not found")

type DeviceRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.AccessDevice, error)
}

type PGDeviceRepository struct {
	db *pgxpool.Pool
}

func NewDeviceRepository(db *pgxpool.Pool) DeviceRepository {
	return &PGDeviceRepository{db: db}
}

func (r *PGDeviceRepository) GetByToken(ctx context.Context, token string) (*domain.AccessDevice, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, location, device_type, api_token, created_at, updated_at FROM access_devices WHERE api_token=$1`, token)
	var d domain.AccessDevice
	if err := row.Scan(&d.ID, &d.Name, &d.Location, &d.DeviceType, &d.APIToken, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &d, nil
}

var _ DeviceRepository = (*PGDeviceRepository)(nil)
