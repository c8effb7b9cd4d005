package repository

import (
	"context"
	"errors"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccessLogRepository interface {
	Append(ctx context.Context, entry *domain.AccessLogEntry) error
	LastGrantedEntry(ctx context.Context, subscriptionID int64, direction domain.Direction, before time.Time) (*domain.AccessLogEntry, error)
	GetByScanID(ctx context.Context, scanID string) (*domain.AccessLogEntry, error)
}

type PGAccessLogRepository struct {
	db *pgxpool.Pool
}

func NewAccessLogRepository(db *pgxpool.Pool) AccessLogRepository {
	return &PGAccessLogRepository{db: db}
}

const accessLogColumns = `id, scan_id, ticket_id, subscription_id, device_id, direction, result, reason, scanned_at, created_at`

// querier covers both *pgxpool.Pool and pgx.Tx so the ledger insert can ride
// the grant transactions of the ticket and subscription repositories.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertAccessLog(ctx context.Context, q querier, entry *domain.AccessLogEntry) error {
	return q.QueryRow(ctx, `INSERT INTO access_log (scan_id, ticket_id, subscription_id, device_id, direction, result, reason, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		entry.ScanID, entry.TicketID, entry.SubscriptionID, entry.DeviceID, entry.Direction, entry.Result, entry.Reason, entry.ScannedAt).
		Scan(&entry.ID, &entry.CreatedAt)
}

func scanAccessLogEntry(row pgx.Row) (*domain.AccessLogEntry, error) {
	var e domain.AccessLogEntry
	if err := row.Scan(&e.ID, &e.ScanID, &e.TicketID, &e.SubscriptionID, &e.DeviceID, &e.Direction, &e.Result, &e.Reason, &e.ScannedAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PGAccessLogRepository) Append(ctx context.Context, entry *domain.AccessLogEntry) error {
	return insertAccessLog(ctx, r.db, entry)
}

// LastGrantedEntry returns the most recent granted ledger row for a
// subscription in the given direction at or before the given time, or nil
// when there is none. The time bound anchors the anti-replay and
// anti-passback windows to the scan's effective time: offline replay must not
// see grants that happened after the entry was captured. The
// (subscription_id, result, direction, scanned_at) index keeps it cheap.
func (r *PGAccessLogRepository) LastGrantedEntry(ctx context.Context, subscriptionID int64, direction domain.Direction, before time.Time) (*domain.AccessLogEntry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accessLogColumns+` FROM access_log
		WHERE subscription_id=$1 AND result=$2 AND direction=$3 AND scanned_at<=$4
		ORDER BY scanned_at DESC LIMIT 1`,
		subscriptionID, domain.AccessResultGranted, direction, before)
	e, err := scanAccessLogEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// GetByScanID returns the ledger row recorded for a client scan id, or nil.
// Offline batch replay uses it to detect entries that already applied.
func (r *PGAccessLogRepository) GetByScanID(ctx context.Context, scanID string) (*domain.AccessLogEntry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accessLogColumns+` FROM access_log WHERE scan_id=$1`, scanID)
	e, err := scanAccessLogEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

var _ AccessLogRepository = (*PGAccessLogRepository)(nil)
