package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketNotBoardable is returned by Board when the conditional update
	// matched no row: the ticket is gone or no longer in VALID status. The
	// caller re-reads the ticket to tell those cases apart.
	ErrTicketNotBoardable = errors.New("ticket not in boardable status")
)

type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Board(ctx context.Context, id int64, usedAt time.Time, entry *domain.AccessLogEntry) (*domain.Ticket, error)
	ForceBoard(ctx context.Context, id int64, usedAt time.Time, entry *domain.AccessLogEntry) (domain.TicketStatus, *domain.Ticket, error)
}

type PGTicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &PGTicketRepository{db: db}
}

const ticketColumns = `id, booking_reference, trip_id, return_trip_id, passenger_name, passenger_type, price_paid_cents, status, used_at, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.BookingReference, &t.TripID, &t.ReturnTripID, &t.PassengerName, &t.PassengerType, &t.PricePaidCents, &t.Status, &t.UsedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PGTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// Board performs the issued→boarded transition as a single check-and-set
// guarded on the current status, and appends the granted ledger row in the
// same transaction. Two concurrent scans of one ticket cannot both succeed:
// the loser's UPDATE matches no row and ErrTicketNotBoardable comes back.
func (r *PGTicketRepository) Board(ctx context.Context, id int64, usedAt time.Time, entry *domain.AccessLogEntry) (*domain.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE tickets SET status=$1, used_at=$2, updated_at=now() WHERE id=$3 AND status=$4 RETURNING `+ticketColumns,
		domain.TicketStatusBoarded, usedAt, id, domain.TicketStatusValid)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotBoardable
	}
	if err != nil {
		return nil, err
	}

	if err := insertAccessLog(ctx, tx, entry); err != nil {
		return nil, err
	}

	return t, tx.Commit(ctx)
}

// ForceBoard is the supervisor bypass: it boards the ticket regardless of its
// current status and returns the status it had before. The ledger row's
// reason is prefixed with that status so the audit trail records what was
// overridden alongside the supervisor-supplied justification.
func (r *PGTicketRepository) ForceBoard(ctx context.Context, id int64, usedAt time.Time, entry *domain.AccessLogEntry) (domain.TicketStatus, *domain.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback(ctx)

	var previous domain.TicketStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM tickets WHERE id=$1 FOR UPDATE`, id).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrTicketNotFound
		}
		return "", nil, err
	}

	row := tx.QueryRow(ctx, `UPDATE tickets SET status=$1, used_at=$2, updated_at=now() WHERE id=$3 RETURNING `+ticketColumns,
		domain.TicketStatusBoarded, usedAt, id)
	t, err := scanTicket(row)
	if err != nil {
		return "", nil, err
	}

	entry.Reason = fmt.Sprintf("bypass from %s: %s", previous, entry.Reason)
	if err := insertAccessLog(ctx, tx, entry); err != nil {
		return "", nil, err
	}

	return previous, t, tx.Commit(ctx)
}

var _ TicketRepository = (*PGTicketRepository)(nil)
