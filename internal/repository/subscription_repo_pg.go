package repository

import (
	"context"
	"errors"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNoCreditsLeft is returned by GrantAccess when the guarded decrement
	// matched no row, meaning the counted balance already reached zero.
	ErrNoCreditsLeft = errors.New("no voyage credits left")
)

type SubscriptionRepository interface {
	GetByRFID(ctx context.Context, uid string) (*domain.Subscription, error)
	GrantCountedAccess(ctx context.Context, sub *domain.Subscription, entry *domain.AccessLogEntry) error
	ExpireEnded(ctx context.Context) (int64, error)
}

type PGSubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) SubscriptionRepository {
	return &PGSubscriptionRepository{db: db}
}

const subscriptionColumns = `s.id, s.owner_name, s.plan_id, s.rfid_card_id, s.start_date, s.end_date, s.status,
	s.voyage_credits_initial, s.voyage_credits_remaining, s.created_at, s.updated_at,
	p.id, p.name, p.model, p.allow_multi_passenger`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(&s.ID, &s.OwnerName, &s.PlanID, &s.RFIDCardID, &s.StartDate, &s.EndDate, &s.Status,
		&s.VoyageCreditsInitial, &s.VoyageCreditsRemaining, &s.CreatedAt, &s.UpdatedAt,
		&s.Plan.ID, &s.Plan.Name, &s.Plan.Model, &s.Plan.AllowMultiPassenger); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByRFID loads a subscription with its plan by badge UID. A detached or
// never-associated badge simply matches no row.
func (r *PGSubscriptionRepository) GetByRFID(ctx context.Context, uid string) (*domain.Subscription, error) {
	row := r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+`
		FROM subscriptions s JOIN plans p ON p.id = s.plan_id
		WHERE s.rfid_card_id=$1`, uid)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	return s, err
}

// GrantCountedAccess commits a granted counted-plan entry scan: the guarded
// credit decrement and the ledger append ride one transaction, so the balance
// can never go negative and a crash cannot leave a deduction without its
// audit row. The in-memory balance is refreshed from the RETURNING value.
func (r *PGSubscriptionRepository) GrantCountedAccess(ctx context.Context, sub *domain.Subscription, entry *domain.AccessLogEntry) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var remaining int
	err = tx.QueryRow(ctx, `UPDATE subscriptions
		SET voyage_credits_remaining = voyage_credits_remaining - 1, updated_at = now()
		WHERE id=$1 AND voyage_credits_remaining > 0
		RETURNING voyage_credits_remaining`, sub.ID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoCreditsLeft
	}
	if err != nil {
		return err
	}
	sub.VoyageCreditsRemaining = remaining

	if err := insertAccessLog(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ExpireEnded flips active subscriptions whose validity window has passed to
// EXPIRED and reports how many rows changed.
func (r *PGSubscriptionRepository) ExpireEnded(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE subscriptions SET status=$1, updated_at=now() WHERE status=$2 AND end_date < now()`,
		domain.SubscriptionStatusExpired, domain.SubscriptionStatusActive)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

var _ SubscriptionRepository = (*PGSubscriptionRepository)(nil)
