package scan

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/ticketcode"
	"github.com/stretchr/testify/mock"
)

type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Board(ctx context.Context, id int64, usedAt time.Time, entry *domain.AccessLogEntry) (*domain.Ticket, error) {
	args := m.Called(ctx, id, usedAt, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ForceBoard(ctx context.Context, id int64, usedAt time.Time, entry *domain.AccessLogEntry) (domain.TicketStatus, *domain.Ticket, error) {
	args := m.Called(ctx, id, usedAt, entry)
	if args.Get(1) == nil {
		return args.Get(0).(domain.TicketStatus), nil, args.Error(2)
	}
	return args.Get(0).(domain.TicketStatus), args.Get(1).(*domain.Ticket), args.Error(2)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetByRFID(ctx context.Context, uid string) (*domain.Subscription, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GrantCountedAccess(ctx context.Context, sub *domain.Subscription, entry *domain.AccessLogEntry) error {
	args := m.Called(ctx, sub, entry)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ExpireEnded(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

type MockAccessLogRepository struct {
	mock.Mock
}

func (m *MockAccessLogRepository) Append(ctx context.Context, entry *domain.AccessLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAccessLogRepository) LastGrantedEntry(ctx context.Context, subscriptionID int64, direction domain.Direction, before time.Time) (*domain.AccessLogEntry, error) {
	args := m.Called(ctx, subscriptionID, direction, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessLogEntry), args.Error(1)
}

func (m *MockAccessLogRepository) GetByScanID(ctx context.Context, scanID string) (*domain.AccessLogEntry, error) {
	args := m.Called(ctx, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessLogEntry), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireScanLock(ctx context.Context, credentialKey string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, credentialKey, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseScanLock(ctx context.Context, credentialKey string) error {
	args := m.Called(ctx, credentialKey)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type testEnv struct {
	tickets       *MockTicketRepository
	subscriptions *MockSubscriptionRepository
	trips         *MockTripRepository
	ledger        *MockAccessLogRepository
	signer        *ticketcode.Signer
	service       *ScanService
}

// testNow is the fixed clock every scan test evaluates windows against.
var testNow = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func newTestEnv(opts ...ScanServiceOption) *testEnv {
	env := &testEnv{
		tickets:       &MockTicketRepository{},
		subscriptions: &MockSubscriptionRepository{},
		trips:         &MockTripRepository{},
		ledger:        &MockAccessLogRepository{},
		signer:        ticketcode.NewSigner("test-secret"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	allOpts := append([]ScanServiceOption{WithClock(func() time.Time { return testNow })}, opts...)
	env.service = NewScanService(env.tickets, env.subscriptions, env.trips, env.ledger, env.signer, nil, nil, logger, allOpts...)
	return env
}
