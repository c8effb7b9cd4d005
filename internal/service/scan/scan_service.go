package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/credential"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/kafka"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/repository"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/ticketcode"
	"github.com/google/uuid"
)

// Validator is the single operation the gate devices consume, plus the batch
// replay for offline agents and the supervisor bypass escape hatch.
type Validator interface {
	Validate(ctx context.Context, input ValidateInput) (*Decision, error)
	ValidateBatch(ctx context.Context, deviceID int64, entries []BatchEntry) ([]BatchResult, error)
	Bypass(ctx context.Context, input BypassInput) (*Decision, error)
}

type Cache interface {
	AcquireScanLock(ctx context.Context, credentialKey string, ttl time.Duration) (bool, error)
	ReleaseScanLock(ctx context.Context, credentialKey string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ScanService struct {
	tickets       repository.TicketRepository
	subscriptions repository.SubscriptionRepository
	trips         repository.TripRepository
	ledger        repository.AccessLogRepository
	signer        *ticketcode.Signer
	cache         Cache
	producer      Producer
	eventsTopic   string
	logger        *slog.Logger

	replayWindow   time.Duration
	passbackWindow time.Duration
	departedGrace  time.Duration

	now func() time.Time
}

// ValidateInput is one scan request. TripID is the boarding context of the
// gate. At is the effective scan time; zero means now, offline replay passes
// the original device timestamp so the windows are evaluated against it.
type ValidateInput struct {
	ScanID     string
	Credential string
	DeviceID   *int64
	Direction  domain.Direction
	TripID     int64
	At         time.Time
}

type ScanServiceOption func(*ScanService)

func WithClock(now func() time.Time) ScanServiceOption {
	return func(s *ScanService) { s.now = now }
}

func WithEventsTopic(topic string) ScanServiceOption {
	return func(s *ScanService) { s.eventsTopic = topic }
}

func WithWindows(replay, passback, departedGrace time.Duration) ScanServiceOption {
	return func(s *ScanService) {
		s.replayWindow = replay
		s.passbackWindow = passback
		s.departedGrace = departedGrace
	}
}

func NewScanService(
	tickets repository.TicketRepository,
	subscriptions repository.SubscriptionRepository,
	trips repository.TripRepository,
	ledger repository.AccessLogRepository,
	signer *ticketcode.Signer,
	cache Cache,
	producer Producer,
	logger *slog.Logger,
	opts ...ScanServiceOption,
) *ScanService {
	s := &ScanService{
		tickets:        tickets,
		subscriptions:  subscriptions,
		trips:          trips,
		ledger:         ledger,
		signer:         signer,
		cache:          cache,
		producer:       producer,
		logger:         logger,
		replayWindow:   3 * time.Second,
		passbackWindow: 300 * time.Second,
		departedGrace:  time.Hour,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate decides one scan. The credential is classified once, then
// dispatched to the matching path. Business denials come back as decisions;
// an error means the store itself failed and the outcome is unknown.
func (s *ScanService) Validate(ctx context.Context, input ValidateInput) (*Decision, error) {
	at := input.At
	if at.IsZero() {
		at = s.now()
	}
	if input.ScanID == "" {
		input.ScanID = uuid.NewString()
	}
	if input.Direction == "" {
		input.Direction = domain.DirectionEntry
	}

	cred := credential.Classify(input.Credential)

	switch cred.Kind {
	case credential.KindTicket:
		return s.validateTicket(ctx, input, cred.Ticket, at)
	case credential.KindBadge:
		return s.validateBadge(ctx, input, cred.BadgeUID, at)
	default:
		code := CodeInvalidFormat
		message := "credential is not a recognizable ticket code or badge UID"
		if errors.Is(cred.ParseErr, ticketcode.ErrUnsupportedVersion) {
			code = CodeUnsupportedVersion
			message = "ticket code version is not supported"
		}
		s.recordDenial(ctx, &domain.AccessLogEntry{
			ScanID:    input.ScanID,
			DeviceID:  input.DeviceID,
			Direction: input.Direction,
			Result:    domain.AccessResultDenied,
			Reason:    string(code),
			ScannedAt: at,
		}, code)
		return deny(code, message), nil
	}
}

func (s *ScanService) validateTicket(ctx context.Context, input ValidateInput, parsed *ticketcode.Parsed, at time.Time) (*Decision, error) {
	if err := s.signer.Verify(parsed); err != nil {
		// Not attributed to the claimed ticket id: a forged code must not
		// pollute a real ticket's audit trail.
		s.recordDenial(ctx, &domain.AccessLogEntry{
			ScanID:    input.ScanID,
			DeviceID:  input.DeviceID,
			Direction: input.Direction,
			Result:    domain.AccessResultDenied,
			Reason:    string(CodeInvalidSignature),
			ScannedAt: at,
		}, CodeInvalidSignature)
		return deny(CodeInvalidSignature, "ticket code signature does not match"), nil
	}

	lockKey := fmt.Sprintf("ticket:%d", parsed.TicketID)
	if err := s.lockCredential(ctx, lockKey); err != nil {
		return s.scanTooFast(s.replayWindow), nil
	}
	defer s.unlockCredential(ctx, lockKey)

	ticket, err := s.tickets.GetByID(ctx, parsed.TicketID)
	if errors.Is(err, repository.ErrTicketNotFound) {
		s.recordDenial(ctx, &domain.AccessLogEntry{
			ScanID:    input.ScanID,
			DeviceID:  input.DeviceID,
			Direction: input.Direction,
			Result:    domain.AccessResultDenied,
			Reason:    string(CodeTicketNotFound),
			ScannedAt: at,
		}, CodeTicketNotFound)
		return deny(CodeTicketNotFound, fmt.Sprintf("no ticket with id %d", parsed.TicketID)), nil
	}
	if err != nil {
		return nil, err
	}

	if !tripMatches(ticket, parsed, input.TripID) {
		s.recordDenial(ctx, s.ticketEntry(input, ticket, domain.AccessResultDenied, CodeWrongTrip, at), CodeWrongTrip)
		d := deny(CodeWrongTrip, fmt.Sprintf("ticket is for trip %d, gate is boarding trip %d", ticket.TripID, input.TripID))
		d.Passenger = passengerInfo(ticket, nil)
		return d, nil
	}

	if d := s.checkTicketState(ctx, input, ticket, at); d != nil {
		return d, nil
	}

	trip, err := s.trips.GetByID(ctx, ticket.TripID)
	if err != nil && !errors.Is(err, repository.ErrTripNotFound) {
		return nil, err
	}

	if trip != nil && at.Sub(trip.DepartureTime) > s.departedGrace {
		// Soft fail: the ticket stays VALID, the agent decides whether to
		// board anyway (via bypass, which is always logged).
		s.recordDenial(ctx, s.ticketEntry(input, ticket, domain.AccessResultDenied, CodeDeparted, at), CodeDeparted)
		d := &Decision{
			Status:    StatusWarning,
			Code:      CodeDeparted,
			Message:   fmt.Sprintf("trip departed at %s", trip.DepartureTime.Format(time.RFC3339)),
			Passenger: passengerInfo(ticket, trip),
		}
		return d, nil
	}

	entry := s.ticketEntry(input, ticket, domain.AccessResultGranted, CodeBoardingAuthorized, at)
	boarded, err := s.tickets.Board(ctx, ticket.ID, at, entry)
	if errors.Is(err, repository.ErrTicketNotBoardable) {
		// Lost the race or the status changed underneath us: re-read and
		// report the state that won.
		current, rerr := s.tickets.GetByID(ctx, ticket.ID)
		if rerr != nil {
			return nil, rerr
		}
		if d := s.checkTicketState(ctx, input, current, at); d != nil {
			return d, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, entry, CodeBoardingAuthorized)

	return &Decision{
		Status:    StatusSuccess,
		Code:      CodeBoardingAuthorized,
		Message:   fmt.Sprintf("boarding authorized for %s", boarded.PassengerName),
		Passenger: passengerInfo(boarded, trip),
	}, nil
}

// checkTicketState turns a terminal ticket status into its denial decision,
// or nil when the ticket is still boardable. Runs before the CAS and again
// after a lost CAS to classify the conflict.
func (s *ScanService) checkTicketState(ctx context.Context, input ValidateInput, ticket *domain.Ticket, at time.Time) *Decision {
	switch ticket.Status {
	case domain.TicketStatusBoarded:
		s.recordDenial(ctx, s.ticketEntry(input, ticket, domain.AccessResultDenied, CodeAlreadyUsed, at), CodeAlreadyUsed)
		d := deny(CodeAlreadyUsed, alreadyUsedMessage(ticket))
		d.Passenger = passengerInfo(ticket, nil)
		return d
	case domain.TicketStatusCancelled:
		s.recordDenial(ctx, s.ticketEntry(input, ticket, domain.AccessResultDenied, CodeCancelled, at), CodeCancelled)
		return deny(CodeCancelled, "ticket has been cancelled")
	case domain.TicketStatusRefunded:
		s.recordDenial(ctx, s.ticketEntry(input, ticket, domain.AccessResultDenied, CodeCancelled, at), CodeCancelled)
		return deny(CodeCancelled, "ticket has been refunded")
	default:
		return nil
	}
}

func alreadyUsedMessage(ticket *domain.Ticket) string {
	if ticket.UsedAt != nil {
		return fmt.Sprintf("ticket of %s already used at %s", ticket.PassengerName, ticket.UsedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("ticket of %s already used", ticket.PassengerName)
}

// tripMatches accepts the outbound trip and, for V2 codes, the encoded
// return trip.
func tripMatches(ticket *domain.Ticket, parsed *ticketcode.Parsed, contextTripID int64) bool {
	if ticket.TripID == contextTripID {
		return true
	}
	if parsed.ReturnTripID != nil && *parsed.ReturnTripID == contextTripID {
		return true
	}
	if ticket.ReturnTripID != nil && *ticket.ReturnTripID == contextTripID {
		return true
	}
	return false
}

func (s *ScanService) ticketEntry(input ValidateInput, ticket *domain.Ticket, result domain.AccessResult, code Code, at time.Time) *domain.AccessLogEntry {
	id := ticket.ID
	return &domain.AccessLogEntry{
		ScanID:    input.ScanID,
		TicketID:  &id,
		DeviceID:  input.DeviceID,
		Direction: input.Direction,
		Result:    result,
		Reason:    string(code),
		ScannedAt: at,
	}
}

func passengerInfo(ticket *domain.Ticket, trip *domain.Trip) *PassengerInfo {
	info := &PassengerInfo{
		TicketID:         ticket.ID,
		Name:             ticket.PassengerName,
		Type:             ticket.PassengerType,
		BookingReference: ticket.BookingReference,
		UsedAt:           ticket.UsedAt,
	}
	if trip != nil {
		info.Trip = &TripInfo{
			ID:            trip.ID,
			RouteName:     trip.RouteName,
			VesselName:    trip.VesselName,
			DepartureTime: trip.DepartureTime,
		}
	}
	return info
}

var errLockHeld = errors.New("credential scan lock already held")

// lockCredential serializes concurrent scans of the same credential across
// service instances. The hard correctness guarantee stays in the store's
// conditional updates; the lock just keeps racing scans from both paying the
// read-side work and collapses hardware double-fires early.
func (s *ScanService) lockCredential(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	ok, err := s.cache.AcquireScanLock(ctx, key, s.replayWindow)
	if err != nil {
		s.logger.Warn("scan lock unavailable, continuing on store guards", "key", key, "error", err)
		return nil
	}
	if !ok {
		return errLockHeld
	}
	return nil
}

func (s *ScanService) unlockCredential(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ReleaseScanLock(ctx, key); err != nil {
		s.logger.Warn("failed to release scan lock", "key", key, "error", err)
	}
}

// recordDenial appends the denial to the ledger and mirrors it on the event
// stream. A failed audit write is logged but never blocks the decision the
// device is waiting on.
func (s *ScanService) recordDenial(ctx context.Context, entry *domain.AccessLogEntry, code Code) {
	if err := s.ledger.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append denial to access ledger",
			"scan_id", entry.ScanID, "code", string(code), "error", err)
		return
	}
	s.publishEvent(ctx, entry, code)
}

func (s *ScanService) publishEvent(ctx context.Context, entry *domain.AccessLogEntry, code Code) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.AccessEvent{
		Type:           "access_decision",
		ScanID:         entry.ScanID,
		TicketID:       entry.TicketID,
		SubscriptionID: entry.SubscriptionID,
		DeviceID:       entry.DeviceID,
		Direction:      string(entry.Direction),
		Result:         string(entry.Result),
		Reason:         entry.Reason,
		Code:           string(code),
		ScannedAt:      entry.ScannedAt,
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, entry.ScanID, event); err != nil {
		s.logger.Warn("failed to publish access event", "scan_id", entry.ScanID, "error", err)
	}
}

var _ Validator = (*ScanService)(nil)
