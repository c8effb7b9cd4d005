package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/repository"
	"github.com/google/uuid"
)

type BypassInput struct {
	TicketID   int64
	DeviceID   *int64
	Direction  domain.Direction
	Supervisor string
	Reason     string
}

var ErrBypassReasonRequired = errors.New("bypass reason is required")

// Bypass force-boards a ticket regardless of its current status. It exists
// for hardware and process failures and is never silent: the ledger row
// records the overridden status and the supervisor-supplied reason.
func (s *ScanService) Bypass(ctx context.Context, input BypassInput) (*Decision, error) {
	if input.Reason == "" {
		return nil, ErrBypassReasonRequired
	}
	if input.Direction == "" {
		input.Direction = domain.DirectionEntry
	}

	at := s.now()
	id := input.TicketID
	reason := input.Reason
	if input.Supervisor != "" {
		reason = fmt.Sprintf("%s (by %s)", input.Reason, input.Supervisor)
	}
	entry := &domain.AccessLogEntry{
		ScanID:    uuid.NewString(),
		TicketID:  &id,
		DeviceID:  input.DeviceID,
		Direction: input.Direction,
		Result:    domain.AccessResultBypass,
		Reason:    reason,
		ScannedAt: at,
	}

	previous, ticket, err := s.tickets.ForceBoard(ctx, input.TicketID, at, entry)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return deny(CodeTicketNotFound, fmt.Sprintf("no ticket with id %d", input.TicketID)), nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("supervisor bypass applied",
		"ticket_id", ticket.ID, "previous_status", string(previous),
		"supervisor", input.Supervisor, "reason", input.Reason)
	s.publishEvent(ctx, entry, CodeBypassApplied)

	return &Decision{
		Status:    StatusSuccess,
		Code:      CodeBypassApplied,
		Message:   fmt.Sprintf("bypass applied, ticket was %s", previous),
		Passenger: passengerInfo(ticket, nil),
		Details:   map[string]any{"previous_status": string(previous)},
	}, nil
}
