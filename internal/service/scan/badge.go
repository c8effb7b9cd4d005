package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/repository"
)

const expiryDateFormat = "2006-01-02"

// validateBadge runs the RFID gating sequence. Order is deliberate: the
// anti-replay window fires before anti-passback, which fires before any
// business-rule check, so a hardware double-fire never reaches the denial
// paths that get persisted.
func (s *ScanService) validateBadge(ctx context.Context, input ValidateInput, uid string, at time.Time) (*Decision, error) {
	sub, err := s.subscriptions.GetByRFID(ctx, uid)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		s.recordDenial(ctx, &domain.AccessLogEntry{
			ScanID:    input.ScanID,
			DeviceID:  input.DeviceID,
			Direction: input.Direction,
			Result:    domain.AccessResultDenied,
			Reason:    fmt.Sprintf("%s uid=%s", CodeBadgeNotFound, uid),
			ScannedAt: at,
		}, CodeBadgeNotFound)
		return deny(CodeBadgeNotFound, "no active subscription holds this badge"), nil
	}
	if err != nil {
		return nil, err
	}

	lockKey := "badge:" + uid
	if err := s.lockCredential(ctx, lockKey); err != nil {
		return s.scanTooFast(s.replayWindow), nil
	}
	defer s.unlockCredential(ctx, lockKey)

	// Entry scans are rate-limited and consume credits; exit scans only need
	// an active subscription and a ledger row.
	if input.Direction == domain.DirectionEntry {
		last, err := s.ledger.LastGrantedEntry(ctx, sub.ID, domain.DirectionEntry, at)
		if err != nil {
			return nil, err
		}
		if last != nil {
			age := at.Sub(last.ScannedAt)
			if age < s.replayWindow {
				// Hardware double-fire. Cheap, distinct, not persisted.
				return s.scanTooFast(s.replayWindow - age), nil
			}
			if !sub.Plan.AllowMultiPassenger && age < s.passbackWindow {
				wait := int(math.Ceil((s.passbackWindow - age).Seconds()))
				s.recordDenial(ctx, s.badgeEntry(input, sub, domain.AccessResultDenied, CodeAntiPassback, at), CodeAntiPassback)
				d := deny(CodeAntiPassback, fmt.Sprintf("badge already used for entry, wait %ds", wait))
				d.WaitSeconds = wait
				d.BadgeInfo = badgeInfo(sub)
				return d, nil
			}
		}
	}

	if sub.Status != domain.SubscriptionStatusActive || at.After(sub.EndDate) {
		s.recordDenial(ctx, s.badgeEntry(input, sub, domain.AccessResultDenied, CodeBadgeInactive, at), CodeBadgeInactive)
		d := deny(CodeBadgeInactive, fmt.Sprintf("subscription is %s, valid until %s",
			sub.Status, sub.EndDate.Format(expiryDateFormat)))
		d.BadgeInfo = badgeInfo(sub)
		return d, nil
	}

	countedEntry := sub.Plan.Model == domain.PlanModelCounted && input.Direction == domain.DirectionEntry

	if countedEntry && sub.VoyageCreditsRemaining <= 0 {
		s.recordDenial(ctx, s.badgeEntry(input, sub, domain.AccessResultDenied, CodeInsufficientCredits, at), CodeInsufficientCredits)
		d := deny(CodeInsufficientCredits, "no voyage credits remaining")
		d.BadgeInfo = badgeInfo(sub)
		return d, nil
	}

	entry := s.badgeEntry(input, sub, domain.AccessResultGranted, CodeAccessGranted, at)
	if countedEntry {
		err = s.subscriptions.GrantCountedAccess(ctx, sub, entry)
	} else {
		// Unlimited plans and exit scans: ledger row only, no deduction.
		err = s.ledger.Append(ctx, entry)
	}
	if errors.Is(err, repository.ErrNoCreditsLeft) {
		// The guarded decrement lost a concurrent race; the balance is
		// already zero and must not go negative.
		s.recordDenial(ctx, s.badgeEntry(input, sub, domain.AccessResultDenied, CodeInsufficientCredits, at), CodeInsufficientCredits)
		d := deny(CodeInsufficientCredits, "no voyage credits remaining")
		d.BadgeInfo = badgeInfo(sub)
		return d, nil
	}
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, entry, CodeAccessGranted)

	return &Decision{
		Status:    StatusSuccess,
		Code:      CodeAccessGranted,
		Message:   fmt.Sprintf("access granted for %s", sub.OwnerName),
		BadgeInfo: badgeInfo(sub),
	}, nil
}

func (s *ScanService) scanTooFast(remaining time.Duration) *Decision {
	wait := int(math.Ceil(remaining.Seconds()))
	if wait < 1 {
		wait = 1
	}
	d := deny(CodeScanTooFast, fmt.Sprintf("duplicate scan, retry in %ds", wait))
	d.WaitSeconds = wait
	return d
}

func (s *ScanService) badgeEntry(input ValidateInput, sub *domain.Subscription, result domain.AccessResult, code Code, at time.Time) *domain.AccessLogEntry {
	id := sub.ID
	return &domain.AccessLogEntry{
		ScanID:         input.ScanID,
		SubscriptionID: &id,
		DeviceID:       input.DeviceID,
		Direction:      input.Direction,
		Result:         result,
		Reason:         string(code),
		ScannedAt:      at,
	}
}

func badgeInfo(sub *domain.Subscription) *BadgeInfo {
	remaining := "UNLIMITED"
	if sub.Plan.Model == domain.PlanModelCounted {
		remaining = strconv.Itoa(sub.VoyageCreditsRemaining)
	}
	return &BadgeInfo{
		SubscriptionID:   sub.ID,
		OwnerName:        sub.OwnerName,
		PlanName:         sub.Plan.Name,
		CreditsRemaining: remaining,
		ExpiresAt:        sub.EndDate.Format(expiryDateFormat),
		Status:           string(sub.Status),
	}
}
