package scan

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
)

// BatchEntry is one buffered offline scan. ScanID is the client-generated
// idempotency key; Timestamp is when the device actually saw the credential.
type BatchEntry struct {
	ScanID     string           `json:"scan_id"`
	Credential string           `json:"credential"`
	Direction  domain.Direction `json:"direction"`
	TripID     int64            `json:"trip_id"`
	Timestamp  time.Time        `json:"timestamp"`
}

type BatchResult struct {
	ScanID   string    `json:"scan_id"`
	Decision *Decision `json:"decision"`
}

// ValidateBatch replays offline scans through the same decision logic as
// live scans. Entries are evaluated in original chronological order with
// their device timestamps, so the anti-replay and anti-passback windows see
// the backlog the way it actually happened. Delivery is at-least-once: an
// entry whose scan id is already on the ledger returns the recorded outcome
// instead of being decided again.
func (s *ScanService) ValidateBatch(ctx context.Context, deviceID int64, entries []BatchEntry) ([]BatchResult, error) {
	sorted := make([]BatchEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	results := make([]BatchResult, 0, len(sorted))
	for _, entry := range sorted {
		decision, err := s.replayEntry(ctx, deviceID, entry)
		if err != nil {
			// Store failure: the outcome of this entry is unknown, the
			// client keeps it pending and retries the batch.
			s.logger.Error("offline replay failed", "scan_id", entry.ScanID, "error", err)
			decision = deny(CodeSystemError, "validation service error, entry not applied")
		}
		results = append(results, BatchResult{ScanID: entry.ScanID, Decision: decision})
	}
	return results, nil
}

func (s *ScanService) replayEntry(ctx context.Context, deviceID int64, entry BatchEntry) (*Decision, error) {
	if entry.ScanID != "" {
		recorded, err := s.ledger.GetByScanID(ctx, entry.ScanID)
		if err != nil {
			return nil, err
		}
		if recorded != nil {
			return duplicateDecision(recorded), nil
		}
	}

	return s.Validate(ctx, ValidateInput{
		ScanID:     entry.ScanID,
		Credential: entry.Credential,
		DeviceID:   &deviceID,
		Direction:  entry.Direction,
		TripID:     entry.TripID,
		At:         entry.Timestamp,
	})
}

// duplicateDecision reports an already-applied entry without re-deciding it.
// A previously granted scan answers like a re-scan of a used credential; a
// previously denied scan repeats the denial.
func duplicateDecision(recorded *domain.AccessLogEntry) *Decision {
	switch recorded.Result {
	case domain.AccessResultGranted, domain.AccessResultBypass:
		return &Decision{
			Status:    StatusError,
			Code:      CodeAlreadyUsed,
			Message:   "scan already recorded as granted",
			Duplicate: true,
		}
	default:
		code := CodeSystemError
		if fields := strings.Fields(recorded.Reason); len(fields) > 0 {
			code = Code(fields[0])
		}
		return &Decision{
			Status:    StatusError,
			Code:      code,
			Message:   "scan already recorded as denied",
			Duplicate: true,
		}
	}
}
