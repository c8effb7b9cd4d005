package alert

import (
	"context"
	"log/slog"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/kafka"
)

// Notifier surfaces noteworthy access events to operations staff. Denials
// are logged at warn level, bypasses at info with the justification; grants
// pass through silently.
type Notifier struct {
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, event kafka.AccessEvent) error {
	switch event.Result {
	case "DENIED":
		n.logger.Warn("access denied at gate",
			"scan_id", event.ScanID,
			"code", event.Code,
			"reason", event.Reason,
			"device_id", event.DeviceID,
			"direction", event.Direction,
			"scanned_at", event.ScannedAt)
	case "BYPASS":
		n.logger.Info("supervisor bypass recorded",
			"scan_id", event.ScanID,
			"ticket_id", event.TicketID,
			"reason", event.Reason,
			"device_id", event.DeviceID,
			"scanned_at", event.ScannedAt)
	}
	return nil
}
