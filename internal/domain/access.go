package domain

import "time"

type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

type AccessResult string

const (
	AccessResultGranted AccessResult = "GRANTED"
	AccessResultDenied  AccessResult = "DENIED"
	AccessResultBypass  AccessResult = "BYPASS"
)

// AccessLogEntry is one append-only row of the access ledger. Exactly one of
// TicketID/SubscriptionID is set for resolved credentials; both stay nil when
// the presented code could not be parsed at all. The ledger is never updated
// or deleted and doubles as the anti-passback lookup source.
type AccessLogEntry struct {
	ID             int64
	ScanID         string
	TicketID       *int64
	SubscriptionID *int64
	DeviceID       *int64
	Direction      Direction
	Result         AccessResult
	Reason         string
	ScannedAt      time.Time
	CreatedAt      time.Time
}

// AccessDevice identifies a physical scanner or gate. APIToken authenticates
// the device to the scan API; read-only from the core's perspective.
type AccessDevice struct {
	ID         int64
	Name       string
	Location   string
	DeviceType string
	APIToken   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
