package domain

import "time"

type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "VALID"
	TicketStatusBoarded   TicketStatus = "BOARDED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusRefunded  TicketStatus = "REFUNDED"
)

// Ticket is one passenger's right to board one trip, optionally linked to a
// return trip. UsedAt is set exactly when the status becomes BOARDED.
type Ticket struct {
	ID               int64
	BookingReference string
	TripID           int64
	ReturnTripID     *int64
	PassengerName    string
	PassengerType    string
	PricePaidCents   int64
	Status           TicketStatus
	UsedAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Trip struct {
	ID            int64
	RouteName     string
	VesselName    string
	DepartureTime time.Time
	ArrivalTime   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
