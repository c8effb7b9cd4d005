package scan

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// Code is the machine-readable outcome of a scan. Format and not-found codes
// are permanent for the presented credential; SCAN_TOO_FAST and ANTI_PASSBACK
// are transient and carry wait_seconds; DEPARTED is a soft warning the agent
// may override.
type Code string

const (
	CodeBoardingAuthorized Code = "BOARDING_AUTHORIZED"
	CodeAccessGranted      Code = "ACCESS_GRANTED"
	CodeBypassApplied      Code = "BYPASS_APPLIED"

	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"
	CodeInvalidSignature   Code = "INVALID_SIGNATURE"

	CodeTicketNotFound Code = "TICKET_NOT_FOUND"
	CodeBadgeNotFound  Code = "BADGE_NOT_FOUND"

	CodeWrongTrip           Code = "WRONG_TRIP"
	CodeAlreadyUsed         Code = "ALREADY_USED"
	CodeCancelled           Code = "CANCELLED"
	CodeBadgeInactive       Code = "BADGE_INACTIVE"
	CodeInsufficientCredits Code = "INSUFFICIENT_CREDITS"

	CodeScanTooFast  Code = "SCAN_TOO_FAST"
	CodeAntiPassback Code = "ANTI_PASSBACK"

	CodeDeparted Code = "DEPARTED"

	CodeSystemError Code = "SYSTEM_ERROR"
)

type TripInfo struct {
	ID            int64     `json:"id"`
	RouteName     string    `json:"route_name"`
	VesselName    string    `json:"vessel_name"`
	DepartureTime time.Time `json:"departure_time"`
}

type PassengerInfo struct {
	TicketID         int64      `json:"ticket_id"`
	Name             string     `json:"name"`
	Type             string     `json:"type,omitempty"`
	BookingReference string     `json:"booking_reference"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	Trip             *TripInfo  `json:"trip,omitempty"`
}

type BadgeInfo struct {
	SubscriptionID   int64  `json:"subscription_id"`
	OwnerName        string `json:"owner_name"`
	PlanName         string `json:"plan_name"`
	CreditsRemaining string `json:"credits_remaining"`
	ExpiresAt        string `json:"expires_at"`
	Status           string `json:"status,omitempty"`
}

// Decision is the structured result of one scan. Business failures are
// decisions, never Go errors; only store/system failures cross the service
// boundary as errors.
type Decision struct {
	Status      Status         `json:"status"`
	Code        Code           `json:"code"`
	Message     string         `json:"message"`
	WaitSeconds int            `json:"wait_seconds,omitempty"`
	Duplicate   bool           `json:"duplicate,omitempty"`
	Passenger   *PassengerInfo `json:"passenger,omitempty"`
	BadgeInfo   *BadgeInfo     `json:"badge_info,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

func deny(code Code, message string) *Decision {
	return &Decision{Status: StatusError, Code: code, Message: message}
}
