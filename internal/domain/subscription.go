package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "ACTIVE"
	SubscriptionStatusBlocked SubscriptionStatus = "BLOCKED"
	SubscriptionStatusExpired SubscriptionStatus = "EXPIRED"
)

type PlanModel string

const (
	PlanModelUnlimited PlanModel = "UNLIMITED"
	PlanModelCounted   PlanModel = "COUNTED"
)

type Plan struct {
	ID                  int64
	Name                string
	Model               PlanModel
	AllowMultiPassenger bool
}

// Subscription is a recurring-access badge record. RFIDCardID stays nil until
// a physical badge is associated. For counted plans VoyageCreditsRemaining is
// decremented on each granted entry and never goes negative.
type Subscription struct {
	ID                     int64
	OwnerName              string
	PlanID                 int64
	Plan                   Plan
	RFIDCardID             *string
	StartDate              time.Time
	EndDate                time.Time
	Status                 SubscriptionStatus
	VoyageCreditsInitial   int
	VoyageCreditsRemaining int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
