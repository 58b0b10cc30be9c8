package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

const (
	BillingPeriodWeekly    = "weekly"
	BillingPeriodMonthly   = "monthly"
	BillingPeriodQuarterly = "quarterly"
	BillingPeriodYearly    = "yearly"
)

type Subscription struct {
	ID            int64      `json:"id"`
	CoachID       int64      `json:"coach_id"`
	ClientID      int64      `json:"client_id"`
	PlanName      string     `json:"plan_name"`
	Price         float64    `json:"price"`
	BillingPeriod string     `json:"billing_period"`
	Status        string     `json:"status"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
