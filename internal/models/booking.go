package models

import "time"

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
	BookingStatusNoShow    = "no_show"
)

const (
	SessionTypeInPerson = "in_person"
	SessionTypeOnline   = "online"
	SessionTypeHybrid   = "hybrid"
)

const DefaultBookingDurationMinutes = 60

type Booking struct {
	ID                 int64      `json:"id"`
	CoachID            int64      `json:"coach_id"`
	ClientID           int64      `json:"client_id"`
	ProgramID          *int64     `json:"program_id"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             string     `json:"status"`
	SessionType        string     `json:"session_type"`
	Location           *string    `json:"location"`
	MeetingLink        *string    `json:"meeting_link"`
	Notes              *string    `json:"notes"`
	Price              *float64   `json:"price"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CancellationReason *string    `json:"cancellation_reason"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// EndsAt treats a missing duration as the default session length.
func (b *Booking) EndsAt() time.Time {
	duration := b.DurationMinutes
	if duration <= 0 {
		duration = DefaultBookingDurationMinutes
	}
	return b.ScheduledAt.Add(time.Duration(duration) * time.Minute)
}

type BookingDetail struct {
	Booking
	Coach   *UserSummary `json:"coach,omitempty"`
	Client  *UserSummary `json:"client,omitempty"`
	Program *Program     `json:"program,omitempty"`
}
