package models

import "time"

const (
	RelationshipStatusPending = "pending"
	RelationshipStatusActive  = "active"
	RelationshipStatusPaused  = "paused"
	RelationshipStatusEnded   = "ended"
)

type Relationship struct {
	ID        int64     `json:"id"`
	CoachID   int64     `json:"coach_id"`
	ClientID  int64     `json:"client_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
