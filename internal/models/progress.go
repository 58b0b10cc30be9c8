package models

import "time"

type ProgressEntry struct {
	ID         int64     `json:"id"`
	CoachID    int64     `json:"coach_id"`
	ClientID   int64     `json:"client_id"`
	ProgramID  *int64    `json:"program_id"`
	RecordedAt time.Time `json:"recorded_at"`
	WeightKG   *float64  `json:"weight_kg"`
	BodyFatPct *float64  `json:"body_fat_pct"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}
