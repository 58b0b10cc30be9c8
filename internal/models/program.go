package models

import "time"

const (
	ProgramStatusDraft     = "draft"
	ProgramStatusActive    = "active"
	ProgramStatusCompleted = "completed"
	ProgramStatusArchived  = "archived"
)

type Program struct {
	ID            int64      `json:"id"`
	CoachID       int64      `json:"coach_id"`
	ClientID      int64      `json:"client_id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Status        string     `json:"status"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	AttachmentURL *string    `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p *Program) HasAttachment() bool {
	return p != nil && p.AttachmentURL != nil && *p.AttachmentURL != ""
}
