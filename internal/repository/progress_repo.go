package repository

import (
	"context"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
)

type CreateProgressInput struct {
	CoachID    int64
	ClientID   int64
	ProgramID  *int64
	RecordedAt time.Time
	WeightKG   *float64
	BodyFatPct *float64
	Notes      *string
}

type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Create(ctx context.Context, input CreateProgressInput) (*models.ProgressEntry, error) {
	query := `
		INSERT INTO progress_entries (coach_id, client_id, program_id, recorded_at, weight_kg, body_fat_pct, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, coach_id, client_id, program_id, recorded_at, weight_kg, body_fat_pct, notes, created_at
	`
	var entry models.ProgressEntry
	err := r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.ClientID,
		input.ProgramID,
		input.RecordedAt,
		input.WeightKG,
		input.BodyFatPct,
		input.Notes,
	).Scan(
		&entry.ID,
		&entry.CoachID,
		&entry.ClientID,
		&entry.ProgramID,
		&entry.RecordedAt,
		&entry.WeightKG,
		&entry.BodyFatPct,
		&entry.Notes,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByClient narrows to one coach when coachID is positive.
func (r *ProgressRepository) ListByClient(ctx context.Context, clientID int64, coachID int64) ([]models.ProgressEntry, error) {
	query := `
		SELECT id, coach_id, client_id, program_id, recorded_at, weight_kg, body_fat_pct, notes, created_at
		FROM progress_entries
		WHERE client_id = $1 AND ($2::bigint = 0 OR coach_id = $2)
		ORDER BY recorded_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, clientID, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.ProgressEntry, 0)
	for rows.Next() {
		var entry models.ProgressEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.CoachID,
			&entry.ClientID,
			&entry.ProgramID,
			&entry.RecordedAt,
			&entry.WeightKG,
			&entry.BodyFatPct,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
