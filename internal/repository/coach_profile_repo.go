package repository

import (
	"context"
	"encoding/json"

	"github.com/coachhub/coachhub-api/internal/models"
)

type CoachProfileRepository struct {
	db DBTX
}

func NewCoachProfileRepository(db DBTX) *CoachProfileRepository {
	return &CoachProfileRepository{db: db}
}

func (r *CoachProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.CoachProfile, error) {
	query := `
		SELECT id, user_id, full_name, bio, hourly_rate, availability, created_at, updated_at
		FROM coach_profiles
		WHERE user_id = $1
	`
	var (
		profile         models.CoachProfile
		rawAvailability []byte
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.HourlyRate,
		&rawAvailability,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Availability = decodeAvailability(rawAvailability)
	return &profile, nil
}

// UpdateAvailability creates the profile row on first write.
func (r *CoachProfileRepository) UpdateAvailability(
	ctx context.Context,
	userID int64,
	availability models.WeeklyAvailability,
) (*models.CoachProfile, error) {
	encoded, err := json.Marshal(availability)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO coach_profiles (user_id, availability)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET availability = EXCLUDED.availability, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, userID, encoded); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// decodeAvailability treats an unreadable column the same as no availability at all,
// which makes the slot generator fall back to its default hours. A single unreadable
// weekday only affects that day.
func decodeAvailability(raw []byte) models.WeeklyAvailability {
	if len(raw) == 0 {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil
	}

	availability := make(models.WeeklyAvailability, len(entries))
	for day, entry := range entries {
		var hours models.HourRange
		if err := json.Unmarshal(entry, &hours); err != nil {
			hours = models.UnparsedRange()
		}
		availability[day] = hours
	}
	return availability
}
