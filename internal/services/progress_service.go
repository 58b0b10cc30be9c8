package services

import (
	"context"
	"errors"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
)

type progressStore interface {
	Create(ctx context.Context, input repository.CreateProgressInput) (*models.ProgressEntry, error)
	ListByClient(ctx context.Context, clientID int64, coachID int64) ([]models.ProgressEntry, error)
}

type relationshipLookup interface {
	GetByPair(ctx context.Context, coachID int64, clientID int64) (*models.Relationship, error)
}

type ProgressService struct {
	repo          progressStore
	programRepo   programLookup
	relationships relationshipLookup
	gate          relationshipRequirer
	now           func() time.Time
}

type RecordProgressInput struct {
	CoachID    int64
	ClientID   int64
	ProgramID  *int64
	RecordedAt *time.Time
	WeightKG   *float64
	BodyFatPct *float64
	Notes      *string
}

func NewProgressService(
	repo *repository.ProgressRepository,
	programRepo *repository.ProgramRepository,
	relationships *repository.RelationshipRepository,
	gate *RelationshipGate,
) *ProgressService {
	return &ProgressService{
		repo:          repo,
		programRepo:   programRepo,
		relationships: relationships,
		gate:          gate,
		now:           time.Now,
	}
}

func (s *ProgressService) Record(
	ctx context.Context,
	actor Actor,
	input RecordProgressInput,
) (*models.ProgressEntry, error) {
	switch actor.Role {
	case models.RoleCoach:
		input.CoachID = actor.ID
		if input.ClientID <= 0 {
			return nil, fieldError("client_id", "is required")
		}
	case models.RoleClient:
		input.ClientID = actor.ID
		if input.CoachID <= 0 {
			return nil, fieldError("coach_id", "is required")
		}
	default:
		return nil, ErrForbidden
	}

	verr := &ValidationError{}
	if input.WeightKG == nil && input.BodyFatPct == nil && trimOptional(input.Notes) == nil {
		verr.add("weight_kg", "at least one of weight_kg, body_fat_pct or notes is required")
	}
	if input.WeightKG != nil && *input.WeightKG <= 0 {
		verr.add("weight_kg", "must be greater than 0")
	}
	if input.BodyFatPct != nil && (*input.BodyFatPct < 0 || *input.BodyFatPct > 100) {
		verr.add("body_fat_pct", "must be between 0 and 100")
	}
	recordedAt := s.now().UTC()
	if input.RecordedAt != nil {
		if input.RecordedAt.After(recordedAt) {
			verr.add("recorded_at", "must not be in the future")
		}
		recordedAt = input.RecordedAt.UTC()
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if err := s.gate.RequireActive(ctx, input.CoachID, input.ClientID); err != nil {
		return nil, err
	}

	if input.ProgramID != nil {
		program, err := s.programRepo.GetByID(ctx, *input.ProgramID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fieldError("program_id", "program not found")
			}
			return nil, err
		}
		if program.CoachID != input.CoachID || program.ClientID != input.ClientID {
			return nil, ErrForbidden
		}
	}

	return s.repo.Create(ctx, repository.CreateProgressInput{
		CoachID:    input.CoachID,
		ClientID:   input.ClientID,
		ProgramID:  input.ProgramID,
		RecordedAt: recordedAt,
		WeightKG:   input.WeightKG,
		BodyFatPct: input.BodyFatPct,
		Notes:      trimOptional(input.Notes),
	})
}

// ListForClient returns a client's entries. A coach sees only the entries they recorded and
// needs a relationship with the client in any status.
func (s *ProgressService) ListForClient(ctx context.Context, actor Actor, clientID int64) ([]models.ProgressEntry, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.repo.ListByClient(ctx, clientID, 0)
	case models.RoleClient:
		if actor.ID != clientID {
			return nil, ErrForbidden
		}
		return s.repo.ListByClient(ctx, clientID, 0)
	case models.RoleCoach:
		if _, err := s.relationships.GetByPair(ctx, actor.ID, clientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrForbidden
			}
			return nil, err
		}
		return s.repo.ListByClient(ctx, clientID, actor.ID)
	default:
		return nil, ErrForbidden
	}
}
