package services

import (
	"context"
	"errors"
	"strings"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
)

type activeRelationshipChecker interface {
	HasActive(ctx context.Context, coachID int64, clientID int64) (bool, error)
}

// RelationshipGate guards every coach-client action behind an active relationship.
type RelationshipGate struct {
	repo activeRelationshipChecker
}

func NewRelationshipGate(repo *repository.RelationshipRepository) *RelationshipGate {
	return &RelationshipGate{repo: repo}
}

func (g *RelationshipGate) RequireActive(ctx context.Context, coachID int64, clientID int64) error {
	active, err := g.repo.HasActive(ctx, coachID, clientID)
	if err != nil {
		return err
	}
	if !active {
		return ErrNoActiveRelationship
	}
	return nil
}

type relationshipStore interface {
	CreateIfAbsent(ctx context.Context, coachID int64, clientID int64) (*models.Relationship, bool, error)
	GetByID(ctx context.Context, id int64) (*models.Relationship, error)
	ListForActor(ctx context.Context, actorID int64, role string) ([]models.Relationship, error)
	UpdateStatusIfCurrent(ctx context.Context, id int64, currentStatus string, nextStatus string) (*models.Relationship, error)
}

type RelationshipService struct {
	repo     relationshipStore
	userRepo userReader
}

func NewRelationshipService(
	repo *repository.RelationshipRepository,
	userRepo *repository.UserRepository,
) *RelationshipService {
	return &RelationshipService{repo: repo, userRepo: userRepo}
}

// Create opens a pending relationship. An existing row for the pair, in any status,
// comes back inside a DuplicateRelationshipError.
func (s *RelationshipService) Create(
	ctx context.Context,
	actor Actor,
	coachID int64,
	clientID int64,
) (*models.Relationship, error) {
	switch actor.Role {
	case models.RoleClient:
		if clientID != 0 && clientID != actor.ID {
			return nil, ErrForbidden
		}
		clientID = actor.ID
	case models.RoleCoach:
		if coachID != 0 && coachID != actor.ID {
			return nil, ErrForbidden
		}
		coachID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	verr := &ValidationError{}
	if coachID <= 0 {
		verr.add("coach_id", "is required")
	}
	if clientID <= 0 {
		verr.add("client_id", "is required")
	}
	if coachID > 0 && coachID == clientID {
		verr.add("client_id", "must differ from coach_id")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	coach, err := s.userRepo.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if coach.Role != models.RoleCoach {
		return nil, fieldError("coach_id", "user is not a coach")
	}

	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.Role != models.RoleClient {
		return nil, fieldError("client_id", "user is not a client")
	}

	rel, created, err := s.repo.CreateIfAbsent(ctx, coachID, clientID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, &DuplicateRelationshipError{Existing: rel}
	}
	return rel, nil
}

func (s *RelationshipService) List(ctx context.Context, actor Actor) ([]models.Relationship, error) {
	if actor.IsAdmin() {
		return nil, fieldError("role", "admins list relationships per coach or client")
	}
	return s.repo.ListForActor(ctx, actor.ID, actor.Role)
}

func (s *RelationshipService) UpdateStatus(
	ctx context.Context,
	actor Actor,
	id int64,
	status string,
) (*models.Relationship, error) {
	rel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageRelationship(actor, rel) {
		return nil, ErrForbidden
	}

	next := strings.ToLower(strings.TrimSpace(status))
	if err := validateRelationshipTransition(actor, rel.Status, next); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatusIfCurrent(ctx, id, rel.Status, next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return updated, nil
}

func validateRelationshipTransition(actor Actor, current string, next string) error {
	switch next {
	case models.RelationshipStatusActive, models.RelationshipStatusPaused, models.RelationshipStatusEnded:
	default:
		return ErrInvalidStatus
	}

	if current == models.RelationshipStatusEnded {
		return ErrInvalidStateTransition
	}
	if next == models.RelationshipStatusEnded {
		return nil
	}
	if actor.IsClient() {
		return ErrForbidden
	}

	switch {
	case next == models.RelationshipStatusActive &&
		(current == models.RelationshipStatusPending || current == models.RelationshipStatusPaused):
		return nil
	case next == models.RelationshipStatusPaused && current == models.RelationshipStatusActive:
		return nil
	default:
		return ErrInvalidStateTransition
	}
}
