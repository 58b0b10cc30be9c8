package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
)

type programStore interface {
	Create(ctx context.Context, input repository.CreateProgramInput) (*models.Program, error)
	ListByCoachID(ctx context.Context, coachID int64) ([]models.Program, error)
	ListByClientID(ctx context.Context, clientID int64) ([]models.Program, error)
	GetByID(ctx context.Context, programID int64) (*models.Program, error)
}

type ProgramService struct {
	programRepo programStore
	userRepo    userReader
	gate        relationshipRequirer
	storage     AttachmentStore
	now         func() time.Time
}

type CreateProgramInput struct {
	CoachID     int64
	ClientID    int64
	Title       string
	Description *string
	Status      string
	StartDate   *time.Time
	EndDate     *time.Time
	Attachment  io.Reader
	Filename    string
}

// NewProgramService accepts a nil storage; attachments are then refused with ErrStorageUnavailable.
func NewProgramService(
	programRepo *repository.ProgramRepository,
	userRepo *repository.UserRepository,
	gate *RelationshipGate,
	storage AttachmentStore,
) *ProgramService {
	return &ProgramService{
		programRepo: programRepo,
		userRepo:    userRepo,
		gate:        gate,
		storage:     storage,
		now:         time.Now,
	}
}

func (s *ProgramService) CreateProgram(
	ctx context.Context,
	actor Actor,
	input CreateProgramInput,
) (*models.Program, error) {
	switch actor.Role {
	case models.RoleCoach:
		if input.CoachID != 0 && input.CoachID != actor.ID {
			return nil, ErrForbidden
		}
		input.CoachID = actor.ID
	case models.RoleClient:
		if input.ClientID != 0 && input.ClientID != actor.ID {
			return nil, ErrForbidden
		}
		input.ClientID = actor.ID
	default:
		return nil, ErrForbidden
	}
	if input.Attachment != nil && s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	verr := &ValidationError{}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		verr.add("title", "is required")
	}
	if input.ClientID <= 0 {
		verr.add("client_id", "is required")
	}
	if input.CoachID <= 0 {
		verr.add("coach_id", "is required")
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = models.ProgramStatusDraft
	}
	switch status {
	case models.ProgramStatusDraft, models.ProgramStatusActive, models.ProgramStatusCompleted, models.ProgramStatusArchived:
	default:
		verr.add("status", "must be one of draft, active, completed, archived")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		verr.add("end_date", "must not be before start_date")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if err := s.checkRole(ctx, input.CoachID, models.RoleCoach, "coach_id", ErrCoachNotFound); err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, input.ClientID, models.RoleClient, "client_id", ErrClientNotFound); err != nil {
		return nil, err
	}

	if err := s.gate.RequireActive(ctx, input.CoachID, input.ClientID); err != nil {
		return nil, err
	}

	var attachmentURL *string
	if input.Attachment != nil {
		objectName := s.attachmentName(input.CoachID, input.ClientID, input.Filename)
		fileURL, err := s.storage.Upload(ctx, input.Attachment, objectName)
		if err != nil {
			return nil, err
		}
		attachmentURL = &fileURL
	}

	program, err := s.programRepo.Create(ctx, repository.CreateProgramInput{
		CoachID:       input.CoachID,
		ClientID:      input.ClientID,
		Title:         title,
		Description:   trimOptional(input.Description),
		Status:        status,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		AttachmentURL: attachmentURL,
	})
	if err != nil {
		if attachmentURL != nil {
			if cleanupErr := s.storage.Delete(ctx, *attachmentURL); cleanupErr != nil {
				return nil, errors.Join(err, fmt.Errorf("remove orphaned attachment: %w", cleanupErr))
			}
		}
		return nil, err
	}
	return program, nil
}

// ListPrograms returns the actor's programs. Admins pick a coach or a client explicitly.
func (s *ProgramService) ListPrograms(
	ctx context.Context,
	actor Actor,
	coachID int64,
	clientID int64,
) ([]models.Program, error) {
	switch actor.Role {
	case models.RoleCoach:
		return s.programRepo.ListByCoachID(ctx, actor.ID)
	case models.RoleClient:
		return s.programRepo.ListByClientID(ctx, actor.ID)
	case models.RoleAdmin:
		if coachID > 0 {
			return s.programRepo.ListByCoachID(ctx, coachID)
		}
		if clientID > 0 {
			return s.programRepo.ListByClientID(ctx, clientID)
		}
		return nil, fieldError("coach_id", "coach_id or client_id is required")
	default:
		return nil, ErrForbidden
	}
}

func (s *ProgramService) GetProgram(ctx context.Context, actor Actor, programID int64) (*models.Program, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !canAccessProgram(actor, program) {
		return nil, ErrForbidden
	}
	return program, nil
}

func (s *ProgramService) GetDownloadURL(ctx context.Context, actor Actor, programID int64) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}

	program, err := s.GetProgram(ctx, actor, programID)
	if err != nil {
		return "", err
	}
	if !program.HasAttachment() {
		return "", ErrNotFound
	}
	return s.storage.SignedURL(ctx, *program.AttachmentURL)
}

func (s *ProgramService) checkRole(ctx context.Context, userID int64, role string, field string, missing error) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return missing
		}
		return err
	}
	if user.Role != role {
		return fieldError(field, "user is not a "+role)
	}
	return nil
}

func (s *ProgramService) attachmentName(coachID int64, clientID int64, original string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(original)))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("programs/%d-%d-%d%s", coachID, clientID, s.now().UnixNano(), ext)
}
