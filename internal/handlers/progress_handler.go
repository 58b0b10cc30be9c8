package handlers

import (
	"context"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

type progressApplicationService interface {
	Record(ctx context.Context, actor services.Actor, input services.RecordProgressInput) (*models.ProgressEntry, error)
	ListForClient(ctx context.Context, actor services.Actor, clientID int64) ([]models.ProgressEntry, error)
}

type ProgressHandler struct {
	service progressApplicationService
}

func NewProgressHandler(service *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

type recordProgressRequest struct {
	CoachID    int64      `json:"coach_id" validate:"omitempty,gt=0"`
	ClientID   int64      `json:"client_id" validate:"omitempty,gt=0"`
	ProgramID  *int64     `json:"program_id" validate:"omitempty,gt=0"`
	RecordedAt *time.Time `json:"recorded_at"`
	WeightKG   *float64   `json:"weight_kg" validate:"omitempty,gt=0,lte=500"`
	BodyFatPct *float64   `json:"body_fat_pct" validate:"omitempty,gte=0,lte=100"`
	Notes      *string    `json:"notes" validate:"omitempty,max=2000"`
}

func (h *ProgressHandler) Record(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req recordProgressRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	entry, err := h.service.Record(c.Context(), actor, services.RecordProgressInput{
		CoachID:    req.CoachID,
		ClientID:   req.ClientID,
		ProgramID:  req.ProgramID,
		RecordedAt: req.RecordedAt,
		WeightKG:   req.WeightKG,
		BodyFatPct: req.BodyFatPct,
		Notes:      req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "entry": entry})
}

func (h *ProgressHandler) ListForClient(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	clientID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	entries, err := h.service.ListForClient(c.Context(), actor, clientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "client_id": clientID, "entries": entries})
}
