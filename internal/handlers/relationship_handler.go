package handlers

import (
	"context"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

type relationshipApplicationService interface {
	Create(ctx context.Context, actor services.Actor, coachID int64, clientID int64) (*models.Relationship, error)
	List(ctx context.Context, actor services.Actor) ([]models.Relationship, error)
	UpdateStatus(ctx context.Context, actor services.Actor, id int64, status string) (*models.Relationship, error)
}

type RelationshipHandler struct {
	service relationshipApplicationService
}

func NewRelationshipHandler(service *services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{service: service}
}

type createRelationshipRequest struct {
	CoachID  int64 `json:"coach_id" validate:"omitempty,gt=0"`
	ClientID int64 `json:"client_id" validate:"omitempty,gt=0"`
}

type updateRelationshipStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused ended"`
}

func (h *RelationshipHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req createRelationshipRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	rel, err := h.service.Create(c.Context(), actor, req.CoachID, req.ClientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "relationship": rel})
}

func (h *RelationshipHandler) List(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	rels, err := h.service.List(c.Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "relationships": rels})
}

func (h *RelationshipHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req updateRelationshipStatusRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	rel, err := h.service.UpdateStatus(c.Context(), actor, id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "relationship": rel})
}
