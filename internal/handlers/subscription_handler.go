package handlers

import (
	"context"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

type subscriptionApplicationService interface {
	Create(ctx context.Context, actor services.Actor, input services.CreateSubscriptionInput) (*models.Subscription, error)
	List(ctx context.Context, actor services.Actor) ([]models.Subscription, error)
	Cancel(ctx context.Context, actor services.Actor, id int64) (*models.Subscription, error)
}

type SubscriptionHandler struct {
	service subscriptionApplicationService
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type createSubscriptionRequest struct {
	ClientID      int64      `json:"client_id" validate:"required,gt=0"`
	PlanName      string     `json:"plan_name" validate:"required,max=120"`
	Price         *float64   `json:"price" validate:"required,gte=0"`
	BillingPeriod string     `json:"billing_period" validate:"required,oneof=weekly monthly quarterly yearly"`
	StartsAt      *time.Time `json:"starts_at"`
}

func (h *SubscriptionHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req createSubscriptionRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	sub, err := h.service.Create(c.Context(), actor, services.CreateSubscriptionInput{
		ClientID:      req.ClientID,
		PlanName:      req.PlanName,
		Price:         *req.Price,
		BillingPeriod: req.BillingPeriod,
		StartsAt:      req.StartsAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "subscription": sub})
}

func (h *SubscriptionHandler) List(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	subs, err := h.service.List(c.Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "subscriptions": subs})
}

func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	sub, err := h.service.Cancel(c.Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "subscription": sub})
}
