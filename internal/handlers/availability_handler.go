package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

type availabilityApplicationService interface {
	AvailableSlots(ctx context.Context, coachID int64, date time.Time, slotMinutes int) (*services.CoachSlots, error)
	GetAvailability(ctx context.Context, coachID int64) (models.WeeklyAvailability, error)
	UpdateAvailability(ctx context.Context, actor services.Actor, availability models.WeeklyAvailability) (models.WeeklyAvailability, error)
	Location() *time.Location
}

type AvailabilityHandler struct {
	service availabilityApplicationService
}

func NewAvailabilityHandler(service *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

type updateAvailabilityRequest struct {
	Availability models.WeeklyAvailability `json:"availability" validate:"required"`
}

// AvailableSlots handles GET /coaches/:id/available-slots?date=YYYY-MM-DD.
func (h *AvailabilityHandler) AvailableSlots(c *fiber.Ctx) error {
	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	rawDate := strings.TrimSpace(c.Query("date"))
	if rawDate == "" {
		return respondError(c, &services.ValidationError{Fields: map[string]string{"date": "is required"}})
	}
	date, err := time.ParseInLocation("2006-01-02", rawDate, h.service.Location())
	if err != nil {
		return respondError(c, &services.ValidationError{Fields: map[string]string{"date": "must use the YYYY-MM-DD format"}})
	}

	duration := 0
	if raw := strings.TrimSpace(c.Query("duration_minutes")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 {
			return respondError(c, &services.ValidationError{Fields: map[string]string{"duration_minutes": "must be a positive integer"}})
		}
	}

	slots, err := h.service.AvailableSlots(c.Context(), coachID, date, duration)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"date":            slots.Date,
		"coach_id":        slots.CoachID,
		"coach_name":      slots.CoachName,
		"available_slots": slots.Slots,
	})
}

func (h *AvailabilityHandler) GetAvailability(c *fiber.Ctx) error {
	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	availability, err := h.service.GetAvailability(c.Context(), coachID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "coach_id": coachID, "availability": availability})
}

// UpdateAvailability handles PUT /coaches/availability for the authenticated coach.
func (h *AvailabilityHandler) UpdateAvailability(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req updateAvailabilityRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	availability, err := h.service.UpdateAvailability(c.Context(), actor, req.Availability)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "availability": availability})
}
