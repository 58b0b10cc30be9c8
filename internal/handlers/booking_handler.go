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

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, actor services.Actor, input services.CreateBookingInput) (*models.BookingDetail, error)
	HasConflict(ctx context.Context, coachID int64, start time.Time, durationMinutes int) (bool, error)
	ListBookings(ctx context.Context, actor services.Actor, input services.BookingListInput) ([]models.BookingDetail, int, error)
	GetBooking(ctx context.Context, actor services.Actor, bookingID int64) (*models.BookingDetail, error)
	UpdateStatus(ctx context.Context, actor services.Actor, bookingID int64, status string, reason *string) (*models.BookingDetail, error)
}

type BookingHandler struct {
	service  bookingApplicationService
	location *time.Location
}

func NewBookingHandler(service *services.BookingService, location *time.Location) *BookingHandler {
	if location == nil {
		location = time.UTC
	}
	return &BookingHandler{service: service, location: location}
}

type createBookingRequest struct {
	CoachID         int64    `json:"coach_id" validate:"omitempty,gt=0"`
	ClientID        *int64   `json:"client_id" validate:"omitempty,gt=0"`
	ProgramID       *int64   `json:"program_id" validate:"omitempty,gt=0"`
	ScheduledAt     string   `json:"scheduled_at" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"omitempty,min=15,max=480"`
	SessionType     string   `json:"session_type" validate:"omitempty,oneof=in_person online hybrid"`
	Location        *string  `json:"location" validate:"omitempty,max=255"`
	MeetingLink     *string  `json:"meeting_link" validate:"omitempty,url"`
	Notes           *string  `json:"notes" validate:"omitempty,max=2000"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
}

type updateBookingStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// timestampLayouts are tried in order; the zone-less ones are read in the configured location.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

func (h *BookingHandler) parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, h.location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req createBookingRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	scheduledAt, ok := h.parseTimestamp(req.ScheduledAt)
	if !ok {
		return respondError(c, &services.ValidationError{Fields: map[string]string{
			"scheduled_at": "must be an RFC3339 timestamp",
		}})
	}

	detail, err := h.service.CreateBooking(c.Context(), actor, services.CreateBookingInput{
		CoachID:         req.CoachID,
		ClientID:        req.ClientID,
		ProgramID:       req.ProgramID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		SessionType:     req.SessionType,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
		Price:           req.Price,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "booking": detail})
}

// CheckAvailability answers whether a proposed start and duration is free for the coach.
func (h *BookingHandler) CheckAvailability(c *fiber.Ctx) error {
	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	start, ok := h.parseTimestamp(c.Query("start"))
	if !ok {
		return respondError(c, &services.ValidationError{Fields: map[string]string{
			"start": "must be an RFC3339 timestamp",
		}})
	}
	duration := models.DefaultBookingDurationMinutes
	if raw := strings.TrimSpace(c.Query("duration_minutes")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration < 15 || duration > 480 {
			return respondError(c, &services.ValidationError{Fields: map[string]string{
				"duration_minutes": "must be between 15 and 480",
			}})
		}
	}

	conflict, err := h.service.HasConflict(c.Context(), coachID, start, duration)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"coach_id":         coachID,
		"start":            start.UTC(),
		"duration_minutes": duration,
		"available":        !conflict,
	})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return respondError(c, &services.ValidationError{Fields: map[string]string{
			"timeframe": "must be upcoming or past",
		}})
	}
	coachID, err := parseOptionalID(c.Query("coach_id"))
	if err != nil {
		return respondError(c, err)
	}
	clientID, err := parseOptionalID(c.Query("client_id"))
	if err != nil {
		return respondError(c, err)
	}

	page, limit := pageParams(c)
	bookings, total, err := h.service.ListBookings(c.Context(), actor, services.BookingListInput{
		Status:    c.Query("status"),
		Timeframe: timeframe,
		CoachID:   coachID,
		ClientID:  clientID,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"bookings":   bookings,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	booking, err := h.service.GetBooking(c.Context(), actor, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "booking": booking})
}

func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req updateBookingStatusRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := h.service.UpdateStatus(c.Context(), actor, bookingID, req.Status, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "booking": booking})
}
