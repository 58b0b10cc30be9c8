package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coachhub/coachhub-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

var (
	errInvalidBody  = errors.New("invalid request body")
	errInvalidID    = errors.New("invalid id")
	errUnauthorized = errors.New("invalid token")
)

// actorFromCtx reads the identity set by the auth middleware.
func actorFromCtx(c *fiber.Ctx) (services.Actor, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return services.Actor{}, errUnauthorized
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return services.Actor{}, errUnauthorized
	}
	role, ok := c.Locals("role").(string)
	if !ok || role == "" {
		return services.Actor{}, errUnauthorized
	}
	return services.Actor{ID: userID, Role: role}, nil
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func parseOptionalID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

// respondError maps service errors onto the error envelope. Anything unrecognised is a 500
// and gets logged with the request id.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	}

	var dup *services.DuplicateRelationshipError
	if errors.As(err, &dup) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":      false,
			"message":      "Relationship already exists",
			"relationship": dup.Existing,
		})
	}

	switch {
	case errors.Is(err, errInvalidBody):
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	case errors.Is(err, errInvalidID):
		return fail(c, fiber.StatusBadRequest, "Invalid id")
	case errors.Is(err, errUnauthorized):
		return fail(c, fiber.StatusUnauthorized, "Invalid token")
	case errors.Is(err, services.ErrNoActiveRelationship):
		return fail(c, fiber.StatusForbidden, "An active coach-client relationship is required")
	case errors.Is(err, services.ErrFirstPostDeletion):
		return fail(c, fiber.StatusForbidden, "The first post cannot be deleted, delete the topic instead")
	case errors.Is(err, services.ErrTopicLocked):
		return fail(c, fiber.StatusForbidden, "Topic is locked")
	case errors.Is(err, services.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "Forbidden")
	case errors.Is(err, services.ErrConflict):
		return fail(c, fiber.StatusConflict, "The requested time conflicts with another booking")
	case errors.Is(err, services.ErrInvalidStatus):
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid status")
	case errors.Is(err, services.ErrInvalidStateTransition):
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid status transition")
	case errors.Is(err, services.ErrInvalidInput):
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid request")
	case errors.Is(err, services.ErrCoachNotFound):
		return fail(c, fiber.StatusNotFound, "Coach not found")
	case errors.Is(err, services.ErrClientNotFound):
		return fail(c, fiber.StatusNotFound, "Client not found")
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return fail(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrStorageUnavailable):
		return fail(c, fiber.StatusServiceUnavailable, "File storage is not configured")
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}
