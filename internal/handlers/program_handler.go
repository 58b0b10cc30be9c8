package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

const maxProgramSizeBytes = 25 * 1024 * 1024

type programApplicationService interface {
	CreateProgram(ctx context.Context, actor services.Actor, input services.CreateProgramInput) (*models.Program, error)
	ListPrograms(ctx context.Context, actor services.Actor, coachID int64, clientID int64) ([]models.Program, error)
	GetProgram(ctx context.Context, actor services.Actor, programID int64) (*models.Program, error)
	GetDownloadURL(ctx context.Context, actor services.Actor, programID int64) (string, error)
}

type programResponse struct {
	models.Program
	HasAttachment bool `json:"has_attachment"`
}

func newProgramResponse(program *models.Program) programResponse {
	return programResponse{Program: *program, HasAttachment: program.HasAttachment()}
}

type ProgramHandler struct {
	service programApplicationService
}

func NewProgramHandler(service *services.ProgramService) *ProgramHandler {
	return &ProgramHandler{service: service}
}

// createProgramRequest is read from JSON or from multipart form fields.
type createProgramRequest struct {
	CoachID     int64   `json:"coach_id" form:"coach_id" validate:"omitempty,gt=0"`
	ClientID    int64   `json:"client_id" form:"client_id" validate:"omitempty,gt=0"`
	Title       string  `json:"title" form:"title" validate:"required,max=200"`
	Description *string `json:"description" form:"description" validate:"omitempty,max=5000"`
	Status      string  `json:"status" form:"status" validate:"omitempty,oneof=draft active completed archived"`
	StartDate   string  `json:"start_date" form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" form:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *ProgramHandler) CreateProgram(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req createProgramRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	input := services.CreateProgramInput{
		CoachID:     req.CoachID,
		ClientID:    req.ClientID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   parseDate(req.StartDate),
		EndDate:     parseDate(req.EndDate),
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if fileHeader, err := c.FormFile("file"); err == nil {
			if fileHeader.Size <= 0 {
				return respondError(c, &services.ValidationError{Fields: map[string]string{"file": "is empty"}})
			}
			if fileHeader.Size > maxProgramSizeBytes {
				return respondError(c, &services.ValidationError{Fields: map[string]string{"file": "exceeds the 25MB limit"}})
			}
			file, err := fileHeader.Open()
			if err != nil {
				return respondError(c, err)
			}
			defer file.Close()

			input.Attachment = file
			input.Filename = fileHeader.Filename
		}
	}

	program, err := h.service.CreateProgram(c.Context(), actor, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "program": newProgramResponse(program)})
}

func (h *ProgramHandler) ListPrograms(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	coachID, err := parseOptionalID(c.Query("coach_id"))
	if err != nil {
		return respondError(c, err)
	}
	clientID, err := parseOptionalID(c.Query("client_id"))
	if err != nil {
		return respondError(c, err)
	}

	programs, err := h.service.ListPrograms(c.Context(), actor, coachID, clientID)
	if err != nil {
		return respondError(c, err)
	}

	responses := make([]programResponse, 0, len(programs))
	for i := range programs {
		responses = append(responses, newProgramResponse(&programs[i]))
	}
	return c.JSON(fiber.Map{"success": true, "programs": responses})
}

func (h *ProgramHandler) GetProgram(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	programID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	program, err := h.service.GetProgram(c.Context(), actor, programID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "program": newProgramResponse(program)})
}

func (h *ProgramHandler) DownloadProgram(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	programID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	signedURL, err := h.service.GetDownloadURL(c.Context(), actor, programID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "download_url": signedURL, "expires_in_seconds": 3600})
}

// parseDate expects a value already checked by the datetime validator.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
