package repository

import (
	"context"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/jackc/pgx/v5"
)

const programColumns = `id, coach_id, client_id, title, description, status, start_date, end_date,
	attachment_url, created_at, updated_at`

type CreateProgramInput struct {
	CoachID       int64
	ClientID      int64
	Title         string
	Description   *string
	Status        string
	StartDate     *time.Time
	EndDate       *time.Time
	AttachmentURL *string
}

type ProgramRepository struct {
	db DBTX
}

func NewProgramRepository(db DBTX) *ProgramRepository {
	return &ProgramRepository{db: db}
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var program models.Program
	err := row.Scan(
		&program.ID,
		&program.CoachID,
		&program.ClientID,
		&program.Title,
		&program.Description,
		&program.Status,
		&program.StartDate,
		&program.EndDate,
		&program.AttachmentURL,
		&program.CreatedAt,
		&program.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *ProgramRepository) Create(ctx context.Context, input CreateProgramInput) (*models.Program, error) {
	query := `
		INSERT INTO programs (coach_id, client_id, title, description, status, start_date, end_date, attachment_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + programColumns

	return scanProgram(r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.ClientID,
		input.Title,
		input.Description,
		input.Status,
		input.StartDate,
		input.EndDate,
		input.AttachmentURL,
	))
}

func (r *ProgramRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.Program, error) {
	query := `
		SELECT ` + programColumns + `
		FROM programs
		WHERE coach_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, coachID)
}

func (r *ProgramRepository) ListByClientID(ctx context.Context, clientID int64) ([]models.Program, error) {
	query := `
		SELECT ` + programColumns + `
		FROM programs
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, clientID)
}

func (r *ProgramRepository) GetByID(ctx context.Context, programID int64) (*models.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`
	return scanProgram(r.db.QueryRow(ctx, query, programID))
}

func (r *ProgramRepository) list(ctx context.Context, query string, actorID int64) ([]models.Program, error) {
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	programs := make([]models.Program, 0)
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, *program)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return programs, nil
}
