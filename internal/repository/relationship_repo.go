package repository

import (
	"context"
	"errors"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/jackc/pgx/v5"
)

const relationshipPairConstraint = "coach_clients_pair_key"

type RelationshipRepository struct {
	db DBTX
}

func NewRelationshipRepository(db DBTX) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

func scanRelationship(row pgx.Row) (*models.Relationship, error) {
	var rel models.Relationship
	if err := row.Scan(&rel.ID, &rel.CoachID, &rel.ClientID, &rel.Status, &rel.CreatedAt, &rel.UpdatedAt); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CreateIfAbsent inserts a pending relationship for the pair. When a row already exists
// in any status it is returned with created == false and nothing is written.
func (r *RelationshipRepository) CreateIfAbsent(
	ctx context.Context,
	coachID int64,
	clientID int64,
) (*models.Relationship, bool, error) {
	query := `
		INSERT INTO coach_clients (coach_id, client_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (coach_id, client_id) DO NOTHING
		RETURNING id, coach_id, client_id, status, created_at, updated_at
	`
	rel, err := scanRelationship(r.db.QueryRow(ctx, query, coachID, clientID))
	if err == nil {
		return rel, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !IsUniqueViolation(err, relationshipPairConstraint) {
		return nil, false, err
	}

	existing, err := r.GetByPair(ctx, coachID, clientID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *RelationshipRepository) GetByPair(ctx context.Context, coachID int64, clientID int64) (*models.Relationship, error) {
	query := `
		SELECT id, coach_id, client_id, status, created_at, updated_at
		FROM coach_clients
		WHERE coach_id = $1 AND client_id = $2
	`
	return scanRelationship(r.db.QueryRow(ctx, query, coachID, clientID))
}

func (r *RelationshipRepository) GetByID(ctx context.Context, id int64) (*models.Relationship, error) {
	query := `
		SELECT id, coach_id, client_id, status, created_at, updated_at
		FROM coach_clients
		WHERE id = $1
	`
	return scanRelationship(r.db.QueryRow(ctx, query, id))
}

func (r *RelationshipRepository) HasActive(ctx context.Context, coachID int64, clientID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM coach_clients
			WHERE coach_id = $1 AND client_id = $2 AND status = 'active'
		)
	`
	var active bool
	if err := r.db.QueryRow(ctx, query, coachID, clientID).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

func (r *RelationshipRepository) ListForActor(ctx context.Context, actorID int64, role string) ([]models.Relationship, error) {
	column := "client_id"
	if role == models.RoleCoach {
		column = "coach_id"
	}
	query := `
		SELECT id, coach_id, client_id, status, created_at, updated_at
		FROM coach_clients
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relationships := make([]models.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return relationships, nil
}

func (r *RelationshipRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	nextStatus string,
) (*models.Relationship, error) {
	query := `
		UPDATE coach_clients
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id, coach_id, client_id, status, created_at, updated_at
	`
	return scanRelationship(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus))
}
