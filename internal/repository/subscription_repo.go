package repository

import (
	"context"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `id, coach_id, client_id, plan_name, price, billing_period, status,
	starts_at, ends_at, cancelled_at, created_at, updated_at`

type CreateSubscriptionInput struct {
	CoachID       int64
	ClientID      int64
	PlanName      string
	Price         float64
	BillingPeriod string
	StartsAt      time.Time
	EndsAt        time.Time
}

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.CoachID,
		&sub.ClientID,
		&sub.PlanName,
		&sub.Price,
		&sub.BillingPeriod,
		&sub.Status,
		&sub.StartsAt,
		&sub.EndsAt,
		&sub.CancelledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, input CreateSubscriptionInput) (*models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (coach_id, client_id, plan_name, price, billing_period, status, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, 'active', $6, $7)
		RETURNING ` + subscriptionColumns

	return scanSubscription(r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.ClientID,
		input.PlanName,
		input.Price,
		input.BillingPeriod,
		input.StartsAt,
		input.EndsAt,
	))
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

func (r *SubscriptionRepository) ListForActor(ctx context.Context, actorID int64, role string) ([]models.Subscription, error) {
	column := "client_id"
	if role == models.RoleCoach {
		column = "coach_id"
	}
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE ` + column + ` = $1
		ORDER BY starts_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepository) CancelIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	cancelledAt time.Time,
) (*models.Subscription, error) {
	query := `
		UPDATE subscriptions
		SET status = 'cancelled', cancelled_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + subscriptionColumns
	return scanSubscription(r.db.QueryRow(ctx, query, id, currentStatus, cancelledAt))
}
