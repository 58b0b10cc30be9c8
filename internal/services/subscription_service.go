package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
)

type subscriptionStore interface {
	Create(ctx context.Context, input repository.CreateSubscriptionInput) (*models.Subscription, error)
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	ListForActor(ctx context.Context, actorID int64, role string) ([]models.Subscription, error)
	CancelIfCurrent(ctx context.Context, id int64, currentStatus string, cancelledAt time.Time) (*models.Subscription, error)
}

type SubscriptionService struct {
	repo subscriptionStore
	gate relationshipRequirer
	now  func() time.Time
}

type CreateSubscriptionInput struct {
	ClientID      int64
	PlanName      string
	Price         float64
	BillingPeriod string
	StartsAt      *time.Time
}

func NewSubscriptionService(repo *repository.SubscriptionRepository, gate *RelationshipGate) *SubscriptionService {
	return &SubscriptionService{repo: repo, gate: gate, now: time.Now}
}

func (s *SubscriptionService) Create(
	ctx context.Context,
	actor Actor,
	input CreateSubscriptionInput,
) (*models.Subscription, error) {
	if !actor.IsCoach() {
		return nil, ErrForbidden
	}

	verr := &ValidationError{}
	planName := strings.TrimSpace(input.PlanName)
	if planName == "" {
		verr.add("plan_name", "is required")
	}
	if input.ClientID <= 0 {
		verr.add("client_id", "is required")
	}
	if input.Price < 0 {
		verr.add("price", "must be 0 or greater")
	}
	period := strings.ToLower(strings.TrimSpace(input.BillingPeriod))
	if _, ok := periodEnd(time.Time{}, period); !ok {
		verr.add("billing_period", "must be one of weekly, monthly, quarterly, yearly")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if err := s.gate.RequireActive(ctx, actor.ID, input.ClientID); err != nil {
		return nil, err
	}

	startsAt := s.now().UTC()
	if input.StartsAt != nil {
		startsAt = input.StartsAt.UTC()
	}
	endsAt, _ := periodEnd(startsAt, period)

	return s.repo.Create(ctx, repository.CreateSubscriptionInput{
		CoachID:       actor.ID,
		ClientID:      input.ClientID,
		PlanName:      planName,
		Price:         input.Price,
		BillingPeriod: period,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
	})
}

func (s *SubscriptionService) List(ctx context.Context, actor Actor) ([]models.Subscription, error) {
	if !actor.IsCoach() && !actor.IsClient() {
		return nil, ErrForbidden
	}
	return s.repo.ListForActor(ctx, actor.ID, actor.Role)
}

func (s *SubscriptionService) Cancel(ctx context.Context, actor Actor, id int64) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccessSubscription(actor, sub) {
		return nil, ErrForbidden
	}
	if sub.Status != models.SubscriptionStatusActive && sub.Status != models.SubscriptionStatusPaused {
		return nil, ErrInvalidStateTransition
	}

	cancelled, err := s.repo.CancelIfCurrent(ctx, id, sub.Status, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return cancelled, nil
}

func periodEnd(start time.Time, period string) (time.Time, bool) {
	switch period {
	case models.BillingPeriodWeekly:
		return start.AddDate(0, 0, 7), true
	case models.BillingPeriodMonthly:
		return start.AddDate(0, 1, 0), true
	case models.BillingPeriodQuarterly:
		return start.AddDate(0, 3, 0), true
	case models.BillingPeriodYearly:
		return start.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
