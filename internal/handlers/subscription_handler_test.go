package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
)

type stubSubscriptionService struct {
	createErr  error
	cancelErr  error
	lastActor  services.Actor
	lastCreate services.CreateSubscriptionInput
	lastCancel int64
}

func (s *stubSubscriptionService) Create(_ context.Context, actor services.Actor, input services.CreateSubscriptionInput) (*models.Subscription, error) {
	s.lastActor = actor
	s.lastCreate = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Subscription{ID: 1, CoachID: actor.ID, ClientID: input.ClientID, PlanName: input.PlanName}, nil
}

func (s *stubSubscriptionService) List(_ context.Context, actor services.Actor) ([]models.Subscription, error) {
	s.lastActor = actor
	return []models.Subscription{{ID: 1}, {ID: 2}}, nil
}

func (s *stubSubscriptionService) Cancel(_ context.Context, actor services.Actor, id int64) (*models.Subscription, error) {
	s.lastActor = actor
	s.lastCancel = id
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &models.Subscription{ID: id, Status: models.SubscriptionStatusCancelled}, nil
}

func TestCreateSubscriptionAcceptsZeroPrice(t *testing.T) {
	service := &stubSubscriptionService{}
	handler := &SubscriptionHandler{service: service}
	app := newTestApp("7", models.RoleCoach)
	app.Post("/subscriptions", handler.Create)

	resp, payload := doJSON(t, app, http.MethodPost, "/subscriptions",
		`{"client_id":42,"plan_name":"Trial","price":0,"billing_period":"weekly"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, payload)
	}
	if service.lastActor.ID != 7 || service.lastCreate.ClientID != 42 || service.lastCreate.Price != 0 {
		t.Fatalf("unexpected service call actor=%+v input=%+v", service.lastActor, service.lastCreate)
	}
	if service.lastCreate.StartsAt != nil {
		t.Fatalf("expected starts_at to be left for the service, got %v", service.lastCreate.StartsAt)
	}
}

func TestCreateSubscriptionValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{
			name:  "missing price",
			body:  `{"client_id":42,"plan_name":"Monthly","billing_period":"monthly"}`,
			field: "price",
			want:  "is required",
		},
		{
			name:  "negative price",
			body:  `{"client_id":42,"plan_name":"Monthly","price":-5,"billing_period":"monthly"}`,
			field: "price",
			want:  "must be 0 or greater",
		},
		{
			name:  "unknown period",
			body:  `{"client_id":42,"plan_name":"Monthly","price":50,"billing_period":"daily"}`,
			field: "billing_period",
			want:  "must be one of weekly, monthly, quarterly, yearly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &SubscriptionHandler{service: &stubSubscriptionService{}}
			app := newTestApp("7", models.RoleCoach)
			app.Post("/subscriptions", handler.Create)

			resp, payload := doJSON(t, app, http.MethodPost, "/subscriptions", tt.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", resp.StatusCode)
			}
			fields, _ := payload["errors"].(map[string]any)
			if fields[tt.field] != tt.want {
				t.Fatalf("expected %s=%q, got %v", tt.field, tt.want, payload["errors"])
			}
		})
	}
}

func TestCreateSubscriptionWithoutRelationshipIsForbidden(t *testing.T) {
	handler := &SubscriptionHandler{service: &stubSubscriptionService{createErr: services.ErrNoActiveRelationship}}
	app := newTestApp("7", models.RoleCoach)
	app.Post("/subscriptions", handler.Create)

	resp, _ := doJSON(t, app, http.MethodPost, "/subscriptions",
		`{"client_id":42,"plan_name":"Monthly","price":50,"billing_period":"monthly"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCancelSubscription(t *testing.T) {
	service := &stubSubscriptionService{}
	handler := &SubscriptionHandler{service: service}
	app := newTestApp("42", models.RoleClient)
	app.Post("/subscriptions/:id/cancel", handler.Cancel)

	resp, payload := doJSON(t, app, http.MethodPost, "/subscriptions/9/cancel", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, payload)
	}
	if service.lastCancel != 9 || service.lastActor.Role != models.RoleClient {
		t.Fatalf("unexpected cancel call id=%d actor=%+v", service.lastCancel, service.lastActor)
	}

	service.cancelErr = services.ErrInvalidStateTransition
	resp, _ = doJSON(t, app, http.MethodPost, "/subscriptions/9/cancel", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a finished subscription, got %d", resp.StatusCode)
	}
}

func TestListSubscriptions(t *testing.T) {
	handler := &SubscriptionHandler{service: &stubSubscriptionService{}}
	app := newTestApp("42", models.RoleClient)
	app.Get("/subscriptions", handler.List)

	resp, payload := doJSON(t, app, http.MethodGet, "/subscriptions", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	subs, _ := payload["subscriptions"].([]any)
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %v", payload["subscriptions"])
	}
}
