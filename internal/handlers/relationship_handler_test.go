package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
)

type stubRelationshipService struct {
	createResult *models.Relationship
	createErr    error
	lastActor    services.Actor
	lastCoachID  int64
	lastClientID int64
	lastStatus   string
}

func (s *stubRelationshipService) Create(_ context.Context, actor services.Actor, coachID int64, clientID int64) (*models.Relationship, error) {
	s.lastActor = actor
	s.lastCoachID = coachID
	s.lastClientID = clientID
	return s.createResult, s.createErr
}

func (s *stubRelationshipService) List(_ context.Context, actor services.Actor) ([]models.Relationship, error) {
	s.lastActor = actor
	return []models.Relationship{}, nil
}

func (s *stubRelationshipService) UpdateStatus(_ context.Context, actor services.Actor, id int64, status string) (*models.Relationship, error) {
	s.lastActor = actor
	s.lastStatus = status
	return &models.Relationship{ID: id, Status: status}, nil
}

func TestCreateRelationship(t *testing.T) {
	service := &stubRelationshipService{createResult: &models.Relationship{
		ID: 4, CoachID: 7, ClientID: 42, Status: models.RelationshipStatusPending,
	}}
	handler := &RelationshipHandler{service: service}
	app := newTestApp("42", models.RoleClient)
	app.Post("/api/v1/relationships", handler.Create)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/relationships", `{"coach_id": 7}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastCoachID != 7 || service.lastClientID != 0 || service.lastActor.ID != 42 {
		t.Fatalf("unexpected create call coach=%d client=%d actor=%+v", service.lastCoachID, service.lastClientID, service.lastActor)
	}
	rel, _ := payload["relationship"].(map[string]any)
	if rel["status"] != models.RelationshipStatusPending {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestCreateRelationshipDuplicateReturnsExistingRow(t *testing.T) {
	existing := &models.Relationship{ID: 4, CoachID: 7, ClientID: 42, Status: models.RelationshipStatusActive}
	handler := &RelationshipHandler{service: &stubRelationshipService{
		createErr: &services.DuplicateRelationshipError{Existing: existing},
	}}
	app := newTestApp("42", models.RoleClient)
	app.Post("/api/v1/relationships", handler.Create)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/relationships", `{"coach_id": 7}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	rel, _ := payload["relationship"].(map[string]any)
	if rel["id"] != float64(4) || rel["status"] != models.RelationshipStatusActive {
		t.Fatalf("expected existing relationship in payload, got %v", payload)
	}
}

func TestUpdateRelationshipStatusValidatesValue(t *testing.T) {
	service := &stubRelationshipService{}
	handler := &RelationshipHandler{service: service}
	app := newTestApp("7", models.RoleCoach)
	app.Put("/api/v1/relationships/:id/status", handler.UpdateStatus)

	resp, payload := doJSON(t, app, http.MethodPut, "/api/v1/relationships/4/status", `{"status": "archived"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	fields, _ := payload["errors"].(map[string]any)
	if fields["status"] != "must be one of active, paused, ended" {
		t.Fatalf("unexpected field errors %v", payload["errors"])
	}

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/relationships/4/status", `{"status": "active"}`)
	if resp.StatusCode != http.StatusOK || service.lastStatus != "active" {
		t.Fatalf("expected 200 with active, got %d %q", resp.StatusCode, service.lastStatus)
	}
}
