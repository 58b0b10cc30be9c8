package services

import (
	"context"
	"errors"
	"testing"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/jackc/pgx/v5"
)

type stubRelationshipStore struct {
	rows       map[int64]*models.Relationship
	nextID     int64
	lastListed string
	updateErr  error
}

func newStubRelationshipStore(rows ...models.Relationship) *stubRelationshipStore {
	store := &stubRelationshipStore{rows: make(map[int64]*models.Relationship), nextID: 100}
	for i := range rows {
		row := rows[i]
		store.rows[row.ID] = &row
	}
	return store
}

func (s *stubRelationshipStore) CreateIfAbsent(_ context.Context, coachID int64, clientID int64) (*models.Relationship, bool, error) {
	for _, row := range s.rows {
		if row.CoachID == coachID && row.ClientID == clientID {
			copied := *row
			return &copied, false, nil
		}
	}
	s.nextID++
	row := &models.Relationship{ID: s.nextID, CoachID: coachID, ClientID: clientID, Status: models.RelationshipStatusPending}
	s.rows[row.ID] = row
	copied := *row
	return &copied, true, nil
}

func (s *stubRelationshipStore) GetByID(_ context.Context, id int64) (*models.Relationship, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (s *stubRelationshipStore) ListForActor(_ context.Context, _ int64, role string) ([]models.Relationship, error) {
	s.lastListed = role
	return nil, nil
}

func (s *stubRelationshipStore) UpdateStatusIfCurrent(_ context.Context, id int64, currentStatus string, nextStatus string) (*models.Relationship, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	row := s.rows[id]
	if row.Status != currentStatus {
		return nil, pgx.ErrNoRows
	}
	row.Status = nextStatus
	copied := *row
	return &copied, nil
}

func (s *stubRelationshipStore) GetByPair(_ context.Context, coachID int64, clientID int64) (*models.Relationship, error) {
	for _, row := range s.rows {
		if row.CoachID == coachID && row.ClientID == clientID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubRelationshipStore) HasActive(_ context.Context, coachID int64, clientID int64) (bool, error) {
	for _, row := range s.rows {
		if row.CoachID == coachID && row.ClientID == clientID {
			return row.Status == models.RelationshipStatusActive, nil
		}
	}
	return false, nil
}

func newTestRelationshipService(store *stubRelationshipStore) *RelationshipService {
	return &RelationshipService{
		repo: store,
		userRepo: &stubUserRepo{users: map[int64]models.User{
			testCoachID:  {ID: testCoachID, Role: models.RoleCoach},
			otherCoachID: {ID: otherCoachID, Role: models.RoleCoach},
			testClientID: {ID: testClientID, Role: models.RoleClient},
		}},
	}
}

func TestRelationshipGate(t *testing.T) {
	store := newStubRelationshipStore(
		models.Relationship{ID: 1, CoachID: testCoachID, ClientID: testClientID, Status: models.RelationshipStatusActive},
		models.Relationship{ID: 2, CoachID: otherCoachID, ClientID: testClientID, Status: models.RelationshipStatusPaused},
	)
	gate := &RelationshipGate{repo: store}

	if err := gate.RequireActive(context.Background(), testCoachID, testClientID); err != nil {
		t.Fatalf("expected active pair to pass, got %v", err)
	}
	if err := gate.RequireActive(context.Background(), otherCoachID, testClientID); !errors.Is(err, ErrNoActiveRelationship) {
		t.Fatalf("expected paused pair to be rejected, got %v", err)
	}
	if err := gate.RequireActive(context.Background(), testCoachID, 999); !errors.Is(err, ErrNoActiveRelationship) {
		t.Fatalf("expected unknown pair to be rejected, got %v", err)
	}
}

func TestCreateRelationshipByClient(t *testing.T) {
	store := newStubRelationshipStore()
	service := newTestRelationshipService(store)

	rel, err := service.Create(context.Background(), Actor{ID: testClientID, Role: models.RoleClient}, testCoachID, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rel.CoachID != testCoachID || rel.ClientID != testClientID || rel.Status != models.RelationshipStatusPending {
		t.Fatalf("unexpected relationship %+v", rel)
	}
}

func TestCreateRelationshipDuplicateReturnsExisting(t *testing.T) {
	store := newStubRelationshipStore(models.Relationship{
		ID: 3, CoachID: testCoachID, ClientID: testClientID, Status: models.RelationshipStatusEnded,
	})
	service := newTestRelationshipService(store)

	_, err := service.Create(context.Background(), Actor{ID: testCoachID, Role: models.RoleCoach}, 0, testClientID)
	var dup *DuplicateRelationshipError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateRelationshipError, got %v", err)
	}
	if !errors.Is(err, ErrDuplicateRelationship) {
		t.Fatal("expected duplicate error to match ErrDuplicateRelationship")
	}
	if dup.Existing == nil || dup.Existing.ID != 3 {
		t.Fatalf("expected existing row 3, got %+v", dup.Existing)
	}
}

func TestCreateRelationshipRejections(t *testing.T) {
	tests := []struct {
		name     string
		actor    Actor
		coachID  int64
		clientID int64
		wantErr  error
	}{
		{name: "unknown coach", actor: Actor{ID: testClientID, Role: models.RoleClient}, coachID: testClientID + 1000, wantErr: ErrCoachNotFound},
		{name: "coach id of a client", actor: Actor{ID: 77, Role: models.RoleClient}, coachID: testClientID, wantErr: ErrInvalidInput},
		{name: "client id of a coach", actor: Actor{ID: testCoachID, Role: models.RoleCoach}, clientID: otherCoachID, wantErr: ErrInvalidInput},
		{name: "client acting for someone else", actor: Actor{ID: testClientID, Role: models.RoleClient}, coachID: testCoachID, clientID: 5, wantErr: ErrForbidden},
		{name: "missing coach", actor: Actor{ID: testClientID, Role: models.RoleClient}, wantErr: ErrInvalidInput},
		{name: "admin without client", actor: Actor{ID: 1, Role: models.RoleAdmin}, coachID: testCoachID, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestRelationshipService(newStubRelationshipStore())
			if _, err := service.Create(context.Background(), tt.actor, tt.coachID, tt.clientID); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRelationshipStatusTransitions(t *testing.T) {
	coach := Actor{ID: testCoachID, Role: models.RoleCoach}
	client := Actor{ID: testClientID, Role: models.RoleClient}

	tests := []struct {
		name    string
		actor   Actor
		current string
		next    string
		wantErr error
	}{
		{name: "coach accepts", actor: coach, current: models.RelationshipStatusPending, next: "active"},
		{name: "coach pauses", actor: coach, current: models.RelationshipStatusActive, next: "paused"},
		{name: "coach resumes", actor: coach, current: models.RelationshipStatusPaused, next: "ACTIVE"},
		{name: "client ends", actor: client, current: models.RelationshipStatusActive, next: "ended"},
		{name: "client cannot accept", actor: client, current: models.RelationshipStatusPending, next: "active", wantErr: ErrForbidden},
		{name: "pause pending", actor: coach, current: models.RelationshipStatusPending, next: "paused", wantErr: ErrInvalidStateTransition},
		{name: "reopen ended", actor: coach, current: models.RelationshipStatusEnded, next: "active", wantErr: ErrInvalidStateTransition},
		{name: "unknown status", actor: coach, current: models.RelationshipStatusActive, next: "archived", wantErr: ErrInvalidStatus},
		{name: "stranger", actor: Actor{ID: otherCoachID, Role: models.RoleCoach}, current: models.RelationshipStatusPending, next: "active", wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStubRelationshipStore(models.Relationship{ID: 4, CoachID: testCoachID, ClientID: testClientID, Status: tt.current})
			service := newTestRelationshipService(store)

			rel, err := service.UpdateStatus(context.Background(), tt.actor, 4, tt.next)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if store.rows[4].Status != rel.Status {
				t.Fatalf("expected stored status %q, got %q", rel.Status, store.rows[4].Status)
			}
		})
	}
}

func TestListRelationships(t *testing.T) {
	store := newStubRelationshipStore()
	service := newTestRelationshipService(store)

	if _, err := service.List(context.Background(), Actor{ID: 1, Role: models.RoleAdmin}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected admin listing to be rejected, got %v", err)
	}
	if _, err := service.List(context.Background(), Actor{ID: testCoachID, Role: models.RoleCoach}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.lastListed != models.RoleCoach {
		t.Fatalf("expected listing scoped to coach, got %q", store.lastListed)
	}
}
