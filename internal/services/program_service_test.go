package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
)

type stubProgramRepo struct {
	createErr  error
	lastCreate repository.CreateProgramInput
	listedBy   string
	programs   map[int64]models.Program
}

func (r *stubProgramRepo) Create(_ context.Context, input repository.CreateProgramInput) (*models.Program, error) {
	r.lastCreate = input
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &models.Program{
		ID:            11,
		CoachID:       input.CoachID,
		ClientID:      input.ClientID,
		Title:         input.Title,
		Description:   input.Description,
		Status:        input.Status,
		AttachmentURL: input.AttachmentURL,
	}, nil
}

func (r *stubProgramRepo) ListByCoachID(_ context.Context, _ int64) ([]models.Program, error) {
	r.listedBy = "coach"
	return nil, nil
}

func (r *stubProgramRepo) ListByClientID(_ context.Context, _ int64) ([]models.Program, error) {
	r.listedBy = "client"
	return nil, nil
}

func (r *stubProgramRepo) GetByID(_ context.Context, programID int64) (*models.Program, error) {
	program, ok := r.programs[programID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &program, nil
}

type stubAttachmentStore struct {
	uploadURL   string
	uploadErr   error
	deleteErr   error
	lastObject  string
	lastBody    string
	deletedURL  string
	signedFor   string
	signedValue string
}

func (s *stubAttachmentStore) Upload(_ context.Context, body io.Reader, objectName string) (string, error) {
	data, _ := io.ReadAll(body)
	s.lastBody = string(data)
	s.lastObject = objectName
	return s.uploadURL, s.uploadErr
}

func (s *stubAttachmentStore) Delete(_ context.Context, fileURL string) error {
	s.deletedURL = fileURL
	return s.deleteErr
}

func (s *stubAttachmentStore) SignedURL(_ context.Context, fileURL string) (string, error) {
	s.signedFor = fileURL
	return s.signedValue, nil
}

func newTestProgramService(repo *stubProgramRepo, gate *stubGate, storage AttachmentStore) *ProgramService {
	return &ProgramService{
		programRepo: repo,
		userRepo: &stubUserRepo{users: map[int64]models.User{
			testCoachID:  {ID: testCoachID, Role: models.RoleCoach},
			testClientID: {ID: testClientID, Role: models.RoleClient},
		}},
		gate:    gate,
		storage: storage,
		now:     func() time.Time { return time.Unix(0, 1700000000000000000) },
	}
}

func TestCreateProgramByCoachWithAttachment(t *testing.T) {
	repo := &stubProgramRepo{}
	storage := &stubAttachmentStore{uploadURL: "https://files.example/object/public/programs/a.pdf"}
	gate := &stubGate{}
	service := newTestProgramService(repo, gate, storage)

	program, err := service.CreateProgram(context.Background(), Actor{ID: testCoachID, Role: models.RoleCoach}, CreateProgramInput{
		ClientID:    testClientID,
		Title:       "  Strength Block  ",
		Description: stringPtr("   "),
		Attachment:  strings.NewReader("pdf-bytes"),
		Filename:    "Plan.PDF",
	})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}

	if gate.calls != 1 {
		t.Errorf("expected relationship check, got %d calls", gate.calls)
	}
	if program.Title != "Strength Block" || program.Status != models.ProgramStatusDraft {
		t.Errorf("unexpected program %+v", program)
	}
	if repo.lastCreate.Description != nil {
		t.Errorf("expected blank description to be dropped, got %v", *repo.lastCreate.Description)
	}
	if storage.lastObject != "programs/7-42-1700000000000000000.pdf" {
		t.Errorf("unexpected object name %q", storage.lastObject)
	}
	if storage.lastBody != "pdf-bytes" {
		t.Errorf("unexpected uploaded body %q", storage.lastBody)
	}
	if !program.HasAttachment() {
		t.Error("expected attachment url on program")
	}
}

func TestCreateProgramByClientForSelf(t *testing.T) {
	repo := &stubProgramRepo{}
	service := newTestProgramService(repo, &stubGate{}, nil)

	program, err := service.CreateProgram(context.Background(), Actor{ID: testClientID, Role: models.RoleClient}, CreateProgramInput{
		CoachID: testCoachID,
		Title:   "Mobility",
		Status:  models.ProgramStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if program.ClientID != testClientID || program.CoachID != testCoachID {
		t.Fatalf("unexpected parties %+v", program)
	}
}

func TestCreateProgramRejections(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	coach := Actor{ID: testCoachID, Role: models.RoleCoach}

	tests := []struct {
		name    string
		actor   Actor
		input   CreateProgramInput
		storage AttachmentStore
		gateErr error
		wantErr error
	}{
		{name: "missing title", actor: coach, input: CreateProgramInput{ClientID: testClientID}, wantErr: ErrInvalidInput},
		{name: "unknown status", actor: coach, input: CreateProgramInput{ClientID: testClientID, Title: "x", Status: "paused"}, wantErr: ErrInvalidInput},
		{name: "end before start", actor: coach, input: CreateProgramInput{ClientID: testClientID, Title: "x", StartDate: &start, EndDate: &end}, wantErr: ErrInvalidInput},
		{name: "coach for another coach", actor: coach, input: CreateProgramInput{CoachID: otherCoachID, ClientID: testClientID, Title: "x"}, wantErr: ErrForbidden},
		{name: "client is unknown", actor: coach, input: CreateProgramInput{ClientID: 999, Title: "x"}, wantErr: ErrClientNotFound},
		{name: "no relationship", actor: coach, input: CreateProgramInput{ClientID: testClientID, Title: "x"}, gateErr: ErrNoActiveRelationship, wantErr: ErrNoActiveRelationship},
		{name: "attachment without storage", actor: coach, input: CreateProgramInput{ClientID: testClientID, Title: "x", Attachment: strings.NewReader("a")}, wantErr: ErrStorageUnavailable},
		{name: "admin cannot author", actor: Actor{ID: 1, Role: models.RoleAdmin}, input: CreateProgramInput{CoachID: testCoachID, ClientID: testClientID, Title: "x"}, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestProgramService(&stubProgramRepo{}, &stubGate{err: tt.gateErr}, tt.storage)
			if _, err := service.CreateProgram(context.Background(), tt.actor, tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateProgramRemovesUploadWhenInsertFails(t *testing.T) {
	insertErr := errors.New("insert failed")
	repo := &stubProgramRepo{createErr: insertErr}
	storage := &stubAttachmentStore{uploadURL: "https://files.example/a.pdf", deleteErr: errors.New("gone")}
	service := newTestProgramService(repo, &stubGate{}, storage)

	_, err := service.CreateProgram(context.Background(), Actor{ID: testCoachID, Role: models.RoleCoach}, CreateProgramInput{
		ClientID:   testClientID,
		Title:      "x",
		Attachment: strings.NewReader("a"),
		Filename:   "a.pdf",
	})
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if storage.deletedURL != "https://files.example/a.pdf" {
		t.Fatalf("expected orphaned upload to be deleted, got %q", storage.deletedURL)
	}
	if !strings.Contains(err.Error(), "remove orphaned attachment") {
		t.Fatalf("expected cleanup failure to be reported, got %v", err)
	}
}

func TestListProgramsByRole(t *testing.T) {
	repo := &stubProgramRepo{}
	service := newTestProgramService(repo, &stubGate{}, nil)

	if _, err := service.ListPrograms(context.Background(), Actor{ID: testClientID, Role: models.RoleClient}, testCoachID, 0); err != nil {
		t.Fatalf("ListPrograms: %v", err)
	}
	if repo.listedBy != "client" {
		t.Fatalf("expected client listing, got %q", repo.listedBy)
	}
	if _, err := service.ListPrograms(context.Background(), Actor{ID: 1, Role: models.RoleAdmin}, 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected admin without filter to be rejected, got %v", err)
	}
	if _, err := service.ListPrograms(context.Background(), Actor{ID: 1, Role: models.RoleAdmin}, testCoachID, 0); err != nil || repo.listedBy != "coach" {
		t.Fatalf("expected admin coach listing, got %v / %q", err, repo.listedBy)
	}
}

func TestGetProgramDownloadURL(t *testing.T) {
	attachment := "https://files.example/object/public/programs/a.pdf"
	repo := &stubProgramRepo{programs: map[int64]models.Program{
		1: {ID: 1, CoachID: testCoachID, ClientID: testClientID, AttachmentURL: &attachment},
		2: {ID: 2, CoachID: testCoachID, ClientID: testClientID},
	}}
	storage := &stubAttachmentStore{signedValue: "https://files.example/sign/a.pdf?token=t"}
	service := newTestProgramService(repo, &stubGate{}, storage)
	client := Actor{ID: testClientID, Role: models.RoleClient}

	url, err := service.GetDownloadURL(context.Background(), client, 1)
	if err != nil {
		t.Fatalf("GetDownloadURL: %v", err)
	}
	if url != storage.signedValue || storage.signedFor != attachment {
		t.Fatalf("unexpected signed url %q for %q", url, storage.signedFor)
	}

	if _, err := service.GetDownloadURL(context.Background(), client, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without attachment, got %v", err)
	}
	if _, err := service.GetDownloadURL(context.Background(), Actor{ID: otherCoachID, Role: models.RoleCoach}, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	noStorage := newTestProgramService(repo, &stubGate{}, nil)
	if _, err := noStorage.GetDownloadURL(context.Background(), client, 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
