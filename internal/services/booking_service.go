package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

const (
	minBookingMinutes = 15
	maxBookingMinutes = 480
)

type bookingStore interface {
	GetByID(ctx context.Context, bookingID int64) (*models.Booking, error)
	List(ctx context.Context, filter repository.BookingListFilter) ([]models.Booking, int, error)
	ListActiveBetween(ctx context.Context, coachID int64, from time.Time, to time.Time) ([]models.Booking, error)
	UpdateStatusIfCurrent(ctx context.Context, bookingID int64, update repository.BookingStatusUpdate) (*models.Booking, error)
}

// bookingTxStore is what the create path needs inside its transaction.
type bookingTxStore interface {
	LockCoach(ctx context.Context, coachID int64) error
	ListActiveBetween(ctx context.Context, coachID int64, from time.Time, to time.Time) ([]models.Booking, error)
	Create(ctx context.Context, input repository.CreateBookingInput) (*models.Booking, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)
}

type programLookup interface {
	GetByID(ctx context.Context, programID int64) (*models.Program, error)
}

type relationshipRequirer interface {
	RequireActive(ctx context.Context, coachID int64, clientID int64) error
}

type BookingService struct {
	bookingRepo bookingStore
	userRepo    userDirectory
	programRepo programLookup
	gate        relationshipRequirer
	inTx        func(ctx context.Context, fn func(store bookingTxStore) error) error
	now         func() time.Time
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	userRepo *repository.UserRepository,
	programRepo *repository.ProgramRepository,
	gate *RelationshipGate,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		programRepo: programRepo,
		gate:        gate,
		inTx: func(ctx context.Context, fn func(store bookingTxStore) error) error {
			return withTx(ctx, db, func(tx pgx.Tx) error {
				return fn(repository.NewBookingRepository(tx))
			})
		},
		now: time.Now,
	}
}

type CreateBookingInput struct {
	CoachID         int64
	ClientID        *int64
	ProgramID       *int64
	ScheduledAt     time.Time
	DurationMinutes int
	SessionType     string
	Location        *string
	MeetingLink     *string
	Notes           *string
	Price           *float64
}

type BookingListInput struct {
	Status    string
	Timeframe string
	CoachID   int64
	ClientID  int64
	Page      int
	Limit     int
}

// CreateBooking books a session after the relationship gate and the overlap check.
// The check and the insert share a transaction that holds the coach's advisory lock,
// so two concurrent requests cannot both pass the check for overlapping times.
func (s *BookingService) CreateBooking(
	ctx context.Context,
	actor Actor,
	input CreateBookingInput,
) (*models.BookingDetail, error) {
	coachID, clientID, err := resolveBookingParties(actor, input)
	if err != nil {
		return nil, err
	}
	if err := s.normalizeBookingInput(&input); err != nil {
		return nil, err
	}
	if coachID == clientID {
		return nil, fieldError("client_id", "must differ from coach_id")
	}

	coach, err := s.userRepo.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if coach.Role != models.RoleCoach {
		return nil, fieldError("coach_id", "user is not a coach")
	}

	if err := s.gate.RequireActive(ctx, coachID, clientID); err != nil {
		return nil, err
	}

	if input.ProgramID != nil {
		program, err := s.programRepo.GetByID(ctx, *input.ProgramID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fieldError("program_id", "program not found")
			}
			return nil, err
		}
		if program.CoachID != coachID || program.ClientID != clientID {
			return nil, ErrForbidden
		}
	}

	start := input.ScheduledAt.UTC()
	var booking *models.Booking
	err = s.inTx(ctx, func(store bookingTxStore) error {
		if err := store.LockCoach(ctx, coachID); err != nil {
			return err
		}

		end := start.Add(time.Duration(input.DurationMinutes) * time.Minute)
		existing, err := store.ListActiveBetween(ctx, coachID, start, end)
		if err != nil {
			return err
		}
		if HasBookingConflict(existing, start, input.DurationMinutes) {
			return ErrConflict
		}

		booking, err = store.Create(ctx, repository.CreateBookingInput{
			CoachID:         coachID,
			ClientID:        clientID,
			ProgramID:       input.ProgramID,
			ScheduledAt:     start,
			DurationMinutes: input.DurationMinutes,
			SessionType:     input.SessionType,
			Location:        input.Location,
			MeetingLink:     input.MeetingLink,
			Notes:           input.Notes,
			Price:           input.Price,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.loadDetail(ctx, booking)
}

// HasConflict reports whether a proposed session would overlap an existing one of the coach.
func (s *BookingService) HasConflict(
	ctx context.Context,
	coachID int64,
	start time.Time,
	durationMinutes int,
) (bool, error) {
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultBookingDurationMinutes
	}
	start = start.UTC()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	existing, err := s.bookingRepo.ListActiveBetween(ctx, coachID, start, end)
	if err != nil {
		return false, err
	}
	return HasBookingConflict(existing, start, durationMinutes), nil
}

// HasBookingConflict applies the symmetric half-open overlap test against every
// non-cancelled booking: existing.start < proposed.end && existing.end > proposed.start.
func HasBookingConflict(existing []models.Booking, start time.Time, durationMinutes int) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return lo.ContainsBy(existing, func(b models.Booking) bool {
		if b.Status == models.BookingStatusCancelled {
			return false
		}
		return intervalsOverlap(b.ScheduledAt, b.EndsAt(), start, end)
	})
}

func (s *BookingService) ListBookings(
	ctx context.Context,
	actor Actor,
	input BookingListInput,
) ([]models.BookingDetail, int, error) {
	filter := repository.BookingListFilter{
		ActorID:   actor.ID,
		Role:      actor.Role,
		Status:    strings.TrimSpace(input.Status),
		Timeframe: strings.TrimSpace(input.Timeframe),
		Limit:     input.Limit,
	}
	if input.Page > 0 && input.Limit > 0 {
		filter.Offset = (input.Page - 1) * input.Limit
	}

	switch actor.Role {
	case models.RoleAdmin:
		filter.CoachID = input.CoachID
		filter.ClientID = input.ClientID
	case models.RoleCoach:
		filter.ClientID = input.ClientID
	case models.RoleClient:
		filter.CoachID = input.CoachID
	default:
		return nil, 0, ErrForbidden
	}

	bookings, total, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	details, err := s.loadDetails(ctx, bookings)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID int64) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(actor, booking) {
		return nil, ErrForbidden
	}
	return s.loadDetail(ctx, booking)
}

func (s *BookingService) UpdateStatus(
	ctx context.Context,
	actor Actor,
	bookingID int64,
	requestedStatus string,
	reason *string,
) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(actor, booking) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := validateStatusTransition(actor, booking, nextStatus, now); err != nil {
		return nil, err
	}

	update := repository.BookingStatusUpdate{
		CurrentStatus: booking.Status,
		NextStatus:    nextStatus,
	}
	if nextStatus == models.BookingStatusCancelled {
		update.CancelledAt = &now
		if reason != nil {
			if trimmed := strings.TrimSpace(*reason); trimmed != "" {
				update.CancellationReason = &trimmed
			}
		}
	}

	updated, err := s.bookingRepo.UpdateStatusIfCurrent(ctx, bookingID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return s.loadDetail(ctx, updated)
}

func resolveBookingParties(actor Actor, input CreateBookingInput) (int64, int64, error) {
	switch actor.Role {
	case models.RoleClient:
		if input.CoachID <= 0 {
			return 0, 0, fieldError("coach_id", "is required")
		}
		return input.CoachID, actor.ID, nil
	case models.RoleCoach:
		if input.ClientID == nil || *input.ClientID <= 0 {
			return 0, 0, fieldError("client_id", "is required when a coach creates a booking")
		}
		if input.CoachID != 0 && input.CoachID != actor.ID {
			return 0, 0, ErrForbidden
		}
		return actor.ID, *input.ClientID, nil
	case models.RoleAdmin:
		verr := &ValidationError{}
		if input.CoachID <= 0 {
			verr.add("coach_id", "is required")
		}
		if input.ClientID == nil || *input.ClientID <= 0 {
			verr.add("client_id", "is required")
		}
		if err := verr.errOrNil(); err != nil {
			return 0, 0, err
		}
		return input.CoachID, *input.ClientID, nil
	default:
		return 0, 0, ErrForbidden
	}
}

func (s *BookingService) normalizeBookingInput(input *CreateBookingInput) error {
	verr := &ValidationError{}

	if !input.ScheduledAt.After(s.now()) {
		verr.add("scheduled_at", "must be in the future")
	}
	if input.DurationMinutes == 0 {
		input.DurationMinutes = models.DefaultBookingDurationMinutes
	}
	if input.DurationMinutes < minBookingMinutes || input.DurationMinutes > maxBookingMinutes {
		verr.add("duration_minutes", "must be between 15 and 480")
	}

	input.SessionType = strings.TrimSpace(input.SessionType)
	if input.SessionType == "" {
		input.SessionType = models.SessionTypeInPerson
	}
	switch input.SessionType {
	case models.SessionTypeInPerson, models.SessionTypeOnline, models.SessionTypeHybrid:
	default:
		verr.add("session_type", "must be one of in_person, online, hybrid")
	}

	if input.Price != nil && *input.Price < 0 {
		verr.add("price", "must be 0 or greater")
	}
	input.Location = trimOptional(input.Location)
	input.MeetingLink = trimOptional(input.MeetingLink)
	input.Notes = trimOptional(input.Notes)

	return verr.errOrNil()
}

func (s *BookingService) loadDetail(ctx context.Context, booking *models.Booking) (*models.BookingDetail, error) {
	details, err := s.loadDetails(ctx, []models.Booking{*booking})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// loadDetails eager-loads coach, client and program for each booking.
func (s *BookingService) loadDetails(ctx context.Context, bookings []models.Booking) ([]models.BookingDetail, error) {
	userIDs := make([]int64, 0, len(bookings)*2)
	for _, booking := range bookings {
		userIDs = append(userIDs, booking.CoachID, booking.ClientID)
	}
	users, err := s.userRepo.GetByIDs(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, err
	}

	programs := make(map[int64]*models.Program)
	details := make([]models.BookingDetail, 0, len(bookings))
	for _, booking := range bookings {
		detail := models.BookingDetail{Booking: booking}
		if coach, ok := users[booking.CoachID]; ok {
			detail.Coach = coach.Summary()
		}
		if client, ok := users[booking.ClientID]; ok {
			detail.Client = client.Summary()
		}
		if booking.ProgramID != nil {
			program, ok := programs[*booking.ProgramID]
			if !ok {
				program, err = s.programRepo.GetByID(ctx, *booking.ProgramID)
				if err != nil && !errors.Is(err, pgx.ErrNoRows) {
					return nil, err
				}
				programs[*booking.ProgramID] = program
			}
			detail.Program = program
		}
		details = append(details, detail)
	}
	return details, nil
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirm", "confirmed":
		return models.BookingStatusConfirmed, nil
	case "complete", "completed":
		return models.BookingStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.BookingStatusCancelled, nil
	case "no_show", "no-show", "noshow":
		return models.BookingStatusNoShow, nil
	default:
		return "", ErrInvalidStatus
	}
}

func isTerminalBookingStatus(status string) bool {
	switch status {
	case models.BookingStatusCompleted, models.BookingStatusCancelled, models.BookingStatusNoShow:
		return true
	default:
		return false
	}
}

func validateStatusTransition(actor Actor, booking *models.Booking, nextStatus string, now time.Time) error {
	if nextStatus == models.BookingStatusCancelled {
		if isTerminalBookingStatus(booking.Status) {
			return ErrInvalidStateTransition
		}
		return nil
	}

	if actor.IsClient() {
		return ErrForbidden
	}
	if actor.IsCoach() && booking.CoachID != actor.ID {
		return ErrForbidden
	}

	switch nextStatus {
	case models.BookingStatusConfirmed:
		if booking.Status != models.BookingStatusPending {
			return ErrInvalidStateTransition
		}
	case models.BookingStatusCompleted:
		if booking.Status != models.BookingStatusConfirmed || booking.EndsAt().After(now) {
			return ErrInvalidStateTransition
		}
	case models.BookingStatusNoShow:
		if booking.Status != models.BookingStatusConfirmed || booking.ScheduledAt.After(now) {
			return ErrInvalidStateTransition
		}
	default:
		return ErrInvalidStatus
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
