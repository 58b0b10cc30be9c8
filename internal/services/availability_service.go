package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

const defaultSlotMinutes = 60

// defaultSlotHours is used when a coach has no availability configured at all,
// or when the weekday entry cannot be read as two hours.
var defaultSlotHours = []int{9, 10, 11, 12, 13, 14, 15, 16, 17}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type coachProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.CoachProfile, error)
}

type coachAvailabilityStore interface {
	coachProfileReader
	UpdateAvailability(ctx context.Context, userID int64, availability models.WeeklyAvailability) (*models.CoachProfile, error)
}

type busyBookingReader interface {
	ListActiveBetween(ctx context.Context, coachID int64, from time.Time, to time.Time) ([]models.Booking, error)
}

type CoachSlots struct {
	Date      string        `json:"date"`
	CoachID   int64         `json:"coach_id"`
	CoachName string        `json:"coach_name"`
	Slots     []models.Slot `json:"available_slots"`
}

type AvailabilityService struct {
	userRepo    userReader
	profileRepo coachAvailabilityStore
	bookingRepo busyBookingReader
	location    *time.Location
	now         func() time.Time
}

func NewAvailabilityService(
	userRepo *repository.UserRepository,
	profileRepo *repository.CoachProfileRepository,
	bookingRepo *repository.BookingRepository,
	location *time.Location,
) *AvailabilityService {
	if location == nil {
		location = time.UTC
	}
	return &AvailabilityService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		bookingRepo: bookingRepo,
		location:    location,
		now:         time.Now,
	}
}

func (s *AvailabilityService) Location() *time.Location {
	return s.location
}

// AvailableSlots lists the bookable start times of a coach on the calendar day of date.
// slotMinutes is the window each slot must keep free; zero means the default hour.
func (s *AvailabilityService) AvailableSlots(
	ctx context.Context,
	coachID int64,
	date time.Time,
	slotMinutes int,
) (*CoachSlots, error) {
	if coachID <= 0 {
		return nil, fieldError("coach_id", "must be a positive integer")
	}
	if slotMinutes == 0 {
		slotMinutes = defaultSlotMinutes
	}
	if slotMinutes < minBookingMinutes || slotMinutes > maxBookingMinutes {
		return nil, fieldError("duration_minutes", "must be between 15 and 480")
	}

	coach, err := s.loadCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}

	var availability models.WeeklyAvailability
	profile, err := s.profileRepo.GetByUserID(ctx, coachID)
	switch {
	case err == nil:
		availability = profile.Availability
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, err
	}

	year, month, day := date.In(s.location).Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	busy, err := s.bookingRepo.ListActiveBetween(ctx, coachID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}

	return &CoachSlots{
		Date:      dayStart.Format("2006-01-02"),
		CoachID:   coach.ID,
		CoachName: coach.Name,
		Slots:     GenerateSlots(availability, dayStart, busy, s.now(), slotMinutes),
	}, nil
}

func (s *AvailabilityService) GetAvailability(ctx context.Context, coachID int64) (models.WeeklyAvailability, error) {
	if _, err := s.loadCoach(ctx, coachID); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByUserID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WeeklyAvailability{}, nil
		}
		return nil, err
	}
	if profile.Availability == nil {
		return models.WeeklyAvailability{}, nil
	}
	return profile.Availability, nil
}

func (s *AvailabilityService) UpdateAvailability(
	ctx context.Context,
	actor Actor,
	availability models.WeeklyAvailability,
) (models.WeeklyAvailability, error) {
	if !actor.IsCoach() {
		return nil, ErrForbidden
	}
	if err := ValidateAvailability(availability); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.UpdateAvailability(ctx, actor.ID, availability)
	if err != nil {
		return nil, err
	}
	return profile.Availability, nil
}

func (s *AvailabilityService) loadCoach(ctx context.Context, coachID int64) (*models.User, error) {
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
	return coach, nil
}

// ValidateAvailability rejects unknown weekday keys and ranges outside [0, 24).
func ValidateAvailability(availability models.WeeklyAvailability) error {
	verr := &ValidationError{}
	for day, hours := range availability {
		field := "availability." + day
		if !models.IsWeekdayKey(day) {
			verr.add(field, "unknown weekday, use Sun..Sat")
			continue
		}
		if !hours.Valid() {
			verr.add(field, "start must be before end, both within 0..24")
		}
	}
	return verr.errOrNil()
}

// GenerateSlots returns the hourly start times on date's calendar day that are inside the
// coach's window, do not overlap a non-cancelled booking and start strictly after now.
// Each candidate is checked as a [start, start+slotMinutes) interval.
func GenerateSlots(
	availability models.WeeklyAvailability,
	date time.Time,
	busy []models.Booking,
	now time.Time,
	slotMinutes int,
) []models.Slot {
	if slotMinutes <= 0 {
		slotMinutes = defaultSlotMinutes
	}
	length := time.Duration(slotMinutes) * time.Minute
	year, month, day := date.Date()
	loc := date.Location()

	active := lo.Filter(busy, func(b models.Booking, _ int) bool {
		return b.Status != models.BookingStatusCancelled
	})

	slots := lo.FilterMap(candidateHours(availability, date.Weekday()), func(hour int, _ int) (models.Slot, bool) {
		start := time.Date(year, month, day, hour, 0, 0, 0, loc)
		if !start.After(now) {
			return models.Slot{}, false
		}
		end := start.Add(length)
		taken := lo.ContainsBy(active, func(b models.Booking) bool {
			return intervalsOverlap(start, end, b.ScheduledAt, b.EndsAt())
		})
		if taken {
			return models.Slot{}, false
		}
		return models.Slot{Time: start.Format("15:04"), DateTime: start}, true
	})

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].DateTime.Before(slots[j].DateTime)
	})
	return slots
}

func candidateHours(availability models.WeeklyAvailability, weekday time.Weekday) []int {
	if len(availability) == 0 {
		return defaultSlotHours
	}
	hours, ok := availability[models.WeekdayKey(weekday)]
	if !ok {
		return nil
	}
	if hours.Unparsed {
		return defaultSlotHours
	}

	// A parsed but inverted range such as 17-9 yields no hours.
	var result []int
	for hour := max(hours.Start, 0); hour < min(hours.End, 24); hour++ {
		result = append(result, hour)
	}
	return result
}

// intervalsOverlap is the half-open test: [aStart, aEnd) and [bStart, bEnd) share an instant.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
