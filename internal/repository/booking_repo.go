package repository

import (
	"context"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/leporo/sqlf"
)

const bookingColumns = `id, coach_id, client_id, program_id, scheduled_at, duration_min, status, session_type,
	location, meeting_link, notes, price, cancelled_at, cancellation_reason, created_at, updated_at`

type CreateBookingInput struct {
	CoachID         int64
	ClientID        int64
	ProgramID       *int64
	ScheduledAt     time.Time
	DurationMinutes int
	SessionType     string
	Location        *string
	MeetingLink     *string
	Notes           *string
	Price           *float64
}

type BookingListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
	CoachID   int64
	ClientID  int64
	Offset    int
	Limit     int
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var booking models.Booking
	err := row.Scan(
		&booking.ID,
		&booking.CoachID,
		&booking.ClientID,
		&booking.ProgramID,
		&booking.ScheduledAt,
		&booking.DurationMinutes,
		&booking.Status,
		&booking.SessionType,
		&booking.Location,
		&booking.MeetingLink,
		&booking.Notes,
		&booking.Price,
		&booking.CancelledAt,
		&booking.CancellationReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (coach_id, client_id, program_id, scheduled_at, duration_min, status,
			session_type, location, meeting_link, notes, price)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8, $9, $10)
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.ClientID,
		input.ProgramID,
		input.ScheduledAt,
		input.DurationMinutes,
		input.SessionType,
		input.Location,
		input.MeetingLink,
		input.Notes,
		input.Price,
	))
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

// LockCoach serializes booking writes for one coach until the surrounding transaction ends.
func (r *BookingRepository) LockCoach(ctx context.Context, coachID int64) error {
	_, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", coachID)
	return err
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.Booking, int, error) {
	countQuery := sqlf.PostgreSQL.Select("COUNT(*)").From("bookings")
	applyBookingFilter(countQuery, filter)
	total, err := countStmt(ctx, r.db, countQuery)
	if err != nil {
		return nil, 0, err
	}

	q := sqlf.PostgreSQL.Select(bookingColumns).From("bookings")
	applyBookingFilter(q, filter)
	q.OrderBy("scheduled_at ASC", "id ASC")
	if filter.Limit > 0 {
		q.Limit(filter.Limit).Offset(filter.Offset)
	}
	defer q.Close()

	rows, err := r.db.Query(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, 0, err
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func applyBookingFilter(q *sqlf.Stmt, filter BookingListFilter) {
	switch filter.Role {
	case models.RoleCoach:
		q.Where("coach_id = ?", filter.ActorID)
	case models.RoleClient:
		q.Where("client_id = ?", filter.ActorID)
	}
	if filter.CoachID > 0 {
		q.Where("coach_id = ?", filter.CoachID)
	}
	if filter.ClientID > 0 {
		q.Where("client_id = ?", filter.ClientID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		q.Where("status = ?", status)
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		q.Where("(scheduled_at + (duration_min * INTERVAL '1 minute')) > NOW()")
	case "past":
		q.Where("(scheduled_at + (duration_min * INTERVAL '1 minute')) <= NOW()")
	}
}

// ListActiveBetween returns the coach's non-cancelled bookings that overlap [from, to).
func (r *BookingRepository) ListActiveBetween(
	ctx context.Context,
	coachID int64,
	from time.Time,
	to time.Time,
) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE coach_id = $1
		  AND status <> 'cancelled'
		  AND scheduled_at < $3
		  AND (scheduled_at + (COALESCE(duration_min, 60) * INTERVAL '1 minute')) > $2
		ORDER BY scheduled_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

type BookingStatusUpdate struct {
	CurrentStatus      string
	NextStatus         string
	CancelledAt        *time.Time
	CancellationReason *string
}

// UpdateStatusIfCurrent returns pgx.ErrNoRows when the booking left CurrentStatus in the meantime.
func (r *BookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	bookingID int64,
	update BookingStatusUpdate,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3,
			cancelled_at = COALESCE($4, cancelled_at),
			cancellation_reason = COALESCE($5, cancellation_reason),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		bookingID,
		update.CurrentStatus,
		update.NextStatus,
		update.CancelledAt,
		update.CancellationReason,
	))
}
