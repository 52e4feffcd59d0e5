package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/scheduling-api/internal/models"
)

// Sentinel errors surfaced by the transactional write paths so the service
// layer can map them to the right conflict dimension.
var (
	ErrVenueTaken  = errors.New("venue already booked for this interval")
	ErrTeacherBusy = errors.New("teacher already booked for this interval")
)

const (
	bookingColumns  = "id, date, start_time, end_time, venue, duration_minutes, course_id, teacher_id, description, created_at, updated_at"
	bookingColumnsB = "b.id, b.date, b.start_time, b.end_time, b.venue, b.duration_minutes, b.course_id, b.teacher_id, b.description, b.created_at, b.updated_at"
)

// BookingRepository provides persistence for bookings and their assignment rows.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings b WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CourseName != "" {
		conditions = append(conditions, fmt.Sprintf("b.course_id IN (SELECT id FROM courses WHERE LOWER(name) = LOWER($%d))", len(args)+1))
		args = append(args, filter.CourseName)
	}
	if filter.Venue != "" {
		conditions = append(conditions, fmt.Sprintf("b.venue = $%d", len(args)+1))
		args = append(args, filter.Venue)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("b.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("b.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("b.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"date":       true,
		"start_time": true,
		"venue":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY b.%s %s, b.start_time ASC LIMIT %d OFFSET %d",
		bookingColumnsB, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindVenueOverlaps returns bookings sharing date and venue whose [start,end)
// interval intersects the given one. Touching endpoints are not returned.
func (r *BookingRepository) FindVenueOverlaps(ctx context.Context, date time.Time, venue string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings
WHERE date = $1 AND venue = $2 AND start_time < $3 AND end_time > $4 AND id <> $5
ORDER BY start_time ASC`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, date, venue, end, start, excludeID); err != nil {
		return nil, fmt.Errorf("find venue overlaps: %w", err)
	}
	return bookings, nil
}

// FindTeacherOverlaps returns bookings on the given date whose interval
// intersects the given one and that involve the teacher, either as lead or
// through an assigned_schedules row.
func (r *BookingRepository) FindTeacherOverlaps(ctx context.Context, teacherID string, date time.Time, start, end time.Time, excludeID string) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings b
WHERE b.date = $1 AND b.start_time < $2 AND b.end_time > $3 AND b.id <> $4
  AND (b.teacher_id = $5 OR EXISTS (
    SELECT 1 FROM assigned_schedules a WHERE a.schedule_id = b.id AND a.user_id = $5))
ORDER BY b.start_time ASC`, bookingColumnsB)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, date, end, start, excludeID, teacherID); err != nil {
		return nil, fmt.Errorf("find teacher overlaps: %w", err)
	}
	return bookings, nil
}

// CreateWithLeadAssignment inserts a booking together with the lead teacher's
// assigned_schedules row. Both conflict checks are re-run inside the same
// transaction so a concurrent insert for the same slot cannot slip between the
// service-level check and the write.
func (r *BookingRepository) CreateWithLeadAssignment(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin create booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var venueClashes int
	if err = tx.GetContext(ctx, &venueClashes,
		`SELECT COUNT(*) FROM bookings WHERE date = $1 AND venue = $2 AND start_time < $3 AND end_time > $4`,
		booking.Date, booking.Venue, booking.EndTime, booking.StartTime); err != nil {
		return fmt.Errorf("recheck venue conflicts: %w", err)
	}
	if venueClashes > 0 {
		err = ErrVenueTaken
		return err
	}

	var teacherClashes int
	if err = tx.GetContext(ctx, &teacherClashes,
		`SELECT COUNT(*) FROM bookings b
WHERE b.date = $1 AND b.start_time < $2 AND b.end_time > $3
  AND (b.teacher_id = $4 OR EXISTS (
    SELECT 1 FROM assigned_schedules a WHERE a.schedule_id = b.id AND a.user_id = $4))`,
		booking.Date, booking.EndTime, booking.StartTime, booking.TeacherID); err != nil {
		return fmt.Errorf("recheck teacher conflicts: %w", err)
	}
	if teacherClashes > 0 {
		err = ErrTeacherBusy
		return err
	}

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO bookings (id, date, start_time, end_time, venue, duration_minutes, course_id, teacher_id, description, created_at, updated_at)
VALUES (:id, :date, :start_time, :end_time, :venue, :duration_minutes, :course_id, :teacher_id, :description, :created_at, :updated_at)`, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO assigned_schedules (id, schedule_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), booking.ID, booking.TeacherID, now); err != nil {
		return fmt.Errorf("insert lead assignment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create booking: %w", err)
	}
	return nil
}

// Update modifies a booking record.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET date = :date, start_time = :start_time, end_time = :end_time, venue = :venue,
duration_minutes = :duration_minutes, course_id = :course_id, teacher_id = :teacher_id, description = :description, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// DeleteCascade removes a booking together with its assignment rows.
func (r *BookingRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM assigned_schedules WHERE schedule_id = $1`, id); err != nil {
		return fmt.Errorf("delete booking assignments: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete booking: %w", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete booking: %w", err)
	}
	return nil
}

// ReassignTeacher points the booking and all of its assignment rows at a new
// teacher in a single transaction.
func (r *BookingRepository) ReassignTeacher(ctx context.Context, bookingID, newTeacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reassign booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, execErr := tx.ExecContext(ctx, `UPDATE bookings SET teacher_id = $1, updated_at = $2 WHERE id = $3`, newTeacherID, now, bookingID)
	if execErr != nil {
		err = fmt.Errorf("reassign booking teacher: %w", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE assigned_schedules SET user_id = $1 WHERE schedule_id = $2`, newTeacherID, bookingID); err != nil {
		return fmt.Errorf("reassign assignment rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reassign booking: %w", err)
	}
	return nil
}
