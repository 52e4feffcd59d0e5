package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/scheduling-api/internal/models"
)

// AssignedScheduleRepository provides persistence for booking-teacher links.
type AssignedScheduleRepository struct {
	db *sqlx.DB
}

// NewAssignedScheduleRepository creates the repository.
func NewAssignedScheduleRepository(db *sqlx.DB) *AssignedScheduleRepository {
	return &AssignedScheduleRepository{db: db}
}

// ListBySchedule returns all assignment rows for a booking, oldest first.
func (r *AssignedScheduleRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.AssignedSchedule, error) {
	const query = `SELECT id, schedule_id, user_id, created_at FROM assigned_schedules WHERE schedule_id = $1 ORDER BY created_at ASC`
	var rows []models.AssignedSchedule
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list assignments by schedule: %w", err)
	}
	return rows, nil
}

// FindFirstBySchedule loads the earliest assignment row for a booking.
func (r *AssignedScheduleRepository) FindFirstBySchedule(ctx context.Context, scheduleID string) (*models.AssignedSchedule, error) {
	const query = `SELECT id, schedule_id, user_id, created_at FROM assigned_schedules WHERE schedule_id = $1 ORDER BY created_at ASC LIMIT 1`
	var row models.AssignedSchedule
	if err := r.db.GetContext(ctx, &row, query, scheduleID); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create stores a new assignment row.
func (r *AssignedScheduleRepository) Create(ctx context.Context, assignment *models.AssignedSchedule) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assigned_schedules (id, schedule_id, user_id, created_at) VALUES (:id, :schedule_id, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// UpdateTeacherForSchedule repoints every assignment row of a booking at a new teacher.
func (r *AssignedScheduleRepository) UpdateTeacherForSchedule(ctx context.Context, scheduleID, userID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE assigned_schedules SET user_id = $1 WHERE schedule_id = $2`, userID, scheduleID); err != nil {
		return fmt.Errorf("update assignments teacher: %w", err)
	}
	return nil
}
