package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/scheduling-api/internal/models"
)

const scheduleRequestColumns = "id, teacher_id, course_id, date, start_time, end_time, venue, duration_minutes, description, status, created_at, updated_at"

// ScheduleRequestRepository provides persistence for schedule requests.
type ScheduleRequestRepository struct {
	db *sqlx.DB
}

// NewScheduleRequestRepository creates the repository.
func NewScheduleRequestRepository(db *sqlx.DB) *ScheduleRequestRepository {
	return &ScheduleRequestRepository{db: db}
}

// Create stores a new schedule request.
func (r *ScheduleRequestRepository) Create(ctx context.Context, request *models.ScheduleRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	const query = `INSERT INTO schedule_requests (id, teacher_id, course_id, date, start_time, end_time, venue, duration_minutes, description, status, created_at, updated_at)
VALUES (:id, :teacher_id, :course_id, :date, :start_time, :end_time, :venue, :duration_minutes, :description, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create schedule request: %w", err)
	}
	return nil
}

// FindByID loads a schedule request by id.
func (r *ScheduleRequestRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_requests WHERE id = $1", scheduleRequestColumns)
	var request models.ScheduleRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListPending returns pending requests, oldest first.
func (r *ScheduleRequestRepository) ListPending(ctx context.Context) ([]models.ScheduleRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_requests WHERE status = $1 ORDER BY created_at ASC", scheduleRequestColumns)
	var requests []models.ScheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.ScheduleRequestStatusPending); err != nil {
		return nil, fmt.Errorf("list pending schedule requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus transitions a request. Only pending requests are affected;
// sql.ErrNoRows is returned when the row is missing or already resolved.
func (r *ScheduleRequestRepository) UpdateStatus(ctx context.Context, id string, status models.ScheduleRequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedule_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		status, time.Now().UTC(), id, models.ScheduleRequestStatusPending)
	if err != nil {
		return fmt.Errorf("update schedule request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
