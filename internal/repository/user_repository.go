package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edupanel/scheduling-api/internal/models"
)

const (
	userColumns  = "id, email, password_hash, full_name, role, active, created_at, updated_at"
	userColumnsU = "u.id, u.email, u.password_hash, u.full_name, u.role, u.active, u.created_at, u.updated_at"
)

// UserRepository provides persistence for users and teacher lookups.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads a user by email, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE LOWER(email) = LOWER($1)", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindSubstitute returns one teacher qualified for at least one of the given
// courses with no booking overlapping [start,end) on the date, excluding the
// outgoing teacher. Candidates are ordered by id so the pick is deterministic.
func (r *UserRepository) FindSubstitute(ctx context.Context, excludeTeacherID string, courseIDs []string, date time.Time, start, end time.Time) (*models.User, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM users u
JOIN course_teachers ct ON ct.teacher_id = u.id
WHERE u.role = $1 AND u.active AND u.id <> $2 AND ct.course_id = ANY($3)
  AND NOT EXISTS (
    SELECT 1 FROM bookings b
    JOIN assigned_schedules a ON a.schedule_id = b.id
    WHERE a.user_id = u.id AND b.date = $4 AND b.start_time < $5 AND b.end_time > $6
  )
ORDER BY u.id ASC
LIMIT 1`, userColumnsU)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, models.RoleTeacher, excludeTeacherID, pq.Array(courseIDs), date, end, start); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListExaminerCandidates returns teachers previously assigned to a booking of
// the named course, excluding the given ids.
func (r *UserRepository) ListExaminerCandidates(ctx context.Context, courseName string, excludedIDs []string) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM users u
JOIN assigned_schedules a ON a.user_id = u.id
JOIN bookings b ON b.id = a.schedule_id
JOIN courses c ON c.id = b.course_id
WHERE u.role = $1 AND u.active AND LOWER(c.name) = LOWER($2) AND NOT (u.id = ANY($3))
ORDER BY u.id ASC`, userColumnsU)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RoleTeacher, courseName, pq.Array(excludedIDs)); err != nil {
		return nil, fmt.Errorf("list examiner candidates: %w", err)
	}
	return users, nil
}
