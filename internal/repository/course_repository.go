package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edupanel/scheduling-api/internal/models"
)

// CourseRepository provides persistence for courses and qualification links.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID loads a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, description, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListCourseIDsByTeacher returns every course the teacher is qualified for.
func (r *CourseRepository) ListCourseIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	const query = `SELECT course_id FROM course_teachers WHERE teacher_id = $1 ORDER BY course_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list course ids by teacher: %w", err)
	}
	return ids, nil
}
