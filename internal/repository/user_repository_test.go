package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewUserRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func userRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "created_at", "updated_at"})
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(id, id+"@school.test", "hash", "Teacher "+id, "TEACHER", true, now, now)
	}
	return rows
}

func TestUserRepositoryFindByEmailCaseInsensitive(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE LOWER\\(email\\) = LOWER").
		WithArgs("Admin@School.Test").
		WillReturnRows(userRows("usr-1"))

	user, err := repo.FindByEmail(context.Background(), "Admin@School.Test")
	require.NoError(t, err)
	require.Equal(t, "usr-1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindSubstitute(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	start := date.Add(9 * time.Hour)
	end := date.Add(10 * time.Hour)

	mock.ExpectQuery("JOIN course_teachers ct ON ct.teacher_id = u.id").
		WithArgs(models.RoleTeacher, "tch-1", sqlmock.AnyArg(), date, end, start).
		WillReturnRows(userRows("tch-9"))

	substitute, err := repo.FindSubstitute(context.Background(), "tch-1", []string{"crs-1"}, date, start, end)
	require.NoError(t, err)
	require.Equal(t, "tch-9", substitute.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListExaminerCandidates(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("JOIN assigned_schedules a ON a.user_id = u.id").
		WithArgs(models.RoleTeacher, "Mathematics", sqlmock.AnyArg()).
		WillReturnRows(userRows("tch-2", "tch-3"))

	candidates, err := repo.ListExaminerCandidates(context.Background(), "Mathematics", []string{"tch-1"})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
