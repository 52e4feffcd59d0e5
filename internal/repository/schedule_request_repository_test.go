package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*ScheduleRequestRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewScheduleRequestRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestScheduleRequestRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO schedule_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.ScheduleRequest{
		TeacherID: "tch-1",
		CourseID:  "crs-1",
		Date:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Venue:     "Lab A",
		Duration:  60,
		Status:    models.ScheduleRequestStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRequestRepositoryListPending(t *testing.T) {
	repo, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "course_id", "date", "start_time", "end_time", "venue", "duration_minutes", "description", "status", "created_at", "updated_at"}).
		AddRow("req-1", "tch-1", "crs-1", now, now, now.Add(time.Hour), "Lab A", 60, "", "PENDING", now, now)

	mock.ExpectQuery("SELECT (.+) FROM schedule_requests WHERE status = (.+) ORDER BY created_at ASC").
		WithArgs(models.ScheduleRequestStatusPending).
		WillReturnRows(rows)

	requests, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, models.ScheduleRequestStatusPending, requests[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRequestRepositoryUpdateStatusOnlyPending(t *testing.T) {
	repo, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(models.ScheduleRequestStatusApproved, sqlmock.AnyArg(), "req-1", models.ScheduleRequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "req-1", models.ScheduleRequestStatusApproved))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRequestRepositoryUpdateStatusAlreadyResolved(t *testing.T) {
	repo, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE schedule_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "req-1", models.ScheduleRequestStatusRejected)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
