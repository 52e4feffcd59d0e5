package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

type mockReassignBookingRepo struct {
	bookings   map[string]models.Booking
	reassigned map[string]string
	deleted    []string
}

func (m *mockReassignBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if b, ok := m.bookings[id]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReassignBookingRepo) ReassignTeacher(ctx context.Context, bookingID, newTeacherID string) error {
	if m.reassigned == nil {
		m.reassigned = map[string]string{}
	}
	m.reassigned[bookingID] = newTeacherID
	return nil
}

func (m *mockReassignBookingRepo) DeleteCascade(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockReassignAssignmentRepo struct {
	assignments map[string]models.AssignedSchedule
	updated     map[string]string
}

func (m *mockReassignAssignmentRepo) FindFirstBySchedule(ctx context.Context, scheduleID string) (*models.AssignedSchedule, error) {
	if a, ok := m.assignments[scheduleID]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReassignAssignmentRepo) UpdateTeacherForSchedule(ctx context.Context, scheduleID, userID string) error {
	if m.updated == nil {
		m.updated = map[string]string{}
	}
	m.updated[scheduleID] = userID
	return nil
}

type mockCourseLister struct {
	courseIDs map[string][]string
}

func (m *mockCourseLister) ListCourseIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	return m.courseIDs[teacherID], nil
}

type mockSubstituteFinder struct {
	substitute    *models.User
	lastExcluded  string
	lastCourseIDs []string
}

func (m *mockSubstituteFinder) FindSubstitute(ctx context.Context, excludeTeacherID string, courseIDs []string, date time.Time, start, end time.Time) (*models.User, error) {
	m.lastExcluded = excludeTeacherID
	m.lastCourseIDs = courseIDs
	if m.substitute == nil {
		return nil, sql.ErrNoRows
	}
	return m.substitute, nil
}

func newReassignFixture() (*ReassignmentService, *mockReassignBookingRepo, *mockReassignAssignmentRepo, *mockCourseLister, *mockSubstituteFinder, *recordingNotifier) {
	bookings := &mockReassignBookingRepo{bookings: map[string]models.Booking{
		"bk-1": {
			ID: "bk-1", Date: day, StartTime: at(9, 0), EndTime: at(10, 0),
			Venue: "Lab A", CourseID: "crs-1", TeacherID: "tch-1",
		},
	}}
	assignments := &mockReassignAssignmentRepo{assignments: map[string]models.AssignedSchedule{
		"bk-1": {ID: "as-1", ScheduleID: "bk-1", UserID: "tch-1"},
	}}
	courses := &mockCourseLister{courseIDs: map[string][]string{"tch-1": {"crs-1", "crs-2"}}}
	users := &mockSubstituteFinder{}
	notifier := &recordingNotifier{}
	svc := NewReassignmentService(bookings, assignments, courses, users, notifier, nil)
	return svc, bookings, assignments, courses, users, notifier
}

func TestReassignFindsSubstitute(t *testing.T) {
	svc, _, assignments, _, users, notifier := newReassignFixture()
	users.substitute = &models.User{ID: "tch-9", FullName: "Substitute"}

	result, err := svc.Reassign(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Equal(t, models.ReassignActionReassigned, result.Action)
	require.Equal(t, "tch-1", result.OldTeacherID)
	require.Equal(t, "tch-9", result.NewTeacherID)
	require.Equal(t, "tch-9", assignments.updated["bk-1"])
	require.Equal(t, "tch-1", users.lastExcluded)
	require.Equal(t, []string{"crs-1", "crs-2"}, users.lastCourseIDs)
	require.Equal(t, []string{"Schedule updated"}, notifier.titles)
	// The announcement names both sides of the handover.
	require.Contains(t, notifier.messages[0], "Substitute")
	require.Contains(t, notifier.messages[0], "tch-1")
}

func TestReassignNoSubstitute(t *testing.T) {
	svc, _, assignments, _, _, notifier := newReassignFixture()

	_, err := svc.Reassign(context.Background(), "bk-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
	require.Empty(t, assignments.updated)
	require.Empty(t, notifier.titles)
}

func TestReassignScheduleNotFound(t *testing.T) {
	svc, _, _, _, _, _ := newReassignFixture()

	_, err := svc.Reassign(context.Background(), "bk-missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReassignNoAssignedTeacher(t *testing.T) {
	svc, bookings, _, _, _, _ := newReassignFixture()
	bookings.bookings["bk-2"] = models.Booking{ID: "bk-2", Date: day, TeacherID: "tch-1"}

	_, err := svc.Reassign(context.Background(), "bk-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCancelAndReassignHandsOver(t *testing.T) {
	svc, bookings, _, _, users, notifier := newReassignFixture()
	users.substitute = &models.User{ID: "tch-9", FullName: "Substitute"}

	result, err := svc.CancelAndReassign(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Equal(t, models.ReassignActionReassigned, result.Action)
	require.Equal(t, "tch-9", bookings.reassigned["bk-1"])
	require.Equal(t, "tch-9", result.Booking.TeacherID)
	require.Empty(t, bookings.deleted)
	require.Equal(t, []string{"Schedule updated"}, notifier.titles)
}

func TestCancelAndReassignDeletesWhenNoSubstitute(t *testing.T) {
	svc, bookings, _, _, _, notifier := newReassignFixture()

	result, err := svc.CancelAndReassign(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Equal(t, models.ReassignActionDeleted, result.Action)
	require.Equal(t, "tch-1", result.OldTeacherID)
	require.Equal(t, []string{"bk-1"}, bookings.deleted)
	// Silent cascade: the deletion is not announced.
	require.Empty(t, notifier.titles)
}

func TestCancelAndReassignDeletesWhenTeacherHasNoCourses(t *testing.T) {
	svc, bookings, _, courses, users, _ := newReassignFixture()
	courses.courseIDs = map[string][]string{}
	users.substitute = &models.User{ID: "tch-9"}

	result, err := svc.CancelAndReassign(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Equal(t, models.ReassignActionDeleted, result.Action)
	require.Equal(t, []string{"bk-1"}, bookings.deleted)
	// The substitute search never ran: no qualification set to match against.
	require.Empty(t, users.lastCourseIDs)
}
