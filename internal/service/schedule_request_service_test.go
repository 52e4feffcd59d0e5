package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[string]models.ScheduleRequest
	statuses map[string]models.ScheduleRequestStatus
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.ScheduleRequest) error {
	if m.requests == nil {
		m.requests = map[string]models.ScheduleRequest{}
	}
	request.ID = "req-new"
	m.requests[request.ID] = *request
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.ScheduleRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) ListPending(ctx context.Context) ([]models.ScheduleRequest, error) {
	var result []models.ScheduleRequest
	for _, r := range m.requests {
		if r.Status == models.ScheduleRequestStatusPending {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id string, status models.ScheduleRequestStatus) error {
	r, ok := m.requests[id]
	if !ok || r.Status != models.ScheduleRequestStatusPending {
		return sql.ErrNoRows
	}
	r.Status = status
	m.requests[id] = r
	if m.statuses == nil {
		m.statuses = map[string]models.ScheduleRequestStatus{}
	}
	m.statuses[id] = status
	return nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockRequestBookingRepo struct {
	venueOverlaps []models.Booking
	created       *models.Booking
	createErr     error
}

func (m *mockRequestBookingRepo) FindVenueOverlaps(ctx context.Context, date time.Time, venue string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	return m.venueOverlaps, nil
}

func (m *mockRequestBookingRepo) CreateWithLeadAssignment(ctx context.Context, booking *models.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	booking.ID = "bk-new"
	m.created = booking
	return nil
}

func newRequestFixture() (*ScheduleRequestService, *mockRequestRepo, *mockRequestBookingRepo, *recordingNotifier) {
	requests := &mockRequestRepo{requests: map[string]models.ScheduleRequest{}}
	users := &mockUserReader{users: map[string]*models.User{
		"tch-1": {ID: "tch-1", Role: models.RoleTeacher, Active: true},
		"adm-1": {ID: "adm-1", Role: models.RoleAdmin, Active: true},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Name: "Mathematics"},
	}}
	bookings := &mockRequestBookingRepo{}
	notifier := &recordingNotifier{}
	svc := NewScheduleRequestService(requests, users, courses, bookings, notifier, nil, nil)
	return svc, requests, bookings, notifier
}

func validRequestPayload() CreateScheduleRequestRequest {
	return CreateScheduleRequestRequest{
		TeacherID: "tch-1",
		CourseID:  "crs-1",
		Date:      day,
		StartTime: at(13, 0),
		EndTime:   at(14, 0),
		Venue:     "Lab A",
		Duration:  60,
	}
}

func pendingRequest() models.ScheduleRequest {
	return models.ScheduleRequest{
		ID: "req-1", TeacherID: "tch-1", CourseID: "crs-1",
		Date: day, StartTime: at(13, 0), EndTime: at(14, 0),
		Venue: "Lab A", Duration: 60,
		Status: models.ScheduleRequestStatusPending,
	}
}

func TestScheduleRequestCreate(t *testing.T) {
	svc, requests, _, _ := newRequestFixture()

	request, err := svc.Create(context.Background(), validRequestPayload())
	require.NoError(t, err)
	require.Equal(t, models.ScheduleRequestStatusPending, request.Status)
	require.Contains(t, requests.requests, "req-new")
}

func TestScheduleRequestCreateRejectsNonTeacher(t *testing.T) {
	svc, _, _, _ := newRequestFixture()

	payload := validRequestPayload()
	payload.TeacherID = "adm-1"

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleRequestCreateUnknownCourse(t *testing.T) {
	svc, _, _, _ := newRequestFixture()

	payload := validRequestPayload()
	payload.CourseID = "crs-missing"

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleRequestCreateRejectsNonPositiveDuration(t *testing.T) {
	svc, _, _, _ := newRequestFixture()

	payload := validRequestPayload()
	payload.Duration = 0

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleRequestApproveCreatesBooking(t *testing.T) {
	svc, requests, bookings, notifier := newRequestFixture()
	requests.requests["req-1"] = pendingRequest()

	request, err := svc.Process(context.Background(), "req-1", "approve")
	require.NoError(t, err)
	require.Equal(t, models.ScheduleRequestStatusApproved, request.Status)
	require.NotNil(t, bookings.created)
	require.Equal(t, "tch-1", bookings.created.TeacherID)
	require.Equal(t, "Lab A", bookings.created.Venue)
	require.Equal(t, 60, bookings.created.Duration)
	require.Equal(t, []string{"Schedule request approved"}, notifier.titles)
}

func TestScheduleRequestApproveConflictLeavesPending(t *testing.T) {
	svc, requests, bookings, _ := newRequestFixture()
	requests.requests["req-1"] = pendingRequest()
	bookings.venueOverlaps = []models.Booking{{
		ID: "bk-1", Date: day, StartTime: at(13, 30), EndTime: at(14, 30), Venue: "Lab A",
	}}

	_, err := svc.Process(context.Background(), "req-1", "approve")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	var conflictErr *models.BookingConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Nil(t, bookings.created)
	require.Equal(t, models.ScheduleRequestStatusPending, requests.requests["req-1"].Status)
}

func TestScheduleRequestReject(t *testing.T) {
	svc, requests, bookings, _ := newRequestFixture()
	requests.requests["req-1"] = pendingRequest()

	request, err := svc.Process(context.Background(), "req-1", "reject")
	require.NoError(t, err)
	require.Equal(t, models.ScheduleRequestStatusRejected, request.Status)
	require.Nil(t, bookings.created)
}

func TestScheduleRequestProcessTerminal(t *testing.T) {
	svc, requests, _, _ := newRequestFixture()
	resolved := pendingRequest()
	resolved.Status = models.ScheduleRequestStatusRejected
	requests.requests["req-1"] = resolved

	_, err := svc.Process(context.Background(), "req-1", "approve")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Equal(t, models.ScheduleRequestStatusRejected, requests.requests["req-1"].Status)
}

func TestScheduleRequestProcessUnknownAction(t *testing.T) {
	svc, requests, _, _ := newRequestFixture()
	requests.requests["req-1"] = pendingRequest()

	_, err := svc.Process(context.Background(), "req-1", "postpone")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Equal(t, models.ScheduleRequestStatusPending, requests.requests["req-1"].Status)
}

func TestScheduleRequestProcessNotFound(t *testing.T) {
	svc, _, _, _ := newRequestFixture()

	_, err := svc.Process(context.Background(), "req-missing", "approve")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleRequestListPending(t *testing.T) {
	svc, requests, _, _ := newRequestFixture()
	requests.requests["req-1"] = pendingRequest()
	resolved := pendingRequest()
	resolved.ID = "req-2"
	resolved.Status = models.ScheduleRequestStatusApproved
	requests.requests["req-2"] = resolved

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "req-1", pending[0].ID)
}
