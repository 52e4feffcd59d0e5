package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/middleware"
	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/internal/service"
)

type requestRepoStub struct {
	requests map[string]models.ScheduleRequest
}

func (s *requestRepoStub) Create(ctx context.Context, request *models.ScheduleRequest) error {
	request.ID = "req-new"
	s.requests[request.ID] = *request
	return nil
}

func (s *requestRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleRequest, error) {
	if r, ok := s.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) ListPending(ctx context.Context) ([]models.ScheduleRequest, error) {
	var result []models.ScheduleRequest
	for _, r := range s.requests {
		if r.Status == models.ScheduleRequestStatusPending {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *requestRepoStub) UpdateStatus(ctx context.Context, id string, status models.ScheduleRequestStatus) error {
	r, ok := s.requests[id]
	if !ok || r.Status != models.ScheduleRequestStatusPending {
		return sql.ErrNoRows
	}
	r.Status = status
	s.requests[id] = r
	return nil
}

type userReaderStub struct {
	users map[string]*models.User
}

func (s userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newRequestHandlerFixture(requests *requestRepoStub, bookings *bookingRepoStub) *ScheduleRequestHandler {
	users := userReaderStub{users: map[string]*models.User{
		"tch-1": {ID: "tch-1", Role: models.RoleTeacher, Active: true},
	}}
	svc := service.NewScheduleRequestService(requests, users, courseReaderStub{}, bookings, nil, nil, nil)
	return NewScheduleRequestHandler(svc)
}

func TestScheduleRequestHandlerCreateForcesOwnTeacherID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	requests := &requestRepoStub{requests: map[string]models.ScheduleRequest{}}
	h := newRequestHandlerFixture(requests, &bookingRepoStub{bookings: map[string]models.Booking{}})

	payload, _ := json.Marshal(service.CreateScheduleRequestRequest{
		TeacherID: "tch-other",
		CourseID:  "crs-1",
		Date:      testDay,
		StartTime: testDay.Add(13 * time.Hour),
		EndTime:   testDay.Add(14 * time.Hour),
		Venue:     "Lab A",
		Duration:  60,
	})
	c, w := newGinContext(http.MethodPost, "/schedule-requests", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tch-1", Role: models.RoleTeacher})

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "tch-1", requests.requests["req-new"].TeacherID)
}

func TestScheduleRequestHandlerProcessApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	requests := &requestRepoStub{requests: map[string]models.ScheduleRequest{
		"req-1": {
			ID: "req-1", TeacherID: "tch-1", CourseID: "crs-1",
			Date: testDay, StartTime: testDay.Add(13 * time.Hour), EndTime: testDay.Add(14 * time.Hour),
			Venue: "Lab A", Duration: 60, Status: models.ScheduleRequestStatusPending,
		},
	}}
	bookings := &bookingRepoStub{bookings: map[string]models.Booking{}}
	h := newRequestHandlerFixture(requests, bookings)

	payload, _ := json.Marshal(ProcessScheduleRequestPayload{Action: "approve"})
	c, w := newGinContext(http.MethodPost, "/schedule-requests/req-1/process", payload)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Process(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, bookings.created)
	require.Equal(t, models.ScheduleRequestStatusApproved, requests.requests["req-1"].Status)
}

func TestScheduleRequestHandlerProcessTerminalReturns400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	requests := &requestRepoStub{requests: map[string]models.ScheduleRequest{
		"req-1": {ID: "req-1", Status: models.ScheduleRequestStatusApproved},
	}}
	h := newRequestHandlerFixture(requests, &bookingRepoStub{bookings: map[string]models.Booking{}})

	payload, _ := json.Marshal(ProcessScheduleRequestPayload{Action: "approve"})
	c, w := newGinContext(http.MethodPost, "/schedule-requests/req-1/process", payload)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Process(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
