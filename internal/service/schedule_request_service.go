package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

// Review actions accepted by Process.
const (
	RequestActionApprove = "approve"
	RequestActionReject  = "reject"
)

type scheduleRequestRepository interface {
	Create(ctx context.Context, request *models.ScheduleRequest) error
	FindByID(ctx context.Context, id string) (*models.ScheduleRequest, error)
	ListPending(ctx context.Context) ([]models.ScheduleRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.ScheduleRequestStatus) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type requestBookingRepo interface {
	FindVenueOverlaps(ctx context.Context, date time.Time, venue string, start, end time.Time, excludeID string) ([]models.Booking, error)
	CreateWithLeadAssignment(ctx context.Context, booking *models.Booking) error
}

// CreateScheduleRequestRequest describes payload for submitting a proposal.
type CreateScheduleRequestRequest struct {
	TeacherID   string    `json:"teacher_id" validate:"required"`
	CourseID    string    `json:"course_id" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Venue       string    `json:"venue" validate:"required"`
	Duration    int       `json:"duration_minutes" validate:"required,gt=0"`
	Description string    `json:"description"`
}

// ScheduleRequestService implements the request-approval workflow: teachers
// submit booking proposals and an administrator approves or rejects them.
type ScheduleRequestService struct {
	requests  scheduleRequestRepository
	users     userReader
	courses   courseReader
	bookings  requestBookingRepo
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleRequestService instantiates ScheduleRequestService.
func NewScheduleRequestService(
	requests scheduleRequestRepository,
	users userReader,
	courses courseReader,
	bookings requestBookingRepo,
	notifier Notifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRequestService{
		requests:  requests,
		users:     users,
		courses:   courses,
		bookings:  bookings,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Create persists a new proposal in PENDING state. The referenced teacher and
// course must exist, and the teacher must actually hold the teacher role.
func (s *ScheduleRequestService) Create(ctx context.Context, req CreateScheduleRequestRequest) (*models.ScheduleRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule request payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requesting user is not a teacher")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	request := &models.ScheduleRequest{
		TeacherID:   req.TeacherID,
		CourseID:    req.CourseID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Venue:       req.Venue,
		Duration:    req.Duration,
		Description: req.Description,
		Status:      models.ScheduleRequestStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule request")
	}
	return request, nil
}

// ListPending returns pending proposals, oldest first.
func (s *ScheduleRequestService) ListPending(ctx context.Context) ([]models.ScheduleRequest, error) {
	requests, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending schedule requests")
	}
	return requests, nil
}

// Process resolves a pending proposal. Rejecting marks it REJECTED. Approving
// first re-runs the venue conflict check against the live schedule, and on a
// clash returns a conflict error leaving the request PENDING so it can be
// retried after the clash clears. Otherwise the booking is materialised and
// the request becomes APPROVED. Terminal requests cannot be reprocessed.
func (s *ScheduleRequestService) Process(ctx context.Context, id, action string) (*models.ScheduleRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule request")
	}
	if request.Status != models.ScheduleRequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request already processed")
	}

	switch strings.ToLower(action) {
	case RequestActionReject:
		if err := s.markResolved(ctx, request, models.ScheduleRequestStatusRejected); err != nil {
			return nil, err
		}
		return request, nil

	case RequestActionApprove:
		overlaps, err := s.bookings.FindVenueOverlaps(ctx, request.Date, request.Venue, request.StartTime, request.EndTime, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check venue conflicts")
		}
		candidate := models.TimeRange{Start: request.StartTime, End: request.EndTime}
		for i := range overlaps {
			if candidate.Overlaps(overlaps[i].Range()) {
				return nil, wrapBookingConflict(models.ConflictDimensionVenue, "time slot already booked", &overlaps[i])
			}
		}

		booking := &models.Booking{
			Date:        request.Date,
			StartTime:   request.StartTime,
			EndTime:     request.EndTime,
			Venue:       request.Venue,
			Duration:    request.Duration,
			CourseID:    request.CourseID,
			TeacherID:   request.TeacherID,
			Description: request.Description,
		}
		if err := s.bookings.CreateWithLeadAssignment(ctx, booking); err != nil {
			return nil, mapBookingWriteError(err)
		}
		if err := s.markResolved(ctx, request, models.ScheduleRequestStatusApproved); err != nil {
			return nil, err
		}

		if s.notifier != nil {
			s.notifier.Notify(ctx, "Schedule request approved",
				fmt.Sprintf("Class at %s on %s, %s-%s has been scheduled", booking.Venue,
					booking.Date.Format("2006-01-02"), booking.StartTime.Format("15:04"), booking.EndTime.Format("15:04")),
				models.NotificationAudienceAll)
		}
		return request, nil

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported action, expected approve or reject")
	}
}

// markResolved flips the request out of PENDING. UpdateStatus only matches
// pending rows, so losing a concurrent race surfaces as already processed.
func (s *ScheduleRequestService) markResolved(ctx context.Context, request *models.ScheduleRequest, status models.ScheduleRequestStatus) error {
	if err := s.requests.UpdateStatus(ctx, request.ID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "request already processed")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule request status")
	}
	request.Status = status
	request.UpdatedAt = time.Now().UTC()
	return nil
}
