package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

type reassignBookingRepo interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	ReassignTeacher(ctx context.Context, bookingID, newTeacherID string) error
	DeleteCascade(ctx context.Context, id string) error
}

type reassignAssignmentRepo interface {
	FindFirstBySchedule(ctx context.Context, scheduleID string) (*models.AssignedSchedule, error)
	UpdateTeacherForSchedule(ctx context.Context, scheduleID, userID string) error
}

type teacherCourseLister interface {
	ListCourseIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
}

type substituteFinder interface {
	FindSubstitute(ctx context.Context, excludeTeacherID string, courseIDs []string, date time.Time, start, end time.Time) (*models.User, error)
}

// ReassignmentService replaces the teacher attached to a schedule when the
// incumbent becomes unavailable. A substitute must teach at least one of the
// outgoing teacher's courses and be free in the schedule's time slot.
type ReassignmentService struct {
	bookings    reassignBookingRepo
	assignments reassignAssignmentRepo
	courses     teacherCourseLister
	users       substituteFinder
	notifier    Notifier
	logger      *zap.Logger
}

// NewReassignmentService instantiates ReassignmentService.
func NewReassignmentService(
	bookings reassignBookingRepo,
	assignments reassignAssignmentRepo,
	courses teacherCourseLister,
	users substituteFinder,
	notifier Notifier,
	logger *zap.Logger,
) *ReassignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReassignmentService{
		bookings:    bookings,
		assignments: assignments,
		courses:     courses,
		users:       users,
		notifier:    notifier,
		logger:      logger,
	}
}

// Reassign finds a qualified, free substitute for the schedule's currently
// assigned teacher and repoints the assignment. The booking row itself is not
// touched. When no substitute exists the schedule is left unchanged and a
// no-available-teacher error is returned.
func (s *ReassignmentService) Reassign(ctx context.Context, scheduleID string) (*models.ReassignResult, error) {
	booking, err := s.bookings.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	current, err := s.assignments.FindFirstBySchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher assigned to this schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignment")
	}

	substitute, err := s.findSubstitute(ctx, current.UserID, booking)
	if err != nil {
		return nil, err
	}
	if substitute == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "no available teacher found for this subject")
	}

	if err := s.assignments.UpdateTeacherForSchedule(ctx, scheduleID, substitute.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign schedule")
	}

	s.notifyReassigned(ctx, booking, current.UserID, substitute)
	return &models.ReassignResult{
		Action:       models.ReassignActionReassigned,
		Booking:      booking,
		OldTeacherID: current.UserID,
		NewTeacherID: substitute.ID,
	}, nil
}

// CancelAndReassign tries to hand the booking over to a substitute for its
// lead teacher. If one exists the booking and its assignments are repointed
// and the change is announced. If none exists the booking is cancelled
// outright, assignments included, without a notification.
func (s *ReassignmentService) CancelAndReassign(ctx context.Context, bookingID string) (*models.ReassignResult, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	substitute, err := s.findSubstitute(ctx, booking.TeacherID, booking)
	if err != nil {
		return nil, err
	}

	if substitute == nil {
		if err := s.bookings.DeleteCascade(ctx, bookingID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
		}
		s.logger.Info("booking cancelled, no substitute available",
			zap.String("booking_id", bookingID),
			zap.String("teacher_id", booking.TeacherID))
		return &models.ReassignResult{
			Action:       models.ReassignActionDeleted,
			OldTeacherID: booking.TeacherID,
		}, nil
	}

	if err := s.bookings.ReassignTeacher(ctx, bookingID, substitute.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign booking")
	}

	s.notifyReassigned(ctx, booking, booking.TeacherID, substitute)
	reassigned := *booking
	reassigned.TeacherID = substitute.ID
	return &models.ReassignResult{
		Action:       models.ReassignActionReassigned,
		Booking:      &reassigned,
		OldTeacherID: booking.TeacherID,
		NewTeacherID: substitute.ID,
	}, nil
}

// findSubstitute returns a teacher qualified for one of the outgoing
// teacher's courses who is free during the booking's slot, or nil when no
// such teacher exists.
func (s *ReassignmentService) findSubstitute(ctx context.Context, outgoingTeacherID string, booking *models.Booking) (*models.User, error) {
	courseIDs, err := s.courses.ListCourseIDsByTeacher(ctx, outgoingTeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher qualifications")
	}
	if len(courseIDs) == 0 {
		return nil, nil
	}

	substitute, err := s.users.FindSubstitute(ctx, outgoingTeacherID, courseIDs, booking.Date, booking.StartTime, booking.EndTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search for substitute")
	}
	return substitute, nil
}

func (s *ReassignmentService) notifyReassigned(ctx context.Context, booking *models.Booking, oldTeacherID string, substitute *models.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, "Schedule updated",
		fmt.Sprintf("%s takes over from teacher %s at %s on %s, %s-%s", substitute.FullName, oldTeacherID,
			booking.Venue, booking.Date.Format("2006-01-02"),
			booking.StartTime.Format("15:04"), booking.EndTime.Format("15:04")),
		models.NotificationAudienceAll)
}
