package service

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/internal/repository"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindVenueOverlaps(ctx context.Context, date time.Time, venue string, start, end time.Time, excludeID string) ([]models.Booking, error)
	FindTeacherOverlaps(ctx context.Context, teacherID string, date time.Time, start, end time.Time, excludeID string) ([]models.Booking, error)
	CreateWithLeadAssignment(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	DeleteCascade(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type assignmentRepo interface {
	Create(ctx context.Context, assignment *models.AssignedSchedule) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.AssignedSchedule, error)
}

type examinerCandidateLister interface {
	ListExaminerCandidates(ctx context.Context, courseName string, excludedIDs []string) ([]models.User, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Notifier records a human-readable event for an audience. Implementations
// must be fire-and-forget: a failed notification never fails the mutation.
type Notifier interface {
	Notify(ctx context.Context, title, message string, audience models.NotificationAudience)
}

type bookingMetrics interface {
	RecordConflict(dimension string)
	RecordCacheLookup(hit bool)
}

const bookingCacheKeyPrefix = "bookings:list:"

// CreateBookingRequest describes payload for creating a booking.
type CreateBookingRequest struct {
	CourseID    string    `json:"course_id" validate:"required"`
	TeacherID   string    `json:"teacher_id" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Venue       string    `json:"venue" validate:"required"`
	Duration    int       `json:"duration_minutes" validate:"required,gt=0"`
	Description string    `json:"description"`
}

// UpdateBookingRequest carries a partial field set for updating a booking.
type UpdateBookingRequest struct {
	CourseID    *string    `json:"course_id"`
	TeacherID   *string    `json:"teacher_id"`
	Date        *time.Time `json:"date"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Venue       *string    `json:"venue"`
	Duration    *int       `json:"duration_minutes"`
	Description *string    `json:"description"`
}

// BookingService coordinates booking mutations and conflict detection.
type BookingService struct {
	repo        bookingRepository
	courses     courseReader
	assignments assignmentRepo
	teachers    examinerCandidateLister
	cache       listCache
	notifier    Notifier
	validator   *validator.Validate
	logger      *zap.Logger
	cacheTTL    time.Duration
	metrics     bookingMetrics

	// pick selects an index in [0,n); injectable for deterministic tests.
	pick func(n int) int
}

// NewBookingService instantiates BookingService.
func NewBookingService(
	repo bookingRepository,
	courses courseReader,
	assignments assignmentRepo,
	teachers examinerCandidateLister,
	cache listCache,
	notifier Notifier,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &BookingService{
		repo:        repo,
		courses:     courses,
		assignments: assignments,
		teachers:    teachers,
		cache:       cache,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		cacheTTL:    cacheTTL,
		pick:        rand.Intn,
	}
}

// WithPicker overrides the random candidate picker.
func (s *BookingService) WithPicker(pick func(n int) int) *BookingService {
	if pick != nil {
		s.pick = pick
	}
	return s
}

// WithMetrics attaches a recorder for conflict and cache counters.
func (s *BookingService) WithMetrics(metrics bookingMetrics) *BookingService {
	s.metrics = metrics
	return s
}

// CheckVenueConflict returns the first booking sharing date and venue whose
// interval overlaps [start,end), or nil when the slot is free.
func (s *BookingService) CheckVenueConflict(ctx context.Context, date time.Time, venue string, start, end time.Time, excludeID string) (*models.Booking, error) {
	existing, err := s.repo.FindVenueOverlaps(ctx, date, venue, start, end, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check venue conflicts")
	}
	candidate := models.TimeRange{Start: start, End: end}
	for i := range existing {
		if candidate.Overlaps(existing[i].Range()) {
			return &existing[i], nil
		}
	}
	return nil, nil
}

// CheckTeacherConflict returns the first booking on the date overlapping
// [start,end) in which the teacher participates, as lead or examiner.
func (s *BookingService) CheckTeacherConflict(ctx context.Context, teacherID string, date time.Time, start, end time.Time, excludeID string) (*models.Booking, error) {
	existing, err := s.repo.FindTeacherOverlaps(ctx, teacherID, date, start, end, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher conflicts")
	}
	candidate := models.TimeRange{Start: start, End: end}
	for i := range existing {
		if candidate.Overlaps(existing[i].Range()) {
			return &existing[i], nil
		}
	}
	return nil, nil
}

// List returns bookings with pagination metadata, serving from cache when fresh.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	type cachedList struct {
		Bookings   []models.Booking   `json:"bookings"`
		Pagination *models.Pagination `json:"pagination"`
	}

	key := bookingCacheKey(filter)
	if s.cache != nil {
		var cached cachedList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCacheLookup(true)
			return cached.Bookings, cached.Pagination, nil
		}
		s.recordCacheLookup(false)
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedList{Bookings: bookings, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache booking list", zap.Error(err))
		}
	}
	return bookings, pagination, nil
}

// Get returns a booking with its assignment rows.
func (s *BookingService) Get(ctx context.Context, id string) (*models.BookingDetail, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	assignments, err := s.assignments.ListBySchedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking assignments")
	}
	return &models.BookingDetail{Booking: *booking, Assignments: assignments}, nil
}

// Create inserts a new booking after venue and teacher conflict detection.
// The lead teacher's assignment row is written in the same transaction.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if conflict, err := s.CheckVenueConflict(ctx, req.Date, req.Venue, req.StartTime, req.EndTime, ""); err != nil {
		return nil, err
	} else if conflict != nil {
		s.recordConflict(models.ConflictDimensionVenue)
		return nil, wrapBookingConflict(models.ConflictDimensionVenue, "time slot already booked", conflict)
	}

	if conflict, err := s.CheckTeacherConflict(ctx, req.TeacherID, req.Date, req.StartTime, req.EndTime, ""); err != nil {
		return nil, err
	} else if conflict != nil {
		s.recordConflict(models.ConflictDimensionTeacher)
		return nil, wrapBookingConflict(models.ConflictDimensionTeacher, "teacher already booked", conflict)
	}

	booking := &models.Booking{
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Venue:       req.Venue,
		Duration:    req.Duration,
		CourseID:    req.CourseID,
		TeacherID:   req.TeacherID,
		Description: req.Description,
	}
	if err := s.repo.CreateWithLeadAssignment(ctx, booking); err != nil {
		switch {
		case errors.Is(err, repository.ErrVenueTaken):
			s.recordConflict(models.ConflictDimensionVenue)
		case errors.Is(err, repository.ErrTeacherBusy):
			s.recordConflict(models.ConflictDimensionTeacher)
		}
		return nil, mapBookingWriteError(err)
	}

	s.invalidateListCache(ctx)
	s.notify(ctx, "New class scheduled",
		fmt.Sprintf("%s at %s on %s, %s-%s", course.Name, booking.Venue,
			booking.Date.Format("2006-01-02"), booking.StartTime.Format("15:04"), booking.EndTime.Format("15:04")),
		models.NotificationAudienceAll)
	return booking, nil
}

// Update applies a partial field set to a booking. The venue conflict check is
// re-run, excluding the booking itself, only when date, time, or venue change.
func (s *BookingService) Update(ctx context.Context, id string, req UpdateBookingRequest) (*models.Booking, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	updated := *existing
	if req.CourseID != nil {
		updated.CourseID = *req.CourseID
	}
	if req.TeacherID != nil {
		updated.TeacherID = *req.TeacherID
	}
	if req.Date != nil {
		updated.Date = *req.Date
	}
	if req.StartTime != nil {
		updated.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		updated.EndTime = *req.EndTime
	}
	if req.Venue != nil {
		updated.Venue = *req.Venue
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duration_minutes must be positive")
		}
		updated.Duration = *req.Duration
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if !updated.EndTime.After(updated.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	slotChanged := !updated.Date.Equal(existing.Date) ||
		!updated.StartTime.Equal(existing.StartTime) ||
		!updated.EndTime.Equal(existing.EndTime) ||
		updated.Venue != existing.Venue
	if slotChanged {
		if conflict, err := s.CheckVenueConflict(ctx, updated.Date, updated.Venue, updated.StartTime, updated.EndTime, id); err != nil {
			return nil, err
		} else if conflict != nil {
			s.recordConflict(models.ConflictDimensionVenue)
			return nil, wrapBookingConflict(models.ConflictDimensionVenue, "time slot already booked", conflict)
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}

	s.invalidateListCache(ctx)
	s.notify(ctx, "Class schedule updated",
		fmt.Sprintf("Booking at %s on %s was updated", updated.Venue, updated.Date.Format("2006-01-02")),
		models.NotificationAudienceAll)
	return &updated, nil
}

// Delete removes a booking and its assignment rows.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
	s.invalidateListCache(ctx)
	return nil
}

// AssignExaminer links one randomly chosen eligible teacher to the booking as
// an examiner. Eligible teachers have previously covered a booking of the
// named course and are not in the excluded set.
func (s *BookingService) AssignExaminer(ctx context.Context, bookingID, courseName string, excludedTeacherIDs []string) (*models.User, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	candidates, err := s.teachers.ListExaminerCandidates(ctx, courseName, excludedTeacherIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list examiner candidates")
	}
	if len(candidates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no available teachers")
	}

	chosen := candidates[s.pick(len(candidates))]
	assignment := &models.AssignedSchedule{ScheduleID: booking.ID, UserID: chosen.ID}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create examiner assignment")
	}

	s.notify(ctx, "Examiner assigned",
		fmt.Sprintf("%s will examine %s at %s on %s", chosen.FullName, courseName, booking.Venue, booking.Date.Format("2006-01-02")),
		models.NotificationAudienceTeacher)
	return &chosen, nil
}

func (s *BookingService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, bookingCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate booking list cache", zap.Error(err))
	}
}

func (s *BookingService) recordConflict(dimension string) {
	if s.metrics != nil {
		s.metrics.RecordConflict(dimension)
	}
}

func (s *BookingService) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

func (s *BookingService) notify(ctx context.Context, title, message string, audience models.NotificationAudience) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, title, message, audience)
}

func bookingCacheKey(filter models.BookingFilter) string {
	raw := fmt.Sprintf("%s|%s|%s|%v|%v|%d|%d|%s|%s",
		filter.CourseName, filter.Venue, filter.TeacherID, filter.DateFrom, filter.DateTo,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
	sum := sha1.Sum([]byte(raw))
	return bookingCacheKeyPrefix + hex.EncodeToString(sum[:])
}

func wrapBookingConflict(dimension, message string, existing *models.Booking) error {
	conflict := models.BookingConflict{
		BookingID: existing.ID,
		Date:      existing.Date,
		StartTime: existing.StartTime,
		EndTime:   existing.EndTime,
		Venue:     existing.Venue,
		CourseID:  existing.CourseID,
		TeacherID: existing.TeacherID,
		Dimension: dimension,
	}
	domainErr := &models.BookingConflictError{Dimension: dimension, Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("booking conflict: %s", message))
}

func mapBookingWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrVenueTaken):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "time slot already booked")
	case errors.Is(err, repository.ErrTeacherBusy):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "teacher already booked")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
}
