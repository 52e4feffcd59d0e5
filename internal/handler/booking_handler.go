package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/internal/service"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
	"github.com/edupanel/scheduling-api/pkg/response"
)

// BookingHandler exposes booking endpoints.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param course query string false "Filter by course name"
// @Param venue query string false "Filter by venue"
// @Param teacherId query string false "Filter by teacher"
// @Param dateFrom query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param dateTo query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param sortBy query string false "Sort column (date, start_time, venue, created_at)"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get booking by id
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking id"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Create godoc
// @Summary Create booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Update godoc
// @Summary Update booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking id"
// @Param payload body service.UpdateBookingRequest true "Partial booking payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	var req service.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Delete godoc
// @Summary Delete booking
// @Tags Bookings
// @Param id path string true "Booking id"
// @Success 204
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	if err := h.bookings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignExaminerRequest is the payload for picking an examiner.
type AssignExaminerRequest struct {
	CourseName         string   `json:"course_name" binding:"required"`
	ExcludedTeacherIDs []string `json:"excluded_teacher_ids"`
}

// AssignExaminer godoc
// @Summary Assign a random eligible examiner to a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking id"
// @Param payload body AssignExaminerRequest true "Examiner criteria"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/examiner [post]
func (h *BookingHandler) AssignExaminer(c *gin.Context) {
	var req AssignExaminerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	examiner, err := h.bookings.AssignExaminer(c.Request.Context(), c.Param("id"), req.CourseName, req.ExcludedTeacherIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, examiner, nil)
}

func bookingFilterFromQuery(c *gin.Context) (models.BookingFilter, error) {
	filter := models.BookingFilter{
		CourseName: c.Query("course"),
		Venue:      c.Query("venue"),
		TeacherID:  c.Query("teacherId"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if raw := c.Query("dateFrom"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "dateFrom must be YYYY-MM-DD")
		}
		filter.DateFrom = &parsed
	}
	if raw := c.Query("dateTo"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "dateTo must be YYYY-MM-DD")
		}
		filter.DateTo = &parsed
	}
	return filter, nil
}
