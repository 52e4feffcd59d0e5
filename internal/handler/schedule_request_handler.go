package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/middleware"
	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/internal/service"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
	"github.com/edupanel/scheduling-api/pkg/response"
)

// ScheduleRequestHandler exposes the request-approval workflow endpoints.
type ScheduleRequestHandler struct {
	requests *service.ScheduleRequestService
}

// NewScheduleRequestHandler constructs handler.
func NewScheduleRequestHandler(requests *service.ScheduleRequestService) *ScheduleRequestHandler {
	return &ScheduleRequestHandler{requests: requests}
}

// Create godoc
// @Summary Submit a schedule request
// @Tags ScheduleRequests
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /schedule-requests [post]
func (h *ScheduleRequestHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// Teachers may only submit requests for themselves.
	if claims, ok := middleware.CurrentClaims(c); ok && claims.Role == models.RoleTeacher {
		req.TeacherID = claims.UserID
	}

	request, err := h.requests.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListPending godoc
// @Summary List pending schedule requests
// @Tags ScheduleRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule-requests/pending [get]
func (h *ScheduleRequestHandler) ListPending(c *gin.Context) {
	requests, err := h.requests.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ProcessScheduleRequestPayload carries the review decision.
type ProcessScheduleRequestPayload struct {
	Action string `json:"action" binding:"required"`
}

// Process godoc
// @Summary Approve or reject a pending schedule request
// @Tags ScheduleRequests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body ProcessScheduleRequestPayload true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule-requests/{id}/process [post]
func (h *ScheduleRequestHandler) Process(c *gin.Context) {
	var payload ProcessScheduleRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requests.Process(c.Request.Context(), c.Param("id"), payload.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
