package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/service"
	"github.com/edupanel/scheduling-api/pkg/response"
)

// ReassignmentHandler exposes teacher reassignment endpoints.
type ReassignmentHandler struct {
	reassignments *service.ReassignmentService
	metrics       *service.MetricsService
}

// NewReassignmentHandler constructs handler.
func NewReassignmentHandler(reassignments *service.ReassignmentService, metrics *service.MetricsService) *ReassignmentHandler {
	return &ReassignmentHandler{reassignments: reassignments, metrics: metrics}
}

// Reassign godoc
// @Summary Reassign the schedule's teacher to a qualified substitute
// @Tags Reassignments
// @Produce json
// @Param id path string true "Schedule id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/reassign [post]
func (h *ReassignmentHandler) Reassign(c *gin.Context) {
	result, err := h.reassignments.Reassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordReassignment(result.Action)
	response.JSON(c, http.StatusOK, result, nil)
}

// CancelAndReassign godoc
// @Summary Hand the booking to a substitute or cancel it outright
// @Tags Reassignments
// @Produce json
// @Param id path string true "Booking id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/cancel-reassign [post]
func (h *ReassignmentHandler) CancelAndReassign(c *gin.Context) {
	result, err := h.reassignments.CancelAndReassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordReassignment(result.Action)
	response.JSON(c, http.StatusOK, result, nil)
}
