package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/service"
	"github.com/edupanel/scheduling-api/pkg/response"
)

// NotificationHandler exposes notification endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs handler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List recent notifications
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max entries (default 20)"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	notifications, err := h.notifications.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}
