package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/service"
	"github.com/edupanel/scheduling-api/pkg/response"
)

// ReportHandler exposes schedule report downloads.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// BookingsCSV godoc
// @Summary Download the filtered schedule as CSV
// @Tags Reports
// @Produce text/csv
// @Param course query string false "Filter by course name"
// @Param venue query string false "Filter by venue"
// @Param teacherId query string false "Filter by teacher"
// @Param dateFrom query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param dateTo query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Success 200 {string} string "CSV content"
// @Router /reports/bookings.csv [get]
func (h *ReportHandler) BookingsCSV(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.reports.ExportBookingsCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("schedule-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "text/csv", out)
}

// BookingsPDF godoc
// @Summary Download the filtered schedule as PDF
// @Tags Reports
// @Produce application/pdf
// @Param course query string false "Filter by course name"
// @Param venue query string false "Filter by venue"
// @Param teacherId query string false "Filter by teacher"
// @Param dateFrom query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param dateTo query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Success 200 {string} string "PDF content"
// @Router /reports/bookings.pdf [get]
func (h *ReportHandler) BookingsPDF(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.reports.ExportBookingsPDF(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("schedule-%s.pdf", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "application/pdf", out)
}
