package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
	"github.com/edupanel/scheduling-api/pkg/export"
)

type reportBookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

// ReportService renders booking schedules as downloadable files.
type ReportService struct {
	bookings reportBookingLister
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewReportService instantiates ReportService.
func NewReportService(bookings reportBookingLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		bookings: bookings,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// ExportBookingsCSV renders the filtered schedule as CSV.
func (s *ReportService) ExportBookingsCSV(ctx context.Context, filter models.BookingFilter) ([]byte, error) {
	dataset, err := s.buildDataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	out, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
	}
	return out, nil
}

// ExportBookingsPDF renders the filtered schedule as a PDF table.
func (s *ReportService) ExportBookingsPDF(ctx context.Context, filter models.BookingFilter) ([]byte, error) {
	dataset, err := s.buildDataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	out, err := s.pdf.Render(dataset, "Class Schedule")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
	}
	return out, nil
}

func (s *ReportService) buildDataset(ctx context.Context, filter models.BookingFilter) (export.Dataset, error) {
	// Reports cover the whole filtered range, not one page.
	filter.Page = 1
	filter.PageSize = 1000

	bookings, _, err := s.bookings.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings for report")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Start", "End", "Venue", "Duration (min)", "Course ID", "Teacher ID", "Description"},
		Rows:    make([]map[string]string, 0, len(bookings)),
	}
	for _, b := range bookings {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":           b.Date.Format("2006-01-02"),
			"Start":          b.StartTime.Format("15:04"),
			"End":            b.EndTime.Format("15:04"),
			"Venue":          b.Venue,
			"Duration (min)": strconv.Itoa(b.Duration),
			"Course ID":      b.CourseID,
			"Teacher ID":     b.TeacherID,
			"Description":    b.Description,
		})
	}
	s.logger.Debug("report dataset built", zap.Int("rows", len(dataset.Rows)))
	if len(dataset.Rows) == 0 {
		dataset.Rows = append(dataset.Rows, map[string]string{"Date": "no bookings matched"})
	}
	return dataset, nil
}
