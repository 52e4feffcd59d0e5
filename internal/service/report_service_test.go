package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/models"
)

type mockReportLister struct {
	bookings []models.Booking
}

func (m *mockReportLister) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	return m.bookings, len(m.bookings), nil
}

func TestExportBookingsCSV(t *testing.T) {
	lister := &mockReportLister{bookings: []models.Booking{{
		ID: "bk-1", Date: day, StartTime: at(9, 0), EndTime: at(10, 0),
		Venue: "Lab A", Duration: 60, CourseID: "crs-1", TeacherID: "tch-1",
	}}}
	svc := NewReportService(lister, nil)

	out, err := svc.ExportBookingsCSV(context.Background(), models.BookingFilter{})
	require.NoError(t, err)

	content := string(out)
	require.True(t, strings.HasPrefix(content, "Date,Start,End,Venue"))
	require.Contains(t, content, "2026-03-09,09:00,10:00,Lab A,60,crs-1,tch-1")
}

func TestExportBookingsCSVEmptyResult(t *testing.T) {
	svc := NewReportService(&mockReportLister{}, nil)

	out, err := svc.ExportBookingsCSV(context.Background(), models.BookingFilter{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "no bookings matched,"))
}

func TestExportBookingsPDF(t *testing.T) {
	lister := &mockReportLister{bookings: []models.Booking{{
		ID: "bk-1", Date: day, StartTime: at(9, 0), EndTime: at(10, 0), Venue: "Lab A",
	}}}
	svc := NewReportService(lister, nil)

	out, err := svc.ExportBookingsPDF(context.Background(), models.BookingFilter{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "%PDF"))
}
