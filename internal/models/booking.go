package models

import "time"

// TimeRange is a half-open interval [Start, End) on a single calendar date.
// The owning record carries the date; Start and End only decide time-of-day
// overlap, so callers must compare ranges for the same date.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two ranges intersect. Touching endpoints
// (a.End == b.Start) do not count as overlap.
func (a TimeRange) Overlaps(b TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Booking represents a scheduled class occurrence.
type Booking struct {
	ID          string    `db:"id" json:"id"`
	Date        time.Time `db:"date" json:"date"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	Venue       string    `db:"venue" json:"venue"`
	Duration    int       `db:"duration_minutes" json:"duration_minutes"`
	CourseID    string    `db:"course_id" json:"course_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Range returns the booking's time-of-day interval.
func (b Booking) Range() TimeRange {
	return TimeRange{Start: b.StartTime, End: b.EndTime}
}

// BookingDetail is a booking together with its teacher assignment rows.
type BookingDetail struct {
	Booking
	Assignments []AssignedSchedule `json:"assignments"`
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	CourseName string
	Venue      string
	TeacherID  string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Conflict dimensions reported alongside booking conflicts.
const (
	ConflictDimensionVenue   = "VENUE"
	ConflictDimensionTeacher = "TEACHER"
)

// BookingConflict describes an existing booking that blocks a mutation.
type BookingConflict struct {
	BookingID string    `json:"booking_id"`
	Date      time.Time `json:"date"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Venue     string    `json:"venue"`
	CourseID  string    `json:"course_id"`
	TeacherID string    `json:"teacher_id"`
	Dimension string    `json:"dimension"`
}

// BookingConflictError is returned when a booking collides with an existing one.
type BookingConflictError struct {
	Dimension string          `json:"dimension"`
	Message   string          `json:"message"`
	Conflict  BookingConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Reassignment actions reported by the cancel-and-reassign operation.
const (
	ReassignActionReassigned = "reassigned"
	ReassignActionDeleted    = "deleted"
)

// ReassignResult reports the outcome of a teacher reassignment.
type ReassignResult struct {
	Action       string   `json:"action"`
	Booking      *Booking `json:"booking,omitempty"`
	OldTeacherID string   `json:"old_teacher_id"`
	NewTeacherID string   `json:"new_teacher_id,omitempty"`
}
