package models

import "time"

// ScheduleRequestStatus captures workflow states for teacher-submitted proposals.
type ScheduleRequestStatus string

const (
	ScheduleRequestStatusPending  ScheduleRequestStatus = "PENDING"
	ScheduleRequestStatusApproved ScheduleRequestStatus = "APPROVED"
	ScheduleRequestStatusRejected ScheduleRequestStatus = "REJECTED"
)

// ScheduleRequest is a teacher-submitted booking proposal awaiting review.
type ScheduleRequest struct {
	ID          string                `db:"id" json:"id"`
	TeacherID   string                `db:"teacher_id" json:"teacher_id"`
	CourseID    string                `db:"course_id" json:"course_id"`
	Date        time.Time             `db:"date" json:"date"`
	StartTime   time.Time             `db:"start_time" json:"start_time"`
	EndTime     time.Time             `db:"end_time" json:"end_time"`
	Venue       string                `db:"venue" json:"venue"`
	Duration    int                   `db:"duration_minutes" json:"duration_minutes"`
	Description string                `db:"description" json:"description"`
	Status      ScheduleRequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time             `db:"updated_at" json:"updated_at"`
}
