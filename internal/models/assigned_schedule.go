package models

import "time"

// AssignedSchedule links a booking to a teacher acting as lead or examiner.
// Rows are owned by the booking and removed with it.
type AssignedSchedule struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"schedule_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
