package models

import "time"

// NotificationAudience defines who a notification targets.
type NotificationAudience string

const (
	NotificationAudienceAll     NotificationAudience = "ALL"
	NotificationAudienceTeacher NotificationAudience = "TEACHER"
	NotificationAudienceStudent NotificationAudience = "STUDENT"
)

// Notification is a persisted human-readable event description.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Audience  NotificationAudience `db:"audience" json:"audience"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
