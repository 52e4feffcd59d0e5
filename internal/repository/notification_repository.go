package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/scheduling-api/internal/models"
)

// NotificationRepository provides persistence for notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a new notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, title, message, audience, created_at) VALUES (:id, :title, :message, :audience, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListRecent returns the latest notifications, newest first.
func (r *NotificationRepository) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT id, title, message, audience, created_at FROM notifications ORDER BY created_at DESC LIMIT %d", limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}
