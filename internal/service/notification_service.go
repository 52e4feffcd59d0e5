package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
	"github.com/edupanel/scheduling-api/pkg/jobs"
)

const notificationJobType = "notification.persist"

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
}

// NotificationService persists announcements asynchronously through an
// in-memory worker queue. Delivery failures are logged and retried by the
// queue; they never propagate to the caller.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService instantiates NotificationService and its queue.
func NewNotificationService(repo notificationRepository, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification for the given audience. Fire-and-forget: an
// enqueue failure is logged and swallowed so mutations never fail on it.
func (s *NotificationService) Notify(ctx context.Context, title, message string, audience models.NotificationAudience) {
	notification := models.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Audience:  audience,
		CreatedAt: time.Now().UTC(),
	}
	job := jobs.Job{
		ID:      notification.ID,
		Type:    notificationJobType,
		Payload: notification,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("title", title),
			zap.Error(err))
	}
}

// List returns the most recent notifications, newest first.
func (s *NotificationService) List(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	notifications, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload type", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		return fmt.Errorf("persist notification %s: %w", notification.ID, err)
	}
	return nil
}
