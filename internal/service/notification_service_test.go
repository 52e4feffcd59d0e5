package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/pkg/jobs"
)

type mockNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepo) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.created) > limit {
		return m.created[:limit], nil
	}
	return m.created, nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func TestNotifyPersistsAsynchronously(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, jobs.QueueConfig{Workers: 1, BufferSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Notify(ctx, "New class scheduled", "Mathematics at Lab A", models.NotificationAudienceAll)

	require.Eventually(t, func() bool {
		return repo.count() == 1
	}, time.Second, 10*time.Millisecond)

	notifications, err := svc.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "New class scheduled", notifications[0].Title)
	require.Equal(t, models.NotificationAudienceAll, notifications[0].Audience)
	require.NotEmpty(t, notifications[0].ID)
}

func TestNotifyBeforeStartDoesNotPanic(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, jobs.QueueConfig{})

	// Enqueue fails because the queue never started; the error is swallowed.
	svc.Notify(context.Background(), "dropped", "never persisted", models.NotificationAudienceAll)
	require.Zero(t, repo.count())
}

func TestListClampsLimit(t *testing.T) {
	repo := &mockNotificationRepo{}
	for i := 0; i < 30; i++ {
		_ = repo.Create(context.Background(), &models.Notification{Title: "n"})
	}
	svc := NewNotificationService(repo, nil, jobs.QueueConfig{})

	notifications, err := svc.List(context.Background(), -5)
	require.NoError(t, err)
	require.Len(t, notifications, 20)
}
