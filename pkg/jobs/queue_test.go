package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 1, BufferSize: 16})
	q.Start(context.Background())

	ids := []string{"j1", "j2", "j3", "j4", "j5"}
	for _, id := range ids {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "test"}))
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		require.True(t, seen[id], "job %s was dropped at shutdown", id)
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "j1"}))
}
