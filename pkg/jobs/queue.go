package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes one job. A non-nil error triggers a retry until the
// queue's retry budget is spent.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour. Zero values fall back to
// modest defaults.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Queue is an in-memory job dispatcher backed by a goroutine pool.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs chan Job

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewQueue builds a queue that feeds jobs to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start spins up the workers. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.cfg.Logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.cfg.Workers)
}

const drainTimeout = 5 * time.Second

// Stop cancels the workers, waits for in-flight jobs, then drains whatever is
// still buffered so jobs accepted before Stop are not dropped. Drained jobs
// run under a bounded context and are not retried on failure.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case job := <-q.jobs:
			if err := q.handler(ctx, job); err != nil {
				q.cfg.Logger.Sugar().Errorw("job failed during drain",
					"queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
			}
		default:
			q.cfg.Logger.Sugar().Infow("queue stopped", "queue", q.name)
			return
		}
	}
}

// Enqueue submits a job, blocking while the buffer is full. It fails when the
// queue has not been started or has been stopped.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.retry(job, err)
			}
		}
	}
}

func (q *Queue) retry(job Job, cause error) {
	job.Attempt++
	log := q.cfg.Logger.Sugar()
	if job.Attempt > q.cfg.MaxRetries {
		log.Errorw("job dropped after retries",
			"queue", q.name, "job_id", job.ID, "type", job.Type, "error", cause)
		return
	}
	log.Warnw("job failed, retrying",
		"queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", cause)

	go func() {
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				log.Errorw("requeue failed", "queue", q.name, "job_id", job.ID, "error", err)
			}
		}
	}()
}
