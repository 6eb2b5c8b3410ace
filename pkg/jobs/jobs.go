// Package jobs runs background work units with bounded retry. Tool and
// pipeline invocations are dispatched here so a stalled backend call blocks
// only its worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one retryable unit of background work. Jobs must be idempotent-safe
// to retry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// PermanentError marks a failure as caller-fixable. The queue fails the job
// immediately instead of retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the queue will not retry it. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Queue is an in-process worker pool. Failed jobs are retried with
// exponentially longer waits up to MaxAttempts.
type Queue struct {
	workers     int
	maxAttempts int
	baseDelay   time.Duration

	jobs chan Job
	wg   sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
}

// Option configures a Queue.
type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.baseDelay = d
		}
	}
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		workers:     2,
		maxAttempts: 3,
		baseDelay:   time.Second,
		jobs:        make(chan Job, 64),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the workers. Work stops when ctx is cancelled or Close is
// called.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx)
		}
	})
}

// Enqueue submits a job. It blocks when the queue is full.
func (q *Queue) Enqueue(job Job) {
	q.jobs <- job
}

// Close stops accepting jobs and waits for in-flight work to finish.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.runWithRetry(ctx, job)
		}
	}
}

func (q *Queue) runWithRetry(ctx context.Context, job Job) {
	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		err = job.Run(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("job succeeded after retry", "job", job.Name(), "attempt", attempt)
			}
			return
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			slog.Error("job failed permanently", "job", job.Name(), "attempt", attempt, "error", err)
			return
		}

		if attempt == q.maxAttempts {
			break
		}

		delay := q.baseDelay * (1 << (attempt - 1))
		slog.Warn("job failed, retrying",
			"job", job.Name(), "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	slog.Error("job failed permanently",
		"job", job.Name(), "attempts", q.maxAttempts, "error", err)
}

// RetryPolicy describes a queue's retry behavior for display and logging.
func (q *Queue) RetryPolicy() string {
	return fmt.Sprintf("%d attempts, exponential backoff from %s", q.maxAttempts, q.baseDelay)
}
