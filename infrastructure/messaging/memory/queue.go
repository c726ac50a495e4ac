package memory

import (
	"context"
	"sync"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/infrastructure/messaging"

	"go.uber.org/zap"
)

// Queue is an in-process task queue for development and tests. Delivery
// runs on timers inside the process; the job id dedupe matches the FIFO
// behavior of the SQS adapter while a job is still pending.
type Queue struct {
	registry *messaging.Registry
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
	timers  []*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewQueue creates an in-memory queue dispatching to the registry
func NewQueue(registry *messaging.Registry, logger *zap.Logger) *Queue {
	return &Queue{
		registry: registry,
		logger:   logger,
		pending:  make(map[string]bool),
	}
}

var _ ports.TaskQueue = (*Queue)(nil)

// Enqueue schedules the job after its delay. Duplicate job ids collapse
// while the first delivery is still pending.
func (q *Queue) Enqueue(ctx context.Context, jobName string, payload any, opts ports.EnqueueOptions) error {
	env, err := messaging.NewEnvelope(jobName, payload, opts)
	if err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	if env.JobID != "" {
		if q.pending[env.JobID] {
			q.mu.Unlock()
			q.logger.Debug("Collapsed duplicate job",
				zap.String("jobName", jobName),
				zap.String("jobId", env.JobID),
			)
			return nil
		}
		q.pending[env.JobID] = true
	}
	q.mu.Unlock()

	q.schedule(env, opts.Delay)
	return nil
}

func (q *Queue) schedule(env messaging.Envelope, delay time.Duration) {
	q.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer q.wg.Done()
		q.deliver(env)
	})

	q.mu.Lock()
	q.timers = append(q.timers, timer)
	q.mu.Unlock()
}

func (q *Queue) deliver(env messaging.Envelope) {
	if env.JobID != "" {
		q.mu.Lock()
		delete(q.pending, env.JobID)
		q.mu.Unlock()
	}

	err := q.registry.Dispatch(context.Background(), env)
	if err == nil {
		return
	}

	q.logger.Warn("Job handler failed",
		zap.String("jobName", env.JobName),
		zap.Int("attempt", env.Attempt),
		zap.Error(err),
	)

	if env.MaxAttempts > 0 && env.Attempt < env.MaxAttempts {
		next := env
		next.Attempt = env.Attempt + 1
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if !closed {
			q.schedule(next, env.RetryDelay())
		}
		return
	}

	q.logger.Error("Job abandoned",
		zap.String("jobName", env.JobName),
		zap.Int("attempt", env.Attempt),
		zap.Error(err),
	)
}

// Close stops accepting jobs and cancels undelivered timers
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	timers := q.timers
	q.timers = nil
	q.mu.Unlock()

	for _, t := range timers {
		if t.Stop() {
			q.wg.Done()
		}
	}
}

// Drain blocks until every scheduled delivery has run
func (q *Queue) Drain() {
	q.wg.Wait()
}
