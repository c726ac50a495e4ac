package ports

import (
	"context"
	"time"
)

// BackoffType names a queue-managed retry backoff strategy
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

// Backoff configures queue-level retries for jobs whose handler errors
// should be redelivered.
type Backoff struct {
	Type  BackoffType
	Delay time.Duration
}

// EnqueueOptions control delivery of a single job
type EnqueueOptions struct {
	// Delay defers first delivery.
	Delay time.Duration

	// JobID enables de-duplication: two enqueues with the same JobID while
	// one is pending collapse to a single delivery.
	JobID string

	// MaxAttempts caps queue-level redelivery of a failing handler.
	// Zero means deliver once, no queue retry.
	MaxAttempts int

	Backoff *Backoff
}

// TaskQueue schedules background jobs with at-least-once delivery. Payloads
// are JSON-serialized by the adapter; handlers are registered on the worker
// side by job name.
type TaskQueue interface {
	Enqueue(ctx context.Context, jobName string, payload any, opts EnqueueOptions) error
}
