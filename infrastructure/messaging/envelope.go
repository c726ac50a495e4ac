package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"canvas-backend/application/ports"
)

// Envelope is the wire form of a queued job. The queue carries envelopes,
// not raw payloads, so redelivery metadata survives requeues.
type Envelope struct {
	JobName     string          `json:"jobName"`
	JobID       string          `json:"jobId,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts,omitempty"`
	Backoff     *BackoffSpec    `json:"backoff,omitempty"`
}

// BackoffSpec is the serializable form of ports.Backoff
type BackoffSpec struct {
	Type    ports.BackoffType `json:"type"`
	DelayMS int64             `json:"delayMs"`
}

// NewEnvelope wraps a payload for first delivery
func NewEnvelope(jobName string, payload any, opts ports.EnqueueOptions) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	env := Envelope{
		JobName:     jobName,
		JobID:       opts.JobID,
		Payload:     raw,
		Attempt:     1,
		MaxAttempts: opts.MaxAttempts,
	}
	if opts.Backoff != nil {
		env.Backoff = &BackoffSpec{
			Type:    opts.Backoff.Type,
			DelayMS: opts.Backoff.Delay.Milliseconds(),
		}
	}
	return env, nil
}

// RetryDelay computes the redelivery delay for the envelope's current
// attempt. Exponential doubles per attempt; fixed repeats the base delay.
func (e Envelope) RetryDelay() time.Duration {
	if e.Backoff == nil {
		return 0
	}
	base := time.Duration(e.Backoff.DelayMS) * time.Millisecond
	if e.Backoff.Type == ports.BackoffExponential {
		d := base
		for i := 1; i < e.Attempt; i++ {
			d *= 2
		}
		return d
	}
	return base
}

// Handler consumes one job payload
type Handler func(ctx context.Context, payload json.RawMessage) error

// Registry maps job names to handlers. Registration happens at startup;
// dispatch is read-only after that.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job name
func (r *Registry) Register(jobName string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobName] = handler
}

// Dispatch routes the envelope to its handler
func (r *Registry) Dispatch(ctx context.Context, env Envelope) error {
	r.mu.RLock()
	handler, ok := r.handlers[env.JobName]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for job %q", env.JobName)
	}
	return handler(ctx, env.Payload)
}
