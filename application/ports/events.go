package ports

import (
	"context"
	"time"
)

// Canvas lifecycle event types published to the event bus
const (
	EventCanvasCreated    = "canvas.created"
	EventCanvasDeleted    = "canvas.deleted"
	EventCanvasDuplicated = "canvas.duplicated"
)

// CanvasEvent is a lifecycle notification for downstream consumers
type CanvasEvent struct {
	Type       string            `json:"type"`
	CanvasID   string            `json:"canvasId"`
	UID        string            `json:"uid"`
	OccurredAt time.Time         `json:"occurredAt"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// EventPublisher publishes lifecycle events, best-effort
type EventPublisher interface {
	Publish(ctx context.Context, event CanvasEvent) error
}
