package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/infrastructure/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

type countingHandler struct {
	mu    sync.Mutex
	calls int
	errs  int
}

func (h *countingHandler) handle(failFirst int) messaging.Handler {
	return func(ctx context.Context, payload json.RawMessage) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.calls++
		if h.calls <= failFirst {
			h.errs++
			return errors.New("transient")
		}
		return nil
	}
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestQueueDeliversAfterDelay(t *testing.T) {
	registry := messaging.NewRegistry()
	handler := &countingHandler{}
	registry.Register("verifyNodeAddition", handler.handle(0))

	queue := NewQueue(registry, zap.NewNop())
	defer queue.Close()

	err := queue.Enqueue(context.Background(), "verifyNodeAddition", map[string]string{"canvasId": "c1"}, ports.EnqueueOptions{
		Delay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	queue.Drain()
	assert.Equal(t, 1, handler.count())
}

func TestQueueCollapsesDuplicateJobIDs(t *testing.T) {
	registry := messaging.NewRegistry()
	handler := &countingHandler{}
	registry.Register("postDeleteCanvas", handler.handle(0))

	queue := NewQueue(registry, zap.NewNop())
	defer queue.Close()

	opts := ports.EnqueueOptions{JobID: "canvas-cleanup-c1", Delay: 20 * time.Millisecond}
	require.NoError(t, queue.Enqueue(context.Background(), "postDeleteCanvas", nil, opts))
	require.NoError(t, queue.Enqueue(context.Background(), "postDeleteCanvas", nil, opts))

	queue.Drain()
	assert.Equal(t, 1, handler.count())
}

func TestQueueRetriesUntilMaxAttempts(t *testing.T) {
	registry := messaging.NewRegistry()
	handler := &countingHandler{}
	registry.Register("postDeleteCanvas", handler.handle(10))

	queue := NewQueue(registry, zap.NewNop())
	defer queue.Close()

	err := queue.Enqueue(context.Background(), "postDeleteCanvas", nil, ports.EnqueueOptions{
		MaxAttempts: 3,
		Backoff:     &ports.Backoff{Type: ports.BackoffFixed, Delay: time.Millisecond},
	})
	require.NoError(t, err)

	queue.Drain()
	assert.Equal(t, 3, handler.count())
}

func TestQueueRecoversMidRetry(t *testing.T) {
	registry := messaging.NewRegistry()
	handler := &countingHandler{}
	registry.Register("postDeleteCanvas", handler.handle(1))

	queue := NewQueue(registry, zap.NewNop())
	defer queue.Close()

	err := queue.Enqueue(context.Background(), "postDeleteCanvas", nil, ports.EnqueueOptions{
		MaxAttempts: 3,
		Backoff:     &ports.Backoff{Type: ports.BackoffFixed, Delay: time.Millisecond},
	})
	require.NoError(t, err)

	queue.Drain()
	assert.Equal(t, 2, handler.count())
}

func TestQueueCloseDropsUndelivered(t *testing.T) {
	registry := messaging.NewRegistry()
	handler := &countingHandler{}
	registry.Register("verifyNodeAddition", handler.handle(0))

	queue := NewQueue(registry, zap.NewNop())

	err := queue.Enqueue(context.Background(), "verifyNodeAddition", nil, ports.EnqueueOptions{
		Delay: time.Hour,
	})
	require.NoError(t, err)

	queue.Close()
	queue.Drain()
	assert.Equal(t, 0, handler.count())
}
