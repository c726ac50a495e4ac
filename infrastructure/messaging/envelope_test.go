package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"canvas-backend/application/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeCarriesRetryMetadata(t *testing.T) {
	env, err := NewEnvelope("verifyNodeAddition", map[string]string{"canvasId": "c1"}, ports.EnqueueOptions{
		JobID:       "verify-c1",
		MaxAttempts: 3,
		Backoff:     &ports.Backoff{Type: ports.BackoffExponential, Delay: time.Second},
	})
	require.NoError(t, err)

	assert.Equal(t, "verifyNodeAddition", env.JobName)
	assert.Equal(t, "verify-c1", env.JobID)
	assert.Equal(t, 1, env.Attempt)
	assert.Equal(t, 3, env.MaxAttempts)
	require.NotNil(t, env.Backoff)
	assert.Equal(t, int64(1000), env.Backoff.DelayMS)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "c1", payload["canvasId"])
}

func TestRetryDelayExponential(t *testing.T) {
	env := Envelope{
		Attempt: 1,
		Backoff: &BackoffSpec{Type: ports.BackoffExponential, DelayMS: 1000},
	}

	assert.Equal(t, time.Second, env.RetryDelay())

	env.Attempt = 2
	assert.Equal(t, 2*time.Second, env.RetryDelay())

	env.Attempt = 3
	assert.Equal(t, 4*time.Second, env.RetryDelay())
}

func TestRetryDelayFixed(t *testing.T) {
	env := Envelope{
		Attempt: 3,
		Backoff: &BackoffSpec{Type: ports.BackoffFixed, DelayMS: 500},
	}

	assert.Equal(t, 500*time.Millisecond, env.RetryDelay())
}

func TestRetryDelayWithoutBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), Envelope{Attempt: 2}.RetryDelay())
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry()

	var got string
	registry.Register("postDeleteCanvas", func(ctx context.Context, payload json.RawMessage) error {
		got = string(payload)
		return nil
	})

	err := registry.Dispatch(context.Background(), Envelope{
		JobName: "postDeleteCanvas",
		Payload: json.RawMessage(`{"canvasId":"c1"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"canvasId":"c1"}`, got)
}

func TestRegistryDispatchUnknownJob(t *testing.T) {
	err := NewRegistry().Dispatch(context.Background(), Envelope{JobName: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}
