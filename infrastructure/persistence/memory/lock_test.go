package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireAndRelease(t *testing.T) {
	lock := NewLock(time.Minute)
	ctx := context.Background()

	release, acquired, err := lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	require.True(t, acquired)

	// Second holder is refused while the first one is live.
	_, acquired, err = lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, release(ctx))

	_, acquired, err = lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLockKeysAreIndependent(t *testing.T) {
	lock := NewLock(time.Minute)
	ctx := context.Background()

	_, acquired, err := lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = lock.Acquire(ctx, "canvas-relation-sync:c2")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	lock := NewLock(10 * time.Millisecond)
	ctx := context.Background()

	_, acquired, err := lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	_, acquired, err = lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	assert.True(t, acquired, "expired lock should be stealable")
}

func TestStaleReleaseDoesNotFreeNewHolder(t *testing.T) {
	lock := NewLock(10 * time.Millisecond)
	ctx := context.Background()

	staleRelease, acquired, err := lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	_, acquired, err = lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	require.True(t, acquired)

	// The expired holder's release must not evict the new holder.
	require.NoError(t, staleRelease(ctx))

	_, acquired, err = lock.Acquire(ctx, "canvas-relation-sync:c1")
	require.NoError(t, err)
	assert.False(t, acquired)
}
