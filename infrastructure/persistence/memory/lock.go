package memory

import (
	"context"
	"sync"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/valueobjects"
)

// Lock is an in-process ports.DistributedLock. Single-process only, but it
// honors the same expiry semantics as the DynamoDB implementation so dev
// and prod behave alike.
type Lock struct {
	ttl  time.Duration
	mu   sync.Mutex
	held map[string]lockEntry
}

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

// NewLock creates an in-memory lock with the given TTL
func NewLock(ttl time.Duration) *Lock {
	return &Lock{ttl: ttl, held: make(map[string]lockEntry)}
}

var _ ports.DistributedLock = (*Lock)(nil)

// Acquire takes the lock unless an unexpired holder exists
func (l *Lock) Acquire(ctx context.Context, key string) (ports.ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.held[key]; ok && entry.expiresAt.After(now) {
		return nil, false, nil
	}

	owner := valueobjects.NewLockOwnerID()
	l.held[key] = lockEntry{owner: owner, expiresAt: now.Add(l.ttl)}

	release := func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if entry, ok := l.held[key]; ok && entry.owner == owner {
			delete(l.held, key)
		}
		return nil
	}
	return release, true, nil
}
