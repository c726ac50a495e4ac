package ports

import "context"

// ReleaseFunc releases a previously acquired lock. Safe to call once;
// callers invoke it in a deferred block so release happens on every exit
// path.
type ReleaseFunc func(ctx context.Context) error

// DistributedLock provides non-blocking mutual exclusion across processes.
// Acquire returns acquired=false without error when the lock is already
// held; contention is an expected condition for collapsing operations, not
// a failure. Locks carry a bounded TTL so a crashed holder cannot wedge the
// key forever.
type DistributedLock interface {
	Acquire(ctx context.Context, key string) (release ReleaseFunc, acquired bool, err error)
}
