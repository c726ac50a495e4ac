package ports

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobStore.Get for missing keys. Absence is
// an expected condition, not a store failure.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is an opaque key-to-bytes store holding serialized document
// state. Operations may fail with transient I/O errors, which callers treat
// as retryable.
type BlobStore interface {
	// Get returns the full blob, or ErrBlobNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)

	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the blob. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
}
