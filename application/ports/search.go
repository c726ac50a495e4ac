package ports

import (
	"context"
	"time"
)

// SearchDocument is the slice of a canvas record mirrored into the
// full-text index.
type SearchDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UID       string    `json:"uid"`
	ProjectID string    `json:"projectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FulltextIndex is a best-effort sink keeping search in sync with canvas
// records. Callers fire and forget: index failures are logged, never
// propagated into the calling operation.
type FulltextIndex interface {
	UpsertDocument(ctx context.Context, uid, kind string, doc SearchDocument) error
	DeleteDocument(ctx context.Context, uid, kind, id string) error
}
