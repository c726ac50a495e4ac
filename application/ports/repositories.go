package ports

import (
	"context"

	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
)

// CanvasRepository persists canvas records. Lookups return (nil, nil) when
// no live record matches; errors are reserved for store failures.
type CanvasRepository interface {
	Create(ctx context.Context, canvas *entities.Canvas) error

	// GetByID returns the canvas regardless of owner. Soft-deleted records
	// are returned only when includeDeleted is set.
	GetByID(ctx context.Context, canvasID string, includeDeleted bool) (*entities.Canvas, error)

	// GetByIDForUser returns the canvas only when owned by uid and not
	// soft-deleted.
	GetByIDForUser(ctx context.Context, canvasID, uid string) (*entities.Canvas, error)

	List(ctx context.Context, uid, projectID string, page, pageSize int) ([]*entities.Canvas, error)

	Update(ctx context.Context, canvas *entities.Canvas) error

	UpdateStatus(ctx context.Context, canvasID string, status entities.CanvasStatus) error

	SoftDelete(ctx context.Context, canvasID string) error
}

// RelationRepository persists canvas-entity relations. Writes are bulk
// operations; deletion is always soft.
type RelationRepository interface {
	// ListActive returns the non-soft-deleted relations for a canvas.
	ListActive(ctx context.Context, canvasID string) ([]*entities.EntityRelation, error)

	// ListCanvasIDsForEntities returns the distinct canvas ids holding an
	// active relation to any of the given entities.
	ListCanvasIDsForEntities(ctx context.Context, refs []document.EntityRef) ([]string, error)

	CreateMany(ctx context.Context, canvasID string, refs []document.EntityRef) error

	SoftDeleteMany(ctx context.Context, canvasID string, refs []document.EntityRef) error

	// SoftDeleteAll soft-deletes every active relation for the canvas.
	SoftDeleteAll(ctx context.Context, canvasID string) error
}

// UserRepository reads user records. Returns (nil, nil) when the user does
// not exist or is deleted.
type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*entities.User, error)
}

// DuplicateRecordRepository writes duplication audit rows
type DuplicateRecordRepository interface {
	Create(ctx context.Context, record *entities.DuplicateRecord) error
}
