package entities

import (
	"time"
)

// CanvasStatus tracks the lifecycle of a canvas record
type CanvasStatus string

const (
	// CanvasStatusReady marks a canvas whose state bytes are durably saved
	CanvasStatusReady CanvasStatus = "ready"
	// CanvasStatusDuplicating marks a canvas record created ahead of its
	// state bytes during duplication. Internal only; readers must never be
	// handed a duplicating canvas as ready.
	CanvasStatusDuplicating CanvasStatus = "duplicating"
)

// Canvas is the relational record for one canvas instance. The live graph
// itself lives in the blob store under StateStorageKey; this record carries
// ownership, status and derived metadata.
type Canvas struct {
	CanvasID          string
	UID               string
	Title             string
	Status            CanvasStatus
	StateStorageKey   string
	MinimapStorageKey string
	ProjectID         string
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsDeleted reports whether the canvas has been soft-deleted
func (c *Canvas) IsDeleted() bool {
	return c.DeletedAt != nil
}

// EntityRelation is the persisted belief about which domain entities a
// canvas references, independent of the live graph. Soft-deleted, never
// physically removed.
type EntityRelation struct {
	CanvasID   string
	EntityID   string
	EntityType string
	DeletedAt  *time.Time
	CreatedAt  time.Time
}

// IsDeleted reports whether the relation has been soft-deleted
func (r *EntityRelation) IsDeleted() bool {
	return r.DeletedAt != nil
}

// DuplicateRecord is an audit row written after a successful duplication
type DuplicateRecord struct {
	UID        string
	SourceID   string
	TargetID   string
	EntityType string
	Status     string
	CreatedAt  time.Time
}
