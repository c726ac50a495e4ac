package valueobjects

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier generation for the canvas domain. Identifiers are opaque,
// prefixed UUIDs; the prefix makes log lines and storage keys self-describing.

// NewCanvasID generates a new canvas identifier
func NewCanvasID() string {
	return "canvas-" + uuid.New().String()
}

// NewNodeID generates a new node identifier, locally unique within a document
func NewNodeID() string {
	return "node-" + uuid.New().String()
}

// NewEdgeID generates a new edge identifier
func NewEdgeID() string {
	return "edge-" + uuid.New().String()
}

// NewLockOwnerID generates an owner identifier for distributed lock records
func NewLockOwnerID() string {
	return "owner-" + uuid.New().String()
}

// IsCanvasID reports whether the string looks like a generated canvas ID
func IsCanvasID(id string) bool {
	return strings.HasPrefix(id, "canvas-")
}

// StateStorageKey derives the blob-store key holding a canvas's document state
func StateStorageKey(canvasID string) string {
	return "state/" + canvasID
}
