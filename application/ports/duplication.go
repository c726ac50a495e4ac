package ports

import "context"

// EntityDuplicator clones one kind of library entity (document, resource,
// code artifact) on behalf of a user. Returning an empty id without error
// means the entity could not be cloned and the node keeps its original
// reference.
type EntityDuplicator interface {
	Duplicate(ctx context.Context, uid, entityID, title string) (newEntityID string, err error)
}

// ActionResultDuplicator bulk-clones skill action results onto a new
// target canvas, rewriting entity references embedded in the results via
// replaceEntityMap and extending the map with resultId mappings.
type ActionResultDuplicator interface {
	DuplicateActionResults(ctx context.Context, uid string, sourceResultIDs []string, targetCanvasID string, replaceEntityMap map[string]string) error
}

// QuotaService answers how many more library entities a user may create.
// Business rules behind the number are out of scope for the engine.
type QuotaService interface {
	CheckStorageUsage(ctx context.Context, uid string) (available int, err error)
}
