package services

import (
	"context"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
	pkgerrors "canvas-backend/pkg/errors"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
)

// relationLockKey builds the lock key guarding one canvas's relation sync
func relationLockKey(canvasID string) string {
	return "canvas-relation-sync:" + canvasID
}

// RelationReconciler converges the relation table to the canvas document.
// The document is the source of truth: relations for entities no longer on
// the canvas are soft-deleted, relations for newly referenced entities are
// created. Each canvas syncs under a non-blocking distributed lock, so
// concurrent triggers collapse into a single pass.
type RelationReconciler struct {
	canvasService *CanvasService
	relationRepo  ports.RelationRepository
	lock          ports.DistributedLock
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewRelationReconciler creates a relation reconciler
func NewRelationReconciler(
	canvasService *CanvasService,
	relationRepo ports.RelationRepository,
	lock ports.DistributedLock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RelationReconciler {
	return &RelationReconciler{
		canvasService: canvasService,
		relationRepo:  relationRepo,
		lock:          lock,
		metrics:       metrics,
		logger:        logger,
	}
}

// SyncResult reports what one reconciliation pass did
type SyncResult struct {
	Skipped     bool `json:"skipped"`
	Created     int  `json:"created"`
	SoftDeleted int  `json:"softDeleted"`
}

// Sync reconciles the relation table for one canvas. Returns a skipped
// result when another pass holds the lock; the in-flight pass will observe
// state at least as fresh. The lock is released on every exit path.
func (r *RelationReconciler) Sync(ctx context.Context, uid, canvasID string) (*SyncResult, error) {
	canvas, err := r.canvasService.GetCanvas(ctx, uid, canvasID)
	if err != nil {
		return nil, err
	}

	release, acquired, err := r.lock.Acquire(ctx, relationLockKey(canvasID))
	if err != nil {
		return nil, pkgerrors.NewExternalError("distributed lock", err)
	}
	if !acquired {
		r.logger.Debug("Relation sync already in flight",
			zap.String("canvasId", canvasID),
		)
		return &SyncResult{Skipped: true}, nil
	}
	defer func() {
		if err := release(ctx); err != nil {
			r.logger.Warn("Failed to release relation sync lock",
				zap.String("canvasId", canvasID),
				zap.Error(err),
			)
		}
	}()

	doc := r.canvasService.loadDocumentForRead(ctx, canvas)
	current := doc.EntityRefs()

	existing, err := r.relationRepo.ListActive(ctx, canvasID)
	if err != nil {
		return nil, pkgerrors.NewTransientStoreError("list relations", err)
	}

	toCreate, toDelete := diffRelations(current, existing)
	if len(toCreate) == 0 && len(toDelete) == 0 {
		return &SyncResult{}, nil
	}

	if len(toDelete) > 0 {
		if err := r.relationRepo.SoftDeleteMany(ctx, canvasID, toDelete); err != nil {
			return nil, pkgerrors.NewTransientStoreError("soft delete relations", err)
		}
	}
	if len(toCreate) > 0 {
		if err := r.relationRepo.CreateMany(ctx, canvasID, toCreate); err != nil {
			return nil, pkgerrors.NewTransientStoreError("create relations", err)
		}
	}

	r.metrics.RecordReconciliation(ctx, len(toCreate), len(toDelete))
	r.logger.Info("Reconciled canvas entity relations",
		zap.String("canvasId", canvasID),
		zap.Int("created", len(toCreate)),
		zap.Int("softDeleted", len(toDelete)),
	)

	return &SyncResult{Created: len(toCreate), SoftDeleted: len(toDelete)}, nil
}

// diffRelations computes the writes that make the stored relations match
// the document's entity references. Matching is by entity id; a type change
// for the same id shows up as delete plus create.
func diffRelations(current []document.EntityRef, existing []*entities.EntityRelation) (toCreate, toDelete []document.EntityRef) {
	currentByID := make(map[string]document.EntityRef, len(current))
	for _, ref := range current {
		currentByID[ref.EntityID] = ref
	}
	existingByID := make(map[string]document.EntityRef, len(existing))
	for _, rel := range existing {
		existingByID[rel.EntityID] = document.EntityRef{EntityID: rel.EntityID, EntityType: rel.EntityType}
	}

	for _, ref := range current {
		stored, ok := existingByID[ref.EntityID]
		if !ok || stored.EntityType != ref.EntityType {
			toCreate = append(toCreate, ref)
		}
	}
	for _, rel := range existing {
		ref, ok := currentByID[rel.EntityID]
		if !ok || ref.EntityType != rel.EntityType {
			toDelete = append(toDelete, document.EntityRef{EntityID: rel.EntityID, EntityType: rel.EntityType})
		}
	}
	return toCreate, toDelete
}
