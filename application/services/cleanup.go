package services

import (
	"context"

	"canvas-backend/application/ports"
	pkgerrors "canvas-backend/pkg/errors"

	"go.uber.org/zap"
)

// CleanupService performs the asynchronous tail of canvas deletion. The
// synchronous delete only soft-deletes the record; this pass removes the
// search document and blobs, retires the relations and optionally cascades
// deletion to the referenced library entities. Every step is idempotent so
// the job can be redelivered safely.
type CleanupService struct {
	canvasService *CanvasService
	relationRepo  ports.RelationRepository
	queue         ports.TaskQueue
	logger        *zap.Logger
}

// NewCleanupService creates a cleanup service
func NewCleanupService(
	canvasService *CanvasService,
	relationRepo ports.RelationRepository,
	queue ports.TaskQueue,
	logger *zap.Logger,
) *CleanupService {
	return &CleanupService{
		canvasService: canvasService,
		relationRepo:  relationRepo,
		queue:         queue,
		logger:        logger,
	}
}

// PostDeleteCanvas is the queue handler for the canvas cleanup job
func (s *CleanupService) PostDeleteCanvas(ctx context.Context, job PostDeleteCanvasJob) error {
	canvas, err := s.canvasService.canvasRepo.GetByID(ctx, job.CanvasID, true)
	if err != nil {
		return pkgerrors.NewTransientStoreError("get canvas", err)
	}
	if canvas == nil {
		// Record already purged; nothing left to clean.
		return nil
	}

	if err := s.canvasService.fts.DeleteDocument(ctx, canvas.UID, "canvas", canvas.CanvasID); err != nil {
		s.logger.Warn("Failed to delete search document",
			zap.String("canvasId", canvas.CanvasID),
			zap.Error(err),
		)
	}

	for _, key := range []string{canvas.StateStorageKey, canvas.MinimapStorageKey} {
		if key == "" {
			continue
		}
		if err := s.canvasService.blobStore.Delete(ctx, key); err != nil {
			return pkgerrors.NewTransientStoreError("delete canvas blob", err)
		}
	}

	if job.DeleteAllFiles {
		if err := s.cascadeEntityDeletion(ctx, canvas.UID, canvas.CanvasID); err != nil {
			return err
		}
	}

	if err := s.relationRepo.SoftDeleteAll(ctx, canvas.CanvasID); err != nil {
		return pkgerrors.NewTransientStoreError("soft delete relations", err)
	}

	s.logger.Info("Cleaned up deleted canvas",
		zap.String("canvasId", canvas.CanvasID),
		zap.Bool("deleteAllFiles", job.DeleteAllFiles),
	)
	return nil
}

// cascadeEntityDeletion enqueues one deletion job per library entity still
// related to the canvas. The per-entity job id dedupes the cascade when the
// cleanup job itself is redelivered.
func (s *CleanupService) cascadeEntityDeletion(ctx context.Context, uid, canvasID string) error {
	relations, err := s.relationRepo.ListActive(ctx, canvasID)
	if err != nil {
		return pkgerrors.NewTransientStoreError("list relations", err)
	}
	for _, rel := range relations {
		err := s.queue.Enqueue(ctx, JobDeleteEntity, DeleteEntityJob{
			UID:        uid,
			EntityID:   rel.EntityID,
			EntityType: rel.EntityType,
		}, ports.EnqueueOptions{
			JobID: "delete-entity-" + rel.EntityID,
		})
		if err != nil {
			return pkgerrors.NewExternalError("task queue", err)
		}
	}
	return nil
}
