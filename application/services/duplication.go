package services

import (
	"context"
	"sync"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
	"canvas-backend/domain/core/valueobjects"
	pkgerrors "canvas-backend/pkg/errors"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// entityDuplicationLimit bounds concurrent per-entity duplication calls
// within a single canvas duplication.
const entityDuplicationLimit = 5

// Duplication outcomes reported to metrics
const (
	DuplicationOutcomeCompleted = "completed"
	DuplicationOutcomeFailed    = "failed"
)

// DuplicationService copies a canvas into a new one owned by the caller:
// a fresh record, a rewritten document, duplicated library entities and a
// rebuilt relation set. The target record is created in the duplicating
// status and flipped to ready only after the full state is committed, so
// readers never observe a half-built canvas as ready.
type DuplicationService struct {
	canvasService    *CanvasService
	relationRepo     ports.RelationRepository
	duplicateRepo    ports.DuplicateRecordRepository
	entityDuplicator ports.EntityDuplicator
	resultDuplicator ports.ActionResultDuplicator
	quota            ports.QuotaService
	metrics          *observability.Metrics
	logger           *zap.Logger
}

// NewDuplicationService creates a duplication service
func NewDuplicationService(
	canvasService *CanvasService,
	relationRepo ports.RelationRepository,
	duplicateRepo ports.DuplicateRecordRepository,
	entityDuplicator ports.EntityDuplicator,
	resultDuplicator ports.ActionResultDuplicator,
	quota ports.QuotaService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DuplicationService {
	return &DuplicationService{
		canvasService:    canvasService,
		relationRepo:     relationRepo,
		duplicateRepo:    duplicateRepo,
		entityDuplicator: entityDuplicator,
		resultDuplicator: resultDuplicator,
		quota:            quota,
		metrics:          metrics,
		logger:           logger,
	}
}

// DuplicateCanvasRequest carries one canvas duplication call
type DuplicateCanvasRequest struct {
	CanvasID          string `json:"canvasId" validate:"required"`
	Title             string `json:"title,omitempty" validate:"omitempty,max=200"`
	ProjectID         string `json:"projectId,omitempty"`
	DuplicateEntities bool   `json:"duplicateEntities,omitempty"`
}

// DuplicateCanvas duplicates the source canvas for uid. When entity
// duplication is requested the storage quota is checked against the number
// of library entities to copy before anything is written, so a quota
// rejection leaves no trace. A failure after the target record exists
// leaves it in the duplicating status for inspection rather than deleting
// evidence.
func (s *DuplicationService) DuplicateCanvas(ctx context.Context, uid string, req DuplicateCanvasRequest) (*entities.Canvas, error) {
	source, err := s.canvasService.GetCanvas(ctx, uid, req.CanvasID)
	if err != nil {
		return nil, err
	}

	doc := s.canvasService.loadDocumentForRead(ctx, source)

	if req.DuplicateEntities {
		required := len(libraryEntityRefs(doc))
		available, err := s.quota.CheckStorageUsage(ctx, uid)
		if err != nil {
			return nil, pkgerrors.NewExternalError("quota service", err)
		}
		if available < required {
			return nil, pkgerrors.NewStorageQuotaExceededError(required, available)
		}
	}

	title := req.Title
	if title == "" {
		title = source.Title
	}
	projectID := req.ProjectID
	if projectID == "" {
		projectID = source.ProjectID
	}

	targetID := valueobjects.NewCanvasID()
	now := time.Now()
	target := &entities.Canvas{
		CanvasID:        targetID,
		UID:             uid,
		Title:           title,
		Status:          entities.CanvasStatusDuplicating,
		StateStorageKey: valueobjects.StateStorageKey(targetID),
		ProjectID:       projectID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.canvasService.canvasRepo.Create(ctx, target); err != nil {
		return nil, pkgerrors.NewTransientStoreError("create canvas", err)
	}

	if err := s.buildTarget(ctx, uid, target, doc, req.DuplicateEntities); err != nil {
		s.metrics.RecordDuplication(ctx, DuplicationOutcomeFailed)
		s.logger.Error("Canvas duplication failed",
			zap.String("sourceCanvasId", source.CanvasID),
			zap.String("targetCanvasId", targetID),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.canvasService.canvasRepo.UpdateStatus(ctx, targetID, entities.CanvasStatusReady); err != nil {
		return nil, pkgerrors.NewTransientStoreError("update canvas status", err)
	}
	target.Status = entities.CanvasStatusReady

	record := &entities.DuplicateRecord{
		UID:        uid,
		SourceID:   source.CanvasID,
		TargetID:   targetID,
		EntityType: "canvas",
		Status:     "finish",
		CreatedAt:  time.Now(),
	}
	if err := s.duplicateRepo.Create(ctx, record); err != nil {
		s.logger.Warn("Failed to write duplication record",
			zap.String("targetCanvasId", targetID),
			zap.Error(err),
		)
	}

	s.metrics.RecordDuplication(ctx, DuplicationOutcomeCompleted)
	s.logger.Info("Duplicated canvas",
		zap.String("sourceCanvasId", source.CanvasID),
		zap.String("targetCanvasId", targetID),
		zap.Bool("duplicateEntities", req.DuplicateEntities),
	)

	s.canvasService.upsertSearchDocument(ctx, target)
	s.canvasService.publishEvent(ctx, ports.EventCanvasDuplicated, target, map[string]string{
		"sourceCanvasId": source.CanvasID,
	})

	return target, nil
}

// buildTarget assembles and commits the target canvas state from the
// already-loaded source document
func (s *DuplicationService) buildTarget(ctx context.Context, uid string, target *entities.Canvas, doc *document.Document, duplicateEntities bool) error {
	doc.SetTitle(target.Title)

	replaceEntityMap := map[string]string{}
	if duplicateEntities {
		var err error
		replaceEntityMap, err = s.duplicateEntities(ctx, uid, target.Title, doc)
		if err != nil {
			return err
		}
	}

	resultIDs := skillResponseResultIDs(doc)
	doc.RewriteEntityIDs(replaceEntityMap)

	if len(resultIDs) > 0 {
		if err := s.resultDuplicator.DuplicateActionResults(ctx, uid, resultIDs, target.CanvasID, replaceEntityMap); err != nil {
			return pkgerrors.NewExternalError("action result duplication", err)
		}
	}

	if err := s.canvasService.saveDocument(ctx, target, doc); err != nil {
		return err
	}

	refs := doc.EntityRefs()
	if len(refs) > 0 {
		if err := s.relationRepo.CreateMany(ctx, target.CanvasID, refs); err != nil {
			return pkgerrors.NewTransientStoreError("create relations", err)
		}
	}
	return nil
}

// duplicateEntities duplicates every library entity referenced by the
// document and returns the old-to-new id map. Entities the duplicator
// declines are left pointing at the source copy and logged; the first hard
// failure cancels outstanding calls.
func (s *DuplicationService) duplicateEntities(ctx context.Context, uid, title string, doc *document.Document) (map[string]string, error) {
	replaceEntityMap := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(entityDuplicationLimit)
	for _, ref := range libraryEntityRefs(doc) {
		ref := ref
		g.Go(func() error {
			newID, err := s.entityDuplicator.Duplicate(gctx, uid, ref.EntityID, title)
			if err != nil {
				return pkgerrors.NewExternalError("entity duplication", err)
			}
			if newID == "" {
				s.logger.Warn("Entity skipped during duplication",
					zap.String("entityId", ref.EntityID),
					zap.String("entityType", ref.EntityType),
				)
				return nil
			}
			mu.Lock()
			replaceEntityMap[ref.EntityID] = newID
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return replaceEntityMap, nil
}

// libraryEntityRefs filters the document's entity refs down to the ones
// backed by a library entity, the population the quota and per-entity
// duplication both operate on.
func libraryEntityRefs(doc *document.Document) []document.EntityRef {
	var refs []document.EntityRef
	for _, ref := range doc.EntityRefs() {
		if document.NodeType(ref.EntityType).IsLibraryEntity() {
			refs = append(refs, ref)
		}
	}
	return refs
}

// skillResponseResultIDs collects the source result ids of skill-response
// nodes, keyed before any id rewriting happens.
func skillResponseResultIDs(doc *document.Document) []string {
	var ids []string
	seen := map[string]bool{}
	for _, node := range doc.Nodes() {
		if node.Type != document.NodeTypeSkillResponse || node.Data.EntityID == "" {
			continue
		}
		if !seen[node.Data.EntityID] {
			seen[node.Data.EntityID] = true
			ids = append(ids, node.Data.EntityID)
		}
	}
	return ids
}
