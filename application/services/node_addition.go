package services

import (
	"context"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	pkgerrors "canvas-backend/pkg/errors"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Verification outcomes reported to metrics
const (
	VerifyOutcomeConfirmed = "confirmed"
	VerifyOutcomeRetried   = "retried"
	VerifyOutcomeAbandoned = "abandoned"
)

// crossCanvasRemovalLimit bounds how many canvas documents are rewritten
// concurrently when an entity is purged across the workspace.
const crossCanvasRemovalLimit = 3

// NodeAdditionService inserts nodes into canvas documents and re-checks the
// insertion after a delay. The document commit is last-write-wins, so a
// concurrent writer can clobber a fresh insertion; the verification pass
// detects that and re-applies the node until it sticks or attempts run out.
type NodeAdditionService struct {
	canvasService *CanvasService
	relationRepo  ports.RelationRepository
	queue         ports.TaskQueue
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewNodeAdditionService creates a node addition service
func NewNodeAdditionService(
	canvasService *CanvasService,
	relationRepo ports.RelationRepository,
	queue ports.TaskQueue,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *NodeAdditionService {
	return &NodeAdditionService{
		canvasService: canvasService,
		relationRepo:  relationRepo,
		queue:         queue,
		metrics:       metrics,
		logger:        logger,
	}
}

// AddNodeRequest carries one node insertion call
type AddNodeRequest struct {
	CanvasID  string                `json:"canvasId" validate:"required"`
	Node      document.Node         `json:"node" validate:"required"`
	ConnectTo []document.NodeFilter `json:"connectTo,omitempty"`
}

// AddNode inserts the node (and its connection edges) into the canvas
// document, then schedules the first verification pass. The returned node
// carries the generated id when the caller supplied none.
func (s *NodeAdditionService) AddNode(ctx context.Context, uid string, req AddNodeRequest) (*document.Node, error) {
	if req.Node.Type == "" {
		return nil, pkgerrors.NewValidationError("node type is required")
	}

	var inserted document.Node
	err := s.canvasService.WithDocument(ctx, uid, req.CanvasID, func(doc *document.Document) error {
		plan := document.PrepareAddNode(req.Node, doc.Nodes(), doc.Edges(), req.ConnectTo)
		doc.PushNodes(plan.Node)
		doc.PushEdges(plan.Edges...)
		inserted = plan.Node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Added node to canvas",
		zap.String("canvasId", req.CanvasID),
		zap.String("nodeId", inserted.ID),
		zap.String("nodeType", string(inserted.Type)),
	)

	s.scheduleVerification(ctx, VerifyNodeAdditionJob{
		UID:         uid,
		CanvasID:    req.CanvasID,
		Node:        inserted,
		ConnectTo:   req.ConnectTo,
		Attempt:     1,
		MaxAttempts: verifyMaxAttempts,
	})

	return &inserted, nil
}

// VerifyNodeAddition is the queue handler for a scheduled verification
// pass. When the node is present the pass confirms and stops, which also
// makes duplicate deliveries harmless. When it is absent and attempts
// remain, the node is re-applied and the next pass is scheduled with a
// longer delay; the final attempt only reports the loss.
func (s *NodeAdditionService) VerifyNodeAddition(ctx context.Context, job VerifyNodeAdditionJob) error {
	canvas, err := s.canvasService.GetCanvas(ctx, job.UID, job.CanvasID)
	if err != nil {
		if pkgerrors.IsCanvasNotFound(err) {
			// Canvas deleted while the job was queued; nothing to verify.
			return nil
		}
		return err
	}

	doc := s.canvasService.loadDocumentForRead(ctx, canvas)
	if doc.HasNode(job.Node.Type, job.Node.Data.EntityID) {
		s.metrics.RecordVerificationOutcome(ctx, VerifyOutcomeConfirmed)
		return nil
	}

	if job.Attempt >= job.MaxAttempts {
		// Out of attempts: report and stop, without touching the document.
		s.metrics.RecordVerificationOutcome(ctx, VerifyOutcomeAbandoned)
		s.logger.Error("Node addition verification exhausted",
			zap.String("canvasId", job.CanvasID),
			zap.String("nodeId", job.Node.ID),
			zap.Int("maxAttempts", job.MaxAttempts),
		)
		return nil
	}

	s.logger.Warn("Node missing after addition, re-applying",
		zap.String("canvasId", job.CanvasID),
		zap.String("nodeId", job.Node.ID),
		zap.Int("attempt", job.Attempt),
	)

	err = s.canvasService.withCanvasDocument(ctx, canvas, func(doc *document.Document) error {
		if doc.HasNode(job.Node.Type, job.Node.Data.EntityID) {
			return nil
		}
		plan := document.PrepareAddNode(job.Node, doc.Nodes(), doc.Edges(), job.ConnectTo)
		doc.PushNodes(plan.Node)
		doc.PushEdges(plan.Edges...)
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordVerificationOutcome(ctx, VerifyOutcomeRetried)
	next := job
	next.Attempt = job.Attempt + 1
	s.scheduleVerification(ctx, next)
	return nil
}

// scheduleVerification enqueues one verification pass. The delay grows
// linearly with the attempt number. Enqueue failures are logged, not
// surfaced: the node itself is already committed.
func (s *NodeAdditionService) scheduleVerification(ctx context.Context, job VerifyNodeAdditionJob) {
	delay := verifyBaseDelay * time.Duration(job.Attempt)
	err := s.queue.Enqueue(ctx, JobVerifyNodeAddition, job, ports.EnqueueOptions{
		Delay: delay,
	})
	if err != nil {
		s.logger.Error("Failed to schedule node verification",
			zap.String("canvasId", job.CanvasID),
			zap.String("nodeId", job.Node.ID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
	}
}

// RemoveEntityNodes removes every node referencing the given entities from
// every canvas that holds a relation to them, soft-deleting the relations
// alongside. Canvas rewrites run concurrently with a fixed bound; the first
// failure cancels the remainder.
func (s *NodeAdditionService) RemoveEntityNodes(ctx context.Context, refs []document.EntityRef) error {
	if len(refs) == 0 {
		return nil
	}

	canvasIDs, err := s.relationRepo.ListCanvasIDsForEntities(ctx, refs)
	if err != nil {
		return pkgerrors.NewTransientStoreError("list canvases for entities", err)
	}
	if len(canvasIDs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(crossCanvasRemovalLimit)
	for _, canvasID := range canvasIDs {
		canvasID := canvasID
		g.Go(func() error {
			return s.removeFromCanvas(gctx, canvasID, refs)
		})
	}
	return g.Wait()
}

func (s *NodeAdditionService) removeFromCanvas(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	canvas, err := s.canvasService.canvasRepo.GetByID(ctx, canvasID, false)
	if err != nil {
		return pkgerrors.NewTransientStoreError("get canvas", err)
	}
	if canvas == nil {
		return nil
	}

	removed := 0
	err = s.canvasService.withCanvasDocument(ctx, canvas, func(doc *document.Document) error {
		removed = doc.RemoveNodesByEntity(refs)
		return nil
	})
	if err != nil {
		// Unusable state holds no nodes worth removing; skip rather than
		// wedge the whole purge on one broken canvas.
		if appErr := pkgerrors.GetAppError(err); appErr != nil &&
			(appErr.Code == "CANVAS_STATE_EMPTY" || appErr.Code == "CANVAS_STATE_CORRUPT") {
			s.logger.Warn("Skipping canvas with unusable state during entity removal",
				zap.String("canvasId", canvasID),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	if err := s.relationRepo.SoftDeleteMany(ctx, canvasID, refs); err != nil {
		return pkgerrors.NewTransientStoreError("soft delete relations", err)
	}

	s.logger.Info("Removed entity nodes from canvas",
		zap.String("canvasId", canvasID),
		zap.Int("nodesRemoved", removed),
		zap.Int("entityCount", len(refs)),
	)
	return nil
}
