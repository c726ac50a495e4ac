package services

import (
	"context"
	"errors"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
	"canvas-backend/domain/core/valueobjects"
	pkgerrors "canvas-backend/pkg/errors"

	"go.uber.org/zap"
)

// CanvasService owns the canvas lifecycle and the document transaction
// executor. Every read and mutation of a canvas's shared graph state runs
// through its load path, so absence, emptiness and corruption are handled
// in exactly one place.
type CanvasService struct {
	canvasRepo ports.CanvasRepository
	userRepo   ports.UserRepository
	blobStore  ports.BlobStore
	queue      ports.TaskQueue
	fts        ports.FulltextIndex
	events     ports.EventPublisher
	logger     *zap.Logger
}

// NewCanvasService creates a canvas service
func NewCanvasService(
	canvasRepo ports.CanvasRepository,
	userRepo ports.UserRepository,
	blobStore ports.BlobStore,
	queue ports.TaskQueue,
	fts ports.FulltextIndex,
	events ports.EventPublisher,
	logger *zap.Logger,
) *CanvasService {
	return &CanvasService{
		canvasRepo: canvasRepo,
		userRepo:   userRepo,
		blobStore:  blobStore,
		queue:      queue,
		fts:        fts,
		events:     events,
		logger:     logger,
	}
}

// CreateCanvasRequest carries the fields of a canvas creation call
type CreateCanvasRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	ProjectID string `json:"projectId,omitempty"`
}

// UpdateCanvasRequest carries the mutable fields of a canvas update call.
// Nil pointers leave the field untouched.
type UpdateCanvasRequest struct {
	CanvasID          string  `json:"canvasId" validate:"required"`
	Title             *string `json:"title,omitempty" validate:"omitempty,max=200"`
	ProjectID         *string `json:"projectId,omitempty"`
	MinimapStorageKey *string `json:"minimapStorageKey,omitempty"`
}

// DeleteCanvasRequest carries the fields of a canvas deletion call
type DeleteCanvasRequest struct {
	CanvasID       string `json:"canvasId" validate:"required"`
	DeleteAllFiles bool   `json:"deleteAllFiles,omitempty"`
}

// RawCanvasData is the raw read view of a canvas: title plus the live graph
type RawCanvasData struct {
	Title string          `json:"title"`
	Nodes []document.Node `json:"nodes"`
	Edges []document.Edge `json:"edges"`
	Owner *entities.User  `json:"owner,omitempty"`
}

// CreateCanvas creates the relational record, seeds the document state with
// the title and mirrors the record into the full-text index.
func (s *CanvasService) CreateCanvas(ctx context.Context, uid string, req CreateCanvasRequest) (*entities.Canvas, error) {
	canvasID := valueobjects.NewCanvasID()
	now := time.Now()

	canvas := &entities.Canvas{
		CanvasID:        canvasID,
		UID:             uid,
		Title:           req.Title,
		Status:          entities.CanvasStatusReady,
		StateStorageKey: valueobjects.StateStorageKey(canvasID),
		ProjectID:       req.ProjectID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.canvasRepo.Create(ctx, canvas); err != nil {
		return nil, pkgerrors.NewTransientStoreError("create canvas", err)
	}

	doc := document.New()
	doc.SetTitle(req.Title)
	if err := s.saveDocument(ctx, canvas, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Created canvas",
		zap.String("canvasId", canvasID),
		zap.String("uid", uid),
	)

	s.upsertSearchDocument(ctx, canvas)
	s.publishEvent(ctx, ports.EventCanvasCreated, canvas, nil)

	return canvas, nil
}

// ListCanvases returns the user's live canvases, newest first
func (s *CanvasService) ListCanvases(ctx context.Context, uid, projectID string, page, pageSize int) ([]*entities.Canvas, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	canvases, err := s.canvasRepo.List(ctx, uid, projectID, page, pageSize)
	if err != nil {
		return nil, pkgerrors.NewTransientStoreError("list canvases", err)
	}
	return canvases, nil
}

// GetCanvas returns the canvas record, enforcing ownership
func (s *CanvasService) GetCanvas(ctx context.Context, uid, canvasID string) (*entities.Canvas, error) {
	canvas, err := s.canvasRepo.GetByIDForUser(ctx, canvasID, uid)
	if err != nil {
		return nil, pkgerrors.NewTransientStoreError("get canvas", err)
	}
	if canvas == nil {
		return nil, pkgerrors.NewCanvasNotFoundError(canvasID)
	}
	return canvas, nil
}

// GetCanvasData returns the raw document view: title, nodes and edges.
// Absent, empty or corrupt state yields the empty graph with a warning;
// the read path never fabricates persisted state.
func (s *CanvasService) GetCanvasData(ctx context.Context, uid, canvasID string) (*RawCanvasData, error) {
	canvas, err := s.GetCanvas(ctx, uid, canvasID)
	if err != nil {
		return nil, err
	}

	doc := s.loadDocumentForRead(ctx, canvas)

	owner, err := s.userRepo.GetByUID(ctx, canvas.UID)
	if err != nil {
		s.logger.Warn("Failed to load canvas owner",
			zap.String("canvasId", canvasID),
			zap.Error(err),
		)
	}

	return &RawCanvasData{
		Title: canvas.Title,
		Nodes: doc.Nodes(),
		Edges: doc.Edges(),
		Owner: owner,
	}, nil
}

// UpdateCanvas updates the relational record and, for title changes, the
// document state, then refreshes the search index.
func (s *CanvasService) UpdateCanvas(ctx context.Context, uid string, req UpdateCanvasRequest) (*entities.Canvas, error) {
	canvas, err := s.GetCanvas(ctx, uid, req.CanvasID)
	if err != nil {
		return nil, err
	}

	originalMinimap := canvas.MinimapStorageKey
	if req.Title != nil {
		canvas.Title = *req.Title
	}
	if req.ProjectID != nil {
		canvas.ProjectID = *req.ProjectID
	}
	if req.MinimapStorageKey != nil {
		canvas.MinimapStorageKey = *req.MinimapStorageKey
	}
	canvas.UpdatedAt = time.Now()

	if err := s.canvasRepo.Update(ctx, canvas); err != nil {
		return nil, pkgerrors.NewTransientStoreError("update canvas", err)
	}

	if req.Title != nil {
		err := s.WithDocument(ctx, uid, req.CanvasID, func(doc *document.Document) error {
			doc.SetTitle(*req.Title)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// The previous minimap blob is unreachable once the key changes.
	if req.MinimapStorageKey != nil && originalMinimap != "" && originalMinimap != *req.MinimapStorageKey {
		if err := s.blobStore.Delete(ctx, originalMinimap); err != nil {
			s.logger.Warn("Failed to remove replaced minimap",
				zap.String("canvasId", req.CanvasID),
				zap.String("storageKey", originalMinimap),
				zap.Error(err),
			)
		}
	}

	s.upsertSearchDocument(ctx, canvas)

	return canvas, nil
}

// DeleteCanvas soft-deletes the record immediately and schedules the
// cleanup pass. The job id collapses duplicate deletion requests for the
// same canvas; handler failures are redelivered with exponential backoff.
func (s *CanvasService) DeleteCanvas(ctx context.Context, uid string, req DeleteCanvasRequest) error {
	canvas, err := s.GetCanvas(ctx, uid, req.CanvasID)
	if err != nil {
		return err
	}

	if err := s.canvasRepo.SoftDelete(ctx, canvas.CanvasID); err != nil {
		return pkgerrors.NewTransientStoreError("delete canvas", err)
	}

	err = s.queue.Enqueue(ctx, JobPostDeleteCanvas, PostDeleteCanvasJob{
		UID:            uid,
		CanvasID:       req.CanvasID,
		DeleteAllFiles: req.DeleteAllFiles,
	}, ports.EnqueueOptions{
		JobID:       "canvas-cleanup-" + req.CanvasID,
		MaxAttempts: 3,
		Backoff:     &ports.Backoff{Type: ports.BackoffExponential, Delay: time.Second},
	})
	if err != nil {
		return pkgerrors.NewExternalError("task queue", err)
	}

	s.publishEvent(ctx, ports.EventCanvasDeleted, canvas, nil)

	return nil
}

// WithDocument executes a mutation against the canvas document as one
// commit boundary: resolve the record (ownership enforced), load and decode
// the state, run the mutation, re-encode and save. If the mutation or the
// save fails nothing is persisted and the error is surfaced; there is no
// partial-commit state. Two concurrent calls on the same canvas can race at
// the blob level (last write wins), which is why node insertion is backed
// by the verification pass.
func (s *CanvasService) WithDocument(ctx context.Context, uid, canvasID string, fn func(doc *document.Document) error) error {
	canvas, err := s.GetCanvas(ctx, uid, canvasID)
	if err != nil {
		return err
	}
	return s.withCanvasDocument(ctx, canvas, fn)
}

// withCanvasDocument is the record-resolved core of WithDocument, shared
// with internal callers that already hold the record or bypass the
// ownership check (cross-canvas node removal).
func (s *CanvasService) withCanvasDocument(ctx context.Context, canvas *entities.Canvas, fn func(doc *document.Document) error) error {
	doc, err := s.loadDocumentForWrite(ctx, canvas)
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	return s.saveDocument(ctx, canvas, doc)
}

// loadDocumentForWrite loads the document for mutation. A missing blob
// yields a fresh empty document (first write); empty or corrupt state is an
// error, because committing on top of it would silently discard whatever
// the bytes were meant to hold.
func (s *CanvasService) loadDocumentForWrite(ctx context.Context, canvas *entities.Canvas) (*document.Document, error) {
	data, err := s.blobStore.Get(ctx, canvas.StateStorageKey)
	if err != nil {
		if errors.Is(err, ports.ErrBlobNotFound) {
			return document.New(), nil
		}
		return nil, pkgerrors.NewTransientStoreError("load canvas state", err)
	}

	doc, err := document.Decode(data)
	if err != nil {
		if errors.Is(err, document.ErrStateEmpty) {
			return nil, pkgerrors.NewCanvasStateEmptyError(canvas.StateStorageKey)
		}
		return nil, pkgerrors.NewCanvasStateCorruptError(canvas.StateStorageKey, err)
	}
	return doc, nil
}

// loadDocumentForRead loads the document for a read path. Any unusable
// state degrades to the empty graph with a warning.
func (s *CanvasService) loadDocumentForRead(ctx context.Context, canvas *entities.Canvas) *document.Document {
	data, err := s.blobStore.Get(ctx, canvas.StateStorageKey)
	if err != nil {
		if !errors.Is(err, ports.ErrBlobNotFound) {
			s.logger.Warn("Error getting canvas state",
				zap.String("storageKey", canvas.StateStorageKey),
				zap.Error(err),
			)
		}
		return document.New()
	}

	doc, err := document.Decode(data)
	if err != nil {
		s.logger.Warn("Unusable canvas state, returning empty graph",
			zap.String("storageKey", canvas.StateStorageKey),
			zap.Error(err),
		)
		return document.New()
	}
	return doc
}

func (s *CanvasService) saveDocument(ctx context.Context, canvas *entities.Canvas, doc *document.Document) error {
	data, err := document.Encode(doc)
	if err != nil {
		return pkgerrors.NewInternalError("encode canvas state").WithCause(err)
	}
	if err := s.blobStore.Put(ctx, canvas.StateStorageKey, data); err != nil {
		return pkgerrors.NewTransientStoreError("save canvas state", err)
	}
	return nil
}

func (s *CanvasService) upsertSearchDocument(ctx context.Context, canvas *entities.Canvas) {
	err := s.fts.UpsertDocument(ctx, canvas.UID, "canvas", ports.SearchDocument{
		ID:        canvas.CanvasID,
		Title:     canvas.Title,
		UID:       canvas.UID,
		ProjectID: canvas.ProjectID,
		CreatedAt: canvas.CreatedAt,
		UpdatedAt: canvas.UpdatedAt,
	})
	if err != nil {
		s.logger.Warn("Failed to upsert search document",
			zap.String("canvasId", canvas.CanvasID),
			zap.Error(err),
		)
	}
}

func (s *CanvasService) publishEvent(ctx context.Context, eventType string, canvas *entities.Canvas, detail map[string]string) {
	err := s.events.Publish(ctx, ports.CanvasEvent{
		Type:       eventType,
		CanvasID:   canvas.CanvasID,
		UID:        canvas.UID,
		OccurredAt: time.Now(),
		Detail:     detail,
	})
	if err != nil {
		s.logger.Warn("Failed to publish canvas event",
			zap.String("type", eventType),
			zap.String("canvasId", canvas.CanvasID),
			zap.Error(err),
		)
	}
}
