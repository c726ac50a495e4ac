package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
	"canvas-backend/domain/core/valueobjects"
	pkgerrors "canvas-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type canvasFixture struct {
	service    *CanvasService
	canvasRepo *fakeCanvasRepo
	userRepo   *fakeUserRepo
	blobStore  *fakeBlobStore
	queue      *fakeQueue
	fts        *fakeFulltextIndex
	events     *fakeEventPublisher
}

func newCanvasFixture() *canvasFixture {
	f := &canvasFixture{
		canvasRepo: newFakeCanvasRepo(),
		userRepo:   newFakeUserRepo(),
		blobStore:  newFakeBlobStore(),
		queue:      &fakeQueue{},
		fts:        newFakeFulltextIndex(),
		events:     &fakeEventPublisher{},
	}
	f.service = NewCanvasService(f.canvasRepo, f.userRepo, f.blobStore, f.queue, f.fts, f.events, zap.NewNop())
	return f
}

// seedCanvas installs a ready canvas record with the given document state
func (f *canvasFixture) seedCanvas(t *testing.T, uid string, doc *document.Document) *entities.Canvas {
	t.Helper()
	canvasID := valueobjects.NewCanvasID()
	canvas := &entities.Canvas{
		CanvasID:        canvasID,
		UID:             uid,
		Title:           doc.Title(),
		Status:          entities.CanvasStatusReady,
		StateStorageKey: valueobjects.StateStorageKey(canvasID),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, f.canvasRepo.Create(context.Background(), canvas))
	data, err := document.Encode(doc)
	require.NoError(t, err)
	require.NoError(t, f.blobStore.Put(context.Background(), canvas.StateStorageKey, data))
	return canvas
}

func (f *canvasFixture) decodeState(t *testing.T, key string) *document.Document {
	t.Helper()
	data, err := f.blobStore.Get(context.Background(), key)
	require.NoError(t, err)
	doc, err := document.Decode(data)
	require.NoError(t, err)
	return doc
}

func TestCreateCanvas(t *testing.T) {
	f := newCanvasFixture()

	canvas, err := f.service.CreateCanvas(context.Background(), "user-1", CreateCanvasRequest{Title: "Research"})
	require.NoError(t, err)
	require.NotNil(t, canvas)

	assert.True(t, valueobjects.IsCanvasID(canvas.CanvasID))
	assert.Equal(t, entities.CanvasStatusReady, canvas.Status)
	assert.Equal(t, "state/"+canvas.CanvasID, canvas.StateStorageKey)

	doc := f.decodeState(t, canvas.StateStorageKey)
	assert.Equal(t, "Research", doc.Title())
	assert.Zero(t, doc.NodeCount())

	assert.Contains(t, f.fts.docs, canvas.CanvasID)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, ports.EventCanvasCreated, f.events.events[0].Type)
}

func TestGetCanvasEnforcesOwnership(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	_, err := f.service.GetCanvas(context.Background(), "user-2", canvas.CanvasID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCanvasNotFound(err))
}

func TestWithDocumentCommitsMutation(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	err := f.service.WithDocument(context.Background(), "user-1", canvas.CanvasID, func(doc *document.Document) error {
		doc.PushNodes(document.Node{
			ID:   "node-a",
			Type: document.NodeTypeDocument,
			Data: document.NodeData{EntityID: "doc-1", Title: "Notes"},
		})
		return nil
	})
	require.NoError(t, err)

	doc := f.decodeState(t, canvas.StateStorageKey)
	assert.Equal(t, 1, doc.NodeCount())
	assert.True(t, doc.HasNode(document.NodeTypeDocument, "doc-1"))
}

func TestWithDocumentMutationErrorSkipsSave(t *testing.T) {
	f := newCanvasFixture()
	doc := document.New()
	doc.PushNodes(document.Node{ID: "node-a", Type: document.NodeTypeMemo})
	canvas := f.seedCanvas(t, "user-1", doc)

	boom := errors.New("boom")
	err := f.service.WithDocument(context.Background(), "user-1", canvas.CanvasID, func(doc *document.Document) error {
		doc.DeleteNodes(0, 1)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The failed mutation must not have been persisted.
	stored := f.decodeState(t, canvas.StateStorageKey)
	assert.Equal(t, 1, stored.NodeCount())
}

func TestWithDocumentSaveFailureSurfaces(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())
	f.blobStore.failPut = errors.New("throttled")

	err := f.service.WithDocument(context.Background(), "user-1", canvas.CanvasID, func(doc *document.Document) error {
		doc.SetTitle("changed")
		return nil
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestWithDocumentMissingBlobStartsFresh(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())
	require.NoError(t, f.blobStore.Delete(context.Background(), canvas.StateStorageKey))

	err := f.service.WithDocument(context.Background(), "user-1", canvas.CanvasID, func(doc *document.Document) error {
		doc.SetTitle("fresh")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", f.decodeState(t, canvas.StateStorageKey).Title())
}

func TestWithDocumentCorruptStateErrors(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())
	require.NoError(t, f.blobStore.Put(context.Background(), canvas.StateStorageKey, []byte("garbage")))

	err := f.service.WithDocument(context.Background(), "user-1", canvas.CanvasID, func(doc *document.Document) error {
		return nil
	})
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CANVAS_STATE_CORRUPT", appErr.Code)
}

func TestGetCanvasDataDegradesToEmptyGraph(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())
	require.NoError(t, f.blobStore.Put(context.Background(), canvas.StateStorageKey, []byte{}))
	f.userRepo.users["user-1"] = &entities.User{UID: "user-1", Name: "Ada"}

	data, err := f.service.GetCanvasData(context.Background(), "user-1", canvas.CanvasID)
	require.NoError(t, err)
	assert.Empty(t, data.Nodes)
	assert.Empty(t, data.Edges)
	require.NotNil(t, data.Owner)
	assert.Equal(t, "Ada", data.Owner.Name)
}

func TestUpdateCanvasTitleUpdatesDocument(t *testing.T) {
	f := newCanvasFixture()
	doc := document.New()
	doc.SetTitle("old")
	canvas := f.seedCanvas(t, "user-1", doc)

	title := "new title"
	updated, err := f.service.UpdateCanvas(context.Background(), "user-1", UpdateCanvasRequest{
		CanvasID: canvas.CanvasID,
		Title:    &title,
	})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, "new title", f.decodeState(t, canvas.StateStorageKey).Title())
	assert.Equal(t, "new title", f.fts.docs[canvas.CanvasID].Title)
}

func TestDeleteCanvasSchedulesCleanup(t *testing.T) {
	f := newCanvasFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	err := f.service.DeleteCanvas(context.Background(), "user-1", DeleteCanvasRequest{
		CanvasID:       canvas.CanvasID,
		DeleteAllFiles: true,
	})
	require.NoError(t, err)

	stored, err := f.canvasRepo.GetByID(context.Background(), canvas.CanvasID, true)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsDeleted())

	jobs := f.queue.byName(JobPostDeleteCanvas)
	require.Len(t, jobs, 1)
	assert.Equal(t, "canvas-cleanup-"+canvas.CanvasID, jobs[0].opts.JobID)
	assert.Equal(t, 3, jobs[0].opts.MaxAttempts)
	require.NotNil(t, jobs[0].opts.Backoff)
	assert.Equal(t, ports.BackoffExponential, jobs[0].opts.Backoff.Type)
	assert.Equal(t, time.Second, jobs[0].opts.Backoff.Delay)

	payload, ok := jobs[0].payload.(PostDeleteCanvasJob)
	require.True(t, ok)
	assert.True(t, payload.DeleteAllFiles)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, ports.EventCanvasDeleted, f.events.events[0].Type)
}
