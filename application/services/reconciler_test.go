package services

import (
	"context"
	"testing"

	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reconcilerFixture struct {
	*canvasFixture
	service      *RelationReconciler
	relationRepo *fakeRelationRepo
	lock         *fakeLock
}

func newReconcilerFixture() *reconcilerFixture {
	base := newCanvasFixture()
	relationRepo := newFakeRelationRepo()
	lock := newFakeLock()
	return &reconcilerFixture{
		canvasFixture: base,
		relationRepo:  relationRepo,
		lock:          lock,
		service: NewRelationReconciler(
			base.service, relationRepo, lock, testMetrics(), zap.NewNop(),
		),
	}
}

func TestSyncConvergesRelationsToDocument(t *testing.T) {
	f := newReconcilerFixture()
	doc := document.New()
	doc.PushNodes(
		document.Node{ID: "n1", Type: document.NodeTypeDocument, Data: document.NodeData{EntityID: "doc-1"}},
		document.Node{ID: "n2", Type: document.NodeTypeResource, Data: document.NodeData{EntityID: "res-1"}},
	)
	canvas := f.seedCanvas(t, "user-1", doc)

	// Stored relations diverge: one stale, one missing.
	f.relationRepo.seed(canvas.CanvasID,
		document.EntityRef{EntityID: "doc-1", EntityType: "document"},
		document.EntityRef{EntityID: "res-stale", EntityType: "resource"},
	)

	result, err := f.service.Sync(context.Background(), "user-1", canvas.CanvasID)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.SoftDeleted)

	active := f.relationRepo.active(canvas.CanvasID)
	assert.Equal(t, map[string]string{
		"doc-1": "document",
		"res-1": "resource",
	}, active)

	assert.Equal(t, 1, f.lock.acquires)
	assert.Equal(t, 1, f.lock.releases)
}

func TestSyncEmptyDiffWritesNothing(t *testing.T) {
	f := newReconcilerFixture()
	doc := document.New()
	doc.PushNodes(document.Node{ID: "n1", Type: document.NodeTypeDocument, Data: document.NodeData{EntityID: "doc-1"}})
	canvas := f.seedCanvas(t, "user-1", doc)
	f.relationRepo.seed(canvas.CanvasID, document.EntityRef{EntityID: "doc-1", EntityType: "document"})

	result, err := f.service.Sync(context.Background(), "user-1", canvas.CanvasID)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{}, result)
	assert.Equal(t, 1, f.lock.releases)
}

func TestSyncSkipsWhenLockContended(t *testing.T) {
	f := newReconcilerFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())
	f.lock.denyAll = true
	f.relationRepo.seed(canvas.CanvasID, document.EntityRef{EntityID: "res-stale", EntityType: "resource"})

	result, err := f.service.Sync(context.Background(), "user-1", canvas.CanvasID)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	// Contended pass must leave the table untouched.
	assert.Len(t, f.relationRepo.active(canvas.CanvasID), 1)
}

func TestSyncUnknownCanvas(t *testing.T) {
	f := newReconcilerFixture()
	_, err := f.service.Sync(context.Background(), "user-1", "canvas-missing")
	require.Error(t, err)
	assert.Zero(t, f.lock.acquires)
}

func TestSyncUnusableStateClearsRelations(t *testing.T) {
	f := newReconcilerFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())
	require.NoError(t, f.blobStore.Put(context.Background(), canvas.StateStorageKey, []byte("garbage")))
	f.relationRepo.seed(canvas.CanvasID, document.EntityRef{EntityID: "doc-1", EntityType: "document"})

	// Read path degrades corrupt state to the empty graph, so reconciliation
	// retires every stored relation.
	result, err := f.service.Sync(context.Background(), "user-1", canvas.CanvasID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SoftDeleted)
	assert.Empty(t, f.relationRepo.active(canvas.CanvasID))
	assert.Equal(t, 1, f.lock.releases)
}

func TestDiffRelationsTypeChange(t *testing.T) {
	current := []document.EntityRef{{EntityID: "e1", EntityType: "document"}}
	existing := []*entities.EntityRelation{
		{CanvasID: "c1", EntityID: "e1", EntityType: "resource"},
	}

	toCreate, toDelete := diffRelations(current, existing)
	require.Len(t, toCreate, 1)
	require.Len(t, toDelete, 1)
	assert.Equal(t, "document", toCreate[0].EntityType)
	assert.Equal(t, "resource", toDelete[0].EntityType)
}
