package services

import (
	"context"
	"testing"
	"time"

	"canvas-backend/domain/core/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nodeFixture struct {
	*canvasFixture
	service      *NodeAdditionService
	relationRepo *fakeRelationRepo
}

func newNodeFixture() *nodeFixture {
	base := newCanvasFixture()
	relationRepo := newFakeRelationRepo()
	return &nodeFixture{
		canvasFixture: base,
		relationRepo:  relationRepo,
		service: NewNodeAdditionService(
			base.service, relationRepo, base.queue, testMetrics(), zap.NewNop(),
		),
	}
}

func documentNode(entityID string) document.Node {
	return document.Node{
		Type: document.NodeTypeDocument,
		Data: document.NodeData{EntityID: entityID, Title: "Doc " + entityID},
	}
}

func TestAddNodeCommitsAndSchedulesVerification(t *testing.T) {
	f := newNodeFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	inserted, err := f.service.AddNode(context.Background(), "user-1", AddNodeRequest{
		CanvasID: canvas.CanvasID,
		Node:     documentNode("doc-1"),
	})
	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.NotEmpty(t, inserted.ID)

	doc := f.decodeState(t, canvas.StateStorageKey)
	assert.True(t, doc.HasNode(document.NodeTypeDocument, "doc-1"))

	jobs := f.queue.byName(JobVerifyNodeAddition)
	require.Len(t, jobs, 1)
	assert.Equal(t, 2*time.Second, jobs[0].opts.Delay)

	payload, ok := jobs[0].payload.(VerifyNodeAdditionJob)
	require.True(t, ok)
	assert.Equal(t, 1, payload.Attempt)
	assert.Equal(t, 3, payload.MaxAttempts)
	assert.Equal(t, inserted.ID, payload.Node.ID)
}

func TestAddNodeConnectsToExistingNode(t *testing.T) {
	f := newNodeFixture()
	doc := document.New()
	doc.PushNodes(document.Node{
		ID:   "node-existing",
		Type: document.NodeTypeResource,
		Data: document.NodeData{EntityID: "res-1"},
	})
	canvas := f.seedCanvas(t, "user-1", doc)

	inserted, err := f.service.AddNode(context.Background(), "user-1", AddNodeRequest{
		CanvasID: canvas.CanvasID,
		Node:     documentNode("doc-1"),
		ConnectTo: []document.NodeFilter{
			{Type: document.NodeTypeResource, EntityID: "res-1"},
		},
	})
	require.NoError(t, err)

	stored := f.decodeState(t, canvas.StateStorageKey)
	edges := stored.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "node-existing", edges[0].Source)
	assert.Equal(t, inserted.ID, edges[0].Target)
}

func TestVerifyNodeAdditionConfirmedWhenPresent(t *testing.T) {
	f := newNodeFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	_, err := f.service.AddNode(context.Background(), "user-1", AddNodeRequest{
		CanvasID: canvas.CanvasID,
		Node:     documentNode("doc-1"),
	})
	require.NoError(t, err)

	jobs := f.queue.byName(JobVerifyNodeAddition)
	require.Len(t, jobs, 1)
	job := jobs[0].payload.(VerifyNodeAdditionJob)

	require.NoError(t, f.service.VerifyNodeAddition(context.Background(), job))

	// Confirmed: no follow-up pass scheduled, document untouched.
	assert.Len(t, f.queue.byName(JobVerifyNodeAddition), 1)
	stored := f.decodeState(t, canvas.StateStorageKey)
	assert.Equal(t, 1, stored.NodeCount())
}

func TestVerifyNodeAdditionReappliesMissingNode(t *testing.T) {
	f := newNodeFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	job := VerifyNodeAdditionJob{
		UID:         "user-1",
		CanvasID:    canvas.CanvasID,
		Node:        documentNode("doc-1"),
		Attempt:     1,
		MaxAttempts: 3,
	}
	require.NoError(t, f.service.VerifyNodeAddition(context.Background(), job))

	stored := f.decodeState(t, canvas.StateStorageKey)
	assert.True(t, stored.HasNode(document.NodeTypeDocument, "doc-1"))

	jobs := f.queue.byName(JobVerifyNodeAddition)
	require.Len(t, jobs, 1)
	next := jobs[0].payload.(VerifyNodeAdditionJob)
	assert.Equal(t, 2, next.Attempt)
	assert.Equal(t, 4*time.Second, jobs[0].opts.Delay)
}

func TestVerifyNodeAdditionAbandonsAfterMaxAttempts(t *testing.T) {
	f := newNodeFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	job := VerifyNodeAdditionJob{
		UID:         "user-1",
		CanvasID:    canvas.CanvasID,
		Node:        documentNode("doc-1"),
		Attempt:     3,
		MaxAttempts: 3,
	}
	require.NoError(t, f.service.VerifyNodeAddition(context.Background(), job))

	// The exhausted attempt reports the loss and stops: no re-insert, no
	// reschedule.
	stored := f.decodeState(t, canvas.StateStorageKey)
	assert.False(t, stored.HasNode(document.NodeTypeDocument, "doc-1"))
	assert.Equal(t, 0, stored.NodeCount())
	assert.Empty(t, f.queue.byName(JobVerifyNodeAddition))
}

func TestVerifyNodeAdditionDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newNodeFixture()
	canvas := f.seedCanvas(t, "user-1", document.New())

	job := VerifyNodeAdditionJob{
		UID:         "user-1",
		CanvasID:    canvas.CanvasID,
		Node:        documentNode("doc-1"),
		Attempt:     1,
		MaxAttempts: 3,
	}
	require.NoError(t, f.service.VerifyNodeAddition(context.Background(), job))
	require.NoError(t, f.service.VerifyNodeAddition(context.Background(), job))

	stored := f.decodeState(t, canvas.StateStorageKey)
	assert.Equal(t, 1, stored.NodeCount())
}

func TestVerifyNodeAdditionToleratesDeletedCanvas(t *testing.T) {
	f := newNodeFixture()

	err := f.service.VerifyNodeAddition(context.Background(), VerifyNodeAdditionJob{
		UID:         "user-1",
		CanvasID:    "canvas-gone",
		Node:        documentNode("doc-1"),
		Attempt:     1,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, f.queue.byName(JobVerifyNodeAddition))
}

func TestRemoveEntityNodesAcrossCanvases(t *testing.T) {
	f := newNodeFixture()
	ref := document.EntityRef{EntityID: "doc-1", EntityType: "document"}

	var canvasIDs []string
	for i := 0; i < 4; i++ {
		doc := document.New()
		doc.PushNodes(
			document.Node{ID: "node-keep", Type: document.NodeTypeMemo},
			document.Node{ID: "node-drop", Type: document.NodeTypeDocument, Data: document.NodeData{EntityID: "doc-1"}},
		)
		doc.PushEdges(document.Edge{ID: "edge-1", Source: "node-keep", Target: "node-drop"})
		canvas := f.seedCanvas(t, "user-1", doc)
		f.relationRepo.seed(canvas.CanvasID, ref)
		canvasIDs = append(canvasIDs, canvas.CanvasID)
	}

	require.NoError(t, f.service.RemoveEntityNodes(context.Background(), []document.EntityRef{ref}))

	for _, canvasID := range canvasIDs {
		canvas, err := f.canvasRepo.GetByID(context.Background(), canvasID, false)
		require.NoError(t, err)
		stored := f.decodeState(t, canvas.StateStorageKey)
		assert.Equal(t, 1, stored.NodeCount(), "entity node should be gone")
		assert.Zero(t, stored.EdgeCount(), "dangling edge should be gone")
		assert.Empty(t, f.relationRepo.active(canvasID))
	}
}

func TestRemoveEntityNodesNoRelations(t *testing.T) {
	f := newNodeFixture()
	err := f.service.RemoveEntityNodes(context.Background(), []document.EntityRef{
		{EntityID: "doc-unknown", EntityType: "document"},
	})
	require.NoError(t, err)
}
