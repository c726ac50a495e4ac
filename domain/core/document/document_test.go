package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityNode(id string, nodeType NodeType, entityID string) Node {
	return Node{ID: id, Type: nodeType, Data: NodeData{EntityID: entityID}}
}

func TestDocument_InsertAndDeleteNodes(t *testing.T) {
	d := New()
	d.PushNodes(entityNode("n1", NodeTypeDocument, "d1"), entityNode("n3", NodeTypeResource, "r1"))
	d.InsertNodes(1, entityNode("n2", NodeTypeMemo, ""))

	nodes := d.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"n1", "n2", "n3"}, []string{nodes[0].ID, nodes[1].ID, nodes[2].ID})

	d.DeleteNodes(1, 1)
	nodes = d.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "n3", nodes[1].ID)

	// Over-long range truncates instead of panicking
	d.DeleteNodes(1, 10)
	assert.Equal(t, 1, d.NodeCount())
}

func TestDocument_RemoveNodeByID_DropsDanglingEdges(t *testing.T) {
	d := New()
	d.PushNodes(
		entityNode("n1", NodeTypeDocument, "d1"),
		entityNode("n2", NodeTypeResource, "r1"),
		entityNode("n3", NodeTypeMemo, ""),
	)
	d.PushEdges(
		Edge{ID: "e1", Source: "n1", Target: "n2"},
		Edge{ID: "e2", Source: "n2", Target: "n3"},
		Edge{ID: "e3", Source: "n1", Target: "n3"},
	)

	require.True(t, d.RemoveNodeByID("n2"))

	assert.Equal(t, 2, d.NodeCount())
	edges := d.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "e3", edges[0].ID)

	assert.False(t, d.RemoveNodeByID("n2"))
}

func TestDocument_RemoveNodesByEntity(t *testing.T) {
	d := New()
	d.PushNodes(
		entityNode("n1", NodeTypeDocument, "d1"),
		entityNode("n2", NodeTypeResource, "r1"),
		entityNode("n3", NodeTypeDocument, "d2"),
	)
	d.PushEdges(Edge{ID: "e1", Source: "n1", Target: "n2"})

	removed := d.RemoveNodesByEntity([]EntityRef{
		{EntityID: "d1", EntityType: "document"},
		{EntityID: "d2", EntityType: "document"},
	})

	assert.Equal(t, 2, removed)
	require.Equal(t, 1, d.NodeCount())
	assert.Equal(t, "n2", d.Nodes()[0].ID)
	assert.Equal(t, 0, d.EdgeCount())
}

func TestDocument_EntityRefs_SkipsVisualNodesAndDuplicates(t *testing.T) {
	d := New()
	d.PushNodes(
		entityNode("n1", NodeTypeDocument, "d1"),
		entityNode("n2", NodeTypeMemo, ""), // no entity id
		entityNode("n3", NodeTypeDocument, "d1"),
		entityNode("n4", NodeTypeSkillResponse, "sr1"),
	)

	refs := d.EntityRefs()
	require.Len(t, refs, 2)
	assert.Equal(t, EntityRef{EntityID: "d1", EntityType: "document"}, refs[0])
	assert.Equal(t, EntityRef{EntityID: "sr1", EntityType: "skillResponse"}, refs[1])
}

func TestDocument_RewriteEntityIDs(t *testing.T) {
	skillNode := Node{
		ID:   "n1",
		Type: NodeTypeSkillResponse,
		Data: NodeData{
			EntityID: "sr-old",
			Metadata: &Metadata{
				ContextItems: []ContextItem{
					{EntityID: "d-old", Type: "document"},
					{EntityID: "r-unmapped", Type: "resource"},
				},
			},
		},
	}
	d := New()
	d.PushNodes(skillNode, entityNode("n2", NodeTypeDocument, "d-old"))

	d.RewriteEntityIDs(map[string]string{"sr-old": "sr-new", "d-old": "d-new"})

	nodes := d.Nodes()
	assert.Equal(t, "sr-new", nodes[0].Data.EntityID)
	assert.Equal(t, "d-new", nodes[0].Data.Metadata.ContextItems[0].EntityID)
	assert.Equal(t, "r-unmapped", nodes[0].Data.Metadata.ContextItems[1].EntityID)
	assert.Equal(t, "d-new", nodes[1].Data.EntityID)
}
