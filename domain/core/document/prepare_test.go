package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareAddNode_ConnectsToResolvedTarget(t *testing.T) {
	nodes := []Node{entityNode("n1", NodeTypeDocument, "d1")}
	newNode := entityNode("n2", NodeTypeResource, "r1")

	plan := PrepareAddNode(newNode, nodes, nil, []NodeFilter{
		{Type: NodeTypeDocument, EntityID: "d1", Handle: HandleTarget},
	})

	assert.Equal(t, "n2", plan.Node.ID)
	require.Len(t, plan.Edges, 1)
	assert.Equal(t, "n2", plan.Edges[0].Source)
	assert.Equal(t, "n1", plan.Edges[0].Target)
	assert.NotEmpty(t, plan.Edges[0].ID)
}

func TestPrepareAddNode_DefaultDirectionIsIntoNewNode(t *testing.T) {
	nodes := []Node{entityNode("n1", NodeTypeDocument, "d1")}

	plan := PrepareAddNode(entityNode("n2", NodeTypeSkillResponse, "sr1"), nodes, nil, []NodeFilter{
		{Type: NodeTypeDocument, EntityID: "d1"},
	})

	require.Len(t, plan.Edges, 1)
	assert.Equal(t, "n1", plan.Edges[0].Source)
	assert.Equal(t, "n2", plan.Edges[0].Target)
}

func TestPrepareAddNode_UnresolvableFilterIsSkipped(t *testing.T) {
	nodes := []Node{entityNode("n1", NodeTypeDocument, "d1")}

	plan := PrepareAddNode(entityNode("n2", NodeTypeResource, "r1"), nodes, nil, []NodeFilter{
		{Type: NodeTypeDocument, EntityID: "missing"},
		{Type: NodeTypeCodeArtifact, EntityID: "d1"}, // type mismatch
	})

	assert.Empty(t, plan.Edges)
}

func TestPrepareAddNode_GeneratesMissingIDsAndUniqueEdgeIDs(t *testing.T) {
	nodes := []Node{
		entityNode("n1", NodeTypeDocument, "d1"),
		entityNode("n2", NodeTypeResource, "r1"),
	}
	newNode := Node{Type: NodeTypeSkillResponse, Data: NodeData{EntityID: "sr1"}}

	plan := PrepareAddNode(newNode, nodes, nil, []NodeFilter{
		{Type: NodeTypeDocument, EntityID: "d1"},
		{Type: NodeTypeResource, EntityID: "r1"},
	})

	assert.NotEmpty(t, plan.Node.ID)
	require.Len(t, plan.Edges, 2)
	assert.NotEqual(t, plan.Edges[0].ID, plan.Edges[1].ID)
}

func TestPrepareAddNode_SkipsDuplicateEdges(t *testing.T) {
	nodes := []Node{entityNode("n1", NodeTypeDocument, "d1")}
	edges := []Edge{{ID: "e0", Source: "n1", Target: "n2"}}

	plan := PrepareAddNode(entityNode("n2", NodeTypeResource, "r1"), nodes, edges, []NodeFilter{
		{Type: NodeTypeDocument, EntityID: "d1"},
		{Type: NodeTypeDocument, EntityID: "d1"},
	})

	assert.Empty(t, plan.Edges)
}

func TestPrepareAddNode_MatchesSpecScenario(t *testing.T) {
	// Document with one document node and zero edges; insert a resource node
	// connected to it as target: two nodes, one edge n2 -> n1.
	d := New()
	d.PushNodes(entityNode("n1", NodeTypeDocument, "d1"))

	plan := PrepareAddNode(
		entityNode("n2", NodeTypeResource, "r1"),
		d.Nodes(), d.Edges(),
		[]NodeFilter{{Type: NodeTypeDocument, EntityID: "d1", Handle: HandleTarget}},
	)
	d.PushNodes(plan.Node)
	d.PushEdges(plan.Edges...)

	assert.Equal(t, 2, d.NodeCount())
	require.Equal(t, 1, d.EdgeCount())
	assert.Equal(t, "n2", d.Edges()[0].Source)
	assert.Equal(t, "n1", d.Edges()[0].Target)
}
