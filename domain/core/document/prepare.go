package document

import (
	"canvas-backend/domain/core/valueobjects"
)

// HandleType names the side of an existing node a new connection attaches to
type HandleType string

const (
	// HandleSource: the existing node acts as the edge source
	HandleSource HandleType = "source"
	// HandleTarget: the existing node acts as the edge target
	HandleTarget HandleType = "target"
)

// NodeFilter selects an existing node by entity type and id, and names the
// direction the connecting edge should take relative to it.
type NodeFilter struct {
	Type     NodeType   `json:"type"`
	EntityID string     `json:"entityId"`
	Handle   HandleType `json:"handleType,omitempty"`
}

// AddNodePlan is the result of PrepareAddNode: the node to insert and the
// edges connecting it to resolved targets.
type AddNodePlan struct {
	Node  Node
	Edges []Edge
}

// PrepareAddNode computes the insertion plan for a new node: the node itself
// (with a generated id when absent) and one fresh edge per resolvable
// connection filter. Resolution picks the first existing node matching the
// filter's type and entity id; filters that resolve to nothing are silently
// skipped. Edges duplicating an existing source/target pair are skipped too.
// Pure computation, no I/O; callers apply the plan inside a document
// transaction.
func PrepareAddNode(node Node, nodes []Node, edges []Edge, connectTo []NodeFilter) AddNodePlan {
	newNode := node
	if newNode.ID == "" {
		newNode.ID = valueobjects.NewNodeID()
	}

	existing := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		existing[[2]string{e.Source, e.Target}] = true
	}

	var newEdges []Edge
	for _, filter := range connectTo {
		target, ok := findFirst(nodes, filter.Type, filter.EntityID)
		if !ok || target.ID == newNode.ID {
			continue
		}

		// Default direction runs from the existing node into the new one;
		// HandleTarget flips it so the existing node receives the edge.
		source, dest := target.ID, newNode.ID
		if filter.Handle == HandleTarget {
			source, dest = newNode.ID, target.ID
		}

		pair := [2]string{source, dest}
		if existing[pair] {
			continue
		}
		existing[pair] = true

		newEdges = append(newEdges, Edge{
			ID:     valueobjects.NewEdgeID(),
			Source: source,
			Target: dest,
		})
	}

	return AddNodePlan{Node: newNode, Edges: newEdges}
}

func findFirst(nodes []Node, nodeType NodeType, entityID string) (Node, bool) {
	for _, n := range nodes {
		if n.Type == nodeType && n.Data.EntityID == entityID {
			return n, true
		}
	}
	return Node{}, false
}
