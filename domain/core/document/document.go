package document

// Document is the shared canvas graph for one canvas instance: an ordered
// node sequence, an ordered edge sequence and a mutable title. It is a plain
// in-memory aggregate; persistence runs through Encode/Decode and every
// multi-operation mutation commits as one load-mutate-save cycle in the
// transaction executor.
type Document struct {
	title string
	nodes []Node
	edges []Edge
}

// New creates an empty document
func New() *Document {
	return &Document{}
}

// Title returns the document title
func (d *Document) Title() string {
	return d.title
}

// SetTitle replaces the document title
func (d *Document) SetTitle(title string) {
	d.title = title
}

// Nodes returns a copy of the node sequence in insertion order
func (d *Document) Nodes() []Node {
	nodes := make([]Node, len(d.nodes))
	copy(nodes, d.nodes)
	return nodes
}

// Edges returns a copy of the edge sequence in insertion order
func (d *Document) Edges() []Edge {
	edges := make([]Edge, len(d.edges))
	copy(edges, d.edges)
	return edges
}

// NodeCount returns the number of nodes
func (d *Document) NodeCount() int {
	return len(d.nodes)
}

// EdgeCount returns the number of edges
func (d *Document) EdgeCount() int {
	return len(d.edges)
}

// InsertNodes inserts nodes at the given index, shifting later nodes right.
// Out-of-range indexes clamp to the sequence bounds.
func (d *Document) InsertNodes(index int, nodes ...Node) {
	index = clamp(index, len(d.nodes))
	d.nodes = append(d.nodes[:index], append(append([]Node{}, nodes...), d.nodes[index:]...)...)
}

// PushNodes appends nodes to the end of the sequence
func (d *Document) PushNodes(nodes ...Node) {
	d.nodes = append(d.nodes, nodes...)
}

// DeleteNodes removes count nodes starting at index. Ranges extending past
// the end are truncated.
func (d *Document) DeleteNodes(index, count int) {
	if index < 0 || index >= len(d.nodes) || count <= 0 {
		return
	}
	end := index + count
	if end > len(d.nodes) {
		end = len(d.nodes)
	}
	d.nodes = append(d.nodes[:index], d.nodes[end:]...)
}

// InsertEdges inserts edges at the given index
func (d *Document) InsertEdges(index int, edges ...Edge) {
	index = clamp(index, len(d.edges))
	d.edges = append(d.edges[:index], append(append([]Edge{}, edges...), d.edges[index:]...)...)
}

// PushEdges appends edges to the end of the sequence
func (d *Document) PushEdges(edges ...Edge) {
	d.edges = append(d.edges, edges...)
}

// DeleteEdges removes count edges starting at index
func (d *Document) DeleteEdges(index, count int) {
	if index < 0 || index >= len(d.edges) || count <= 0 {
		return
	}
	end := index + count
	if end > len(d.edges) {
		end = len(d.edges)
	}
	d.edges = append(d.edges[:index], d.edges[end:]...)
}

// ReplaceNodes swaps the entire node sequence, preserving order of the input
func (d *Document) ReplaceNodes(nodes []Node) {
	d.nodes = append([]Node{}, nodes...)
}

// UpdateNode replaces the node with the given id in place. Returns false if
// no node matches.
func (d *Document) UpdateNode(node Node) bool {
	for i := range d.nodes {
		if d.nodes[i].ID == node.ID {
			d.nodes[i] = node
			return true
		}
	}
	return false
}

// FindNode returns the first node matching the given type and entity id
func (d *Document) FindNode(nodeType NodeType, entityID string) (Node, bool) {
	for _, n := range d.nodes {
		if n.Type == nodeType && n.Data.EntityID == entityID {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node with the given type and entity id exists
func (d *Document) HasNode(nodeType NodeType, entityID string) bool {
	_, ok := d.FindNode(nodeType, entityID)
	return ok
}

// RemoveNodeByID removes the node with the given id and every edge that
// references it. Returns false if no node matches.
func (d *Document) RemoveNodeByID(nodeID string) bool {
	idx := -1
	for i, n := range d.nodes {
		if n.ID == nodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	d.nodes = append(d.nodes[:idx], d.nodes[idx+1:]...)
	d.dropEdgesReferencing(nodeID)
	return true
}

// RemoveNodesByEntity removes every node matching one of the given entity
// references, along with dangling edges. Indices are collected first and
// removed back-to-front so positions stay valid. Returns the number of nodes
// removed.
func (d *Document) RemoveNodesByEntity(refs []EntityRef) int {
	match := make(map[EntityRef]bool, len(refs))
	for _, ref := range refs {
		match[ref] = true
	}

	var toRemove []int
	for i, n := range d.nodes {
		ref, ok := n.EntityRef()
		if ok && match[ref] {
			toRemove = append(toRemove, i)
		}
	}

	for i := len(toRemove) - 1; i >= 0; i-- {
		idx := toRemove[i]
		nodeID := d.nodes[idx].ID
		d.nodes = append(d.nodes[:idx], d.nodes[idx+1:]...)
		d.dropEdgesReferencing(nodeID)
	}
	return len(toRemove)
}

// EntityRefs extracts the (entityId, entityType) pair of every node that
// carries both fields, in node order. Duplicate pairs are collapsed.
func (d *Document) EntityRefs() []EntityRef {
	seen := make(map[EntityRef]bool)
	var refs []EntityRef
	for _, n := range d.nodes {
		ref, ok := n.EntityRef()
		if !ok || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// RewriteEntityIDs replaces entity ids on every node and inside
// skill-response context items, following the old-to-new map. Ids without a
// mapping are left untouched.
func (d *Document) RewriteEntityIDs(replace map[string]string) {
	for i := range d.nodes {
		n := &d.nodes[i]
		if newID, ok := replace[n.Data.EntityID]; ok {
			n.Data.EntityID = newID
		}
		if n.Data.Metadata == nil {
			continue
		}
		for j := range n.Data.Metadata.ContextItems {
			item := &n.Data.Metadata.ContextItems[j]
			if newID, ok := replace[item.EntityID]; ok {
				item.EntityID = newID
			}
		}
	}
}

func (d *Document) dropEdgesReferencing(nodeID string) {
	kept := d.edges[:0]
	for _, e := range d.edges {
		if e.Source != nodeID && e.Target != nodeID {
			kept = append(kept, e)
		}
	}
	d.edges = kept
}

func clamp(index, length int) int {
	if index < 0 {
		return 0
	}
	if index > length {
		return length
	}
	return index
}
