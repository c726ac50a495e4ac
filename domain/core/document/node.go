package document

import (
	"encoding/json"
)

// NodeType tags a canvas node with the kind of entity or widget it renders
type NodeType string

const (
	NodeTypeDocument      NodeType = "document"
	NodeTypeResource      NodeType = "resource"
	NodeTypeCodeArtifact  NodeType = "codeArtifact"
	NodeTypeSkillResponse NodeType = "skillResponse"
	NodeTypeImage         NodeType = "image"
	NodeTypeVideo         NodeType = "video"
	NodeTypeAudio         NodeType = "audio"
	NodeTypeSkill         NodeType = "skill"
	NodeTypeMemo          NodeType = "memo"
	NodeTypeGroup         NodeType = "group"
)

// IsLibraryEntity reports whether nodes of this type reference a library
// entity that can be duplicated alongside the canvas.
func (t NodeType) IsLibraryEntity() bool {
	switch t {
	case NodeTypeDocument, NodeTypeResource, NodeTypeCodeArtifact:
		return true
	}
	return false
}

// ContextItem is an entity reference embedded in skill-response metadata.
// Unknown fields round-trip through Extra untouched.
type ContextItem struct {
	EntityID string
	Type     string
	Extra    map[string]json.RawMessage
}

// MarshalJSON implements json.Marshaler
func (c ContextItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+2)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.EntityID != "" {
		b, err := json.Marshal(c.EntityID)
		if err != nil {
			return nil, err
		}
		out["entityId"] = b
	}
	if c.Type != "" {
		b, err := json.Marshal(c.Type)
		if err != nil {
			return nil, err
		}
		out["type"] = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *ContextItem) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["entityId"]; ok {
		if err := json.Unmarshal(v, &c.EntityID); err != nil {
			return err
		}
		delete(raw, "entityId")
	}
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &c.Type); err != nil {
			return err
		}
		delete(raw, "type")
	}
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// Metadata is the type-dependent structured payload of a node. The fields
// the engine acts on are typed; everything else survives in Extra so that
// payload shapes the engine does not know about are never dropped.
type Metadata struct {
	ContextItems []ContextItem
	Status       string
	Extra        map[string]json.RawMessage
}

// IsEmpty reports whether the metadata carries no payload at all
func (m *Metadata) IsEmpty() bool {
	return m == nil || (len(m.ContextItems) == 0 && m.Status == "" && len(m.Extra) == 0)
}

// MarshalJSON implements json.Marshaler
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	if len(m.ContextItems) > 0 {
		b, err := json.Marshal(m.ContextItems)
		if err != nil {
			return nil, err
		}
		out["contextItems"] = b
	}
	if m.Status != "" {
		b, err := json.Marshal(m.Status)
		if err != nil {
			return nil, err
		}
		out["status"] = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metadata) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["contextItems"]; ok {
		if err := json.Unmarshal(v, &m.ContextItems); err != nil {
			return err
		}
		delete(raw, "contextItems")
	}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &m.Status); err != nil {
			return err
		}
		delete(raw, "status")
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// NodeData carries the domain payload of a node
type NodeData struct {
	EntityID string    `json:"entityId,omitempty"`
	Title    string    `json:"title,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Node is a vertex of the canvas graph, representing an entity reference or
// a purely visual widget. Insertion order within the document is meaningful.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`
}

// EntityRef returns the (entityId, entityType) pair this node references,
// or ok=false for purely visual nodes.
func (n Node) EntityRef() (EntityRef, bool) {
	if n.Data.EntityID == "" || n.Type == "" {
		return EntityRef{}, false
	}
	return EntityRef{EntityID: n.Data.EntityID, EntityType: string(n.Type)}, true
}

// Edge is a directed connection between two nodes, identified by node id
type Edge struct {
	ID     string                     `json:"id"`
	Source string                     `json:"source"`
	Target string                     `json:"target"`
	Style  map[string]json.RawMessage `json:"style,omitempty"`
}

// EntityRef identifies a domain entity referenced by a canvas
type EntityRef struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
}
