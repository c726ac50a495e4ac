package search

import (
	"context"
	"sync"

	"canvas-backend/application/ports"
)

// MemoryIndex is an in-process ports.FulltextIndex for development and
// tests. Documents are keyed by (uid, kind, id).
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[indexKey]ports.SearchDocument
}

type indexKey struct {
	uid  string
	kind string
	id   string
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[indexKey]ports.SearchDocument)}
}

var _ ports.FulltextIndex = (*MemoryIndex)(nil)

// UpsertDocument stores or replaces the document
func (m *MemoryIndex) UpsertDocument(ctx context.Context, uid, kind string, doc ports.SearchDocument) error {
	m.mu.Lock()
	m.docs[indexKey{uid, kind, doc.ID}] = doc
	m.mu.Unlock()
	return nil
}

// DeleteDocument removes the document; deleting a missing id is not an error
func (m *MemoryIndex) DeleteDocument(ctx context.Context, uid, kind, id string) error {
	m.mu.Lock()
	delete(m.docs, indexKey{uid, kind, id})
	m.mu.Unlock()
	return nil
}
