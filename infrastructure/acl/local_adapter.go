package acl

import (
	"context"

	"canvas-backend/application/ports"

	"github.com/google/uuid"
)

// LocalKnowledgeAdapter stands in for the knowledge subsystem when no
// internal API is configured (development mode). Duplication mints fresh
// ids without copying anything; quota is unlimited.
type LocalKnowledgeAdapter struct{}

// NewLocalKnowledgeAdapter creates the development adapter
func NewLocalKnowledgeAdapter() *LocalKnowledgeAdapter {
	return &LocalKnowledgeAdapter{}
}

var (
	_ ports.EntityDuplicator       = (*LocalKnowledgeAdapter)(nil)
	_ ports.ActionResultDuplicator = (*LocalKnowledgeAdapter)(nil)
	_ ports.QuotaService           = (*LocalKnowledgeAdapter)(nil)
)

// Duplicate mints a fresh entity id
func (*LocalKnowledgeAdapter) Duplicate(ctx context.Context, uid, entityID, title string) (string, error) {
	return "entity-" + uuid.New().String(), nil
}

// DuplicateActionResults is a no-op locally
func (*LocalKnowledgeAdapter) DuplicateActionResults(ctx context.Context, uid string, sourceResultIDs []string, targetCanvasID string, replaceEntityMap map[string]string) error {
	return nil
}

// CheckStorageUsage reports effectively unlimited quota
func (*LocalKnowledgeAdapter) CheckStorageUsage(ctx context.Context, uid string) (int, error) {
	return 1 << 20, nil
}
