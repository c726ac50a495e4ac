package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"canvas-backend/application/ports"
	pkgerrors "canvas-backend/pkg/errors"

	"go.uber.org/zap"
)

// KnowledgeAdapter is the anti-corruption layer in front of the knowledge
// subsystem's internal API. It implements the entity duplication, action
// result duplication and quota ports so the application layer never sees
// the remote wire format.
type KnowledgeAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewKnowledgeAdapter creates an adapter for the given internal base URL
func NewKnowledgeAdapter(baseURL string, logger *zap.Logger) *KnowledgeAdapter {
	return &KnowledgeAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

var (
	_ ports.EntityDuplicator       = (*KnowledgeAdapter)(nil)
	_ ports.ActionResultDuplicator = (*KnowledgeAdapter)(nil)
	_ ports.QuotaService           = (*KnowledgeAdapter)(nil)
)

type duplicateEntityRequest struct {
	UID   string `json:"uid"`
	Title string `json:"title,omitempty"`
}

type duplicateEntityResponse struct {
	EntityID string `json:"entityId"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// Duplicate asks the knowledge subsystem to copy one entity for uid. An
// empty return id means the subsystem declined (entity gone or not
// duplicable); the caller treats that as a skip, not a failure.
func (a *KnowledgeAdapter) Duplicate(ctx context.Context, uid, entityID, title string) (string, error) {
	var resp duplicateEntityResponse
	path := fmt.Sprintf("/internal/entities/%s/duplicate", entityID)
	err := a.post(ctx, path, duplicateEntityRequest{UID: uid, Title: title}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Skipped {
		return "", nil
	}
	return resp.EntityID, nil
}

type duplicateResultsRequest struct {
	UID              string            `json:"uid"`
	SourceResultIDs  []string          `json:"sourceResultIds"`
	TargetCanvasID   string            `json:"targetCanvasId"`
	ReplaceEntityMap map[string]string `json:"replaceEntityMap,omitempty"`
}

// DuplicateActionResults mirrors skill-response results onto the target
// canvas, rewriting entity references along the way.
func (a *KnowledgeAdapter) DuplicateActionResults(ctx context.Context, uid string, sourceResultIDs []string, targetCanvasID string, replaceEntityMap map[string]string) error {
	return a.post(ctx, "/internal/action-results/duplicate", duplicateResultsRequest{
		UID:              uid,
		SourceResultIDs:  sourceResultIDs,
		TargetCanvasID:   targetCanvasID,
		ReplaceEntityMap: replaceEntityMap,
	}, nil)
}

type quotaResponse struct {
	Available int `json:"available"`
}

// CheckStorageUsage returns how many more entities uid may store
func (a *KnowledgeAdapter) CheckStorageUsage(ctx context.Context, uid string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+fmt.Sprintf("/internal/users/%s/storage-quota", uid), nil)
	if err != nil {
		return 0, err
	}

	httpResp, err := a.client.Do(req)
	if err != nil {
		return 0, pkgerrors.NewExternalError("knowledge service", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return 0, pkgerrors.NewExternalError("knowledge service",
			fmt.Errorf("quota check returned %d", httpResp.StatusCode))
	}

	var resp quotaResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return 0, pkgerrors.NewExternalError("knowledge service", err)
	}
	return resp.Available, nil
}

func (a *KnowledgeAdapter) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(req)
	if err != nil {
		return pkgerrors.NewExternalError("knowledge service", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		a.logger.Warn("Knowledge service call failed",
			zap.String("path", path),
			zap.Int("status", httpResp.StatusCode),
		)
		return pkgerrors.NewExternalError("knowledge service",
			fmt.Errorf("%s returned %d", path, httpResp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return pkgerrors.NewExternalError("knowledge service", err)
		}
	}
	return nil
}
