package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"canvas-backend/application/services"
	"canvas-backend/pkg/common"
	"canvas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CanvasHandler exposes the canvas lifecycle and document operations
type CanvasHandler struct {
	canvasService *services.CanvasService
	nodeService   *services.NodeAdditionService
	reconciler    *services.RelationReconciler
	duplication   *services.DuplicationService
	logger        *zap.Logger
}

// NewCanvasHandler creates a canvas handler
func NewCanvasHandler(
	canvasService *services.CanvasService,
	nodeService *services.NodeAdditionService,
	reconciler *services.RelationReconciler,
	duplication *services.DuplicationService,
	logger *zap.Logger,
) *CanvasHandler {
	return &CanvasHandler{
		canvasService: canvasService,
		nodeService:   nodeService,
		reconciler:    reconciler,
		duplication:   duplication,
		logger:        logger,
	}
}

// CreateCanvas handles POST /canvases
func (h *CanvasHandler) CreateCanvas(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	var req services.CreateCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	canvas, err := h.canvasService.CreateCanvas(r.Context(), uid, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, canvas)
}

// ListCanvases handles GET /canvases
func (h *CanvasHandler) ListCanvases(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 10)
	projectID := r.URL.Query().Get("projectId")

	canvases, err := h.canvasService.ListCanvases(r.Context(), uid, projectID, page, pageSize)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, canvases)
}

// GetCanvas handles GET /canvases/{canvasID}
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	canvas, err := h.canvasService.GetCanvas(r.Context(), uid, chi.URLParam(r, "canvasID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, canvas)
}

// GetCanvasData handles GET /canvases/{canvasID}/data
func (h *CanvasHandler) GetCanvasData(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	data, err := h.canvasService.GetCanvasData(r.Context(), uid, chi.URLParam(r, "canvasID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, data)
}

// UpdateCanvas handles PUT /canvases/{canvasID}
func (h *CanvasHandler) UpdateCanvas(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	var req services.UpdateCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	req.CanvasID = chi.URLParam(r, "canvasID")
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	canvas, err := h.canvasService.UpdateCanvas(r.Context(), uid, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, canvas)
}

// DeleteCanvas handles DELETE /canvases/{canvasID}
func (h *CanvasHandler) DeleteCanvas(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	req := services.DeleteCanvasRequest{CanvasID: chi.URLParam(r, "canvasID")}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
		req.CanvasID = chi.URLParam(r, "canvasID")
	}

	if err := h.canvasService.DeleteCanvas(r.Context(), uid, req); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// AddNode handles POST /canvases/{canvasID}/nodes
func (h *CanvasHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	var req services.AddNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	req.CanvasID = chi.URLParam(r, "canvasID")

	node, err := h.nodeService.AddNode(r.Context(), uid, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, node)
}

// SyncRelations handles POST /canvases/{canvasID}/relations/sync
func (h *CanvasHandler) SyncRelations(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	result, err := h.reconciler.Sync(r.Context(), uid, chi.URLParam(r, "canvasID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DuplicateCanvas handles POST /canvases/{canvasID}/duplicate
func (h *CanvasHandler) DuplicateCanvas(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.GetUID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	var req services.DuplicateCanvasRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
	}
	req.CanvasID = chi.URLParam(r, "canvasID")

	canvas, err := h.duplication.DuplicateCanvas(r.Context(), uid, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, canvas)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
