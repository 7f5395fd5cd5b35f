package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/requestdata"
	"github.com/sellerforge/listingops-backend/internal/services"
	"github.com/sellerforge/listingops-backend/internal/types"
)

type PoolHandler struct {
	log         *logger.Logger
	poolService services.PoolService
}

func NewPoolHandler(log *logger.Logger, poolService services.PoolService) *PoolHandler {
	return &PoolHandler{
		log:         log.With("handler", "PoolHandler"),
		poolService: poolService,
	}
}

type ingestRequest struct {
	PoolType     string     `json:"pool_type"`
	GroupScopeID *uuid.UUID `json:"group_scope_id,omitempty"`
	Keywords     []string   `json:"keywords"`
}

// POST /api/projects/:projectId/pools
func (h *PoolHandler) Ingest(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_project_id", err)
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !types.ValidPoolType(req.PoolType) {
		RespondError(c, http.StatusBadRequest, "bad_pool_type", fmt.Errorf("invalid pool type %q", req.PoolType))
		return
	}
	if req.Keywords == nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("keywords must be an array"))
		return
	}

	pool, merged, warning, err := h.poolService.Ingest(c.Request.Context(), rd.OrganizationID, projectID, req.GroupScopeID, req.PoolType, req.Keywords)
	if err != nil {
		h.log.Error("Ingest failed", "error", err, "project_id", projectID)
		RespondServiceError(c, err)
		return
	}
	resp := gin.H{"pool": pool, "merged": merged}
	if warning != "" {
		resp["warning"] = warning
	}
	RespondOK(c, resp)
}

// GET /api/projects/:projectId/pools
func (h *PoolHandler) ListPools(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_project_id", err)
		return
	}
	pools, err := h.poolService.List(c.Request.Context(), rd.OrganizationID, projectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pools": pools})
}

// GET /api/pools/:id
func (h *PoolHandler) GetPool(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	pool, err := h.poolService.Get(c.Request.Context(), rd.OrganizationID, poolID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pool": pool})
}

// GET /api/pools/:id/plan
func (h *PoolHandler) GetPlan(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	plan, err := h.poolService.GetPlan(c.Request.Context(), rd.OrganizationID, poolID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}

type cleanPreviewRequest struct {
	Settings types.CleanSettings `json:"clean_settings"`
}

// POST /api/pools/:id/clean-preview
func (h *PoolHandler) PreviewClean(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	var req cleanPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	proposal, err := h.poolService.PreviewClean(c.Request.Context(), rd.OrganizationID, poolID, req.Settings)
	if err != nil {
		h.log.Error("PreviewClean failed", "error", err, "pool_id", poolID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"proposal": proposal})
}

type approveCleanRequest struct {
	CleanedKeywords []string               `json:"cleaned_keywords"`
	RemovedKeywords []types.RemovedKeyword `json:"removed_keywords"`
}

// PATCH /api/pools/:id/clean
func (h *PoolHandler) ApproveClean(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	var req approveCleanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	pool, err := h.poolService.ApproveClean(c.Request.Context(), rd.OrganizationID, poolID, req.CleanedKeywords, req.RemovedKeywords)
	if err != nil {
		h.log.Error("ApproveClean failed", "error", err, "pool_id", poolID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pool": pool})
}

type generatePlanRequest struct {
	Basis           string   `json:"basis"`
	AttributeName   string   `json:"attribute_name,omitempty"`
	GroupCount      int      `json:"group_count,omitempty"`
	PhrasesPerGroup int      `json:"phrases_per_group,omitempty"`
	SKUVariants     []string `json:"sku_variants,omitempty"`
}

// POST /api/pools/:id/grouping-plan
func (h *PoolHandler) GeneratePlan(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !types.ValidGroupingBasis(req.Basis) {
		RespondError(c, http.StatusBadRequest, "bad_basis", fmt.Errorf("invalid grouping basis %q", req.Basis))
		return
	}
	cfg := types.GroupingConfig{
		Basis:           req.Basis,
		AttributeName:   req.AttributeName,
		GroupCount:      req.GroupCount,
		PhrasesPerGroup: req.PhrasesPerGroup,
	}
	plan, err := h.poolService.GeneratePlan(c.Request.Context(), rd.OrganizationID, poolID, cfg, req.SKUVariants)
	if err != nil {
		h.log.Error("GeneratePlan failed", "error", err, "pool_id", poolID, "basis", req.Basis)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}

// POST /api/pools/:id/grouping-plan/override
func (h *PoolHandler) ApplyOverride(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	var cmd services.OverrideCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if cmd.Action != types.OverrideActionMove && cmd.Action != types.OverrideActionRename {
		RespondError(c, http.StatusBadRequest, "bad_action", fmt.Errorf("invalid override action %q", cmd.Action))
		return
	}
	plan, err := h.poolService.ApplyOverride(c.Request.Context(), rd.OrganizationID, rd.ActorID, poolID, cmd)
	if err != nil {
		h.log.Error("ApplyOverride failed", "error", err, "pool_id", poolID, "action", cmd.Action)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}

// POST /api/pools/:id/grouping-plan/reset
func (h *PoolHandler) ResetOverrides(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	plan, err := h.poolService.ResetOverrides(c.Request.Context(), rd.OrganizationID, poolID)
	if err != nil {
		h.log.Error("ResetOverrides failed", "error", err, "pool_id", poolID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}

type approveGroupingRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

// POST /api/pools/:id/approve-grouping
func (h *PoolHandler) ApproveGrouping(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	var req approveGroupingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	pool, err := h.poolService.ApproveGrouping(c.Request.Context(), rd.OrganizationID, poolID, req.ExpectedVersion)
	if err != nil {
		h.log.Error("ApproveGrouping failed", "error", err, "pool_id", poolID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pool": pool})
}

// POST /api/pools/:id/unapprove-grouping
func (h *PoolHandler) UnapproveGrouping(c *gin.Context) {
	rd, ok := requireRequestData(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	pool, err := h.poolService.UnapproveGrouping(c.Request.Context(), rd.OrganizationID, poolID)
	if err != nil {
		h.log.Error("UnapproveGrouping failed", "error", err, "pool_id", poolID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pool": pool})
}

func requireRequestData(c *gin.Context) (*requestdata.RequestData, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.OrganizationID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	return rd, true
}

func poolIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_pool_id", err)
		return uuid.Nil, false
	}
	return id, true
}
