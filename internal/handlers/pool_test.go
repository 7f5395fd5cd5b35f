package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sellerforge/listingops-backend/internal/keywords"
	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/requestdata"
	"github.com/sellerforge/listingops-backend/internal/services"
	"github.com/sellerforge/listingops-backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubPoolService returns a canned pool/plan, or err when set.
type stubPoolService struct {
	err  error
	pool *types.KeywordPool
	plan *services.GroupingPlan
}

func (s *stubPoolService) poolOrErr() (*types.KeywordPool, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pool, nil
}

func (s *stubPoolService) planOrErr() (*services.GroupingPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plan, nil
}

func (s *stubPoolService) GetOrCreate(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string) (*types.KeywordPool, error) {
	return s.poolOrErr()
}

func (s *stubPoolService) Get(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	return s.poolOrErr()
}

func (s *stubPoolService) List(ctx context.Context, orgID, projectID uuid.UUID) ([]*types.KeywordPool, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*types.KeywordPool{s.pool}, nil
}

func (s *stubPoolService) GetPlan(ctx context.Context, orgID, poolID uuid.UUID) (*services.GroupingPlan, error) {
	return s.planOrErr()
}

func (s *stubPoolService) Ingest(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string, incoming []string) (*types.KeywordPool, bool, string, error) {
	if s.err != nil {
		return nil, false, "", s.err
	}
	return s.pool, true, "low keyword volume", nil
}

func (s *stubPoolService) PreviewClean(ctx context.Context, orgID, poolID uuid.UUID, settings types.CleanSettings) (*services.CleanProposal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.CleanProposal{Cleaned: s.pool.RawKeywords}, nil
}

func (s *stubPoolService) ApproveClean(ctx context.Context, orgID, poolID uuid.UUID, cleaned []string, removed []types.RemovedKeyword) (*types.KeywordPool, error) {
	return s.poolOrErr()
}

func (s *stubPoolService) GeneratePlan(ctx context.Context, orgID, poolID uuid.UUID, cfg types.GroupingConfig, skuVariants []string) (*services.GroupingPlan, error) {
	return s.planOrErr()
}

func (s *stubPoolService) ApplyOverride(ctx context.Context, orgID, actorID, poolID uuid.UUID, cmd services.OverrideCommand) (*services.GroupingPlan, error) {
	return s.planOrErr()
}

func (s *stubPoolService) ResetOverrides(ctx context.Context, orgID, poolID uuid.UUID) (*services.GroupingPlan, error) {
	return s.planOrErr()
}

func (s *stubPoolService) ApproveGrouping(ctx context.Context, orgID, poolID uuid.UUID, expectedVersion int64) (*types.KeywordPool, error) {
	return s.poolOrErr()
}

func (s *stubPoolService) UnapproveGrouping(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	return s.poolOrErr()
}

func newHandlerRouter(t *testing.T, svc services.PoolService, rd *requestdata.RequestData) *gin.Engine {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewPoolHandler(log, svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if rd != nil {
			c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		}
		c.Next()
	})
	router.POST("/api/projects/:projectId/pools", h.Ingest)
	router.GET("/api/projects/:projectId/pools", h.ListPools)
	router.GET("/api/pools/:id", h.GetPool)
	router.GET("/api/pools/:id/plan", h.GetPlan)
	router.POST("/api/pools/:id/clean-preview", h.PreviewClean)
	router.PATCH("/api/pools/:id/clean", h.ApproveClean)
	router.POST("/api/pools/:id/grouping-plan", h.GeneratePlan)
	router.POST("/api/pools/:id/grouping-plan/override", h.ApplyOverride)
	router.POST("/api/pools/:id/grouping-plan/reset", h.ResetOverrides)
	router.POST("/api/pools/:id/approve-grouping", h.ApproveGrouping)
	router.POST("/api/pools/:id/unapprove-grouping", h.UnapproveGrouping)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testRequestData() *requestdata.RequestData {
	return &requestdata.RequestData{OrganizationID: uuid.New(), ActorID: uuid.New()}
}

func TestServiceErrorStatusMapping(t *testing.T) {
	poolID := uuid.New()
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound, "pool_not_found"},
		{"concurrent modification", services.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{"generation failed", fmt.Errorf("%w: upstream 500", services.ErrGenerationFailed), http.StatusBadGateway, "generation_failed"},
		{"invalid transition", services.ErrInvalidTransition, http.StatusBadRequest, "invalid_transition"},
		{"no plan", services.ErrNoPlan, http.StatusBadRequest, "no_plan"},
		{"incomplete plan", services.ErrIncompletePlan, http.StatusBadRequest, "incomplete_plan"},
		{"duplicate assignment", services.ErrDuplicateAssignment, http.StatusBadRequest, "duplicate_assignment"},
		{"too few keywords", keywords.ErrTooFewKeywords, http.StatusBadRequest, "too_few_keywords"},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newHandlerRouter(t, &stubPoolService{err: tc.err}, testRequestData())
			w := doJSON(router, http.MethodPost, "/api/pools/"+poolID.String()+"/approve-grouping", gin.H{"expected_version": 3})
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			var envelope ErrorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("code=%q, want %q", envelope.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestIngest_Validation(t *testing.T) {
	svc := &stubPoolService{pool: &types.KeywordPool{ID: uuid.New(), Status: types.PoolStatusUploaded}}
	projectID := uuid.New()

	t.Run("bad project id", func(t *testing.T) {
		router := newHandlerRouter(t, svc, testRequestData())
		w := doJSON(router, http.MethodPost, "/api/projects/not-a-uuid/pools", gin.H{"pool_type": "body", "keywords": []string{"a"}})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status=%d, want 400", w.Code)
		}
	})

	t.Run("bad pool type", func(t *testing.T) {
		router := newHandlerRouter(t, svc, testRequestData())
		w := doJSON(router, http.MethodPost, "/api/projects/"+projectID.String()+"/pools", gin.H{"pool_type": "bullets", "keywords": []string{"a"}})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status=%d, want 400", w.Code)
		}
	})

	t.Run("missing keywords array", func(t *testing.T) {
		router := newHandlerRouter(t, svc, testRequestData())
		w := doJSON(router, http.MethodPost, "/api/projects/"+projectID.String()+"/pools", gin.H{"pool_type": "body"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status=%d, want 400", w.Code)
		}
	})

	t.Run("success includes merge flag and warning", func(t *testing.T) {
		router := newHandlerRouter(t, svc, testRequestData())
		w := doJSON(router, http.MethodPost, "/api/projects/"+projectID.String()+"/pools", gin.H{"pool_type": "body", "keywords": []string{"a", "b", "c", "d", "e"}})
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d, want 200 (body %s)", w.Code, w.Body.String())
		}
		var resp struct {
			Merged  bool   `json:"merged"`
			Warning string `json:"warning"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if !resp.Merged || resp.Warning == "" {
			t.Fatalf("merged=%v warning=%q, want merged with a warning", resp.Merged, resp.Warning)
		}
	})
}

func TestMissingRequestDataIsUnauthorized(t *testing.T) {
	router := newHandlerRouter(t, &stubPoolService{}, nil)
	w := doJSON(router, http.MethodGet, "/api/pools/"+uuid.New().String(), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
}

func TestApplyOverride_RejectsUnknownAction(t *testing.T) {
	router := newHandlerRouter(t, &stubPoolService{}, testRequestData())
	w := doJSON(router, http.MethodPost, "/api/pools/"+uuid.New().String()+"/grouping-plan/override", gin.H{"action": "split", "target_group_index": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestBadPoolIDParam(t *testing.T) {
	router := newHandlerRouter(t, &stubPoolService{}, testRequestData())
	w := doJSON(router, http.MethodGet, "/api/pools/nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}
