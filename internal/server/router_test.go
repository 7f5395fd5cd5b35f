package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sellerforge/listingops-backend/internal/handlers"
	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/middleware"
	"github.com/sellerforge/listingops-backend/internal/services"
	"github.com/sellerforge/listingops-backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "router-test-secret"

// fixedPoolService hands back one pool for any lookup; auth behavior is what
// these tests are about.
type fixedPoolService struct {
	pool *types.KeywordPool
}

func (s *fixedPoolService) GetOrCreate(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string) (*types.KeywordPool, error) {
	return s.pool, nil
}

func (s *fixedPoolService) Get(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	return s.pool, nil
}

func (s *fixedPoolService) List(ctx context.Context, orgID, projectID uuid.UUID) ([]*types.KeywordPool, error) {
	return []*types.KeywordPool{s.pool}, nil
}

func (s *fixedPoolService) GetPlan(ctx context.Context, orgID, poolID uuid.UUID) (*services.GroupingPlan, error) {
	return &services.GroupingPlan{PoolID: poolID}, nil
}

func (s *fixedPoolService) Ingest(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string, incoming []string) (*types.KeywordPool, bool, string, error) {
	return s.pool, false, "", nil
}

func (s *fixedPoolService) PreviewClean(ctx context.Context, orgID, poolID uuid.UUID, settings types.CleanSettings) (*services.CleanProposal, error) {
	return &services.CleanProposal{}, nil
}

func (s *fixedPoolService) ApproveClean(ctx context.Context, orgID, poolID uuid.UUID, cleaned []string, removed []types.RemovedKeyword) (*types.KeywordPool, error) {
	return s.pool, nil
}

func (s *fixedPoolService) GeneratePlan(ctx context.Context, orgID, poolID uuid.UUID, cfg types.GroupingConfig, skuVariants []string) (*services.GroupingPlan, error) {
	return &services.GroupingPlan{PoolID: poolID}, nil
}

func (s *fixedPoolService) ApplyOverride(ctx context.Context, orgID, actorID, poolID uuid.UUID, cmd services.OverrideCommand) (*services.GroupingPlan, error) {
	return &services.GroupingPlan{PoolID: poolID}, nil
}

func (s *fixedPoolService) ResetOverrides(ctx context.Context, orgID, poolID uuid.UUID) (*services.GroupingPlan, error) {
	return &services.GroupingPlan{PoolID: poolID}, nil
}

func (s *fixedPoolService) ApproveGrouping(ctx context.Context, orgID, poolID uuid.UUID, expectedVersion int64) (*types.KeywordPool, error) {
	return s.pool, nil
}

func (s *fixedPoolService) UnapproveGrouping(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	return s.pool, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc := &fixedPoolService{pool: &types.KeywordPool{ID: uuid.New(), Status: types.PoolStatusUploaded}}
	return NewRouter(RouterConfig{
		AuthMiddleware: middleware.NewAuthMiddleware(log, testSecret),
		PoolHandler:    handlers.NewPoolHandler(log, svc),
	})
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHealthcheckIsPublic(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router := newTestRouter(t)
	poolPath := "/api/pools/" + uuid.New().String()

	cases := []struct {
		name       string
		authorize  func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "no token",
			authorize:  func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			authorize: func(r *http.Request) {
				tok := signToken(t, "some-other-secret", jwt.MapClaims{
					"organization_id": uuid.New().String(),
					"exp":             time.Now().Add(time.Hour).Unix(),
				})
				r.Header.Set("Authorization", "Bearer "+tok)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired token",
			authorize: func(r *http.Request) {
				tok := signToken(t, testSecret, jwt.MapClaims{
					"organization_id": uuid.New().String(),
					"exp":             time.Now().Add(-time.Hour).Unix(),
				})
				r.Header.Set("Authorization", "Bearer "+tok)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "missing organization",
			authorize: func(r *http.Request) {
				tok := signToken(t, testSecret, jwt.MapClaims{
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				r.Header.Set("Authorization", "Bearer "+tok)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "valid bearer token",
			authorize: func(r *http.Request) {
				tok := signToken(t, testSecret, jwt.MapClaims{
					"organization_id": uuid.New().String(),
					"sub":             uuid.New().String(),
					"exp":             time.Now().Add(time.Hour).Unix(),
				})
				r.Header.Set("Authorization", "Bearer "+tok)
			},
			wantStatus: http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, poolPath, nil)
			tc.authorize(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestQueryParamTokenAccepted(t *testing.T) {
	router := newTestRouter(t)
	tok := signToken(t, testSecret, jwt.MapClaims{
		"organization_id": uuid.New().String(),
		"exp":             time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/pools/"+uuid.New().String()+"?token="+tok, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 (body %s)", w.Code, w.Body.String())
	}
}
