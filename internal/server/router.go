package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sellerforge/listingops-backend/internal/handlers"
	"github.com/sellerforge/listingops-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	PoolHandler    *handlers.PoolHandler
	CORSOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/projects/:projectId/pools", cfg.PoolHandler.Ingest)
		api.GET("/projects/:projectId/pools", cfg.PoolHandler.ListPools)

		api.GET("/pools/:id", cfg.PoolHandler.GetPool)
		api.GET("/pools/:id/plan", cfg.PoolHandler.GetPlan)

		api.POST("/pools/:id/clean-preview", cfg.PoolHandler.PreviewClean)
		api.PATCH("/pools/:id/clean", cfg.PoolHandler.ApproveClean)

		api.POST("/pools/:id/grouping-plan", cfg.PoolHandler.GeneratePlan)
		api.POST("/pools/:id/grouping-plan/override", cfg.PoolHandler.ApplyOverride)
		api.POST("/pools/:id/grouping-plan/reset", cfg.PoolHandler.ResetOverrides)

		api.POST("/pools/:id/approve-grouping", cfg.PoolHandler.ApproveGrouping)
		api.POST("/pools/:id/unapprove-grouping", cfg.PoolHandler.UnapproveGrouping)
	}

	return router
}
