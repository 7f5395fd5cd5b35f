package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sellerforge/listingops-backend/internal/db"
	"github.com/sellerforge/listingops-backend/internal/handlers"
	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/middleware"
	"github.com/sellerforge/listingops-backend/internal/repos"
	"github.com/sellerforge/listingops-backend/internal/server"
	"github.com/sellerforge/listingops-backend/internal/services"
	"github.com/sellerforge/listingops-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	genTimeoutSec := utils.GetEnvAsInt("GENERATION_TIMEOUT_SECONDS", 120, log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	corsOrigins := utils.GetEnv("CORS_ORIGINS", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	poolRepo := repos.NewKeywordPoolRepo(thePG, log)
	groupRepo := repos.NewKeywordGroupRepo(thePG, log)
	overrideRepo := repos.NewGroupingOverrideRepo(thePG, log)

	// Services
	log.Info("Setting up services...")
	aiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	cleanerService := services.NewAICleanerService(log, aiClient)
	grouperService := services.NewAIGrouperService(log, aiClient)

	var notifier services.PoolNotifier
	if redisAddr != "" {
		notifier = services.NewRedisNotifier(log, redisAddr)
	} else {
		log.Info("REDIS_ADDR not set, pool events disabled")
		notifier = services.NopNotifier{}
	}

	poolService := services.NewPoolService(
		thePG,
		log,
		poolRepo,
		groupRepo,
		overrideRepo,
		cleanerService,
		grouperService,
		notifier,
		time.Duration(genTimeoutSec)*time.Second,
	)

	// Handlers
	log.Info("Setting up handlers...")
	poolHandler := handlers.NewPoolHandler(log, poolService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	var origins []string
	if corsOrigins != "" {
		origins = strings.Split(corsOrigins, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		PoolHandler:    poolHandler,
		CORSOrigins:    origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
