// Command server runs the dataset verification and reward ledger service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiv1 "github.com/Neocryptoquant/africa-research-ledger/internal/api/v1"
	"github.com/Neocryptoquant/africa-research-ledger/internal/cache"
	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/internal/paymentrail"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/registry"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/reputation"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/rewards"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/scoring"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Repositories
	datasetRepo := repository.NewDatasetRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	reputationRepo := repository.NewReputationRepository(db)

	// Services
	rewardsSvc := rewards.NewService(
		ledgerRepo,
		cfg.Rewards,
		redisCache,
		cfg.Database.Redis.BalanceCacheTTL(),
		log.Component("rewards"),
	)
	reputationSvc := reputation.NewService(db, datasetRepo, reputationRepo, log.Component("reputation"))
	registrySvc := registry.NewService(db, datasetRepo, rewardsSvc, reputationSvc, log.Component("registry"))
	scoringSvc := scoring.NewService(db, datasetRepo, reviewRepo, rewardsSvc, cfg.Scoring, log.Component("scoring"))

	// Payment forwarder
	rail := paymentrail.NewClient(&cfg.Forwarder, log.Component("paymentrail"))
	forwarder := rewards.NewForwarder(ledgerRepo, rail, cfg.Forwarder, log.Component("forwarder"))
	if err := forwarder.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start payment forwarder")
	}
	defer forwarder.Stop()

	// HTTP server
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := apiv1.NewHandler(registrySvc, scoringSvc, rewardsSvc, reputationSvc, log.Component("api"))
	handler.RegisterRoutes(router.Group("/api/v1"))

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}
