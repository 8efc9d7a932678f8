package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-reward-service/config"
	httpHandler "game-reward-service/internal/adapter/http/handler"
	"game-reward-service/internal/adapter/http/middleware"
	memStorage "game-reward-service/internal/adapter/storage/memory"
	pgStorage "game-reward-service/internal/adapter/storage/postgres"
	redisStorage "game-reward-service/internal/adapter/storage/redis"
	"game-reward-service/internal/core/ports"
	"game-reward-service/internal/service"
	"game-reward-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage is the set of ports one backend provides.
type storage struct {
	nonces     ports.NonceRepository
	points     ports.PointsRepository
	awards     ports.AwardRepository
	recs       ports.ReconciliationRepository
	audit      ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		store := memStorage.NewStore()
		return &storage{
			nonces:     memStorage.NewNonceRepo(store),
			points:     memStorage.NewPointsRepo(store),
			awards:     memStorage.NewAwardRepo(store),
			recs:       memStorage.NewReconciliationRepo(store),
			audit:      memStorage.NewAuditRepo(store),
			transactor: memStorage.NewTransactor(store),
			health:     memStorage.NewHealthCheck(),
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if cfg.Storage.Migrate {
		if err := pgStorage.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}
	log.Info().Msg("PostgreSQL connected")

	return &storage{
		nonces:     pgStorage.NewNonceRepo(pool),
		points:     pgStorage.NewPointsRepo(pool),
		awards:     pgStorage.NewAwardRepo(pool),
		recs:       pgStorage.NewReconciliationRepo(pool),
		audit:      pgStorage.NewAuditRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("GRS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("redeem_mode", cfg.Reward.RedeemMode).
		Msg("Starting Game Reward Service")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis is optional. Interfaces stay nil when it is off so the
	// services and router see "disabled" rather than a nil pointer.
	var (
		cache          ports.LeaderboardCache
		rateLimitStore middleware.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		cache = redisStorage.NewLeaderboardCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: no leaderboard cache, no rate limiting")
	}

	// Initialize business services
	nonceSvc := service.NewNonceService(store.nonces, store.transactor, cfg.Storage.Timeout,
		logger.Component(log, "nonce"))
	ledger := service.NewPointsLedger(store.points, store.transactor, cache, service.LedgerConfig{
		DefaultLimit: cfg.Leaderboard.DefaultLimit,
		MaxLimit:     cfg.Leaderboard.MaxLimit,
		CacheTTL:     cfg.Leaderboard.CacheTTL,
		Timeout:      cfg.Storage.Timeout,
	}, logger.Component(log, "ledger"))
	awardSvc := service.NewAwardService(nonceSvc, ledger, store.awards, store.recs, store.transactor, service.AwardConfig{
		Amount:  cfg.Reward.Amount,
		Mode:    cfg.Reward.RedeemMode,
		Timeout: cfg.Storage.Timeout,
	}, logger.Component(log, "award"))
	reconSvc := service.NewReconciliationService(store.recs, ledger, store.awards, store.transactor,
		cfg.Storage.Timeout, logger.Component(log, "reconciliation"))
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))

	// Admin routes stay off until a signing secret is configured.
	var adminTokens ports.AdminTokenService
	if cfg.Admin.JWTSecret != "" {
		adminTokens = service.NewJWTAdminTokenService(cfg.Admin.JWTSecret, cfg.Admin.TokenExpiry, cfg.Admin.Issuer)
	} else {
		log.Warn().Msg("admin.jwt_secret not set: reconciliation endpoints disabled")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AwardSvc:       awardSvc,
		Ledger:         ledger,
		ReconSvc:       reconSvc,
		AdminTokens:    adminTokens,
		AuditSvc:       auditSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Server:         cfg.Server,
		RateLimit:      cfg.RateLimit,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
