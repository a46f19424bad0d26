package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/codegrader.net/internal/adapter/catalog"
	"gitlab.com/codegrader.net/internal/adapter/crypto"
	"gitlab.com/codegrader.net/internal/adapter/jsruntime"
	"gitlab.com/codegrader.net/internal/adapter/logging"
	"gitlab.com/codegrader.net/internal/adapter/memory"
	"gitlab.com/codegrader.net/internal/adapter/postgres/challengerepository"
	"gitlab.com/codegrader.net/internal/adapter/postgres/submissionrepository"
	"gitlab.com/codegrader.net/internal/adapter/redis/challengecache"
	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/core/services/grading"
	http2 "gitlab.com/codegrader.net/internal/http"
	"gitlab.com/codegrader.net/internal/limiter"
	"gitlab.com/codegrader.net/internal/schedulerengine"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sysCfg := config.NewSystemConfig()
	logger := logging.NewZapLogger(sysCfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting code grading service")

	// SECONDARY PORTS
	var (
		challengeReader secondary.ChallengeReader
		submissionPort  secondary.SubmissionWriter
	)
	if sysCfg.CatalogConfig.Enabled() {
		store, err := catalog.Load(sysCfg.CatalogConfig.Path)
		if err != nil {
			logger.Error("Failed to load challenge catalog", "path", sysCfg.CatalogConfig.Path, "error", err)
			os.Exit(1)
		}
		logger.Info("Serving challenges from catalog", "path", sysCfg.CatalogConfig.Path, "count", len(store.IDs()))
		challengeReader = store
		submissionPort = memory.NewSubmissionStore()
	} else {
		db, err := setupDatabase(sysCfg.PostgresConfig)
		if err != nil {
			logger.Error("Failed to set up database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		redisClient := setupRedis(sysCfg.RedisConfig, logger)
		defer redisClient.Close()

		challengeReader = challengecache.New(
			challengerepository.New(db, logger, sysCfg.PostgresConfig.Schema),
			redisClient,
			sysCfg.RedisConfig.CacheTTL,
			logger,
		)
		submissionPort = submissionrepository.New(db, logger, sysCfg.PostgresConfig.Schema)
	}

	// primary ports
	var verifier primary.IdentityVerifier
	if sysCfg.JwtConfig.Enabled() {
		verifier = crypto.NewJWTService(sysCfg.JwtConfig)
	}

	// services
	sandbox := jsruntime.New(logger, jsruntime.WithMaxCallStackSize(sysCfg.GradingConfig.MaxCallStackSize))
	gradingSvc, err := grading.NewGradingService(challengeReader, submissionPort, sandbox, sysCfg.GradingConfig, logger)
	if err != nil {
		logger.Error("Failed to create grading service", "error", err)
		os.Exit(1)
	}
	rateLimiter := limiter.New(sysCfg.RateLimitConfig, sysCfg.GradingConfig.MaxConcurrent)
	serviceProvider := http2.NewServiceProvider(gradingSvc, verifier, rateLimiter.Middleware)

	// server
	httpServer := http2.NewServer(sysCfg.HTTPConfig, "codegrader", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	ctxBg, stopBackground := context.WithCancel(context.Background())
	serveErr := httpServer.Start(ctxBg)

	scheduler := schedulerengine.NewSchedulerEngine(sysCfg.CacheRefreshConfig, sysCfg.RateLimitConfig, gradingSvc, rateLimiter, logger)
	if !sysCfg.DebugMode {
		scheduler.Start(ctxBg)
	}

	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", "error", err)
		}
	}
	logger.Info("Shutting down server...")

	stopBackground()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Stop(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	scheduler.Wait()

	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// setupRedis sets up the Redis connection. An unreachable Redis is not
// fatal; the cache falls through to Postgres.
func setupRedis(cfg *config.RedisConfig, logger primary.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, challenge cache disabled until it recovers", "addr", cfg.Url, "error", err)
	}
	return client
}

// InitReader loads <env>.env, where env is the first argument ("local" when
// omitted). A missing file is only fatal when the environment was named
// explicitly.
func InitReader() {
	environment := "local"
	explicit := len(os.Args) >= 2
	if explicit {
		environment = os.Args[1]
	}

	if err := godotenv.Load(environment + ".env"); err != nil && explicit {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
