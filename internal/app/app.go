package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayo6706/salon-ledger/internal/api"
	"github.com/ayo6706/salon-ledger/internal/cache"
	"github.com/ayo6706/salon-ledger/internal/config"
	"github.com/ayo6706/salon-ledger/internal/db"
	"github.com/ayo6706/salon-ledger/internal/idempotency"
	"github.com/ayo6706/salon-ledger/internal/lock"
	"github.com/ayo6706/salon-ledger/internal/observability"
	"github.com/ayo6706/salon-ledger/internal/repository"
	"github.com/ayo6706/salon-ledger/internal/service"
	"github.com/ayo6706/salon-ledger/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// reportCache is what the services need from either cache implementation.
type reportCache interface {
	service.ReportCache
	service.CacheInvalidator
}

// Run bootstraps the HTTP server and validation worker, blocking until ctx is
// cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	deps := api.Dependencies{}
	var store service.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := repository.NewMemoryStore()
		mem.SeedChartOfAccounts()
		store = mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		if cfg.RunMigrations {
			if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		store = repository.NewStore(pool)

		// Delivery replay needs the idempotency_keys table; Redis only caches it.
		var cmd redis.Cmdable
		if redisClient != nil {
			cmd = redisClient
		}
		deps.Deliveries = idempotency.NewStore(cmd, pool, cfg.IdempotencyTTL)
	}

	var reports reportCache = cache.NewMemoryCache()
	var locker service.PaymentLocker
	var leader worker.Leader
	if redisClient != nil {
		deps.Redis = redisClient
		reports = cache.NewReportCache(redisClient, cfg.ReportCacheTTL)
		locker = lock.NewPaymentLocker(redisClient, cfg.PaymentLockTTL)
		leader = lock.NewRunLock(redisClient, "financial-validation", cfg.ValidationInterval)
	}

	audit := service.NewAuditService(store)
	revenueSvc := service.NewRevenueService(store, audit, reports, service.RevenueConfig{
		RevenueAccountCode: cfg.RevenueAccountCode,
		CashAccountCode:    cfg.CashAccountCode,
		StepTimeout:        cfg.StoreTimeout,
	})
	deps.Store = store
	deps.Webhooks = service.NewWebhookService(revenueSvc, store, locker, cfg.AsaasWebhookToken, cfg.AsaasWebhookSkipToken)
	deps.Reports = service.NewReportService(store, audit, reports, service.ReportConfig{
		StepTimeout:           cfg.StoreTimeout,
		AuditTrailConcurrency: cfg.AuditTrailConcurrency,
	})
	deps.Validator = service.NewValidationService(store, service.ValidationConfig{
		StepTimeout:        cfg.StoreTimeout,
		HighValueThreshold: cfg.HighValueThreshold,
	})

	reconciliation := service.NewReconciliationService(store, deps.Validator, audit)
	validationWorker := worker.NewValidationWorker(reconciliation).WithInterval(cfg.ValidationInterval)
	if leader != nil {
		validationWorker.WithLeader(leader)
	}
	stopWorker := validationWorker.Run(ctx)

	router := api.NewRouter(cfg, logger, deps)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("redis", redisClient != nil))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			cancel()
			stopWorker()
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("stopping validation worker")
	cancel()
	stopWorker()

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
