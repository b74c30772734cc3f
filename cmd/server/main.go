package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/config"
	"github.com/iliyamo/marketplace-availability/internal/database"
	"github.com/iliyamo/marketplace-availability/internal/handler"
	"github.com/iliyamo/marketplace-availability/internal/lock"
	"github.com/iliyamo/marketplace-availability/internal/logging"
	"github.com/iliyamo/marketplace-availability/internal/middleware"
	"github.com/iliyamo/marketplace-availability/internal/queue"
	"github.com/iliyamo/marketplace-availability/internal/repository"
	"github.com/iliyamo/marketplace-availability/internal/router"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable: using in-process lock, cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	lockCfg := config.LoadLockConfig()
	var locks availability.Locker
	if rdb != nil {
		locks = lock.NewRedisLocker(rdb, lockCfg, logger)
	} else {
		locks = lock.NewLocalLocker(lockCfg.Timeout)
	}

	var notifier availability.Notifier
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, logger)
		defer pub.Close()
		notifier = pub
	} else {
		logger.Info("RABBITMQ_URL not set: change events disabled")
	}

	users := repository.NewUserRepo(db)
	store := repository.NewAvailabilityStore(db, repository.NewWindowRepo(db), repository.NewBookingRepo(db))
	svc := availability.NewService(store, locks, notifier, logger, availability.WithVendorDirectory(users))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AuditConsumer && cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, cfg.AuditLogDir, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLogger(logger))

	ready := map[string]handler.Pinger{"mysql": handler.PingFunc(db.PingContext)}
	if rdb != nil {
		ready["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	router.RegisterRoutes(e, ready)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	cache := middleware.NewVendorCache(config.LoadCacheConfig(), rdb, logger)

	auth := handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db))
	router.RegisterAuth(e, auth, cfg.JWTSecret, limiter)
	router.RegisterAvailability(e,
		handler.NewAvailabilityHandler(svc, availability.ModeSelf, logger),
		handler.NewAvailabilityHandler(svc, availability.ModeElevated, logger),
		cfg.JWTSecret, limiter, cache.Middleware())

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.Bool("redis", rdb != nil), zap.Bool("events", notifier != nil))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
