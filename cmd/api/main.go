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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/app"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/config"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/holdstore"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/logging"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/retry"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/storage/postgres"
	transporthttp "github.com/EvgenyLat/whatsapp-saas-sub010/internal/transport/http"
	"github.com/EvgenyLat/whatsapp-saas-sub010/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	clk := clock.NewSystem()

	var holds holdstore.Store
	switch cfg.HoldStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(startupCtx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		holds = holdstore.NewRedis(client, clk, holdstore.WithRedisTTL(cfg.HoldTTL))
		logger.Info("hold store: redis", zap.String("addr", cfg.RedisAddr))
	default:
		holds = holdstore.NewMemory(clk, holdstore.WithTTL(cfg.HoldTTL))
		logger.Info("hold store: memory")
	}

	bookingRepo := postgres.NewBookingRepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)

	validator := app.NewSlotValidator(bookingRepo, clk)
	codes := app.NewCodeGenerator(bookingRepo)
	bookingSvc := app.NewBookingService(bookingRepo, codes, clk, logger)
	reservationSvc := app.NewReservationService(
		validator, holds, bookingSvc, bookingRepo, clk, logger,
		app.WithRetryConfig(retry.Config{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.RetryBaseDelay,
		}),
		// Business rejections are terminal; anything else, known transient
		// class or not, gets retried within the attempt budget.
		app.WithTerminalClassifier(domain.IsTerminal),
	)
	adminSvc := app.NewAdminService(adminRepo, clk)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go holdstore.RunSweeper(sweepCtx, holds, cfg.HoldSweepInterval, logger)

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		Reservations:      reservationSvc,
		Admin:             adminSvc,
		DB:                pool,
		Logger:            logger,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
		Production:        cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	logger.Info("api listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
