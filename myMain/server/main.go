package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/api"
	"github.com/Jiang-hao/hostWalletService/internal/cache"
	"github.com/Jiang-hao/hostWalletService/internal/config"
	"github.com/Jiang-hao/hostWalletService/internal/repository"
	"github.com/Jiang-hao/hostWalletService/internal/repository/memory"
	"github.com/Jiang-hao/hostWalletService/internal/service"
)

func main() {
	cfg, err := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()

	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if !cfg.DotEnvLoaded {
		logger.Info("no .env file found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// Initialize repositories
	repos, closeStore, err := newRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	walletCache := cache.NewNopWalletCache()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, summaries will not be cached", zap.Error(err))
		} else {
			walletCache = cache.NewRedisWalletCache(rdb, cache.DefaultSummaryTTL, logger)
		}
	}

	// Initialize services
	walletService := service.NewWalletService(repos, walletCache, cfg.Fees, logger)
	withdrawalService := service.NewWithdrawalService(repos, walletCache, logger)
	bookingService := service.NewBookingService(repos, logger)

	// Initialize handlers
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(
		api.RouterConfig{ServiceName: cfg.ServiceName, JWTSecret: cfg.JWTSecret, InternalKey: cfg.InternalKey},
		api.NewWalletHandler(walletService, withdrawalService, logger),
		api.NewBookingHandler(bookingService, repos.Hosts, logger),
		api.NewInternalHandler(bookingService, walletService, withdrawalService, logger),
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newRepositories(ctx context.Context, cfg config.Config, logger *zap.Logger) (service.Repositories, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		store := memory.NewStore()
		if cfg.SeedFile != "" {
			seed, err := store.LoadSeedFile(cfg.SeedFile)
			if err != nil {
				return service.Repositories{}, nil, err
			}
			logger.Info("memory store seeded",
				zap.String("file", cfg.SeedFile),
				zap.Int("hosts", len(seed.Hosts)),
				zap.Int("payments", len(seed.Payments)))
		} else {
			logger.Warn("memory store has no hosts or payments; set MEMORY_SEED_FILE to preload them")
		}
		return service.Repositories{
			Wallets:      store,
			Transactions: store,
			Withdrawals:  store,
			Bookings:     store,
			Hosts:        store,
			Payments:     store,
			TxManager:    store,
		}, func() {}, nil
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DB, logger)
	if err != nil {
		return service.Repositories{}, nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return service.Repositories{}, nil, err
	}

	return service.Repositories{
		Wallets:      repository.NewWalletRepository(db),
		Transactions: repository.NewTransactionRepository(db),
		Withdrawals:  repository.NewWithdrawalRepository(db),
		Bookings:     repository.NewBookingRepository(db),
		Hosts:        repository.NewHostRepository(db),
		Payments:     repository.NewPaymentRepository(db),
		TxManager:    repository.NewTxManager(db),
	}, func() { db.Close() }, nil
}
