// Package main is the entry point of the card ledger API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankcards/internal/config"
	"bankcards/internal/handlers"
	"bankcards/internal/logging"
	"bankcards/internal/metrics"
	"bankcards/internal/middleware"
	"bankcards/internal/repositories"
	"bankcards/internal/repositories/cache"
	"bankcards/internal/routes"
	"bankcards/internal/services/card"
	"bankcards/internal/services/expiry"
	"bankcards/internal/services/ledger"
	"bankcards/internal/services/masking"
	"bankcards/internal/services/notification"
	"bankcards/internal/services/transfer"
	"bankcards/internal/utils/cardcrypto"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const (
	maskCacheTTL    = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

// backends are the storage and delivery components selected by STORE_DRIVER.
type backends struct {
	store     repositories.CardStore
	users     repositories.UserDirectory
	cache     cache.Store
	publisher notification.Publisher
	checks    map[string]handlers.HealthCheck
	closers   []func() error
}

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel)

	codec, err := cardcrypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		log.WithError(err).Fatal("invalid ENCRYPTION_KEY")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheusCollector(reg)

	b, err := openBackends(cfg, log, reg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialise storage")
	}
	defer func() {
		for _, closeFn := range b.closers {
			if err := closeFn(); err != nil {
				log.WithError(err).Warn("failed to close resource")
			}
		}
	}()

	dispatcher := notification.NewDispatcher(b.publisher, notification.DispatcherConfig{
		QueueSize:      cfg.EventQueueSize,
		Workers:        cfg.EventWorkers,
		MaxAttempts:    cfg.EventMaxAttempts,
		BaseBackoff:    100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		PublishTimeout: 5 * time.Second,
	}, log, collector)
	dispatcher.Start()

	masks := masking.NewResolver(codec, b.cache, log)
	cardService := card.NewService(b.store, b.users, codec, masks, log, collector)
	ledgerService := ledger.NewService(b.store, masks)
	transferService := transfer.NewService(b.store, masks, dispatcher, log, collector)

	var sweeper *expiry.Sweeper
	if cfg.ExpirySweepEnabled {
		sweeper = expiry.NewSweeper(b.store, cardService, log)
		if err := sweeper.Start(cfg.ExpirySweepSchedule); err != nil {
			log.WithError(err).Fatal("failed to start expiry sweeper")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "bankcards",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Auth:              middleware.NewAuthMiddleware(cfg.JWTSecret, log),
		Cards:             handlers.NewCardHandler(cardService, ledgerService, b.store, log),
		Transfers:         handlers.NewTransferHandler(transferService, ledgerService, b.store, log),
		Health:            handlers.NewHealthHandler(b.checks),
		Gatherer:          reg,
		TransferRateLimit: cfg.TransferRateLimit,
	})

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("http server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown incomplete")
	}
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("pending transfer events were not delivered")
	}
}

func openBackends(cfg *config.Config, log *logrus.Logger, reg prometheus.Registerer) (*backends, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.WithField("users", cfg.MemoryUsers).Warn("using in-memory store, data is not persisted")
		return &backends{
			store:     repositories.NewMemoryCardStore(cfg.LockTimeout),
			users:     repositories.NewMemoryUserDirectory(cfg.MemoryUsers...),
			cache:     cache.NewMemoryStore(maskCacheTTL),
			publisher: notification.NewLogPublisher(log),
			checks:    map[string]handlers.HealthCheck{},
		}, nil
	}

	db, err := repositories.OpenPostgres(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, "bankcards"))

	redisClient := cache.NewRedisClient(cache.RedisConfigFrom(cfg))
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx, redisClient); err != nil {
		return nil, err
	}
	log.WithField("addr", redisClient.Options().Addr).Info("redis connected")

	cacheService := cache.NewCacheService(redisClient, maskCacheTTL)
	return &backends{
		store:     repositories.NewCardRepository(db, cfg.LockTimeout),
		users:     repositories.NewUserRepository(db, cacheService, log),
		cache:     cacheService,
		publisher: notification.NewRedisStreamPublisher(redisClient, cfg.EventStream),
		checks: map[string]handlers.HealthCheck{
			"database": sqlDB.PingContext,
			"redis": func(ctx context.Context) error {
				return cache.Ping(ctx, redisClient)
			},
		},
		closers: []func() error{
			redisClient.Close,
			func() error { return repositories.Close(db) },
		},
	}, nil
}
