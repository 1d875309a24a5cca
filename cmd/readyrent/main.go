package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appoutbox "readyrent/internal/app/outbox"
	"readyrent/internal/app/services/ledger"
	"readyrent/internal/app/services/rental"
	"readyrent/internal/app/uow"
	"readyrent/internal/domain/availability"
	domaininventory "readyrent/internal/domain/inventory"
	"readyrent/internal/domain/maintenance"
	"readyrent/internal/domain/policy"
	"readyrent/internal/domain/product"
	"readyrent/internal/infra/broker/kafka"
	"readyrent/internal/infra/cache/memorycache"
	"readyrent/internal/infra/cache/rediscache"
	"readyrent/internal/infra/config"
	mongodb "readyrent/internal/infra/db/mongo"
	ginserver "readyrent/internal/infra/http/gin"
	"readyrent/internal/infra/obs"
	infraoutbox "readyrent/internal/infra/outbox"
	"readyrent/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, cleanup, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "cache", cfg.CacheMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type productFixture struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Category          string `json:"category"`
	QuantityTotal     int    `json:"quantity_total"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// loadProductFixtures seeds the in-memory catalog for local development. A
// fixture with quantity_total zero stays an untracked single unit.
func loadProductFixtures(ctx context.Context, catalog *memory.ProductCatalog, inventoryRepo *memory.InventoryRepository, logger *slog.Logger) error {
	path := os.Getenv("PRODUCT_FIXTURES")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("product fixtures file not found, skipping", "path", path)
			return nil
		}
		return err
	}
	var fixtures []productFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, fx := range fixtures {
		status := product.Status(fx.Status)
		if status == "" {
			status = product.StatusAvailable
		}
		catalog.Put(product.Product{ID: product.ProductID(fx.ID), Status: status, Category: fx.Category})
		if fx.QuantityTotal > 0 {
			record, err := domaininventory.NewRecord(product.ProductID(fx.ID), fx.QuantityTotal, fx.LowStockThreshold, now)
			if err != nil {
				logger.Error("fixture invalid", "product_id", fx.ID, "error", err)
				continue
			}
			if err := inventoryRepo.Save(ctx, record); err != nil {
				logger.Error("cannot store fixture record", "product_id", fx.ID, "error", err)
				continue
			}
		}
		logger.Info("product fixture imported", "product_id", fx.ID)
	}
	return nil
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	ready    func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var (
		catalog     product.Catalog
		uowFactory  uow.UoWFactory
		checker     *availability.Checker
		outboxStore appoutbox.Outbox
		worker      *infraoutbox.Worker
		ready       = func() error { return nil }
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			cleanup()
			return application{}, nil, err
		}
		cleanups = append(cleanups, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		})
		bookingRepo := mongodb.NewBookingRepository(client.DB)
		inventoryRepo := mongodb.NewInventoryRepository(client.DB)
		movementLog := mongodb.NewMovementLog(client.DB)
		alertRepo := mongodb.NewAlertRepository(client.DB)
		maintenanceRepo := mongodb.NewMaintenanceRepository(client.DB)
		catalog = mongodb.NewProductCatalog(client.DB)
		uowFactory = mongodb.Factory{
			DB:              client.DB,
			BookingRepo:     bookingRepo,
			InventoryRepo:   inventoryRepo,
			MovementLog:     movementLog,
			AlertRepo:       alertRepo,
			MaintenanceRepo: maintenanceRepo,
		}
		checker = availability.NewChecker(catalog, inventoryRepo, maintenance.NewCalendar(maintenanceRepo), bookingRepo)
		outboxStore = infraoutbox.NewStore(client.DB)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		memCatalog := memory.NewProductCatalog()
		bookingRepo := memory.NewBookingRepository()
		inventoryRepo := memory.NewInventoryRepository()
		movementLog := memory.NewMovementLog()
		alertRepo := memory.NewAlertRepository()
		maintenanceRepo := memory.NewMaintenanceRepository()
		catalog = memCatalog
		uowFactory = memory.Factory{
			BookingRepo:     bookingRepo,
			InventoryRepo:   inventoryRepo,
			MovementLog:     movementLog,
			AlertRepo:       alertRepo,
			MaintenanceRepo: maintenanceRepo,
		}
		checker = availability.NewChecker(catalog, inventoryRepo, maintenance.NewCalendar(maintenanceRepo), bookingRepo)
		outboxStore = memory.NewOutbox()
		if err := loadProductFixtures(ctx, memCatalog, inventoryRepo, logger); err != nil {
			logger.Warn("product fixtures load failed", "error", err)
		}
	}

	var cache availability.Cache
	switch cfg.CacheMode {
	case "redis":
		redisCache := rediscache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL, logger)
		cleanups = append(cleanups, func() { _ = redisCache.Close() })
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, cache degrades to misses", "error", err)
		}
		cache = redisCache
	default:
		cache = memorycache.New(cfg.CacheTTL)
	}
	cachedChecker := availability.NewCachedChecker(checker, cache)

	encoder := appoutbox.JSONEventEncoder{}
	ledgerSvc := &ledger.Service{
		UoWFactory: uowFactory,
		Locks:      domaininventory.NewLocks(),
		Outbox:     outboxStore,
		Encoder:    encoder,
		Cache:      cachedChecker,
		Logger:     logger,
	}
	cancellation := policy.NewCancellationEngine(cfg.CancellationTiers)
	cancellation.RefuseAfterStart = cfg.RefuseAfterStart
	rentalSvc := &rental.Service{
		UoWFactory:   uowFactory,
		Checker:      cachedChecker,
		Ledger:       ledgerSvc,
		Cancellation: cancellation,
		EarlyReturn:  policy.NewEarlyReturnCalculator(cfg.EarlyReturnRefund),
		Outbox:       outboxStore,
		Encoder:      encoder,
		Cache:        cachedChecker,
		Logger:       logger,
		CleaningDays: cfg.CleaningDays,
	}

	if len(cfg.KafkaBrokers) > 0 {
		store, ok := outboxStore.(*infraoutbox.Store)
		if !ok {
			logger.Warn("kafka configured without mongo outbox store, events stay buffered")
		} else {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				cleanup()
				return application{}, nil, err
			}
			cleanups = append(cleanups, func() { _ = producer.Close() })
			worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "readyrent-availability-cache", nil, &kafka.CatalogEventHandler{
			Cache:  cachedChecker,
			Logger: logger,
		}, logger)
		if err != nil {
			cleanup()
			return application{}, nil, err
		}
		cleanups = append(cleanups, func() { _ = consumer.Close() })
		go func() {
			topic := cfg.KafkaTopicPrefix + "catalog.events.v1"
			if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("catalog consumer stopped", "error", err)
			}
		}()
	}

	return application{
		handlers: ginserver.Handlers{
			Availability: ginserver.AvailabilityHandler{
				Checker:         cachedChecker,
				MaxCalendarDays: cfg.MaxCalendarDays,
			},
			Booking: ginserver.BookingHandler{
				Rental:          rentalSvc,
				DefaultCurrency: cfg.DefaultCurrency,
			},
			Inventory: ginserver.InventoryHandler{
				Ledger: ledgerSvc,
			},
		},
		worker: worker,
		ready:  ready,
	}, cleanup, nil
}
