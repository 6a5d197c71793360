// Printful bridge - catalog, designer, cart and fulfillment service between a
// WooCommerce storefront and Printful.
// Designed for Cloud Run deployment; state lives in Postgres and Redis when configured.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/cart"
	"printful-bridge/internal/catalog"
	"printful-bridge/internal/config"
	"printful-bridge/internal/design"
	"printful-bridge/internal/handler"
	"printful-bridge/internal/middleware"
	"printful-bridge/internal/order"
	"printful-bridge/internal/pricing"
	"printful-bridge/internal/printful"
	"printful-bridge/internal/shipping"
	"printful-bridge/internal/webhook"
	"printful-bridge/internal/woocommerce"
)

// memoryCacheEntries bounds the in-process cache used without Redis.
const memoryCacheEntries = 10000

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	logger := initLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("store_id", cfg.StoreID),
		slog.String("environment", cfg.Environment),
		slog.String("printful_store_id", cfg.Store.PrintfulStoreID),
		slog.Bool("postgres", cfg.DatabaseURL != ""),
		slog.Bool("redis", cfg.RedisAddr != ""),
	)

	store, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	designStore, queue, err := persistence(ctx, db)
	if err != nil {
		return err
	}

	pf, err := printful.New(printful.Config{
		APIKey:  cfg.Store.PrintfulAPIKey,
		StoreID: cfg.Store.PrintfulStoreID,
	})
	if err != nil {
		return fmt.Errorf("creating printful client: %w", err)
	}

	prices := pricing.NewResolver(pf, store, logger)
	catalogSvc := catalog.NewService(pf, prices, store, logger, catalog.Options{
		Currency:           cfg.Store.Currency,
		AllowedCategoryIDs: cfg.Store.AllowedCategoryIDs,
	})
	designs := design.NewService(designStore, store, pf, logger, design.Config{
		LoginURL:     cfg.Store.LoginURL,
		MyDesignsURL: cfg.Store.MyDesignsURL,
	})

	confirmer := order.NewConfirmer(pf, store, queue, logger,
		order.WithAlert(cfg.Store.RetryAlertAfter, nil),
	)
	subs := webhook.NewSubscriptions(pf, store, cfg.WebhookURL(), logger)

	deps := handler.Deps{
		Catalog:       catalogSvc,
		Prices:        prices,
		Designs:       designs,
		Rates:         shipping.NewCalculator(pf, cfg.Store.Currency, logger),
		Deliveries:    webhook.NewHandler(subs, confirmer, logger),
		Subscriptions: subs,
		Jobs:          queue,
		RemoteOrders:  pf,
	}

	if cfg.Store.WooStoreURL != "" {
		woo, err := woocommerce.New(woocommerce.Config{
			StoreURL:  cfg.Store.WooStoreURL,
			APIKey:    cfg.Store.WooConsumerKey,
			APISecret: cfg.Store.WooConsumerSecret,
		})
		if err != nil {
			return fmt.Errorf("creating woocommerce client: %w", err)
		}
		deps.Carts = cart.NewService(store, designStore, woo, logger, cart.Config{
			ContainerProductID: cfg.Store.ContainerProductID,
			MarkupPct:          cfg.Store.MarkupPct,
			MarkupFix:          cfg.Store.MarkupFix,
			Currency:           cfg.Store.Currency,
			CartURL:            cfg.Store.CartURL,
			LoginURL:           cfg.Store.LoginURL,
		})
		deps.Orders = order.NewSubmitter(woo, pf, confirmer, packingSlip(cfg), logger)
	} else {
		logger.Warn("woocommerce not configured, cart and order submission disabled")
	}

	h := handler.New(deps, handler.Options{
		ShopperSecret:    cfg.Store.ShopperSecret,
		AdminToken:       cfg.Store.AdminToken,
		WooWebhookSecret: cfg.Store.WooWebhookSecret,
		Currency:         cfg.Store.Currency,
		MarkupPct:        cfg.Store.MarkupPct,
		MarkupFix:        cfg.Store.MarkupFix,
		ShowRetail:       cfg.Store.ShowRetail,
	}, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.MaxBody(handler.MaxRequestBodySize),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	worker := order.NewWorker(queue, confirmer, logger, order.WorkerConfig{})
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
			slog.String("webhook_url", cfg.WebhookURL()),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case err := <-workerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("confirmation worker: %w", err)
		}

	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	// Give outstanding requests time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		// Force close if graceful shutdown fails
		server.Close()
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openCache connects Redis when configured and falls back to process memory.
func openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(memoryCacheEntries), nil
	}
	rdb, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:      cfg.RedisAddr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		Namespace: cfg.StoreID,
	})
	if err != nil {
		return nil, err
	}
	return rdb, nil
}

// openDatabase returns nil when no DATABASE_URL is set.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// persistence picks the design store and confirmation queue, migrating the
// Postgres schema when a database is available.
func persistence(ctx context.Context, db *sql.DB) (design.Store, order.Queue, error) {
	if db == nil {
		slog.Warn("no database configured, designs and confirmation jobs are kept in memory")
		return design.NewMemoryStore(), order.NewMemoryQueue(), nil
	}

	designs := design.NewPostgresStore(db)
	if err := designs.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrating designs: %w", err)
	}
	queue := order.NewPostgresQueue(db)
	if err := queue.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrating confirmation queue: %w", err)
	}
	return designs, queue, nil
}

func packingSlip(cfg *config.Config) *printful.PackingSlip {
	ps := cfg.Store.PackingSlip
	if ps.Email == "" {
		return nil
	}
	return &printful.PackingSlip{Email: ps.Email, Message: ps.Message, Phone: ps.Phone}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
