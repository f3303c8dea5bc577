package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/lumicab/api/internal/catalog"
	"github.com/lumicab/api/internal/crm"
	"github.com/lumicab/api/internal/geo"
	"github.com/lumicab/api/internal/handlers"
	"github.com/lumicab/api/internal/payments"
	"github.com/lumicab/api/internal/platform/auth"
	"github.com/lumicab/api/internal/platform/config"
	"github.com/lumicab/api/internal/platform/idempotency"
	"github.com/lumicab/api/internal/platform/observability"
	"github.com/lumicab/api/internal/platform/sqlitedb"
	sqliteRepo "github.com/lumicab/api/internal/repositories/sqlite"
	"github.com/lumicab/api/internal/services"
	"github.com/lumicab/api/internal/webhooks"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := sqlitedb.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}()

	if err := sqlitedb.Migrate(db, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	quoteRepo, err := sqliteRepo.NewQuoteRepository(db)
	if err != nil {
		logger.Fatal("failed to initialise quote repository", zap.Error(err))
	}

	overrides, err := loadOverrides(cfg.Pricing.OverridesFile)
	if err != nil {
		logger.Fatal("failed to load partner overrides", zap.Error(err), zap.String("file", cfg.Pricing.OverridesFile))
	}

	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Catalog:   catalog.Default(),
		Overrides: overrides,
		Depot:     geo.Point{Lat: cfg.Pricing.DepotLat, Lng: cfg.Pricing.DepotLng},
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}

	dispatcher, err := webhooks.NewDispatcher(webhooks.Config{
		Endpoint:        cfg.Webhooks.AutomationURL,
		SigningSecret:   cfg.Webhooks.SigningSecret,
		SignatureHeader: cfg.Webhooks.SignatureHeader,
		TimestampHeader: cfg.Webhooks.TimestampHeader,
		Timeout:         cfg.Webhooks.Timeout,
		Logger:          observability.EventLogger(logger.Named("webhooks")),
	})
	if err != nil {
		logger.Fatal("failed to initialise webhook dispatcher", zap.Error(err))
	}

	quoteDeps := services.QuoteServiceDeps{
		Quotes:   quoteRepo,
		Pricing:  pricingEngine,
		Webhooks: dispatcher,
		IDGen:    func() string { return ulid.Make().String() },
		Logger:   observability.EventLogger(logger.Named("quotes")),
	}
	if cfg.CRM.BaseURL != "" {
		crmClient, err := crm.NewClient(crm.Config{
			BaseURL: cfg.CRM.BaseURL,
			APIKey:  cfg.CRM.APIKey,
			Timeout: cfg.CRM.Timeout,
			Logger:  observability.EventLogger(logger.Named("crm")),
		})
		if err != nil {
			logger.Fatal("failed to initialise crm client", zap.Error(err))
		}
		quoteDeps.CRM = crmClient
	}

	quoteService, err := services.NewQuoteService(quoteDeps)
	if err != nil {
		logger.Fatal("failed to initialise quote service", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: observability.EventLogger(logger.Named("stripe")),
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}
	paymentManager, err := payments.NewManager(map[string]payments.Provider{
		"stripe": stripeProvider,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Quotes:         quoteRepo,
		Payments:       paymentManager,
		Webhooks:       dispatcher,
		SuccessURL:     cfg.PSP.SuccessURL,
		CancelURL:      cfg.PSP.CancelURL,
		DepositPercent: cfg.PSP.DepositPercent,
		Logger:         observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(logger.Named("idempotency")),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	if cfg.Partner.JWTSecret != "" {
		verifier, err := auth.NewPartnerVerifier(cfg.Partner.JWTSecret)
		if err != nil {
			logger.Fatal("failed to initialise partner verifier", zap.Error(err))
		}
		middlewares = append(middlewares, verifier.PartnerSessionMiddleware())
	}

	pricingHandlers := handlers.NewPricingHandlers(pricingEngine)
	quoteHandlers := handlers.NewQuoteHandlers(quoteService)
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthChecker(quoteRepo),
		handlers.WithHealthVersion(buildVersion()),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPricingRoutes(pricingHandlers.Routes),
		handlers.WithQuoteRoutes(quoteHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithQuoteMiddlewares(idempotencyMiddleware),
		handlers.WithCheckoutMiddlewares(idempotencyMiddleware),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("lumicab api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func loadOverrides(path string) (catalog.OverrideTable, error) {
	if path == "" {
		return catalog.OverrideTable{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.ParseOverrides(data)
}

func buildVersion() string {
	if v := os.Getenv("API_BUILD_VERSION"); v != "" {
		return v
	}
	return "dev"
}
