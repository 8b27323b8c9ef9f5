// Package app wires the storefront's dependencies and runs its HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Davidgwa1996/unidigitalcom/pkg/database"
	"github.com/Davidgwa1996/unidigitalcom/pkg/health"
	"github.com/Davidgwa1996/unidigitalcom/pkg/httpclient"
	pkgkafka "github.com/Davidgwa1996/unidigitalcom/pkg/kafka"
	"github.com/Davidgwa1996/unidigitalcom/pkg/middleware"
	"github.com/Davidgwa1996/unidigitalcom/pkg/tracing"

	"github.com/Davidgwa1996/unidigitalcom/internal/cartstore"
	"github.com/Davidgwa1996/unidigitalcom/internal/catalog"
	remotecatalog "github.com/Davidgwa1996/unidigitalcom/internal/catalog/remote"
	"github.com/Davidgwa1996/unidigitalcom/internal/catalog/static"
	"github.com/Davidgwa1996/unidigitalcom/internal/config"
	"github.com/Davidgwa1996/unidigitalcom/internal/event"
	handler "github.com/Davidgwa1996/unidigitalcom/internal/handler/http"
	"github.com/Davidgwa1996/unidigitalcom/internal/order"
	"github.com/Davidgwa1996/unidigitalcom/internal/order/mock"
	remoteorder "github.com/Davidgwa1996/unidigitalcom/internal/order/remote"
	"github.com/Davidgwa1996/unidigitalcom/internal/service"
	"github.com/Davidgwa1996/unidigitalcom/internal/session"
	"github.com/Davidgwa1996/unidigitalcom/internal/storage"
	"github.com/Davidgwa1996/unidigitalcom/internal/storage/memory"
	redisstorage "github.com/Davidgwa1996/unidigitalcom/internal/storage/redis"
)

// ServiceName identifies the storefront in logs, metrics and traces.
const ServiceName = "storefront"

const janitorInterval = time.Minute

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	sessions   *session.Manager
	shutdownTr tracing.ShutdownFunc
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	trCfg := tracing.DefaultConfig(ServiceName)
	trCfg.Environment = cfg.Environment
	trCfg.Enabled = cfg.OTelEnabled
	trCfg.OTLPEndpoint = cfg.OTelEndpoint
	trCfg.SampleRate = cfg.OTelSampleRate
	shutdownTr, err := tracing.InitTracer(ctx, trCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTr = shutdownTr

	healthHandler := health.NewHandler()
	healthHandler.SetTimeout(cfg.HealthCheckTimeout())

	provider, err := a.storageProvider(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	a.sessions = session.NewManager(provider, cartstore.Options{
		Namespace:          cfg.Namespace,
		Policy:             cfg.PricingPolicy(),
		Currencies:         cfg.Currencies(),
		MaxQuantityPerItem: cfg.MaxQuantityPerItem,
	}, logger)

	var orderEvents service.OrderEvents
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events := event.NewProducer(a.producer, logger)
		a.sessions.OnCreate(func(sessionID string, store *cartstore.Store) {
			store.Subscribe(events.CartListener(sessionID))
		})
		orderEvents = events
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	cat := a.catalog(healthHandler)
	placer := a.orderPlacer(healthHandler)

	cartService := service.NewCartService(a.sessions, cat, logger)
	checkoutService := service.NewCheckoutService(a.sessions, cat, placer, orderEvents, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(
		handler.NewHandler(cartService, checkoutService, cfg.Currencies(), logger),
		handler.RouterConfig{
			ServiceName: ServiceName,
			Health:      healthHandler,
			Logger:      logger,
			CORS:        cors,
			PprofCIDRs:  cfg.PprofAllowedCIDRs,
		},
	)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *App) storageProvider(ctx context.Context, h *health.Handler) (storage.Provider, error) {
	if a.cfg.StorageBackend == config.StorageMemory {
		a.logger.Warn("using in-memory session storage; carts are lost on restart")
		return memory.NewProvider(), nil
	}

	rcfg := database.DefaultRedisConfig()
	rcfg.Addr = a.cfg.RedisAddr
	rcfg.Password = a.cfg.RedisPass
	rcfg.DB = a.cfg.RedisDB
	rdb, err := database.NewRedisClient(ctx, rcfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	h.Register("redis", database.RedisChecker(rdb))

	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)
	return redisstorage.NewProvider(rdb, a.cfg.SessionTTL()), nil
}

func (a *App) breakerClient(name string, h *health.Handler) *httpclient.CircuitBreakerClient {
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig(name),
		a.logger,
	)
	h.RegisterOptional(name, cb.Check)
	return cb
}

func (a *App) catalog(h *health.Handler) catalog.Catalog {
	if a.cfg.CatalogAPIURL == "" {
		a.logger.Info("using built-in product catalog")
		return static.NewSeeded()
	}
	return remotecatalog.NewClient(a.breakerClient("catalog-api", h), a.cfg.CatalogAPIURL)
}

func (a *App) orderPlacer(h *health.Handler) order.Placer {
	if a.cfg.OrderAPIURL == "" {
		a.logger.Warn("ORDER_API_URL not set; orders are confirmed in process")
		return mock.NewPlacer(a.logger)
	}
	return remoteorder.NewClient(a.breakerClient("order-api", h), a.cfg.OrderAPIURL)
}

// Handler returns the HTTP handler, for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.sessions.RunJanitor(janitorCtx, janitorInterval, a.cfg.SessionIdle())

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace())
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.shutdownTr(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
