package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/acertamais-backend/api/controllers"
	"github.com/angelmondragon/acertamais-backend/api/routes"
	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/internal/catalog"
	"github.com/angelmondragon/acertamais-backend/internal/employees"
	"github.com/angelmondragon/acertamais-backend/internal/requests"
	"github.com/angelmondragon/acertamais-backend/pkg/auth"
	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/db"
	"github.com/angelmondragon/acertamais-backend/pkg/firestore"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
	"github.com/angelmondragon/acertamais-backend/pkg/migrate"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox"
	"github.com/angelmondragon/acertamais-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	verifier, err := auth.NewVerifier(bootCtx, cfg)
	if err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	reg := prometheus.DefaultRegisterer
	requestMetrics := metrics.NewRequestMetrics(reg)
	breakerMetrics := metrics.NewBreakerMetrics(reg)

	var backend catalog.Reader
	switch cfg.Catalog.Backend {
	case config.CatalogBackendFirestore:
		fsClient, err := firestore.New(bootCtx, cfg.GCP, logg)
		if err != nil {
			return err
		}
		closers = append(closers, fsClient.Close)
		readiness["firestore"] = fsClient
		backend = catalog.NewFirestoreRepository(fsClient)
	default:
		backend = catalog.NewRepository(dbClient.DB())
	}

	catalogService, err := catalog.NewService(catalog.NewGuardedReader(backend, cfg.Catalog, logg, breakerMetrics))
	if err != nil {
		return err
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, catalogService, requestMetrics, logg)
	if err != nil {
		return err
	}

	employeeService, err := employees.NewService(employees.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}

	requestService, err := requests.NewService(requests.Deps{
		Requests: requests.NewRepository(dbClient.DB()),
		Cart:     cartRepo,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Locks:    redisClient,
		Feed:     requests.NewRedisFeed(redisClient),
		Vendors:  catalogService,
		Config:   cfg.Submission,
		Metrics:  requestMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(bootCtx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"catalog_backend": cfg.Catalog.Backend,
		"auth_provider":   cfg.Auth.Provider,
	})

	// Streams derive from baseCtx and end when it is cancelled on shutdown.
	baseCtx, cancelBase := context.WithCancel(ctx)
	defer cancelBase()

	server := &http.Server{
		Addr:        addr,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			promhttp.Handler(),
			verifier,
			redisClient,
			catalogService,
			cartService,
			requestService,
			employeeService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
