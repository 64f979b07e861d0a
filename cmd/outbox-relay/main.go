package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/entityrepo/api/controllers"
	"github.com/angelmondragon/entityrepo/api/middleware"
	"github.com/angelmondragon/entityrepo/pkg/config"
	"github.com/angelmondragon/entityrepo/pkg/db"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/metrics"
	"github.com/angelmondragon/entityrepo/pkg/migrate"
	"github.com/angelmondragon/entityrepo/pkg/outbox"
)

const serviceName = "outbox-relay"

// readyFunc adapts Relay.Ready to the readiness endpoint.
type readyFunc func(context.Context) error

func (f readyFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	requeueID := flag.String("requeue", "", "outbox event id to move from the dead-letter table back to pending, then exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if *requeueID != "" {
		if err := runRequeue(cfg, logg, *requeueID); err != nil {
			logg.Error(context.Background(), "requeue failed", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox relay stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"sink": cfg.Outbox.Sink,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	sink, closeSink, err := buildSink(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeSink(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	registry := prometheus.NewRegistry()
	relay, err := outbox.NewRelay(outbox.RelayParams{
		Config:        cfg.Outbox,
		Logger:        logg,
		DB:            dbClient,
		Sink:          sink,
		Repository:    outbox.NewRepository(dbClient.Conn()),
		DLQRepository: outbox.NewDLQRepository(dbClient.Conn()),
		Metrics:       metrics.NewRelayMetrics(registry),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           opsRouter(cfg, logg, registry, relay),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "ops server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting outbox relay")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox relay shutting down gracefully")
	return nil
}

func runRequeue(cfg *config.Config, logg *logger.Logger, rawID string) (err error) {
	ctx := context.Background()
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return requeueEvent(ctx, outbox.NewDLQRepository(dbClient.Conn()), logg, rawID)
}

// opsRouter serves the relay's health checks and metrics.
func opsRouter(cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry, relay *outbox.Relay) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
		serviceName: readyFunc(relay.Ready),
	}))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}
