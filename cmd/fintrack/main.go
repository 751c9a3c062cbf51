package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fintrack stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	sinks := []analytics.Sink{analytics.NewLogSink(logger)}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		sinks = append(sinks, client)
		logger.Info("Publishing analytics events to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}
	events := analytics.NewEmitter(cfg.AnalyticsBuffer, logger, sinks...)
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := events.Close(flushCtx); err != nil {
			logger.Warn("Analytics flush incomplete", applog.FieldError, err.Error())
		}
	}()

	aggCache := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(aggCache)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	writer := services.NewWriter(res.Store)
	session := services.NewSessionManager(writer, res.Preferences, events, logger)

	if cfg.SeedDemoData {
		if _, err := services.NewSeeder(writer, events, logger).Seed(ctx); err != nil {
			return err
		}
	}
	if err := session.Restore(ctx); err != nil {
		logger.Warn("Could not restore session", applog.FieldError, err.Error())
	}

	opts := apphttp.DefaultOptions()
	opts.Logger = logger
	opts.RateLimit = ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
	}
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Session:      session,
		Aggregation:  services.NewAggregationEngine(writer, aggCache, logger),
		Transactions: services.NewTransactionService(writer, events, logger),
		Accounts:     services.NewAccountService(writer, events, logger),
		Budgets:      services.NewBudgetService(writer, events, logger),
		Store:        res.Store,
	}, opts)
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
