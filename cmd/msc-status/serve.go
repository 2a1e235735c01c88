package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/api"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/config"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/imaging"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/middleware"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage/postgres"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/swagger"
)

// serveFlags override the matching environment settings when set
type serveFlags struct {
	port       string
	healthPort string
	staticDir  string
	migrate    bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog API and the health/metrics server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags.bind(cmd)

	return cmd
}

func (f *serveFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.port, "port", "", "API listen port (overrides MSC_PORT)")
	cmd.Flags().StringVar(&f.healthPort, "health-port", "", "health and metrics listen port (overrides MSC_HEALTH_PORT)")
	cmd.Flags().StringVar(&f.staticDir, "static-dir", "", "directory served at / (overrides MSC_STATIC_DIR)")
	cmd.Flags().BoolVar(&f.migrate, "migrate", false, "create the schema before serving (overrides MSC_AUTO_MIGRATE)")
}

func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("health-port") {
		cfg.Server.HealthPort = f.healthPort
	}
	if changed("static-dir") {
		cfg.Server.StaticDir = f.staticDir
	}
	if changed("migrate") {
		cfg.Storage.AutoMigrate = f.migrate
	}
	return cfg.Validate()
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version": version,
		"port":    cfg.Server.Port,
	}).Info("Starting component status service")

	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	b, err := openBackends(ctx, cfg, metrics, logger)
	if err != nil {
		_ = observability.ShutdownOTel(ctx, providers, logger)
		return err
	}

	if cfg.Storage.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, b.conns.Primary(), logger); err != nil {
			b.Close()
			_ = observability.ShutdownOTel(ctx, providers, logger)
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	var repo catalog.Repository = postgres.NewRepository(b.conns, metrics, logger)
	if cfg.Storage.CacheEnabled {
		repo = postgres.NewCachedRepository(repo, b.redis, cfg.Storage, metrics, logger)
	}
	service := catalog.NewService(repo, b.imageStore(), imaging.NewWebPTranscoder(), logger)

	checker := b.healthChecker()
	scheduler := cron.New()
	jobs := []job{
		replicaJob(b.conns.RemoveUnhealthyReplicas),
		statsJob(metrics, b.conns.Primary().Stats, service.ComponentCount),
	}

	var limiter *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		limitCfg := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			WindowDuration:    cfg.RateLimit.Window,
			Message:           cfg.RateLimit.Message,
		}
		switch cfg.RateLimit.Backend {
		case config.RateLimitRedis:
			distributed := middleware.NewDistributedRateLimiter(b.redisClient(), limitCfg, "")
			checker.AddCheck("ratelimit", false, distributed.HealthCheck)
			limiter = middleware.NewRateLimitMiddleware(distributed, "api", metrics, logger)
		default:
			local := middleware.NewRateLimiter(limitCfg)
			jobs = append(jobs, cleanupJob(local.Cleanup, logger))
			limiter = middleware.NewRateLimitMiddleware(local, "api", metrics, logger)
		}
	}

	server := api.NewServer(service, api.Options{
		Logger:         logger,
		Metrics:        metrics,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		StaticDir:      cfg.Server.StaticDir,
	})
	if cfg.Server.SwaggerEnabled {
		server.RegisterRoutes(swagger.NewSwaggerHandlers())
	}

	var handler http.Handler = server.Handler()
	if providers != nil {
		handler = otelhttp.NewHandler(handler, cfg.Observability.OTelServiceName)
	}

	errorLog := logger.WithField("component", "http").Writer()
	defer errorLog.Close()

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     log.New(errorLog, "", 0),
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     log.New(errorLog, "", 0),
	}

	if err := scheduleJobs(scheduler, jobs, logger); err != nil {
		b.Close()
		_ = observability.ShutdownOTel(ctx, providers, logger)
		return err
	}
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(healthServer)
	shutdown.RegisterShutdownFunc("cron", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.RegisterShutdownFunc("backends", func(ctx context.Context) error {
		return b.Close()
	})
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listen(apiServer, "api", logger)
	})
	g.Go(func() error {
		return listen(healthServer, "health", logger)
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Service stopped with error")
		return err
	}
	logger.Info("Service stopped")
	return nil
}

// listen serves until the server is shut down. A closed server is a clean
// exit; any other error cancels the group.
func listen(server *http.Server, name string, logger *observability.Logger) error {
	logger.WithFields(map[string]interface{}{
		"server": name,
		"addr":   server.Addr,
	}).Info("Listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server failed: %w", name, err)
	}
	return nil
}
