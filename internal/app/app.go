// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/publishq/publishqd/internal/compliance"
	"github.com/publishq/publishqd/internal/config"
	"github.com/publishq/publishqd/internal/delivery"
	"github.com/publishq/publishqd/internal/delivery/simulated"
	"github.com/publishq/publishqd/internal/domain"
	"github.com/publishq/publishqd/internal/pkg/httputil"
	"github.com/publishq/publishqd/internal/pkg/telemetry"
	"github.com/publishq/publishqd/internal/queue"
	"github.com/publishq/publishqd/internal/queue/memory"
	"github.com/publishq/publishqd/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	checker       *compliance.Checker
	service       *queue.Service
	scheduler     *queue.Scheduler
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	telemetryStop func()
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	var telemetryStop func()
	if cfg.Telemetry.Enabled {
		stop, err := telemetry.Init(telemetry.Config{
			Endpoint:    cfg.Telemetry.Endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		telemetryStop = stop
	}

	registry, err := buildRegistry(cfg.Delivery.Simulated)
	if err != nil {
		if telemetryStop != nil {
			telemetryStop()
		}
		return nil, err
	}

	engine := queue.NewEngine(registry, queue.RetryPolicy{
		Delay:        cfg.Queue.RetryDelay,
		ReentryDelay: cfg.Queue.RetryReentryDelay,
	})
	checker := compliance.NewChecker(compliance.Config{
		MinScore: cfg.Compliance.MinScore,
		MaxTags:  cfg.Compliance.MaxTags,
	})
	service := queue.NewService(memory.NewRepository(), engine, checker, queue.Config{
		MaxRetries:   cfg.Queue.MaxRetries,
		RetryDelay:   cfg.Queue.RetryDelay,
		ReentryDelay: cfg.Queue.RetryReentryDelay,
	}, logger)
	scheduler := queue.NewScheduler(service, cfg.Queue.TickInterval, logger)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		checker:       checker,
		service:       service,
		scheduler:     scheduler,
		metricsCancel: metricsCancel,
		telemetryStop: telemetryStop,
	}

	go app.collectQueueMetrics(metricsCtx)

	if cfg.Queue.Autopublish {
		if err := scheduler.Start(); err != nil {
			metricsCancel()
			return nil, fmt.Errorf("start scheduler: %w", err)
		}
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// buildRegistry creates one simulated publisher per supported platform.
// Non-zero seeds are offset per platform so the outcome streams differ.
func buildRegistry(cfg config.SimulatedConfig) (*delivery.Registry, error) {
	platforms := domain.AllPlatforms()
	publishers := make([]delivery.Publisher, 0, len(platforms))

	for i, platform := range platforms {
		seed := cfg.Seed
		if seed != 0 {
			seed += int64(i)
		}

		publisher, err := simulated.NewPublisher(platform, simulated.Config{
			SuccessRate:     cfg.SuccessRate,
			MinLatencyTicks: cfg.MinLatencyTicks,
			MaxLatencyTicks: cfg.MaxLatencyTicks,
			RatePerSec:      cfg.RatePerSec,
			Seed:            seed,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s publisher: %w", platform, err)
		}
		publishers = append(publishers, publisher)
	}

	return delivery.NewRegistry(publishers...), nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop the scheduling loop before the servers so no tick races teardown
	a.scheduler.Stop()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.telemetryStop != nil {
		a.telemetryStop()
	}

	return errors.Join(errs...)
}

// Reload applies the runtime-adjustable settings from a freshly loaded
// configuration. Server addresses and telemetry require a restart.
func (a *App) Reload(cfg *config.Config) {
	a.service.Apply(queue.Config{
		MaxRetries:   cfg.Queue.MaxRetries,
		RetryDelay:   cfg.Queue.RetryDelay,
		ReentryDelay: cfg.Queue.RetryReentryDelay,
	})
	a.scheduler.SetInterval(cfg.Queue.TickInterval)

	a.logger.Info("configuration reloaded",
		"max_retries", cfg.Queue.MaxRetries,
		"retry_delay", cfg.Queue.RetryDelay,
		"tick_interval", cfg.Queue.TickInterval,
	)
}

func (a *App) collectQueueMetrics(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m, err := a.service.Metrics(ctx, a.scheduler.Info())
			if err != nil {
				a.logger.Error("collect queue metrics", "error", err)
				continue
			}
			queue.RecordQueueGauges(m)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Scheduler returns the scheduler instance. Used in tests to drive the loop.
func (a *App) Scheduler() *queue.Scheduler {
	return a.scheduler
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>PublishQ API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	queueHandler := queue.NewHandler(a.service, a.scheduler)
	complianceHandler := compliance.NewHandler(a.checker)

	r.Route("/api/v1", func(r chi.Router) {
		queueHandler.RegisterRoutes(r)
		complianceHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
