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

	"github.com/bissquit/incident-forge/internal/automation"
	automationmemory "github.com/bissquit/incident-forge/internal/automation/memory"
	"github.com/bissquit/incident-forge/internal/config"
	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
	incidentsmemory "github.com/bissquit/incident-forge/internal/incidents/memory"
	"github.com/bissquit/incident-forge/internal/pkg/httputil"
	"github.com/bissquit/incident-forge/internal/pkg/metrics"
	"github.com/bissquit/incident-forge/internal/playbooks"
	playbooksmemory "github.com/bissquit/incident-forge/internal/playbooks/memory"
	"github.com/bissquit/incident-forge/internal/reports"
	"github.com/bissquit/incident-forge/internal/responders"
	respondersmemory "github.com/bissquit/incident-forge/internal/responders/memory"
	"github.com/bissquit/incident-forge/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	watchdog      *automation.Watchdog
}

// New creates a new application instance. All stores live in memory, so the
// process is fully initialized once the routers are built.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		metricsCancel: metricsCancel,
	}

	router, watchdog, err := app.setupRouter(metricsCtx)
	if err != nil {
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.watchdog = watchdog

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
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

	// Stop the watchdog first so no sweep races the server teardown
	if a.watchdog != nil {
		a.watchdog.Stop()
	}

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

	return errors.Join(errs...)
}

func (a *App) collectStoreMetrics(ctx context.Context, stores map[string]metrics.Sizer) {
	// Collect immediately on start
	metrics.RecordStoreSizes(stores)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordStoreSizes(stores)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Watchdog returns the SLA watchdog instance.
// Used in tests to access worker state. Returns nil if the watchdog is disabled.
func (a *App) Watchdog() *automation.Watchdog {
	return a.watchdog
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, *automation.Watchdog, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)

	// Rate limiting keys on client IP, so it sits after RealIP
	if a.config.RateLimit.Enabled {
		limiter := httputil.NewRateLimiter(a.config.RateLimit.RPS, a.config.RateLimit.Burst)
		r.Use(limiter.Middleware)
	}

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
    <title>IncidentForge API</title>
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

	respondersRepo := respondersmemory.NewRepository()
	respondersService := responders.NewService(respondersRepo)
	respondersHandler := responders.NewHandler(respondersService)

	incidentsRepo := incidentsmemory.NewRepository()
	incidentsService := incidents.NewService(incidentsRepo, respondersService, slaPolicyFromConfig(a.config.SLA))

	playbooksRepo := playbooksmemory.NewRepository()
	playbooksService := playbooks.NewService(playbooksRepo, incidentsService)
	playbooksHandler := playbooks.NewHandler(playbooksService)

	if a.config.Playbooks.LibraryPath != "" {
		loaded, err := playbooksService.LoadLibrary(ctx, a.config.Playbooks.LibraryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load playbook library: %w", err)
		}
		slog.Info("playbook library loaded",
			"path", a.config.Playbooks.LibraryPath,
			"playbooks", loaded,
		)
	}

	automationRepo := automationmemory.NewRepository()
	automationService := automation.NewService(automationRepo, incidentsService)
	automationHandler := automation.NewHandler(automationService)

	var watchdog *automation.Watchdog
	if a.config.Watchdog.Enabled {
		watchdog = automation.NewWatchdog(automation.WatchdogConfig{
			Interval: a.config.Watchdog.Interval,
		}, automationService)
		watchdog.Start(ctx)
	} else {
		slog.Warn("sla watchdog is disabled: response deadlines will not be enforced")
	}

	renderer, err := reports.NewRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("create report renderer: %w", err)
	}

	reportsService := reports.NewService(incidentsService, playbooksService, renderer)
	reportsHandler := reports.NewHandler(reportsService)

	incidentsHandler := incidents.NewHandler(incidentsService, playbooksService, automationService, reportsService)

	go a.collectStoreMetrics(ctx, map[string]metrics.Sizer{
		"incidents":           incidentsRepo,
		"investigations":      metrics.SizerFunc(incidentsRepo.InvestigationsLen),
		"responders":          respondersRepo,
		"playbooks":           playbooksRepo,
		"playbook_executions": metrics.SizerFunc(playbooksRepo.ExecutionsLen),
		"automation_rules":    automationRepo,
		"escalation_rules":    metrics.SizerFunc(automationRepo.EscalationsLen),
	})

	r.Route("/api/v1", func(r chi.Router) {
		incidentsHandler.RegisterRoutes(r)
		respondersHandler.RegisterRoutes(r)
		playbooksHandler.RegisterRoutes(r)
		automationHandler.RegisterRoutes(r)
		reportsHandler.RegisterRoutes(r)
	})

	return r, watchdog, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

// readyzHandler reports readiness. With in-memory stores there is no backing
// service to probe, so the process is ready as soon as it serves requests.
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

// slaPolicyFromConfig converts severity names from the SLA config into typed
// policy keys. Unknown names are skipped with a warning rather than failing
// startup.
func slaPolicyFromConfig(cfg config.SLAConfig) incidents.SLAPolicy {
	policy := incidents.SLAPolicy{
		ResponseMinutes: make(map[domain.IncidentSeverity]int, len(cfg.ResponseMinutes)),
	}

	for name, minutes := range cfg.ResponseMinutes {
		severity := domain.IncidentSeverity(name)
		if !severity.IsValid() {
			slog.Warn("ignoring sla window for unknown severity", "severity", name)
			continue
		}
		policy.ResponseMinutes[severity] = minutes
	}

	return policy
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
