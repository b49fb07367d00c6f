package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/wbdash/internal/config"
	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/metrics"
	"github.com/simp-lee/wbdash/internal/middleware"
	"github.com/simp-lee/wbdash/internal/module/report"
	"github.com/simp-lee/wbdash/internal/wbapi"
	"github.com/simp-lee/wbdash/web"
)

// defaultWriteTimeout applies when server.timeout is unset. It must exceed
// the upstream timeout so a slow fetch can still be answered.
const defaultWriteTimeout = 60 * time.Second

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine  *gin.Engine
	db      *gorm.DB
	logger  *logger.Logger
	cfg     *config.Config
	metrics *metrics.Manager
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the fetch-log database, metrics, the upstream client,
// the report service and its handlers, middleware, templates and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	// 1. Logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 exposes hot-reloaded templates and the fetch log")
	}
	if cfg.Upstream.APIKey == "" {
		log.Warn("upstream.api_key is empty; requests to the metrics API are sent without a key")
	}

	// 2. Fetch-log database. The table is owned by this service, so it is
	// migrated on every start.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger, &domain.FetchRecord{})
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		closeDatabase(db)
	}()

	// 3. Metrics.
	mgr, err := metrics.NewManager(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithMetricsEnabled(cfg.Metrics.Enabled),
		metrics.WithRuntimeCollectors(true),
	)
	if err != nil {
		return nil, fmt.Errorf("setup metrics: %w", err)
	}

	// 4. Manual dependency injection: repository → recorder → client →
	// service → handlers.
	repo := report.NewFetchRepository(db)
	recorder := report.NewFetchRecorder(repo, mgr, log.Logger)
	client := wbapi.New(wbapi.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.TimeoutDuration(),
	}, wbapi.WithObserver(recorder))
	svc := report.NewReportService(client, repo)
	mod := report.NewModule(report.NewReportHandler(svc), report.NewReportPageHandler(svc))

	// 5. Gin engine with custom middleware (not gin.Default()).
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	// Page paths match exactly: /incomes/ is not /incomes.
	engine.RedirectTrailingSlash = false

	corsConfig, err := resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)
	if err != nil {
		return nil, err
	}

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger),
		middleware.CORSWithConfig(corsConfig),
	)
	if mgr.Enabled() {
		engine.Use(middleware.Metrics(mgr, cfg.Metrics.Path, "/health"))
	}

	// 6. Template renderer.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 7. Routes.
	deps := &RouteDeps{
		Modules: []Module{mod},
		DB:      db,
		Mode:    cfg.Server.Mode,
	}
	if mgr.Enabled() {
		deps.MetricsPath = cfg.Metrics.Path
		deps.MetricsHandler = mgr.Handler()
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	log.Info("dashboard ready",
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.Duration("upstream_timeout", client.Timeout()),
		slog.Bool("metrics", mgr.Enabled()),
	)

	success = true
	return &App{
		engine:  engine,
		db:      db,
		logger:  log,
		cfg:     cfg,
		metrics: mgr,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.engine
}

// resolveCORSConfig builds the CORS middleware settings. Configured values
// replace the defaults field by field. In release mode, with no allowlist
// configured, cross-origin requests are denied.
func resolveCORSConfig(mode string, cfg config.CORSConfig) (middleware.CORSConfig, error) {
	out := middleware.DefaultCORSConfig()

	switch {
	case len(cfg.AllowOrigins) > 0:
		out.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		out.AllowOrigins = []string{}
	}
	if len(cfg.AllowMethods) > 0 {
		out.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		out.AllowHeaders = cfg.AllowHeaders
	}
	out.AllowCredentials = cfg.AllowCredentials

	if cfg.MaxAge != "" {
		d, err := time.ParseDuration(cfg.MaxAge)
		if err != nil {
			return middleware.CORSConfig{}, fmt.Errorf("invalid server.cors.max_age %q: %w", cfg.MaxAge, err)
		}
		out.MaxAge = d
	}
	return out, nil
}

// writeTimeout returns server.timeout, or defaultWriteTimeout when unset.
// Config validation has already rejected unparsable values.
func writeTimeout(cfg config.ServerConfig) time.Duration {
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil || d <= 0 {
		return defaultWriteTimeout
	}
	return d
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

func closeDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("database close error", slog.Any("error", err))
		return err
	}
	return nil
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It shuts down gracefully with a 5-second deadline, then closes the database
// and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, writeTimeout(a.cfg.Server))

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if a.db != nil {
		if err := closeDatabase(a.db); err == nil {
			log.Info("database connection closed")
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
