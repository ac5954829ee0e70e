// Package main is the entrypoint for the Stackfluence API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/stackfluence/stackfluence/internal/analytics"
	"github.com/stackfluence/stackfluence/internal/botrisk"
	"github.com/stackfluence/stackfluence/internal/cache"
	"github.com/stackfluence/stackfluence/internal/clickid"
	"github.com/stackfluence/stackfluence/internal/config"
	"github.com/stackfluence/stackfluence/internal/handler"
	"github.com/stackfluence/stackfluence/internal/intel"
	"github.com/stackfluence/stackfluence/internal/metrics"
	"github.com/stackfluence/stackfluence/internal/middleware"
	"github.com/stackfluence/stackfluence/internal/repository"
	"github.com/stackfluence/stackfluence/internal/server"
	"github.com/stackfluence/stackfluence/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Core components
	metricsRecorder := metrics.NewInMemory()
	linkService := service.NewLinkService(repo, cacheClient, cfg.BaseURL, metricsRecorder)
	clickRepo := repository.NewClickEventRepository(repo)
	publisher := analytics.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	codec := clickid.New(clickid.Config{
		Secret: cfg.ClickIDSecret,
		TTL:    cfg.ClickIDTTL,
	})

	// Handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	linkHandler := handler.NewLinkHandler(linkService, logger)
	eventHandler := handler.NewEventHandler(repo, codec, metricsRecorder, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)
	adminHandler := handler.NewAdminHandler(repo, clickRepo, logger)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	redirectHandler := handler.NewRedirectHandler(
		linkService,
		publisher,
		codec,
		botrisk.NewScorer(),
		intel.NewClassifier(),
		cacheClient,
		metricsRecorder,
		logger,
		handler.RedirectConfig{
			BotFlagThreshold: cfg.BotFlagThreshold,
			DedupeWindow:     cfg.ClickDedupeWindow,
			ClickCookieTTL:   cfg.ClickCookieTTL,
			SessionCookieTTL: cfg.SessionCookieTTL,
			RateLimitEnabled: cfg.RateLimitRedirectEnabled,
			RateLimitRPS:     cfg.RateLimitRedirectRPS,
			RateLimitBurst:   cfg.RateLimitRedirectBurst,
		},
	)

	r := setupRouter(routerDeps{
		root:     h,
		health:   healthHandler,
		link:     linkHandler,
		redirect: redirectHandler,
		event:    eventHandler,
		apiKey:   apiKeyHandler,
		admin:    adminHandler,
		metrics:  metricsHandler,
		repo:     repo,
		cache:    cacheClient,
		cfg:      cfg,
		logger:   logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Stream consumer: drains click events into Postgres.
	worker := analytics.NewWorker(cacheClient.Client(), clickRepo, logger, workerConsumerID(), metricsRecorder)
	workerCtx, workerCancel := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("analytics worker exited", "error", err)
		}
	}()
	srv.OnShutdown("analytics-worker", func(ctx context.Context) error {
		workerCancel()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func workerConsumerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "worker-1"
	}
	return hostname
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	root     *handler.Handler
	health   *handler.HealthHandler
	link     *handler.LinkHandler
	redirect *handler.RedirectHandler
	event    *handler.EventHandler
	apiKey   *handler.APIKeyHandler
	admin    *handler.AdminHandler
	metrics  *handler.MetricsHandler
	repo     *repository.Repository
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Get("/metrics", deps.metrics.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:     deps.logger,
		Repository: deps.repo,
		Cache:      deps.cache,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:          deps.logger,
		Cache:           deps.cache,
		APIEnabled:      deps.cfg.RateLimitAPIEnabled,
		RedirectEnabled: deps.cfg.RateLimitRedirectEnabled,
		RedirectRPS:     deps.cfg.RateLimitRedirectRPS,
		RedirectBurst:   deps.cfg.RateLimitRedirectBurst,
	}

	securityCfg := middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		AllowedOrigins:     deps.cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}

	// Root info endpoint
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/", deps.root.Hello)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = deps.cfg.GetCORSAllowedOrigins()

	// API v1 routes (require authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Security(securityCfg))
		r.Use(middleware.CORS(corsCfg))
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		// Link management
		r.Route("/links", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", deps.link.List)
			r.With(middleware.RequireRead()).Get("/{id}", deps.link.Get)
			r.With(middleware.RequireWrite()).Post("/", deps.link.Create)
			r.With(middleware.RequireWrite()).Patch("/{id}", deps.link.Update)
			r.With(middleware.RequireWrite()).Delete("/{id}", deps.link.Delete)
		})

		// Attribution event ingestion
		r.Route("/events", func(r chi.Router) {
			r.Use(middleware.RequireEvents())
			r.Post("/session", deps.event.Session)
			r.Post("/pageview", deps.event.PageView)
			r.Post("/conversion", deps.event.Conversion)
			r.Post("/refund", deps.event.Refund)
		})

		// API key management
		r.Route("/keys", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", deps.apiKey.List)
			r.With(middleware.RequireAdmin()).Post("/", deps.apiKey.Create)
			r.With(middleware.RequireAdmin()).Delete("/{keyID}", deps.apiKey.Revoke)
			r.With(middleware.RequireAdmin()).Post("/{keyID}/rotate", deps.apiKey.Rotate)
		})

		// Operator debugging
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/links/lookup", deps.admin.LookupLink)
			r.Get("/clicks/{clickID}", deps.admin.LookupClick)
		})
	})

	// Wrapped-link redirect (no auth; bot scoring handles abuse)
	r.Get("/c/{creatorHandle}/{campaignSlug}", deps.redirect.Redirect)
	r.Get("/c/{creatorHandle}/{campaignSlug}/{assetSlug}", deps.redirect.Redirect)

	// 404 and 405 handlers
	r.NotFound(deps.root.NotFound)
	r.MethodNotAllowed(deps.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
