package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	fiberRecover "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"movie-discovery/internal/cache"
	"movie-discovery/internal/config"
	"movie-discovery/internal/database"
	"movie-discovery/internal/handler"
	"movie-discovery/internal/logging"
	"movie-discovery/internal/metrics"
	"movie-discovery/internal/middleware"
	"movie-discovery/internal/repository"
	"movie-discovery/internal/scheduler"
	"movie-discovery/internal/service"
	"movie-discovery/internal/tmdb"
)

func main() {
	logging.Setup(config.LogConfig{Level: "info", Format: "json"})

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(startCtx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable)
	var rdb *redis.Client
	if cfg.Cache.Backend == "redis" || cfg.RateLimit.Enabled {
		rdb, err = database.NewRedis(startCtx, cfg.Redis)
		if err != nil {
			slog.Warn("Redis unavailable, running without cache", "error", err)
			rdb = nil
		}
	}

	store := newCacheStore(cfg.Cache, rdb)

	// TMDB client: breaker outermost, then retry, then the shared request budget.
	limiter := rate.NewLimiter(rate.Limit(cfg.TMDB.RequestsPerSecond), cfg.TMDB.Burst)
	doer := tmdb.Chain(
		tmdb.NewTransport(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Timeout),
		tmdb.WithCircuitBreaker(tmdb.DefaultBreakerSettings()),
		tmdb.WithRetry(tmdb.RetryPolicy{
			MaxRetries:      cfg.TMDB.MaxRetries,
			InitialInterval: cfg.TMDB.RetryInterval,
			Multiplier:      2,
		}),
		tmdb.WithRateLimit(limiter),
		tmdb.WithMetrics(),
	)
	tmdbClient := tmdb.NewClient(doer)

	// Initialize layers
	movieRepo := repository.NewMovieRepository(db)
	userRepo := repository.NewUserRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	movieSvc := service.NewMovieService(movieRepo, tmdbClient, store, cfg.TMDB.Timeout)
	recommendationSvc := service.NewRecommendationService(userRepo, interactionRepo, movieRepo, store)
	interactionSvc := service.NewInteractionService(userRepo, interactionRepo, movieSvc, recommendationSvc)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, store)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Movie Discovery",
		ServerHeader: "Movie-Discovery",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(fiberRecover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	if cfg.RateLimit.Enabled {
		app.Use(middleware.NewRateLimiter(rdb, cfg.RateLimit).Handler())
	}
	if cfg.Auth.Enabled {
		app.Use(middleware.AuthMiddleware("/health", "/metrics", "/swagger", "/api/v1/health", "/api/v1/movies"))
	}

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, "Movie Discovery API", swaggerYAML)
	}

	health := handler.Health(
		handler.HealthCheck{Name: "postgres", Critical: true, Check: db.PingContext},
		handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			if rdb == nil {
				return redis.ErrClosed
			}
			return rdb.Ping(ctx).Err()
		}},
	)
	app.Get("/health", health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// API routes
	api := app.Group("/api/v1")
	api.Get("/health", health)
	handler.NewMovieHandler(movieSvc).Register(api)
	handler.NewUserHandler(interactionSvc, recommendationSvc).Register(api)
	handler.NewAdminHandler(analyticsSvc, recommendationSvc).Register(api)

	// Background jobs
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(movieSvc, movieRepo, recommendationSvc, cfg.Scheduler)
		if err := sched.Start(); err != nil {
			slog.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		slog.Info("starting movie discovery server", "addr", addr, "cache_backend", cfg.Cache.Backend)
		if err := app.Listen(addr); err != nil {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down movie discovery server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("error shutting down HTTP server", "error", err)
	}
	slog.Info("HTTP server stopped")

	if sched != nil {
		sched.Stop()
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("error closing Redis connection", "error", err)
		} else {
			slog.Info("Redis connection closed")
		}
	}

	slog.Info("shutdown complete")
}

func newCacheStore(cfg config.CacheConfig, rdb *redis.Client) cache.Store {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryStore(10 * time.Minute)
	case "none":
		return cache.NoopStore{}
	default:
		return cache.NewRedisStore(rdb)
	}
}
