// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/forum/internal/admin"
	"github.com/carterperez-dev/templates/forum/internal/auth"
	"github.com/carterperez-dev/templates/forum/internal/comment"
	"github.com/carterperez-dev/templates/forum/internal/config"
	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/health"
	"github.com/carterperez-dev/templates/forum/internal/metrics"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
	"github.com/carterperez-dev/templates/forum/internal/post"
	"github.com/carterperez-dev/templates/forum/internal/report"
	"github.com/carterperez-dev/templates/forum/internal/server"
	"github.com/carterperez-dev/templates/forum/internal/user"
)

const (
	drainDelay = 5 * time.Second

	reportsPerHour = 30
	reportBurst    = 5
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	if cfg.IsDevelopment() {
		generated, keyErr := auth.EnsureKeyPair(cfg.JWT)
		if keyErr != nil {
			return keyErr
		}
		if generated {
			logger.Warn("generated development signing keys",
				"private_key", cfg.JWT.PrivateKeyPath,
			)
		}
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, logger)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB, db)
	authSvc := auth.NewService(
		authRepo,
		jwtManager,
		userSvc,
		auth.NewRedisBlacklist(redis),
	)
	authHandler := auth.NewHandler(authSvc)

	if purged, purgeErr := authSvc.PurgeExpired(ctx); purgeErr != nil {
		logger.Warn("refresh token cleanup failed", "error", purgeErr)
	} else if purged > 0 {
		logger.Info("expired refresh tokens purged", "count", purged)
	}

	postRepo := post.NewRepository(db.DB, db)
	postSvc := post.NewService(postRepo, userSvc, cfg.Forum.PostLimit, logger)
	postHandler := post.NewHandler(postSvc)

	commentRepo := comment.NewRepository(db.DB)
	commentSvc := comment.NewService(commentRepo, userSvc, logger)
	commentHandler := comment.NewHandler(commentSvc)

	reportRepo := report.NewRepository(db.DB, db)
	reportSvc := report.NewService(
		reportRepo,
		userSvc,
		cfg.Forum.AllowReReportAfterDismissal,
		logger,
	)
	reportHandler := report.NewHandler(reportSvc)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis, Optional: true},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Reports:    reportSvc,
		Roles:      userSvc,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
		ServiceName:   cfg.Otel.ServiceName,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	tiered := middleware.TieredRateLimiter(redis.Client, cfg.RateLimit.Tiers)
	verify := middleware.Authenticator(jwtManager, authSvc)
	authenticator := func(next http.Handler) http.Handler {
		return verify(tiered(next))
	}
	adminOnly := middleware.RequireAdmin(userSvc)

	reportLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:   middleware.PerHour(reportsPerHour, reportBurst),
		KeyFunc: middleware.KeyByUserAndEndpoint,
		Scope:   "reports",
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterRoutes(r, authenticator, adminOnly)
		postHandler.RegisterRoutes(r, authenticator)
		commentHandler.RegisterRoutes(r, authenticator)
		reportHandler.RegisterRoutes(r, authenticator, adminOnly, reportLimiter)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}
