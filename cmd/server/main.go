package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/cache"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/database"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/logging"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/mail"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/routes"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const logCleanupInterval = 24 * time.Hour

func main() {
	stdout := logging.Setup(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = database.Migrate(migrateCtx, database.DB)
	cancel()
	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	// Profile cache
	var (
		profileCache cache.ProfileCache = cache.Noop{}
		cachePing    handlers.PingFunc
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisCache := cache.NewRedisProfileCache(redisClient, cfg.CacheTTL, cfg.CacheTimeout)
		profileCache = redisCache
		cachePing = redisCache.Ping
		slog.Info("profile cache enabled", "addr", cfg.RedisAddr)
	} else {
		slog.Info("profile cache disabled")
	}

	// Mail
	var sender mail.Sender = mail.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	}
	notifier := mail.NewNotifier(sender)

	// Auth primitives
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, cfg.PasswordHashConcurrency)
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		AccessTTL: cfg.JWTAccessExpiry,
	})
	if err != nil {
		slog.Error("token codec setup failed", "error", err)
		os.Exit(1)
	}

	// Services
	userRepo := repository.NewUserRepository(database.DB)
	tokenRepo := repository.NewRefreshTokenRepository(database.DB)

	sessionService := services.NewSessionService(userRepo, tokenRepo, hasher, codec, profileCache, notifier, services.SessionConfig{
		RefreshTTL:   cfg.JWTRefreshExpiry,
		StoreTimeout: cfg.StoreTimeout,
	})
	userService := services.NewUserService(userRepo, tokenRepo, hasher, profileCache, notifier, cfg.StoreTimeout)

	// Background jobs
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	tokenSweeper := jobs.NewRunner("refresh-token-sweep", cfg.SweepInterval, func(ctx context.Context) error {
		_, err := sessionService.CleanupExpiredTokens(ctx)
		return err
	})
	logCleanup := jobs.NewRunner("log-retention", logCleanupInterval, func(ctx context.Context) error {
		n, err := logging.PurgeOlderThan(ctx, database.DB, cfg.LogRetention, time.Now())
		if err == nil && n > 0 {
			slog.Info("old logs cleaned up", "deleted", n)
		}
		return err
	})
	tokenSweeper.Start(jobsCtx)
	logCleanup.Start(jobsCtx)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	var subjects middleware.SubjectChecker
	if cfg.AuthCheckSubject {
		subjects = userService
	}

	routes.Setup(app, middleware.Authenticate(codec, subjects, cfg.StoreTimeout), routes.Handlers{
		Auth:   handlers.NewAuthHandler(sessionService),
		User:   handlers.NewUserHandler(userService),
		Admin:  handlers.NewAdminHandler(userService),
		Health: handlers.NewHealthHandler(database.Ping, cachePing, cfg.StoreTimeout),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stopJobs()
	tokenSweeper.Stop()
	logCleanup.Stop()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Success: false,
		Message: message,
	})
}
