package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/tonetuner/tonetuner/internal/admin"
	"github.com/tonetuner/tonetuner/internal/api"
	"github.com/tonetuner/tonetuner/internal/auth"
	"github.com/tonetuner/tonetuner/internal/config"
	"github.com/tonetuner/tonetuner/internal/database"
	"github.com/tonetuner/tonetuner/internal/llm/openai"
	"github.com/tonetuner/tonetuner/internal/metrics"
	mw "github.com/tonetuner/tonetuner/internal/middleware"
	inats "github.com/tonetuner/tonetuner/internal/nats"
	"github.com/tonetuner/tonetuner/internal/payments"
	"github.com/tonetuner/tonetuner/internal/quota"
	iredis "github.com/tonetuner/tonetuner/internal/redis"
	"github.com/tonetuner/tonetuner/internal/rewrite"
	"github.com/tonetuner/tonetuner/internal/server"
	"github.com/tonetuner/tonetuner/internal/session"
	"github.com/tonetuner/tonetuner/internal/usage"
	"github.com/tonetuner/tonetuner/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var (
		natsClient      *inats.Client
		rewriteEvents   rewrite.EventPublisher
		referralEvents  quota.ReferralPublisher
		natsHealthCheck api.HealthCheck
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher := inats.NewPublisher(natsClient.JetStream())
		rewriteEvents = publisher
		referralEvents = publisher
		natsHealthCheck = func(context.Context) error {
			if !natsClient.Healthy() {
				return errors.New("nats disconnected")
			}
			return nil
		}

		usageConsumer := usage.NewConsumer(usage.NewRepository(pool), inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := usageConsumer.Start(ctx); err != nil {
				slog.Error("usage consumer stopped", "error", err)
			}
		}()
	} else {
		slog.Info("NATS_URL not set, rewrite events disabled")
	}

	// Generation client and queue
	llmClient, err := openai.NewClient(cfg.OpenAI.Key, cfg.OpenAI.BaseURL,
		openai.WithRateLimit(cfg.OpenAI.MaxRPS, cfg.OpenAI.Burst))
	if err != nil {
		slog.Error("creating openai client", "error", err)
		os.Exit(1)
	}
	executor := rewrite.NewExecutor(llmClient, rewrite.DefaultTones, rewrite.ExecutorConfig{
		Model:      cfg.OpenAI.Model,
		Timeout:    cfg.Rewrite.Timeout,
		MaxRetries: cfg.Rewrite.MaxRetries,
		RetryDelay: cfg.Rewrite.RetryDelay,
	})

	recorder := metrics.NewRecorder(metrics.NewRedisStore(redisClient))
	queue := rewrite.NewQueue(executor, recorder, cfg.Rewrite.MaxConcurrency, cfg.Rewrite.QueueCapacity)

	// Users, quota, sessions
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo, cfg.Quota.BaseLimit, cfg.Bot.Username)
	limiter := quota.NewLimiter(quota.NewRepository(pool), quota.Policy{
		BaseLimit:     cfg.Quota.BaseLimit,
		ReferralBonus: cfg.Quota.ReferralBonus,
	})
	sessions := session.NewRedisStore(redisClient, cfg.Session.TTL)

	rewriteSvc := rewrite.NewService(rewrite.ServiceDeps{
		Users:    userSvc,
		Quota:    limiter,
		Queue:    queue,
		Errors:   recorder,
		Sessions: sessions,
		Latency:  metrics.NewLatencyMonitor(cfg.Latency.AlertThreshold),
		Events:   rewriteEvents,
	})

	// Daily reset
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		slog.Error("loading scheduler timezone", "error", err)
		os.Exit(1)
	}
	go quota.NewScheduler(limiter, loc, cfg.Scheduler.ResetInterval).Run(ctx)

	// Admin
	paymentRepo := payments.NewRepository(pool)
	reporter := metrics.NewReporter(recorder, userRepo, paymentRepo, queue)
	tokens := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.TokenExpiry)

	// Handlers
	rewriteHandler := rewrite.NewHandler(rewriteSvc)
	userHandler := users.NewHandler(userSvc)
	quotaHandler := quota.NewHandler(limiter, userSvc, referralEvents)
	sessionHandler := session.NewHandler(sessions)
	adminHandler := admin.NewHandler(admin.Deps{
		AdminKey: cfg.Admin.MetricsKey,
		Tokens:   tokens,
		Metrics:  reporter,
		Limits:   limiter,
		Payments: paymentRepo,
		History:  usage.NewRepository(pool),
	})

	rewriteLimiter := mw.NewRateLimiter(redisClient, "rewrite", cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec)

	// Router
	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RewriteRateLimiter: rewriteLimiter.Middleware,
		Checks: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
			"redis":    func(ctx context.Context) error { return iredis.HealthCheck(ctx, redisClient) },
			"nats":     natsHealthCheck,
		},
	}, api.HandlerSet{
		Rewrite: rewriteHandler.Rewrite,

		GetQuota:    quotaHandler.GetQuota,
		SetLanguage: userHandler.SetLanguage,
		AddReferral: quotaHandler.AddReferral,

		GetSession:       sessionHandler.Get,
		SetSessionText:   sessionHandler.SetMessage,
		SetSessionCustom: sessionHandler.SetCustomTone,
		ClearSession:     sessionHandler.Clear,

		AdminToken:       adminHandler.Token,
		AdminMetrics:     adminHandler.Metrics,
		AdminResetLimits: adminHandler.ResetLimits,
		AdminPayments:    adminHandler.Payments,
		AdminHistory:     adminHandler.UserHistory,
		AdminGuard:       auth.AdminGuard(cfg.Admin.MetricsKey, tokens),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	srv.OnShutdown("rewrite queue", func(ctx context.Context) error {
		slog.Info("draining rewrite queue", "pending", queue.QueueLength(), "running", queue.ConcurrentTasks())
		return queue.Drain(ctx)
	})
	srv.OnShutdown("background workers", func(context.Context) error {
		cancel()
		return nil
	})

	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
