package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/copyforge-platform/copyforge/internal/api"
	"github.com/copyforge-platform/copyforge/internal/auth"
	"github.com/copyforge-platform/copyforge/internal/billing"
	"github.com/copyforge-platform/copyforge/internal/config"
	"github.com/copyforge-platform/copyforge/internal/content"
	"github.com/copyforge-platform/copyforge/internal/database"
	"github.com/copyforge-platform/copyforge/internal/events"
	"github.com/copyforge-platform/copyforge/internal/generator"
	"github.com/copyforge-platform/copyforge/internal/identity"
	"github.com/copyforge-platform/copyforge/internal/metering"
	"github.com/copyforge-platform/copyforge/internal/middleware"
	"github.com/copyforge-platform/copyforge/internal/plan"
	iredis "github.com/copyforge-platform/copyforge/internal/redis"
	"github.com/copyforge-platform/copyforge/internal/server"
	"github.com/copyforge-platform/copyforge/internal/session"
	"github.com/copyforge-platform/copyforge/internal/users"
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

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())

		consumer := events.NewConsumer(events.NewRepository(pool), natsClient.JetStream())
		consumerCtx, cancelConsumer := context.WithCancel(ctx)
		defer cancelConsumer()
		go func() {
			if err := consumer.Start(consumerCtx); err != nil {
				slog.Error("usage event consumer stopped", "error", err)
			}
		}()
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Metering
	ledgerStore := metering.NewRepository(pool)
	gate := metering.NewGate(metering.NewRateLimiter(redisClient))
	sessionStore := session.NewStore(redisClient, cfg.Session.TTL)
	resolver := identity.NewResolver(jwtManager, userSvc, ledgerStore, sessionStore, cfg.Session.SecureCookie)

	// Content generation
	genClient := generator.NewOpenAIClient(
		cfg.Generator.Host,
		cfg.Generator.APIKey,
		cfg.Generator.Model,
		cfg.Generator.MaxTokens,
		cfg.Generator.Timeout,
	)
	contentRepo := content.NewRepository(pool)
	contentSvc := content.NewService(gate, genClient, contentRepo, publisher)
	contentHandler := content.NewHandler(contentSvc)

	// Billing
	priceTiers := map[string]plan.Tier{}
	if cfg.Billing.PremiumPriceID != "" {
		priceTiers[cfg.Billing.PremiumPriceID] = plan.TierPremium
	}
	if cfg.Billing.EnterprisePriceID != "" {
		priceTiers[cfg.Billing.EnterprisePriceID] = plan.TierEnterprise
	}
	billingSvc := billing.NewService(cfg.Billing.WebhookSecret, priceTiers, userSvc, publisher)
	billingHandler := billing.NewHandler(billingSvc)

	// Router
	authLimiter := middleware.NewRateLimiter(redisClient, 10, 60)
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,
		Me:       authHandler.Me,

		Generate:      contentHandler.Generate,
		ContentStatus: contentHandler.Status,
		History:       contentHandler.History,

		BillingWebhook: billingHandler.Webhook,

		AuthMiddleware:     auth.Middleware(authSvc),
		IdentityMiddleware: resolver.Middleware,
	})

	// Start server
	srv := server.New(cfg.Server, router)
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
