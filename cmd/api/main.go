package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/avilaromero/clientpulse-backend/api/routes"
	"github.com/avilaromero/clientpulse-backend/internal/auth"
	"github.com/avilaromero/clientpulse-backend/internal/billing"
	"github.com/avilaromero/clientpulse-backend/internal/clients"
	"github.com/avilaromero/clientpulse-backend/internal/notifications"
	"github.com/avilaromero/clientpulse-backend/internal/reports"
	"github.com/avilaromero/clientpulse-backend/internal/subscriptions"
	stripewebhook "github.com/avilaromero/clientpulse-backend/internal/webhooks/stripe"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
	"github.com/avilaromero/clientpulse-backend/pkg/metrics"
	"github.com/avilaromero/clientpulse-backend/pkg/migrate"
	"github.com/avilaromero/clientpulse-backend/pkg/redis"
	pkgstripe "github.com/avilaromero/clientpulse-backend/pkg/stripe"
)

// webhookDedupeTTL bounds how long a processed event id suppresses
// redeliveries. Stripe retries for up to three days.
const webhookDedupeTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	clientsService, err := clients.NewService(clients.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create clients service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	billingRepo := billing.NewRepository(dbClient.DB())
	stripeBilling := subscriptions.NewStripeClient(stripeClient)

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:     billingRepo,
		Stripe:   stripeBilling,
		Frontend: cfg.Frontend,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Repo:     billingRepo,
		Stripe:   stripeBilling,
		Notifier: notificationsService,
		TxRunner: dbClient,
		Logger:   logg,
		Metrics:  webhookMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "stripe_webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			Registry:             registry,
			AuthService:          authService,
			ClientsService:       clientsService,
			ReportsService:       reportsService,
			NotificationsService: notificationsService,
			BillingService:       billingService,
			StripeClient:         stripeClient,
			StripeWebhookService: webhookService,
			StripeWebhookGuard:   webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
