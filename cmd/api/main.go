package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/davidcastellano/ledgerpay-backend/api/routes"
	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/charges"
	"github.com/davidcastellano/ledgerpay-backend/internal/customers"
	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/internal/users"
	stripewebhook "github.com/davidcastellano/ledgerpay-backend/internal/webhooks/stripe"
	"github.com/davidcastellano/ledgerpay-backend/pkg/config"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/migrate"
	"github.com/davidcastellano/ledgerpay-backend/pkg/redis"
	pkgstripe "github.com/davidcastellano/ledgerpay-backend/pkg/stripe"
)

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
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}
	gateway := stripegateway.NewClient(stripeClient)

	billingRepo := billing.NewRepository(dbClient.DB())
	subscriberRepo := users.NewRepository(dbClient.DB())

	billingService, err := billing.NewService(billing.ServiceParams{Repo: billingRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	chargeService, err := charges.NewService(charges.ServiceParams{
		Repo:    billingRepo,
		Gateway: gateway,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create charge service", err)
		os.Exit(1)
	}

	var receipts customers.Notifier
	if cfg.Billing.SendReceipts {
		receipts = customers.NewLogNotifier(logg)
	}

	customerService, err := customers.NewService(customers.ServiceParams{
		Repo:              billingRepo,
		SubscriberRepo:    subscriberRepo,
		Gateway:           gateway,
		Charges:           chargeService,
		Logger:            logg,
		TransactionRunner: dbClient,
		Receipts:          receipts,
		DefaultPlanID:     cfg.Billing.DefaultPlanID,
		DefaultTrialDays:  cfg.Billing.DefaultTrialDays,
		DefaultCurrency:   cfg.Billing.DefaultCurrency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		BillingRepo: billingRepo,
		Customers:   customerService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Sync.WebhookDedupeTTL, "stripe-events")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			billingService,
			customerService,
			chargeService,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
