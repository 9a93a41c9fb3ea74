package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/charges"
	"github.com/davidcastellano/ledgerpay-backend/internal/cron"
	"github.com/davidcastellano/ledgerpay-backend/internal/customers"
	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/internal/users"
	"github.com/davidcastellano/ledgerpay-backend/pkg/config"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/metrics"
	"github.com/davidcastellano/ledgerpay-backend/pkg/migrate"
	"github.com/davidcastellano/ledgerpay-backend/pkg/redis"
	pkgstripe "github.com/davidcastellano/ledgerpay-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
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

	chargeService, err := charges.NewService(charges.ServiceParams{
		Repo:    billingRepo,
		Gateway: gateway,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create charge service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customers.ServiceParams{
		Repo:              billingRepo,
		SubscriberRepo:    users.NewRepository(dbClient.DB()),
		Gateway:           gateway,
		Charges:           chargeService,
		Logger:            logg,
		TransactionRunner: dbClient,
		Receipts:          customers.NewLogNotifier(logg),
		DefaultPlanID:     cfg.Billing.DefaultPlanID,
		DefaultTrialDays:  cfg.Billing.DefaultTrialDays,
		DefaultCurrency:   cfg.Billing.DefaultCurrency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewCustomerReconcileJob(cron.CustomerReconcileJobParams{
		Logger:      logg,
		BillingRepo: billingRepo,
		Customers:   customerService,
		Limit:       cfg.Sync.ReconcileLimit,
		Lookback:    cfg.Sync.ReconcileLookback,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}

	retryJob, err := cron.NewInvoiceRetryJob(cron.InvoiceRetryJobParams{
		Logger:      logg,
		BillingRepo: billingRepo,
		Customers:   customerService,
		Limit:       cfg.Sync.ReconcileLimit,
		Lookback:    cfg.Sync.ReconcileLookback,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice retry job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("sync-worker:"+envLabel(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(reconcileJob, retryJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Sync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sync worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}

func envLabel(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
