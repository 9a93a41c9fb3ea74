package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidcastellano/ledgerpay-backend/api/controllers"
	webhookcontrollers "github.com/davidcastellano/ledgerpay-backend/api/controllers/webhooks"
	"github.com/davidcastellano/ledgerpay-backend/api/middleware"
	stripewebhook "github.com/davidcastellano/ledgerpay-backend/internal/webhooks/stripe"
	"github.com/davidcastellano/ledgerpay-backend/pkg/config"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/redis"
)

// BillingService covers the read paths the routed controllers need.
type BillingService interface {
	controllers.BillingReadService
	controllers.PlanService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	billingService BillingService,
	customerService controllers.CustomerService,
	chargeService controllers.ChargeService,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1/plans", func(r chi.Router) {
			r.Get("/", controllers.PlansList(billingService, logg))
			r.Get("/default", controllers.DefaultPlan(billingService, logg))
			r.Get("/{planId}", controllers.PlanDetail(billingService, logg))
		})

		r.Route("/v1/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(customerService, logg))
			r.Route("/{customerId}", func(r chi.Router) {
				r.Get("/", controllers.CustomerDetail(billingService, logg))
				r.Delete("/", controllers.CustomerPurge(customerService, logg))
				r.Post("/sync", controllers.CustomerSync(customerService, logg))

				r.Get("/charges", controllers.CustomerCharges(billingService, logg))
				r.Post("/charges", controllers.CustomerCharge(customerService, logg))

				r.Get("/subscription", controllers.CustomerSubscriptionDetail(billingService, logg))
				r.Post("/subscription", controllers.CustomerSubscribe(customerService, logg))
				r.Delete("/subscription", controllers.CustomerCancelSubscription(customerService, logg))

				r.Get("/invoices", controllers.CustomerInvoices(billingService, logg))
				r.Post("/invoices", controllers.CustomerSendInvoice(customerService, logg))
				r.Post("/invoices/retry", controllers.CustomerRetryInvoices(customerService, logg))
				r.Post("/invoice-items", controllers.CustomerAddInvoiceItem(customerService, logg))
			})
		})

		r.Route("/v1/charges/{chargeId}", func(r chi.Router) {
			r.Post("/refund", controllers.ChargeRefund(chargeService, logg))
			r.Post("/capture", controllers.ChargeCapture(chargeService, logg))
		})
	})

	return r
}
