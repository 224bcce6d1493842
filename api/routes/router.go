package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avilaromero/clientpulse-backend/api/controllers"
	billingcontrollers "github.com/avilaromero/clientpulse-backend/api/controllers/billing"
	webhookcontrollers "github.com/avilaromero/clientpulse-backend/api/controllers/webhooks"
	"github.com/avilaromero/clientpulse-backend/api/middleware"
	"github.com/avilaromero/clientpulse-backend/internal/auth"
	billingsvc "github.com/avilaromero/clientpulse-backend/internal/billing"
	"github.com/avilaromero/clientpulse-backend/internal/clients"
	"github.com/avilaromero/clientpulse-backend/internal/notifications"
	"github.com/avilaromero/clientpulse-backend/internal/reports"
	stripewebhook "github.com/avilaromero/clientpulse-backend/internal/webhooks/stripe"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
	"github.com/avilaromero/clientpulse-backend/pkg/redis"
	pkgstripe "github.com/avilaromero/clientpulse-backend/pkg/stripe"
)

// Deps bundles everything the router mounts. Grouping them in a struct keeps
// the main wiring readable as the surface grows.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	AuthService          auth.Service
	ClientsService       clients.Service
	ReportsService       reports.Service
	NotificationsService notifications.Service
	BillingService       *billingsvc.Service

	StripeClient         *pkgstripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Frontend.BaseURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhookService, deps.StripeClient, deps.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/me", controllers.Me(deps.AuthService, logg))

		// Billing stays outside RequireOrg: subscriptions must answer
		// with an empty list before onboarding links an org.
		r.Route("/billing", func(r chi.Router) {
			r.Post("/checkout-session", billingcontrollers.CreateCheckoutSession(deps.BillingService, logg))
			r.Post("/portal-session", billingcontrollers.CreatePortalSession(deps.BillingService, logg))
			r.Get("/subscriptions", billingcontrollers.ListSubscriptions(deps.BillingService, logg))
			r.Get("/plans", billingcontrollers.ListPlans(deps.BillingService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOrg(logg))

			r.Route("/clients", func(r chi.Router) {
				r.Post("/", controllers.CreateClient(deps.ClientsService, logg))
				r.Get("/", controllers.ListClients(deps.ClientsService, logg))
				r.Post("/bulk", controllers.BulkClientOperation(deps.ClientsService, logg))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", controllers.GetClient(deps.ClientsService, logg))
					r.Put("/", controllers.UpdateClient(deps.ClientsService, logg))
					r.Delete("/", controllers.DeleteClient(deps.ClientsService, logg))
					r.Post("/notes", controllers.CreateClientNote(deps.ClientsService, logg))
					r.Get("/notes", controllers.ListClientNotes(deps.ClientsService, logg))
					r.Get("/activity", controllers.ListClientActivity(deps.ClientsService, logg))
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/dashboard", controllers.ReportsDashboard(deps.ReportsService, logg))
				r.Get("/metrics", controllers.ReportsMetrics(deps.ReportsService, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.NotificationsService, logg))
				r.Post("/{id}/read", controllers.MarkNotificationRead(deps.NotificationsService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.NotificationsService, logg))
			})
		})
	})

	return r
}
