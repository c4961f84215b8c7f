package handlers

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

import (
	"net/http"

	_ "github.com/betwise/referrals/docs"
	authhandlers "github.com/betwise/referrals/internal/handlers/auth"
	billinghandlers "github.com/betwise/referrals/internal/handlers/billing"
	payouthandlers "github.com/betwise/referrals/internal/handlers/payouts"
	referralhandlers "github.com/betwise/referrals/internal/handlers/referrals"
	webhookhandlers "github.com/betwise/referrals/internal/handlers/webhook"
	"github.com/betwise/referrals/internal/metrics"
	"github.com/betwise/referrals/internal/service"
	"github.com/betwise/referrals/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type ReferralHandler interface {
	GetSummary(w http.ResponseWriter, r *http.Request)
	GetCommissions(w http.ResponseWriter, r *http.Request)
	GetStats(w http.ResponseWriter, r *http.Request)
}

type PayoutHandler interface {
	Connect(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	AdminList(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type BillingHandler interface {
	Checkout(w http.ResponseWriter, r *http.Request)
	GetSubscription(w http.ResponseWriter, r *http.Request)
	GetPayments(w http.ResponseWriter, r *http.Request)
}

type WebhookHandler interface {
	Stripe(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler     AuthHandler
	ReferralHandler ReferralHandler
	PayoutHandler   PayoutHandler
	BillingHandler  BillingHandler
	WebhookHandler  WebhookHandler
	Authenticate    func(http.Handler) http.Handler
}

func New(s *service.Services, webhookSecret string) *Handlers {
	return &Handlers{
		AuthHandler:     authhandlers.New(s.AuthService),
		ReferralHandler: referralhandlers.New(s.ReferralService),
		PayoutHandler:   payouthandlers.New(s.PayoutService),
		BillingHandler:  billinghandlers.New(s.BillingService),
		WebhookHandler:  webhookhandlers.New(s.WebhookService, webhookSecret),
		Authenticate:    auth.Middleware(s.JWTService, s.Identity),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		metrics.Middleware,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.AuthHandler.Register)
			r.Post("/login", h.AuthHandler.Login)
		})
		r.Post("/webhooks/stripe", h.WebhookHandler.Stripe)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Route("/referrals", func(r chi.Router) {
				r.Get("/", h.ReferralHandler.GetSummary)
				r.Get("/commissions", h.ReferralHandler.GetCommissions)
			})
			r.Route("/payouts", func(r chi.Router) {
				r.Post("/connect", h.PayoutHandler.Connect)
				r.Post("/", h.PayoutHandler.Create)
				r.Get("/", h.PayoutHandler.List)
			})
			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/checkout", h.BillingHandler.Checkout)
				r.Get("/", h.BillingHandler.GetSubscription)
			})
			r.Get("/payments", h.BillingHandler.GetPayments)

			r.Group(func(r chi.Router) {
				r.Use(auth.AdminOnly)
				r.Route("/admin/payouts", func(r chi.Router) {
					r.Get("/", h.PayoutHandler.AdminList)
					r.Post("/{id}/approve", h.PayoutHandler.Approve)
					r.Post("/{id}/reject", h.PayoutHandler.Reject)
				})
				r.Get("/stats", h.ReferralHandler.GetStats)
			})
		})
	})

	return r
}
