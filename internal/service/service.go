package service

import (
	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/config"
	"github.com/betwise/referrals/internal/handlers/auth"
	"github.com/betwise/referrals/internal/handlers/billing"
	"github.com/betwise/referrals/internal/handlers/payouts"
	"github.com/betwise/referrals/internal/handlers/referrals"
	"github.com/betwise/referrals/internal/handlers/webhook"
	"github.com/betwise/referrals/pkg/clients"

	pkgauth "github.com/betwise/referrals/pkg/auth"

	"github.com/betwise/referrals/internal/repo"
	authservice "github.com/betwise/referrals/internal/service/authservice"
	billingservice "github.com/betwise/referrals/internal/service/billingservice"
	commissionservice "github.com/betwise/referrals/internal/service/commissionservice"
	payoutservice "github.com/betwise/referrals/internal/service/payoutservice"
	referralservice "github.com/betwise/referrals/internal/service/referralservice"
)

type Services struct {
	AuthService     auth.Service
	ReferralService referrals.Service
	PayoutService   payouts.Service
	BillingService  billing.Service
	WebhookService  webhook.Service
	Identity        pkgauth.Identity
	JWTService      pkgauth.JWTServiceInterface
}

func New(repo *repo.Repositories, cfg *config.Config, stripeClient *clients.StripeClient) *Services {
	jwtService := pkgauth.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	authService := authservice.New(repo.UserRepo, repo.ReferralRepo, repo.TxManager, &pkgauth.HashService{}, jwtService)

	commissionService := commissionservice.New(repo.UserRepo, repo.ReferralRepo, repo.PaymentRepo, repo.CommissionRepo, repo.TxManager,
		commissionservice.NewRates(cfg.FirstPaymentRate, cfg.RenewalRate))
	billingService := billingservice.New(repo.UserRepo, repo.PaymentRepo, repo.SubscriptionRepo, commissionService, stripeClient, repo.TxManager, cfg.PlanPrices)
	payoutService := payoutservice.New(repo.UserRepo, repo.ReferralRepo, repo.PaymentRepo, repo.PayoutRepo, repo.TxManager, stripeClient, payoutservice.Settings{
		MinAmount: decimal.NewFromFloat(cfg.PayoutMinAmount),
		Currency:  cfg.PayoutCurrency,
	})
	referralService := referralservice.New(repo.UserRepo, repo.ReferralRepo, repo.CommissionRepo, repo.PayoutRepo)

	return &Services{
		AuthService:     authService,
		ReferralService: referralService,
		PayoutService:   payoutService,
		BillingService:  billingService,
		WebhookService:  billingService,
		Identity:        repo.UserRepo,
		JWTService:      jwtService,
	}
}
