package repo

import (
	"github.com/betwise/referrals/internal/pg"
	commissionrepo "github.com/betwise/referrals/internal/repo/commission-repo"
	paymentrepo "github.com/betwise/referrals/internal/repo/payment-repo"
	payoutrepo "github.com/betwise/referrals/internal/repo/payout-repo"
	referralrepo "github.com/betwise/referrals/internal/repo/referral-repo"
	subscriptionrepo "github.com/betwise/referrals/internal/repo/subscription-repo"
	userrepo "github.com/betwise/referrals/internal/repo/user-repo"
)

type Repositories struct {
	UserRepo         *userrepo.Repository
	ReferralRepo     *referralrepo.Repository
	PaymentRepo      *paymentrepo.Repository
	CommissionRepo   *commissionrepo.Repository
	PayoutRepo       *payoutrepo.Repository
	SubscriptionRepo *subscriptionrepo.Repository
	TxManager        pg.TXManager
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		UserRepo:         userrepo.New(conn),
		ReferralRepo:     referralrepo.New(conn),
		PaymentRepo:      paymentrepo.New(conn),
		CommissionRepo:   commissionrepo.New(conn),
		PayoutRepo:       payoutrepo.New(conn),
		SubscriptionRepo: subscriptionrepo.New(conn),
		TxManager:        txManager,
	}
}
