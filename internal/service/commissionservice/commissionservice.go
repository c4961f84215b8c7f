package commissionservice

//go:generate mockgen -source=commissionservice.go -destination=mock_commissionservice.go -package=commissionservice

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/metrics"
	"github.com/betwise/referrals/internal/pg"
	"go.uber.org/zap"
)

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type ReferralRepo interface {
	Find(ctx context.Context, referrerID, referredUserID int) (*domain.Referral, error)
	AddEarned(ctx context.Context, referralID int, amount decimal.Decimal) error
}

type PaymentRepo interface {
	CountCompleted(ctx context.Context, userID, excludeID int) (int, error)
}

type LogRepo interface {
	Create(ctx context.Context, log *domain.CommissionLog) (*domain.CommissionLog, error)
}

type Rates struct {
	First   decimal.Decimal
	Renewal decimal.Decimal
}

func NewRates(first, renewal float64) Rates {
	return Rates{
		First:   decimal.NewFromFloat(first),
		Renewal: decimal.NewFromFloat(renewal),
	}
}

type Service struct {
	userRepo     UserRepo
	referralRepo ReferralRepo
	paymentRepo  PaymentRepo
	logRepo      LogRepo
	txManager    pg.TXManager
	rates        Rates
}

func New(userRepo UserRepo, referralRepo ReferralRepo, paymentRepo PaymentRepo, logRepo LogRepo, txManager pg.TXManager, rates Rates) *Service {
	return &Service{
		userRepo:     userRepo,
		referralRepo: referralRepo,
		paymentRepo:  paymentRepo,
		logRepo:      logRepo,
		txManager:    txManager,
		rates:        rates,
	}
}

// Credit pays the payer's referrer for one completed payment. It returns nil
// without error when the payment earns nothing.
func (s *Service) Credit(ctx context.Context, payment *domain.Payment) (*domain.CommissionLog, error) {
	if payment.Status != domain.PaymentStatusCompleted || !payment.Amount.IsPositive() {
		return nil, nil
	}

	payer, err := s.userRepo.FindByID(ctx, payment.UserID)
	if err != nil {
		return nil, err
	}
	if payer == nil || payer.ReferredBy == nil {
		return nil, nil
	}

	referral, err := s.referralRepo.Find(ctx, *payer.ReferredBy, payer.ID)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		zap.L().Warn("referred user has no referral row",
			zap.Int("user_id", payer.ID), zap.Int("referrer_id", *payer.ReferredBy))
		return nil, nil
	}

	prior, err := s.paymentRepo.CountCompleted(ctx, payer.ID, payment.ID)
	if err != nil {
		return nil, err
	}
	rate, kind := s.rates.Renewal, metrics.CommissionRenewal
	if prior == 0 {
		rate, kind = s.rates.First, metrics.CommissionFirst
	}

	amount := payment.Amount.Mul(rate).Round(2)
	if !amount.IsPositive() {
		return nil, nil
	}

	log := &domain.CommissionLog{
		ReferrerID:     referral.ReferrerID,
		ReferredUserID: payer.ID,
		PaymentID:      payment.ID,
		Amount:         amount,
		RateApplied:    rate,
		Month:          payment.Month(),
	}
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.referralRepo.AddEarned(ctx, referral.ID, amount); err != nil {
			return fmt.Errorf("add earned: %w", err)
		}
		if _, err := s.logRepo.Create(ctx, log); err != nil {
			return fmt.Errorf("append commission log: %w", err)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("failed to credit commission", zap.Int("payment_id", payment.ID), zap.Error(err))
		return nil, err
	}

	metrics.ObserveCommission(kind, amount)
	zap.L().Info("commission credited",
		zap.Int("referrer_id", log.ReferrerID),
		zap.Int("payment_id", payment.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("rate", rate.String()))
	return log, nil
}
