package referralservice

//go:generate mockgen -source=referralservice.go -destination=mock_referralservice.go -package=referralservice

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/betwise/referrals/internal/domain"
	"go.uber.org/zap"
)

// RecentLimit bounds the commission logs returned with the summary.
const RecentLimit = 10

var ErrUserNotFound = errors.New("user not found")

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type ReferralRepo interface {
	ListByReferrer(ctx context.Context, referrerID int) ([]domain.Referral, error)
	TotalEarned(ctx context.Context, referrerID int) (decimal.Decimal, error)
	Count(ctx context.Context) (int, error)
}

type CommissionRepo interface {
	ListByReferrer(ctx context.Context, referrerID, limit int) ([]domain.CommissionLog, error)
	Total(ctx context.Context) (decimal.Decimal, error)
}

type PayoutRepo interface {
	SumByStatus(ctx context.Context, statuses []string) (decimal.Decimal, error)
}

type Service struct {
	userRepo       UserRepo
	referralRepo   ReferralRepo
	commissionRepo CommissionRepo
	payoutRepo     PayoutRepo
}

func New(userRepo UserRepo, referralRepo ReferralRepo, commissionRepo CommissionRepo, payoutRepo PayoutRepo) *Service {
	return &Service{
		userRepo:       userRepo,
		referralRepo:   referralRepo,
		commissionRepo: commissionRepo,
		payoutRepo:     payoutRepo,
	}
}

func (s *Service) Summary(ctx context.Context, userID int) (*domain.ReferralSummary, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	summary := &domain.ReferralSummary{ReferralCode: user.ReferralCode}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.referralRepo.TotalEarned(gctx, userID)
		summary.TotalEarned = total
		return err
	})
	g.Go(func() error {
		referrals, err := s.referralRepo.ListByReferrer(gctx, userID)
		summary.Referrals = referrals
		return err
	})
	g.Go(func() error {
		logs, err := s.commissionRepo.ListByReferrer(gctx, userID, RecentLimit)
		summary.RecentCommissions = logs
		return err
	})
	if err := g.Wait(); err != nil {
		zap.L().Error("failed to load referral summary", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return summary, nil
}

func (s *Service) Commissions(ctx context.Context, userID int) ([]domain.CommissionLog, error) {
	logs, err := s.commissionRepo.ListByReferrer(ctx, userID, 0)
	if err != nil {
		zap.L().Error("failed to list commissions", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return logs, nil
}

func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.commissionRepo.Total(gctx)
		stats.TotalCommission = total
		return err
	})
	g.Go(func() error {
		open, err := s.payoutRepo.SumByStatus(gctx, domain.OpenStatuses)
		stats.OpenPayouts = open
		return err
	})
	g.Go(func() error {
		paid, err := s.payoutRepo.SumByStatus(gctx, []string{domain.PayoutStatusPaid})
		stats.PaidPayouts = paid
		return err
	})
	g.Go(func() error {
		count, err := s.referralRepo.Count(gctx)
		stats.ReferralCount = count
		return err
	})
	if err := g.Wait(); err != nil {
		zap.L().Error("failed to load stats", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}
