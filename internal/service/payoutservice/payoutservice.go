package payoutservice

//go:generate mockgen -source=payoutservice.go -destination=mock_payoutservice.go -package=payoutservice

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/metrics"
	"github.com/betwise/referrals/internal/pg"
	"go.uber.org/zap"
)

const maxNoteLength = 500

var idempotencyNamespace = uuid.MustParse("8b26e1fb-8eb7-49c1-a8b0-76b53497d175")

var (
	ErrNotFound        = errors.New("payout request not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPayoutsDisabled = errors.New("payouts are not enabled for the connected account")
	ErrOpenRequest     = errors.New("an open payout request already exists")
	ErrBelowMinimum    = errors.New("earned balance is below the payout minimum")
	ErrInvalidState    = errors.New("payout request is not in a state that allows this action")
	ErrInvalidStatus   = errors.New("unknown payout status")
	ErrProvider        = errors.New("payout provider error")
	ErrBalanceChanged  = errors.New("earned balance no longer covers the request")
)

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
	SetStripeAccount(ctx context.Context, userID int, accountID string) error
}

type ReferralRepo interface {
	TotalEarned(ctx context.Context, referrerID int) (decimal.Decimal, error)
	ResetEarned(ctx context.Context, referrerID int) error
}

type PaymentRepo interface {
	Create(ctx context.Context, payment *domain.Payment) (bool, error)
}

type PayoutRepo interface {
	Create(ctx context.Context, req *domain.PayoutRequest) (*domain.PayoutRequest, error)
	FindByID(ctx context.Context, id int) (*domain.PayoutRequest, error)
	ListByUser(ctx context.Context, userID int) ([]domain.PayoutRequest, error)
	ListByStatus(ctx context.Context, status string) ([]domain.PayoutRequest, error)
	HasOpen(ctx context.Context, userID int) (bool, error)
	Claim(ctx context.Context, id int, from []string) (*domain.PayoutRequest, error)
	RecordTransfer(ctx context.Context, id int, transferID string) error
	RecordPayout(ctx context.Context, id int, payoutID string) error
	MarkPaid(ctx context.Context, id int, processedAt time.Time) error
	MarkFailed(ctx context.Context, id int, note string) error
	Reject(ctx context.Context, id int, note string, processedAt time.Time) (*domain.PayoutRequest, error)
}

// Gateway moves money through Stripe Connect.
type Gateway interface {
	CreateAccount(ctx context.Context, userID int, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
	PayoutsEnabled(ctx context.Context, accountID string) (bool, error)
	Transfer(ctx context.Context, accountID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error)
	Payout(ctx context.Context, accountID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error)
}

type Settings struct {
	MinAmount decimal.Decimal
	Currency  string
}

type Service struct {
	userRepo     UserRepo
	referralRepo ReferralRepo
	paymentRepo  PaymentRepo
	payoutRepo   PayoutRepo
	txManager    pg.TXManager
	gateway      Gateway
	settings     Settings
	now          func() time.Time
}

func New(userRepo UserRepo, referralRepo ReferralRepo, paymentRepo PaymentRepo, payoutRepo PayoutRepo, txManager pg.TXManager, gateway Gateway, settings Settings) *Service {
	return &Service{
		userRepo:     userRepo,
		referralRepo: referralRepo,
		paymentRepo:  paymentRepo,
		payoutRepo:   payoutRepo,
		txManager:    txManager,
		gateway:      gateway,
		settings:     settings,
		now:          time.Now,
	}
}

func providerError(err error) error {
	return fmt.Errorf("%w: %v", ErrProvider, err)
}

// IdempotencyKey is stable for a given request, step and attempt.
func IdempotencyKey(requestID int, step string, attempt int) string {
	name := fmt.Sprintf("payout:%d:%s:%d", requestID, step, attempt)
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

// Connect creates the user's Express account on first use and returns a
// fresh onboarding link.
func (s *Service) Connect(ctx context.Context, userID int) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	accountID := ""
	if user.StripeAccountID != nil {
		accountID = *user.StripeAccountID
	}
	if accountID == "" {
		accountID, err = s.gateway.CreateAccount(ctx, user.ID, user.Email)
		if err != nil {
			return "", providerError(err)
		}
		if err := s.userRepo.SetStripeAccount(ctx, user.ID, accountID); err != nil {
			zap.L().Error("can't save connected account", zap.Int("user_id", user.ID), zap.String("account", accountID), zap.Error(err))
			return "", err
		}
		zap.L().Info("connected account created", zap.Int("user_id", user.ID), zap.String("account", accountID))
	}

	link, err := s.gateway.CreateOnboardingLink(ctx, accountID)
	if err != nil {
		return "", providerError(err)
	}
	return link, nil
}

func (s *Service) payoutsEnabled(ctx context.Context, user *domain.User) (string, error) {
	if user.StripeAccountID == nil || *user.StripeAccountID == "" {
		return "", ErrPayoutsDisabled
	}
	enabled, err := s.gateway.PayoutsEnabled(ctx, *user.StripeAccountID)
	if err != nil {
		return "", providerError(err)
	}
	if !enabled {
		return "", ErrPayoutsDisabled
	}
	return *user.StripeAccountID, nil
}

// Create requests a payout of the user's entire earned balance.
func (s *Service) Create(ctx context.Context, userID int) (*domain.PayoutRequest, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if _, err := s.payoutsEnabled(ctx, user); err != nil {
		return nil, err
	}

	open, err := s.payoutRepo.HasOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrOpenRequest
	}

	total, err := s.referralRepo.TotalEarned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if total.LessThan(s.settings.MinAmount) {
		zap.L().Info("payout below minimum", zap.Int("user_id", userID), zap.String("earned", total.StringFixed(2)))
		return nil, ErrBelowMinimum
	}

	req, err := s.payoutRepo.Create(ctx, &domain.PayoutRequest{
		UserID:   userID,
		Amount:   total,
		Currency: s.settings.Currency,
		Status:   domain.PayoutStatusRequested,
	})
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrOpenRequest
	}

	metrics.ObservePayout(domain.PayoutStatusRequested)
	zap.L().Info("payout requested", zap.Int("user_id", userID), zap.Int("id", req.ID), zap.String("amount", total.StringFixed(2)))
	return req, nil
}

func (s *Service) List(ctx context.Context, userID int) ([]domain.PayoutRequest, error) {
	return s.payoutRepo.ListByUser(ctx, userID)
}

// ListByStatus lists every request when status is empty.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]domain.PayoutRequest, error) {
	if status != "" && !domain.IsValidPayoutStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.payoutRepo.ListByStatus(ctx, status)
}

func (s *Service) missing(ctx context.Context, id int) error {
	req, err := s.payoutRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrNotFound
	}
	return ErrInvalidState
}

// Approve claims the request, moves the money and settles the ledger.
// Stripe ids recorded by an earlier attempt are reused, so a retry after a
// partial failure only repeats the steps that did not complete.
func (s *Service) Approve(ctx context.Context, id int) (*domain.PayoutRequest, error) {
	req, err := s.payoutRepo.Claim(ctx, id, domain.ApprovableStatuses)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, s.missing(ctx, id)
	}
	metrics.ObservePayout(domain.PayoutStatusProcessing)
	log := zap.L().With(zap.Int("payout_id", req.ID), zap.Int("attempt", req.Attempts))

	user, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, req, err)
	}
	if user == nil {
		return nil, s.fail(ctx, req, ErrUserNotFound)
	}
	accountID, err := s.payoutsEnabled(ctx, user)
	if err != nil {
		return nil, s.fail(ctx, req, err)
	}

	// Every attempt re-reads the balance so a stale request never pays out
	// what another request already settled.
	earned, err := s.referralRepo.TotalEarned(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, req, err)
	}
	if earned.LessThan(req.Amount) {
		return nil, s.fail(ctx, req, ErrBalanceChanged)
	}

	if req.StripeTransferID == nil {
		transferID, err := s.gateway.Transfer(ctx, accountID, req.Amount, req.Currency, IdempotencyKey(req.ID, "transfer", req.Attempts))
		if err != nil {
			return nil, s.fail(ctx, req, providerError(err))
		}
		if err := s.payoutRepo.RecordTransfer(ctx, req.ID, transferID); err != nil {
			log.Error("transfer sent but not recorded", zap.String("transfer", transferID), zap.Error(err))
			return nil, s.fail(ctx, req, err)
		}
		req.StripeTransferID = &transferID
	}

	if req.StripePayoutID == nil {
		payoutID, err := s.gateway.Payout(ctx, accountID, req.Amount, req.Currency, IdempotencyKey(req.ID, "payout", req.Attempts))
		if err != nil {
			return nil, s.fail(ctx, req, providerError(err))
		}
		if err := s.payoutRepo.RecordPayout(ctx, req.ID, payoutID); err != nil {
			log.Error("payout sent but not recorded", zap.String("payout", payoutID), zap.Error(err))
			return nil, s.fail(ctx, req, err)
		}
		req.StripePayoutID = &payoutID
	}

	processedAt := s.now()
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.payoutRepo.MarkPaid(ctx, req.ID, processedAt); err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		if _, err := s.paymentRepo.Create(ctx, &domain.Payment{
			UserID:     req.UserID,
			Amount:     req.Amount.Neg(),
			Currency:   req.Currency,
			Status:     domain.PaymentStatusCompleted,
			Method:     domain.PaymentMethodStripePayout,
			ExternalID: req.StripePayoutID,
		}); err != nil {
			return fmt.Errorf("record payout payment: %w", err)
		}
		if err := s.referralRepo.ResetEarned(ctx, req.UserID); err != nil {
			return fmt.Errorf("reset earned: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("payout settled at stripe but ledger update failed", zap.Error(err))
		return nil, s.fail(ctx, req, err)
	}

	req.Status = domain.PayoutStatusPaid
	req.ProcessedAt = &processedAt
	metrics.ObservePayout(domain.PayoutStatusPaid)
	log.Info("payout paid", zap.Int("user_id", req.UserID), zap.String("amount", req.Amount.StringFixed(2)))
	return req, nil
}

// fail marks the request FAILED with the error text and returns cause.
func (s *Service) fail(ctx context.Context, req *domain.PayoutRequest, cause error) error {
	note := truncate(cause.Error(), maxNoteLength)
	if err := s.payoutRepo.MarkFailed(ctx, req.ID, note); err != nil {
		zap.L().Error("can't mark payout failed", zap.Int("payout_id", req.ID), zap.Error(err))
		return errors.Join(cause, err)
	}
	metrics.ObservePayout(domain.PayoutStatusFailed)
	zap.L().Warn("payout failed", zap.Int("payout_id", req.ID), zap.String("note", note))
	return cause
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s *Service) Reject(ctx context.Context, id int, note string) (*domain.PayoutRequest, error) {
	req, err := s.payoutRepo.Reject(ctx, id, truncate(note, maxNoteLength), s.now())
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, s.missing(ctx, id)
	}
	metrics.ObservePayout(domain.PayoutStatusRejected)
	zap.L().Info("payout rejected", zap.Int("payout_id", id))
	return req, nil
}
