package billingservice

//go:generate mockgen -source=billingservice.go -destination=mock_billingservice.go -package=billingservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/metrics"
	"github.com/betwise/referrals/internal/pg"
	"github.com/betwise/referrals/pkg/clients"
	"go.uber.org/zap"
)

const defaultPlan = "default"

var (
	ErrUnknownPlan     = errors.New("unknown plan")
	ErrNoSubscription  = errors.New("subscription not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMalformedEvent  = errors.New("malformed event payload")
	ErrCheckoutFailure = errors.New("checkout provider error")
)

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, payment *domain.Payment) (bool, error)
	ListByUser(ctx context.Context, userID int) ([]domain.Payment, error)
}

type SubscriptionRepo interface {
	Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	FindByUserID(ctx context.Context, userID int) (*domain.Subscription, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error)
	UpdateByExternalID(ctx context.Context, externalID, status string, endDate *time.Time) (bool, error)
}

type Commission interface {
	Credit(ctx context.Context, payment *domain.Payment) (*domain.CommissionLog, error)
}

type Checkout interface {
	CreateCheckoutSession(ctx context.Context, req clients.CheckoutRequest) (string, error)
}

type Service struct {
	userRepo         UserRepo
	paymentRepo      PaymentRepo
	subscriptionRepo SubscriptionRepo
	commission       Commission
	checkout         Checkout
	txManager        pg.TXManager
	plans            map[string]string
	now              func() time.Time
}

func New(userRepo UserRepo, paymentRepo PaymentRepo, subscriptionRepo SubscriptionRepo, commission Commission, checkout Checkout, txManager pg.TXManager, plans map[string]string) *Service {
	return &Service{
		userRepo:         userRepo,
		paymentRepo:      paymentRepo,
		subscriptionRepo: subscriptionRepo,
		commission:       commission,
		checkout:         checkout,
		txManager:        txManager,
		plans:            plans,
		now:              time.Now,
	}
}

// HandleEvent applies one verified Stripe event. A returned error makes
// Stripe redeliver the event, so events that can never succeed are logged
// and dropped instead.
func (s *Service) HandleEvent(ctx context.Context, eventType string, raw json.RawMessage) error {
	var handle func(ctx context.Context, raw json.RawMessage) error
	switch eventType {
	case EventCheckoutCompleted:
		handle = s.handleCheckoutCompleted
	case EventInvoicePaid:
		handle = s.handleInvoicePaid
	case EventSubscriptionUpdated:
		handle = s.handleSubscriptionUpdated
	case EventSubscriptionDeleted:
		handle = s.handleSubscriptionDeleted
	default:
		zap.L().Info("stripe event ignored", zap.String("type", eventType))
		metrics.ObserveWebhook(eventType, "ignored")
		return nil
	}

	if err := s.txManager.Begin(ctx, func(ctx context.Context) error { return handle(ctx, raw) }); err != nil {
		metrics.ObserveWebhook(eventType, "failed")
		zap.L().Error("stripe event failed", zap.String("type", eventType), zap.Error(err))
		return err
	}
	metrics.ObserveWebhook(eventType, "processed")
	return nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session checkoutSession
	if err := decode(raw, &session); err != nil {
		return err
	}

	userID, err := strconv.Atoi(strings.TrimSpace(session.ClientReferenceID))
	if err != nil || userID <= 0 {
		zap.L().Warn("checkout session without user reference", zap.String("session", session.ID))
		return nil
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		zap.L().Warn("checkout session for unknown user", zap.String("session", session.ID), zap.Int("user_id", userID))
		return nil
	}

	plan := session.Metadata["plan"]
	if plan == "" {
		plan = defaultPlan
	}
	_, err = s.subscriptionRepo.Upsert(ctx, &domain.Subscription{
		UserID:     user.ID,
		Plan:       plan,
		Status:     domain.SubscriptionStatusActive,
		StartDate:  s.now().UTC(),
		ExternalID: optional(string(session.Subscription)),
	})
	if err != nil {
		return err
	}

	if session.AmountTotal <= 0 {
		return nil
	}
	externalID := string(session.Invoice)
	if externalID == "" {
		externalID = session.ID
	}
	return s.recordPayment(ctx, &domain.Payment{
		UserID:     user.ID,
		Amount:     clients.FromCents(session.AmountTotal),
		Currency:   session.Currency,
		Status:     domain.PaymentStatusCompleted,
		Method:     domain.PaymentMethodStripe,
		ExternalID: &externalID,
	})
}

func (s *Service) handleInvoicePaid(ctx context.Context, raw json.RawMessage) error {
	var inv invoice
	if err := decode(raw, &inv); err != nil {
		return err
	}

	subID := inv.SubscriptionID()
	if subID == "" {
		zap.L().Info("invoice without subscription ignored", zap.String("invoice", inv.ID))
		return nil
	}
	sub, err := s.subscriptionRepo.FindByExternalID(ctx, subID)
	if err != nil {
		return err
	}
	if sub == nil {
		zap.L().Warn("invoice for unknown subscription", zap.String("invoice", inv.ID), zap.String("subscription", subID))
		return nil
	}

	start, end := inv.Period()
	if _, err := s.subscriptionRepo.UpdateByExternalID(ctx, subID, domain.SubscriptionStatusActive, &end); err != nil {
		return err
	}

	if inv.AmountPaid <= 0 {
		return nil
	}
	return s.recordPayment(ctx, &domain.Payment{
		UserID:      sub.UserID,
		Amount:      clients.FromCents(inv.AmountPaid),
		Currency:    inv.Currency,
		Status:      domain.PaymentStatusCompleted,
		Method:      domain.PaymentMethodStripe,
		ExternalID:  &inv.ID,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
}

// recordPayment credits commission only for the delivery that inserted the
// payment row.
func (s *Service) recordPayment(ctx context.Context, payment *domain.Payment) error {
	created, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return err
	}
	if !created {
		zap.L().Info("payment already recorded", zap.String("external_id", *payment.ExternalID))
		return nil
	}
	_, err = s.commission.Credit(ctx, payment)
	return err
}

// MapStatus folds Stripe subscription statuses into ACTIVE or CANCELLED.
func MapStatus(status string) (string, bool) {
	switch status {
	case "active", "trialing", "past_due":
		return domain.SubscriptionStatusActive, true
	case "canceled", "unpaid", "incomplete_expired":
		return domain.SubscriptionStatusCancelled, true
	}
	return "", false
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, raw json.RawMessage) error {
	var sub subscription
	if err := decode(raw, &sub); err != nil {
		return err
	}
	status, ok := MapStatus(sub.Status)
	if !ok {
		zap.L().Info("subscription status not tracked", zap.String("subscription", sub.ID), zap.String("status", sub.Status))
		return nil
	}
	return s.updateSubscription(ctx, sub.ID, status, sub.PeriodEnd())
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var sub subscription
	if err := decode(raw, &sub); err != nil {
		return err
	}
	ended := s.now().UTC()
	if sub.EndedAt > 0 {
		ended = unix(sub.EndedAt)
	}
	return s.updateSubscription(ctx, sub.ID, domain.SubscriptionStatusCancelled, &ended)
}

func (s *Service) updateSubscription(ctx context.Context, externalID, status string, endDate *time.Time) error {
	updated, err := s.subscriptionRepo.UpdateByExternalID(ctx, externalID, status, endDate)
	if err != nil {
		return err
	}
	if !updated {
		zap.L().Warn("subscription event for unknown subscription", zap.String("subscription", externalID))
	}
	return nil
}

func (s *Service) CreateCheckout(ctx context.Context, userID int, plan string) (string, error) {
	priceID, ok := s.plans[plan]
	if !ok || priceID == "" {
		return "", ErrUnknownPlan
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	url, err := s.checkout.CreateCheckoutSession(ctx, clients.CheckoutRequest{
		UserID:  user.ID,
		Email:   user.Email,
		Plan:    plan,
		PriceID: priceID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCheckoutFailure, err)
	}
	return url, nil
}

func (s *Service) GetSubscription(ctx context.Context, userID int) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	return sub, nil
}

func (s *Service) ListPayments(ctx context.Context, userID int) ([]domain.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID)
}
