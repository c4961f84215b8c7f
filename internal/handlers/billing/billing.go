package billing

//go:generate mockgen -source=billing.go -destination=mock_billing.go -package=billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/dto"
	"github.com/betwise/referrals/internal/service/billingservice"
	"github.com/betwise/referrals/pkg/auth"
	"github.com/betwise/referrals/pkg/utils"
	"github.com/betwise/referrals/pkg/validate"
	"go.uber.org/zap"
)

type Service interface {
	CreateCheckout(ctx context.Context, userID int, plan string) (string, error)
	GetSubscription(ctx context.Context, userID int) (*domain.Subscription, error)
	ListPayments(ctx context.Context, userID int) ([]domain.Payment, error)
}

type BillingHandler struct {
	billingService Service
}

func New(billingService Service) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// Checkout godoc
//
//	@Summary		Start a subscription checkout
//	@Description	Creates a Stripe Checkout Session for the plan and returns its URL.
//	@Tags			Subscriptions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CheckoutRequestDTO	true	"Plan"
//	@Success		200		{object}	dto.CheckoutResponseDTO
//	@Failure		400		{object}	utils.Response	"Unknown plan"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		502		{object}	utils.Response	"Stripe error"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/subscriptions/checkout [post]
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.billingService.CreateCheckout(r.Context(), userID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, billingservice.ErrUnknownPlan):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, billingservice.ErrUserNotFound):
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, billingservice.ErrCheckoutFailure):
			zap.L().Warn("checkout session failed", zap.Int("user_id", userID), zap.Error(err))
			utils.RespondWithError(w, http.StatusBadGateway, billingservice.ErrCheckoutFailure.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.CheckoutResponseDTO{URL: url})
}

// GetSubscription godoc
//
//	@Summary		Own subscription
//	@Tags			Subscriptions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.SubscriptionDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"No subscription"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/subscriptions [get]
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, err := h.billingService.GetSubscription(r.Context(), userID)
	if err != nil {
		if errors.Is(err, billingservice.ErrNoSubscription) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewSubscription(sub))
}

// GetPayments godoc
//
//	@Summary		Own payment ledger
//	@Description	Subscription charges are positive, payouts negative. Newest first.
//	@Tags			Subscriptions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.PaymentDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments [get]
func (h *BillingHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	payments, err := h.billingService.ListPayments(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch payments")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPayments(payments))
}
