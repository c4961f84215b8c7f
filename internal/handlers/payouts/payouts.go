package payouts

//go:generate mockgen -source=payouts.go -destination=mock_payouts.go -package=payouts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/dto"
	"github.com/betwise/referrals/internal/service/payoutservice"
	"github.com/betwise/referrals/pkg/auth"
	"github.com/betwise/referrals/pkg/utils"
	"github.com/betwise/referrals/pkg/validate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Service interface {
	Connect(ctx context.Context, userID int) (string, error)
	Create(ctx context.Context, userID int) (*domain.PayoutRequest, error)
	List(ctx context.Context, userID int) ([]domain.PayoutRequest, error)
	ListByStatus(ctx context.Context, status string) ([]domain.PayoutRequest, error)
	Approve(ctx context.Context, id int) (*domain.PayoutRequest, error)
	Reject(ctx context.Context, id int, note string) (*domain.PayoutRequest, error)
}

type PayoutHandler struct {
	payoutService Service
}

func New(payoutService Service) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payoutservice.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payoutservice.ErrOpenRequest), errors.Is(err, payoutservice.ErrInvalidState), errors.Is(err, payoutservice.ErrBalanceChanged):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payoutservice.ErrBelowMinimum), errors.Is(err, payoutservice.ErrPayoutsDisabled):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, payoutservice.ErrInvalidStatus):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payoutservice.ErrUserNotFound):
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, payoutservice.ErrProvider):
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		zap.L().Error("payout request failed", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Connect godoc
//
//	@Summary		Start Stripe Connect onboarding
//	@Description	Creates the Express account on first use and returns an onboarding link.
//	@Tags			Payouts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.ConnectResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		502	{object}	utils.Response	"Stripe error"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payouts/connect [post]
func (h *PayoutHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	url, err := h.payoutService.Connect(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ConnectResponseDTO{URL: url})
}

// Create godoc
//
//	@Summary		Request a payout
//	@Description	Requests a payout of the entire earned balance. Needs a payouts-enabled connected account and at least the configured minimum.
//	@Tags			Payouts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		201	{object}	dto.PayoutDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		409	{object}	utils.Response	"An open request already exists"
//	@Failure		422	{object}	utils.Response	"Below minimum or payouts disabled"
//	@Failure		502	{object}	utils.Response	"Stripe error"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payouts [post]
func (h *PayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	req, err := h.payoutService.Create(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewPayout(req))
}

// List godoc
//
//	@Summary		Own payout requests
//	@Tags			Payouts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.PayoutDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payouts [get]
func (h *PayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	payouts, err := h.payoutService.List(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPayouts(payouts))
}

// AdminList godoc
//
//	@Summary		All payout requests
//	@Description	Lists payout requests, optionally filtered by status.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			status	query		string	false	"REQUESTED, APPROVED, PROCESSING, PAID, FAILED or REJECTED"
//	@Success		200		{array}		dto.PayoutDTO
//	@Failure		400		{object}	utils.Response	"Unknown status"
//	@Failure		403		{object}	utils.Response	"Admin role required"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/payouts [get]
func (h *PayoutHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.payoutService.ListByStatus(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPayouts(payouts))
}

func payoutID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// Approve godoc
//
//	@Summary		Approve and pay out
//	@Description	Transfers the amount to the connected account and pays it out. Accepted from REQUESTED, APPROVED or FAILED.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Payout request id"
//	@Success		200	{object}	dto.PayoutDTO
//	@Failure		400	{object}	utils.Response	"Invalid id"
//	@Failure		403	{object}	utils.Response	"Admin role required"
//	@Failure		404	{object}	utils.Response	"Request not found"
//	@Failure		409	{object}	utils.Response	"Request is not approvable"
//	@Failure		422	{object}	utils.Response	"Payouts disabled"
//	@Failure		502	{object}	utils.Response	"Stripe error"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/payouts/{id}/approve [post]
func (h *PayoutHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := payoutID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payout id")
		return
	}

	req, err := h.payoutService.Approve(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPayout(req))
}

// Reject godoc
//
//	@Summary		Reject a payout request
//	@Description	Only REQUESTED requests can be rejected. The earned balance is left untouched.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Payout request id"
//	@Param			request	body		dto.RejectRequestDTO	false	"Admin note"
//	@Success		200		{object}	dto.PayoutDTO
//	@Failure		400		{object}	utils.Response	"Invalid id or body"
//	@Failure		403		{object}	utils.Response	"Admin role required"
//	@Failure		404		{object}	utils.Response	"Request not found"
//	@Failure		409		{object}	utils.Response	"Request is not rejectable"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/payouts/{id}/reject [post]
func (h *PayoutHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := payoutID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payout id")
		return
	}

	var body dto.RejectRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.payoutService.Reject(r.Context(), id, body.Note)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPayout(req))
}
