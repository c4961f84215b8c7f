package referrals

//go:generate mockgen -source=referrals.go -destination=mock_referrals.go -package=referrals

import (
	"context"
	"errors"
	"net/http"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/dto"
	"github.com/betwise/referrals/internal/service/referralservice"
	"github.com/betwise/referrals/pkg/auth"
	"github.com/betwise/referrals/pkg/utils"
	"go.uber.org/zap"
)

type Service interface {
	Summary(ctx context.Context, userID int) (*domain.ReferralSummary, error)
	Commissions(ctx context.Context, userID int) ([]domain.CommissionLog, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type ReferralHandler struct {
	referralService Service
}

func New(referralService Service) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

// GetSummary godoc
//
//	@Summary		Referral dashboard
//	@Description	Own referral code, unpaid earnings, referred users and the latest commission logs.
//	@Tags			Referrals
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.ReferralSummaryDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/referrals [get]
func (h *ReferralHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	summary, err := h.referralService.Summary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, referralservice.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewReferralSummary(summary))
}

// GetCommissions godoc
//
//	@Summary		Commission history
//	@Description	Every commission credited to the authenticated referrer, newest first.
//	@Tags			Referrals
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.CommissionDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/referrals/commissions [get]
func (h *ReferralHandler) GetCommissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	logs, err := h.referralService.Commissions(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewCommissions(logs))
}

// GetStats godoc
//
//	@Summary		Program statistics
//	@Description	Total commission credited, open and paid payout amounts and the number of referrals.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.StatsDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		403	{object}	utils.Response	"Admin role required"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/stats [get]
func (h *ReferralHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.referralService.Stats(r.Context())
	if err != nil {
		zap.L().Error("failed to load stats", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewStats(stats))
}
