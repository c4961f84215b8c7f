package webhook

//go:generate mockgen -source=webhook.go -destination=mock_webhook.go -package=webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/betwise/referrals/internal/dto"
	"github.com/betwise/referrals/internal/service/billingservice"
	"github.com/betwise/referrals/pkg/utils"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

const bodyLimit = 1 << 20

type Service interface {
	HandleEvent(ctx context.Context, eventType string, raw json.RawMessage) error
}

type WebhookHandler struct {
	billingService Service
	secret         string
}

func New(billingService Service, secret string) *WebhookHandler {
	return &WebhookHandler{
		billingService: billingService,
		secret:         secret,
	}
}

// Stripe godoc
//
//	@Summary		Stripe webhook
//	@Description	Verifies the Stripe-Signature header and applies checkout, invoice and subscription events.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string	true	"Stripe signature"
//	@Success		200					{object}	dto.WebhookResponseDTO
//	@Failure		400					{object}	utils.Response	"Invalid payload or signature"
//	@Failure		500					{object}	utils.Response	"Event processing failed"
//	@Failure		503					{object}	utils.Response	"Webhook secret not configured"
//	@Router			/api/webhooks/stripe [post]
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Webhook secret is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid Stripe signature")
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		zap.L().Warn("stripe signature rejected", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid Stripe signature")
		return
	}
	if event.Data == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Event without data")
		return
	}

	if err := h.billingService.HandleEvent(r.Context(), string(event.Type), event.Data.Raw); err != nil {
		zap.L().Error("stripe event processing failed", zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
		if errors.Is(err, billingservice.ErrMalformedEvent) {
			utils.RespondWithError(w, http.StatusBadRequest, "Malformed event payload")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process Stripe webhook")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WebhookResponseDTO{Received: true})
}
