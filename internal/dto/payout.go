package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
)

type ConnectResponseDTO struct {
	URL string `json:"url" example:"https://connect.stripe.com/setup/e/acct_1/abc"`
}

type PayoutDTO struct {
	ID               int             `json:"id" example:"1"`
	UserID           int             `json:"user_id" example:"1"`
	Amount           decimal.Decimal `json:"amount" swaggertype:"string" example:"14"`
	Currency         string          `json:"currency" example:"usd"`
	Status           string          `json:"status" example:"REQUESTED"`
	AdminNote        *string         `json:"admin_note,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	StripeTransferID *string         `json:"stripe_transfer_id,omitempty" example:"tr_1"`
	StripePayoutID   *string         `json:"stripe_payout_id,omitempty" example:"po_1"`
	CreatedAt        time.Time       `json:"created_at" example:"2024-03-01T12:00:00Z"`
}

type RejectRequestDTO struct {
	Note string `json:"note" validate:"max=500" example:"duplicate account"`
}

func NewPayout(p *domain.PayoutRequest) PayoutDTO {
	return PayoutDTO{
		ID:               p.ID,
		UserID:           p.UserID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		AdminNote:        p.AdminNote,
		ProcessedAt:      p.ProcessedAt,
		StripeTransferID: p.StripeTransferID,
		StripePayoutID:   p.StripePayoutID,
		CreatedAt:        p.CreatedAt,
	}
}

func NewPayouts(payouts []domain.PayoutRequest) []PayoutDTO {
	res := make([]PayoutDTO, len(payouts))
	for i := range payouts {
		res[i] = NewPayout(&payouts[i])
	}
	return res
}
