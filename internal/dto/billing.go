package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
)

type CheckoutRequestDTO struct {
	Plan string `json:"plan" validate:"required,max=64" example:"monthly"`
}

type CheckoutResponseDTO struct {
	URL string `json:"url" example:"https://checkout.stripe.com/c/pay/cs_test_1"`
}

type SubscriptionDTO struct {
	Plan      string     `json:"plan" example:"monthly"`
	Status    string     `json:"status" example:"ACTIVE"`
	StartDate time.Time  `json:"start_date" example:"2024-03-01T12:00:00Z"`
	EndDate   *time.Time `json:"end_date,omitempty" example:"2024-04-01T12:00:00Z"`
}

type PaymentDTO struct {
	ID          int             `json:"id" example:"11"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"20"`
	Currency    string          `json:"currency" example:"usd"`
	Status      string          `json:"status" example:"COMPLETED"`
	Method      string          `json:"method" example:"STRIPE"`
	PeriodStart *time.Time      `json:"period_start,omitempty"`
	PeriodEnd   *time.Time      `json:"period_end,omitempty"`
	CreatedAt   time.Time       `json:"created_at" example:"2024-03-01T12:00:00Z"`
}

type WebhookResponseDTO struct {
	Received bool `json:"received" example:"true"`
}

func NewSubscription(s *domain.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		Plan:      s.Plan,
		Status:    s.Status,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}

func NewPayments(payments []domain.Payment) []PaymentDTO {
	res := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		res[i] = PaymentDTO{
			ID:          p.ID,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Status:      p.Status,
			Method:      p.Method,
			PeriodStart: p.PeriodStart,
			PeriodEnd:   p.PeriodEnd,
			CreatedAt:   p.CreatedAt,
		}
	}
	return res
}
