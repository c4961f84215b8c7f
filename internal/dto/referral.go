package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
)

type ReferralDTO struct {
	ReferredUserID int             `json:"referred_user_id" example:"2"`
	EarnedAmount   decimal.Decimal `json:"earned_amount" swaggertype:"string" example:"14"`
	CreatedAt      time.Time       `json:"created_at" example:"2024-03-01T12:00:00Z"`
}

type CommissionDTO struct {
	ID             int             `json:"id" example:"1"`
	ReferredUserID int             `json:"referred_user_id" example:"2"`
	PaymentID      int             `json:"payment_id" example:"11"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"10"`
	RateApplied    decimal.Decimal `json:"rate_applied" swaggertype:"string" example:"0.5"`
	Month          string          `json:"month" example:"2024-03"`
	CreatedAt      time.Time       `json:"created_at" example:"2024-03-01T12:00:00Z"`
}

type ReferralSummaryDTO struct {
	ReferralCode      string          `json:"referral_code" example:"4539148801"`
	TotalEarned       decimal.Decimal `json:"total_earned" swaggertype:"string" example:"14"`
	Referrals         []ReferralDTO   `json:"referrals"`
	RecentCommissions []CommissionDTO `json:"recent_commissions"`
}

type StatsDTO struct {
	TotalCommission decimal.Decimal `json:"total_commission" swaggertype:"string" example:"114"`
	OpenPayouts     decimal.Decimal `json:"open_payouts" swaggertype:"string" example:"14"`
	PaidPayouts     decimal.Decimal `json:"paid_payouts" swaggertype:"string" example:"100"`
	ReferralCount   int             `json:"referral_count" example:"7"`
}

func NewCommissions(logs []domain.CommissionLog) []CommissionDTO {
	res := make([]CommissionDTO, len(logs))
	for i, l := range logs {
		res[i] = CommissionDTO{
			ID:             l.ID,
			ReferredUserID: l.ReferredUserID,
			PaymentID:      l.PaymentID,
			Amount:         l.Amount,
			RateApplied:    l.RateApplied,
			Month:          l.Month,
			CreatedAt:      l.CreatedAt,
		}
	}
	return res
}

func NewReferralSummary(s *domain.ReferralSummary) ReferralSummaryDTO {
	referrals := make([]ReferralDTO, len(s.Referrals))
	for i, r := range s.Referrals {
		referrals[i] = ReferralDTO{
			ReferredUserID: r.ReferredUserID,
			EarnedAmount:   r.EarnedAmount,
			CreatedAt:      r.CreatedAt,
		}
	}
	return ReferralSummaryDTO{
		ReferralCode:      s.ReferralCode,
		TotalEarned:       s.TotalEarned,
		Referrals:         referrals,
		RecentCommissions: NewCommissions(s.RecentCommissions),
	}
}

func NewStats(s *domain.Stats) StatsDTO {
	return StatsDTO{
		TotalCommission: s.TotalCommission,
		OpenPayouts:     s.OpenPayouts,
		PaidPayouts:     s.PaidPayouts,
		ReferralCount:   s.ReferralCount,
	}
}
