package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"

	PaymentMethodStripe       = "STRIPE"
	PaymentMethodStripePayout = "STRIPE_PAYOUT"
)

const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
)

type User struct {
	ID              int       `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	Role            string    `db:"role"`
	ReferralCode    string    `db:"referral_code"`
	ReferredBy      *int      `db:"referred_by"`
	StripeAccountID *string   `db:"stripe_account_id"`
	CreatedAt       time.Time `db:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Referral struct {
	ID             int             `db:"id"`
	ReferrerID     int             `db:"referrer_id"`
	ReferredUserID int             `db:"referred_user_id"`
	EarnedAmount   decimal.Decimal `db:"earned_amount"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Payment is a ledger row. Charges are positive, payouts negative.
type Payment struct {
	ID          int             `db:"id"`
	UserID      int             `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Status      string          `db:"status"`
	Method      string          `db:"method"`
	ExternalID  *string         `db:"external_id"`
	PeriodStart *time.Time      `db:"period_start"`
	PeriodEnd   *time.Time      `db:"period_end"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Month returns the commission bucket the payment belongs to.
func (p *Payment) Month() string {
	if p.PeriodStart != nil {
		return p.PeriodStart.UTC().Format("2006-01")
	}
	if !p.CreatedAt.IsZero() {
		return p.CreatedAt.UTC().Format("2006-01")
	}
	return time.Now().UTC().Format("2006-01")
}

type CommissionLog struct {
	ID             int             `db:"id"`
	ReferrerID     int             `db:"referrer_id"`
	ReferredUserID int             `db:"referred_user_id"`
	PaymentID      int             `db:"payment_id"`
	Amount         decimal.Decimal `db:"amount"`
	RateApplied    decimal.Decimal `db:"rate_applied"`
	Month          string          `db:"month"`
	CreatedAt      time.Time       `db:"created_at"`
}

type Subscription struct {
	ID         int        `db:"id"`
	UserID     int        `db:"user_id"`
	Plan       string     `db:"plan"`
	Status     string     `db:"status"`
	StartDate  time.Time  `db:"start_date"`
	EndDate    *time.Time `db:"end_date"`
	ExternalID *string    `db:"external_id"`
}

// Stats is the admin view over the whole referral program.
type Stats struct {
	TotalCommission decimal.Decimal
	OpenPayouts     decimal.Decimal
	PaidPayouts     decimal.Decimal
	ReferralCount   int
}

type ReferralSummary struct {
	ReferralCode      string
	TotalEarned       decimal.Decimal
	Referrals         []Referral
	RecentCommissions []CommissionLog
}
