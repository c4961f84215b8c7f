package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PayoutStatusRequested  = "REQUESTED"
	PayoutStatusApproved   = "APPROVED"
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusPaid       = "PAID"
	PayoutStatusFailed     = "FAILED"
	PayoutStatusRejected   = "REJECTED"
)

// ApprovableStatuses can move to PROCESSING. Nothing writes APPROVED, it is
// only accepted as an approve source.
var ApprovableStatuses = []string{
	PayoutStatusRequested,
	PayoutStatusApproved,
	PayoutStatusFailed,
}

// OpenStatuses block a new request from the same user. A FAILED request
// with a recorded transfer is open as well, see IsOpen.
var OpenStatuses = []string{
	PayoutStatusRequested,
	PayoutStatusApproved,
	PayoutStatusProcessing,
}

type PayoutRequest struct {
	ID               int             `db:"id"`
	UserID           int             `db:"user_id"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	Status           string          `db:"status"`
	AdminNote        *string         `db:"admin_note"`
	ProcessedAt      *time.Time      `db:"processed_at"`
	StripeTransferID *string         `db:"stripe_transfer_id"`
	StripePayoutID   *string         `db:"stripe_payout_id"`
	Attempts         int             `db:"attempts"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (p *PayoutRequest) CanApprove() bool {
	for _, s := range ApprovableStatuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request still holds the user's balance. Money
// already sent to the connected account keeps a FAILED request open until a
// retry settles it. payout_requests_open_user_idx encodes the same rule.
func (p *PayoutRequest) IsOpen() bool {
	for _, s := range OpenStatuses {
		if p.Status == s {
			return true
		}
	}
	return p.Status == PayoutStatusFailed && p.StripeTransferID != nil
}

func (p *PayoutRequest) CanReject() bool {
	return p.Status == PayoutStatusRequested
}

// IsValidPayoutStatus reports whether s is a known status. Empty is not valid.
func IsValidPayoutStatus(s string) bool {
	switch s {
	case PayoutStatusRequested, PayoutStatusApproved, PayoutStatusProcessing,
		PayoutStatusPaid, PayoutStatusFailed, PayoutStatusRejected:
		return true
	}
	return false
}
