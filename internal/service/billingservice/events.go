package billingservice

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.paid"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// expandableID decodes a Stripe reference that is either an id string or an
// expanded object carrying an id.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type checkoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Subscription      expandableID      `json:"subscription"`
	Invoice           expandableID      `json:"invoice"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

type period struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type invoice struct {
	ID           string       `json:"id"`
	Subscription expandableID `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	AmountPaid  int64  `json:"amount_paid"`
	Currency    string `json:"currency"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   int64  `json:"period_end"`
	Lines       struct {
		Data []struct {
			Period period `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

// SubscriptionID prefers the legacy top-level field.
func (i *invoice) SubscriptionID() string {
	if i.Subscription != "" {
		return string(i.Subscription)
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return string(i.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

// Period comes from the first line item, falling back to the invoice bounds.
func (i *invoice) Period() (time.Time, time.Time) {
	p := period{Start: i.PeriodStart, End: i.PeriodEnd}
	if len(i.Lines.Data) > 0 && i.Lines.Data[0].Period.Start > 0 {
		p = i.Lines.Data[0].Period
	}
	return unix(p.Start), unix(p.End)
}

type subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	EndedAt          int64  `json:"ended_at"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// PeriodEnd reads the item level field newer API versions use when the
// top-level one is absent.
func (s *subscription) PeriodEnd() *time.Time {
	end := s.CurrentPeriodEnd
	if end == 0 && len(s.Items.Data) > 0 {
		end = s.Items.Data[0].CurrentPeriodEnd
	}
	if end == 0 {
		return nil
	}
	t := unix(end)
	return &t
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
