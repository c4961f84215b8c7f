package clients

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

const (
	onboardingRefreshPath = "/payouts/connect/refresh"
	onboardingReturnPath  = "/payouts/connect/return"
	checkoutSuccessPath   = "/subscription/success"
	checkoutCancelPath    = "/subscription/cancel"
)

type CheckoutRequest struct {
	UserID  int
	Email   string
	Plan    string
	PriceID string
}

// StripeClient wraps the Stripe calls used by billing and payouts.
// Amounts are passed in major units and converted to cents here.
type StripeClient struct {
	api       *client.API
	publicURL string
}

// NewStripeClient uses Stripe's default backends when backends is nil.
func NewStripeClient(key, publicURL string, backends *stripe.Backends) *StripeClient {
	return &StripeClient{
		api:       client.New(key, backends),
		publicURL: publicURL,
	}
}

func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func (c *StripeClient) CreateAccount(ctx context.Context, userID int, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.Itoa(userID))

	acct, err := c.api.Accounts.New(params)
	if err != nil {
		zap.L().Error("stripe account create failed", zap.Int("user_id", userID), zap.Error(err))
		return "", err
	}
	return acct.ID, nil
}

func (c *StripeClient) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(c.publicURL + onboardingRefreshPath),
		ReturnURL:  stripe.String(c.publicURL + onboardingReturnPath),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		zap.L().Error("stripe account link failed", zap.String("account", accountID), zap.Error(err))
		return "", err
	}
	return link.URL, nil
}

func (c *StripeClient) PayoutsEnabled(ctx context.Context, accountID string) (bool, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := c.api.Accounts.GetByID(accountID, params)
	if err != nil {
		zap.L().Error("stripe account lookup failed", zap.String("account", accountID), zap.Error(err))
		return false, err
	}
	return acct.PayoutsEnabled, nil
}

// Transfer moves funds from the platform balance to the connected account.
func (c *StripeClient) Transfer(ctx context.Context, accountID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(ToCents(amount)),
		Currency:    stripe.String(currency),
		Destination: stripe.String(accountID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	tr, err := c.api.Transfers.New(params)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

// Payout sends funds from the connected account balance to its bank account.
func (c *StripeClient) Payout(ctx context.Context, accountID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(ToCents(amount)),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	params.SetIdempotencyKey(idempotencyKey)

	po, err := c.api.Payouts.New(params)
	if err != nil {
		return "", err
	}
	return po.ID, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(strconv.Itoa(req.UserID)),
		SuccessURL:        stripe.String(c.publicURL + checkoutSuccessPath),
		CancelURL:         stripe.String(c.publicURL + checkoutCancelPath),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata("plan", req.Plan)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		zap.L().Error("stripe checkout session failed", zap.Int("user_id", req.UserID), zap.Error(err))
		return "", err
	}
	return sess.URL, nil
}
