package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *StripeClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeClient("sk_test_123", "https://betwise.test", backends)
}

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(1400), ToCents(decimal.NewFromInt(14)))
	assert.Equal(t, int64(1001), ToCents(decimal.RequireFromString("10.005")))
	assert.True(t, FromCents(2000).Equal(decimal.NewFromInt(20)))
}

func TestStripeClient_Transfer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, "1400", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "acct_1", r.PostForm.Get("destination"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"tr_1","object":"transfer"}`))
	})

	id, err := c.Transfer(context.Background(), "acct_1", decimal.NewFromInt(14), "usd", "key-1")
	assert.NoError(t, err)
	assert.Equal(t, "tr_1", id)
}

func TestStripeClient_Payout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/payouts", r.URL.Path)
		assert.Equal(t, "acct_1", r.Header.Get("Stripe-Account"))
		assert.Equal(t, "1400", r.PostForm.Get("amount"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"po_1","object":"payout"}`))
	})

	id, err := c.Payout(context.Background(), "acct_1", decimal.NewFromInt(14), "usd", "key-2")
	assert.NoError(t, err)
	assert.Equal(t, "po_1", id)
}

func TestStripeClient_TransferError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Insufficient funds in Stripe account"}}`))
	})

	id, err := c.Transfer(context.Background(), "acct_1", decimal.NewFromInt(14), "usd", "key-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient funds")
	assert.Empty(t, id)
}

func TestStripeClient_Accounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/accounts":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "express", r.PostForm.Get("type"))
			assert.Equal(t, "7", r.PostForm.Get("metadata[user_id]"))
			_, _ = w.Write([]byte(`{"id":"acct_1","object":"account"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/accounts/acct_1":
			_, _ = w.Write([]byte(`{"id":"acct_1","object":"account","payouts_enabled":true}`))
		case r.URL.Path == "/v1/account_links":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "https://betwise.test/payouts/connect/return", r.PostForm.Get("return_url"))
			_, _ = w.Write([]byte(`{"object":"account_link","url":"https://connect.stripe.com/setup/e/acct_1"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	acct, err := c.CreateAccount(context.Background(), 7, "ref@betwise.test")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", acct)

	enabled, err := c.PayoutsEnabled(context.Background(), acct)
	require.NoError(t, err)
	assert.True(t, enabled)

	link, err := c.CreateOnboardingLink(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.com/setup/e/acct_1", link)
}

func TestStripeClient_CreateCheckoutSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "price_monthly", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "3", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "monthly", r.PostForm.Get("metadata[plan]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.com/c/cs_1"}`))
	})

	url, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{UserID: 3, Plan: "monthly", PriceID: "price_monthly"})
	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", url)
}
