package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/handlers/auth"
	"github.com/betwise/referrals/internal/handlers/billing"
	"github.com/betwise/referrals/internal/handlers/payouts"
	"github.com/betwise/referrals/internal/handlers/referrals"
	"github.com/betwise/referrals/internal/handlers/webhook"
	"github.com/betwise/referrals/internal/service"
	pkgauth "github.com/betwise/referrals/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)

	services := &service.Services{
		AuthService:     auth.NewMockService(ctrl),
		ReferralService: referrals.NewMockService(ctrl),
		PayoutService:   payouts.NewMockService(ctrl),
		BillingService:  billing.NewMockService(ctrl),
		WebhookService:  webhook.NewMockService(ctrl),
		Identity:        pkgauth.NewMockIdentity(ctrl),
		JWTService:      pkgauth.NewMockJWTServiceInterface(ctrl),
	}

	h := New(services, "whsec_test")
	assert.NotNil(t, h, "Handlers should not be nil")
	assert.NotNil(t, h.Authenticate)
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockAuthHandler := NewMockAuthHandler(ctrl)
	mockReferralHandler := NewMockReferralHandler(ctrl)
	mockPayoutHandler := NewMockPayoutHandler(ctrl)
	mockBillingHandler := NewMockBillingHandler(ctrl)
	mockWebhookHandler := NewMockWebhookHandler(ctrl)
	identity := pkgauth.NewMockIdentity(ctrl)

	mockAuthHandler.EXPECT().Register(gomock.Any(), gomock.Any()).AnyTimes()
	mockAuthHandler.EXPECT().Login(gomock.Any(), gomock.Any()).AnyTimes()
	mockReferralHandler.EXPECT().GetSummary(gomock.Any(), gomock.Any()).AnyTimes()
	mockReferralHandler.EXPECT().GetCommissions(gomock.Any(), gomock.Any()).AnyTimes()
	mockReferralHandler.EXPECT().GetStats(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Connect(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Create(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().List(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().AdminList(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Approve(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Reject(gomock.Any(), gomock.Any()).AnyTimes()
	mockBillingHandler.EXPECT().Checkout(gomock.Any(), gomock.Any()).AnyTimes()
	mockBillingHandler.EXPECT().GetSubscription(gomock.Any(), gomock.Any()).AnyTimes()
	mockBillingHandler.EXPECT().GetPayments(gomock.Any(), gomock.Any()).AnyTimes()
	mockWebhookHandler.EXPECT().Stripe(gomock.Any(), gomock.Any()).AnyTimes()
	identity.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.User{ID: 1, Role: domain.RoleUser}, nil).AnyTimes()
	identity.EXPECT().FindByID(gomock.Any(), 2).Return(&domain.User{ID: 2, Role: domain.RoleAdmin}, nil).AnyTimes()

	jwtService := pkgauth.NewJWTService("secret", time.Hour)
	userToken, err := jwtService.GenerateJWT(1)
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateJWT(2)
	require.NoError(t, err)

	h := &Handlers{
		AuthHandler:     mockAuthHandler,
		ReferralHandler: mockReferralHandler,
		PayoutHandler:   mockPayoutHandler,
		BillingHandler:  mockBillingHandler,
		WebhookHandler:  mockWebhookHandler,
		Authenticate:    pkgauth.Middleware(jwtService, identity),
	}

	router := chi.NewRouter()
	h.InitRoutes(router)

	tests := []struct {
		method string
		url    string
		token  string
		status int
	}{
		{"POST", "/api/auth/register", "", http.StatusOK},
		{"POST", "/api/auth/login", "", http.StatusOK},
		{"POST", "/api/webhooks/stripe", "", http.StatusOK},
		{"GET", "/metrics", "", http.StatusOK},
		{"GET", "/api/referrals", "", http.StatusUnauthorized},
		{"GET", "/api/referrals", userToken, http.StatusOK},
		{"GET", "/api/referrals/commissions", userToken, http.StatusOK},
		{"POST", "/api/payouts/connect", userToken, http.StatusOK},
		{"POST", "/api/payouts", userToken, http.StatusOK},
		{"GET", "/api/payouts", "", http.StatusUnauthorized},
		{"POST", "/api/subscriptions/checkout", userToken, http.StatusOK},
		{"GET", "/api/subscriptions", userToken, http.StatusOK},
		{"GET", "/api/payments", "bogus", http.StatusUnauthorized},
		{"GET", "/api/admin/payouts", userToken, http.StatusForbidden},
		{"GET", "/api/admin/payouts", adminToken, http.StatusOK},
		{"POST", "/api/admin/payouts/5/approve", adminToken, http.StatusOK},
		{"POST", "/api/admin/payouts/5/reject", adminToken, http.StatusOK},
		{"GET", "/api/stats", userToken, http.StatusForbidden},
		{"GET", "/api/stats", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
