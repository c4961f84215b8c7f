package referrals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/dto"
	"github.com/betwise/referrals/internal/service/referralservice"
	"github.com/betwise/referrals/pkg/auth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*ReferralHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func withUser(req *http.Request, userID int) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), userID, domain.RoleUser))
}

func TestGetSummary(t *testing.T) {
	handler, service := NewMock(t)
	createdAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		userID       int
		prepareMock  func()
		expectedCode int
	}{
		{
			name:   "Summary",
			userID: 1,
			prepareMock: func() {
				service.EXPECT().Summary(gomock.Any(), 1).Return(&domain.ReferralSummary{
					ReferralCode: "4539148801",
					TotalEarned:  decimal.NewFromInt(14),
					Referrals: []domain.Referral{
						{ReferredUserID: 2, EarnedAmount: decimal.NewFromInt(14), CreatedAt: createdAt},
					},
					RecentCommissions: []domain.CommissionLog{
						{ID: 1, ReferredUserID: 2, PaymentID: 11, Amount: decimal.NewFromInt(10), RateApplied: decimal.RequireFromString("0.5"), Month: "2024-03"},
					},
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing user",
			prepareMock:  func() {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:   "User vanished",
			userID: 3,
			prepareMock: func() {
				service.EXPECT().Summary(gomock.Any(), 3).Return(nil, referralservice.ErrUserNotFound)
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:   "Service error",
			userID: 1,
			prepareMock: func() {
				service.EXPECT().Summary(gomock.Any(), 1).Return(nil, errors.New("database error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := httptest.NewRequest(http.MethodGet, "/api/referrals", nil)
			if tt.userID != 0 {
				req = withUser(req, tt.userID)
			}
			rr := httptest.NewRecorder()

			handler.GetSummary(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode != http.StatusOK {
				return
			}
			var resp dto.ReferralSummaryDTO
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, "4539148801", resp.ReferralCode)
			assert.True(t, resp.TotalEarned.Equal(decimal.NewFromInt(14)))
			assert.Len(t, resp.Referrals, 1)
			assert.Equal(t, "2024-03", resp.RecentCommissions[0].Month)
		})
	}
}

func TestGetCommissions(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Commissions(gomock.Any(), 1).Return([]domain.CommissionLog{
		{ID: 2, Amount: decimal.NewFromInt(4), RateApplied: decimal.RequireFromString("0.2"), Month: "2024-04"},
		{ID: 1, Amount: decimal.NewFromInt(10), RateApplied: decimal.RequireFromString("0.5"), Month: "2024-03"},
	}, nil)
	rr := httptest.NewRecorder()
	handler.GetCommissions(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/referrals/commissions", nil), 1))
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp []dto.CommissionDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 2)
	assert.True(t, resp[0].RateApplied.Equal(decimal.RequireFromString("0.2")))

	service.EXPECT().Commissions(gomock.Any(), 1).Return(nil, errors.New("database error"))
	rr = httptest.NewRecorder()
	handler.GetCommissions(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/referrals/commissions", nil), 1))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetStats(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Stats(context.Background()).Return(&domain.Stats{
		TotalCommission: decimal.NewFromInt(114),
		OpenPayouts:     decimal.NewFromInt(14),
		PaidPayouts:     decimal.NewFromInt(100),
		ReferralCount:   7,
	}, nil)
	rr := httptest.NewRecorder()
	handler.GetStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp dto.StatsDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 7, resp.ReferralCount)
	assert.True(t, resp.PaidPayouts.Equal(decimal.NewFromInt(100)))

	service.EXPECT().Stats(context.Background()).Return(nil, errors.New("database error"))
	rr = httptest.NewRecorder()
	handler.GetStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
