package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/dto"
	"github.com/betwise/referrals/internal/service/authservice"
	"github.com/betwise/referrals/pkg/utils"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*AuthHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	return handler, service
}

func TestRegisterHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful registration with referral code",
			body: `{"email":"player@betwise.io","password":"password123","referral_code":"7992739875"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "password123", "7992739875").Return(&domain.User{
					ID:           2,
					Email:        "player@betwise.io",
					ReferralCode: "4539148801",
				}, nil)
				service.EXPECT().GenerateToken(2).Return("some-jwt-token", nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Successful registration without referral code",
			body: `{"email":"player@betwise.io","password":"password123"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "password123", "").Return(&domain.User{ID: 2}, nil)
				service.EXPECT().GenerateToken(2).Return("some-jwt-token", nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Malformed referral code",
			body:          `{"email":"player@betwise.io","password":"password123","referral_code":"1234567890"}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "ReferralCode: referral_code",
		},
		{
			name:          "Short password",
			body:          `{"email":"player@betwise.io","password":"short"}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Password: min=8",
		},
		{
			name: "Email already registered",
			body: `{"email":"player@betwise.io","password":"password123"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "password123", "").Return(nil, authservice.ErrEmailTaken)
			},
			expectedCode:  http.StatusConflict,
			expectedError: authservice.ErrEmailTaken.Error(),
		},
		{
			name: "Unknown referral code",
			body: `{"email":"player@betwise.io","password":"password123","referral_code":"7992739875"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "password123", "7992739875").Return(nil, authservice.ErrInvalidReferralCode)
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: authservice.ErrInvalidReferralCode.Error(),
		},
		{
			name: "Password over bcrypt limit",
			body: `{"email":"player@betwise.io","password":"éééééééééééééééééééééééééééééééééééééééé"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "éééééééééééééééééééééééééééééééééééééééé", "").Return(nil, authservice.ErrPasswordTooLong)
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: authservice.ErrPasswordTooLong.Error(),
		},
		{
			name: "Unexpected error",
			body: `{"email":"player@betwise.io","password":"password123"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "password123", "").Return(nil, errors.New("database error"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
		{
			name:          "Invalid request body",
			body:          `{invalid json`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
		{
			name: "Error generating token",
			body: `{"email":"player@betwise.io","password":"password123"}`,
			prepareMock: func() {
				service.EXPECT().Register(context.Background(), "player@betwise.io", "password123", "").Return(&domain.User{ID: 2}, nil)
				service.EXPECT().GenerateToken(2).Return("", errors.New("token generation error"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Error generating token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()

			handler.Register(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}
			assert.Equal(t, "Bearer some-jwt-token", rr.Header().Get("Authorization"))
		})
	}
}

func TestRegisterHandler_ReturnsOwnCode(t *testing.T) {
	handler, service := NewMock(t)
	service.EXPECT().Register(gomock.Any(), "player@betwise.io", "password123", "").Return(&domain.User{ID: 2, ReferralCode: "4539148801"}, nil)
	service.EXPECT().GenerateToken(2).Return("some-jwt-token", nil)

	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(`{"email":"player@betwise.io","password":"password123"}`))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)

	var resp dto.RegisterResponseDTO
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "4539148801", resp.ReferralCode)
}

func TestLoginHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful login",
			body: `{"email":"player@betwise.io","password":"password123"}`,
			prepareMock: func() {
				service.EXPECT().
					Authenticate(context.Background(), "player@betwise.io", "password123").
					Return(&domain.User{ID: 1, Email: "player@betwise.io"}, nil)
				service.EXPECT().
					GenerateToken(1).
					Return("some-jwt-token", nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Invalid credentials",
			body: `{"email":"player@betwise.io","password":"wrongpassword"}`,
			prepareMock: func() {
				service.EXPECT().
					Authenticate(context.Background(), "player@betwise.io", "wrongpassword").
					Return(nil, authservice.ErrInvalidCredentials)
			},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Invalid credentials",
		},
		{
			name:          "Missing email",
			body:          `{"password":"password123"}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Email: required",
		},
		{
			name:          "Invalid request body",
			body:          `{invalid json`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
		{
			name: "Error generating token",
			body: `{"email":"player@betwise.io","password":"password123"}`,
			prepareMock: func() {
				service.EXPECT().
					Authenticate(context.Background(), "player@betwise.io", "password123").
					Return(&domain.User{ID: 1}, nil)
				service.EXPECT().
					GenerateToken(1).
					Return("", errors.New("token generation error"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Error generating token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()

			handler.Login(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}
			assert.Equal(t, "Bearer some-jwt-token", rr.Header().Get("Authorization"))
		})
	}
}
