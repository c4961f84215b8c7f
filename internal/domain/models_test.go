package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPayment_Month(t *testing.T) {
	start := time.Date(2024, time.March, 31, 23, 30, 0, 0, time.UTC)
	created := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payment  Payment
		expected string
	}{
		{
			name:     "Period start wins",
			payment:  Payment{PeriodStart: &start, CreatedAt: created},
			expected: "2024-03",
		},
		{
			name:     "Falls back to created at",
			payment:  Payment{CreatedAt: created},
			expected: "2024-05",
		},
		{
			name:     "Period start in another zone is bucketed in UTC",
			payment:  Payment{PeriodStart: ptrTime(time.Date(2024, time.April, 1, 1, 0, 0, 0, time.FixedZone("CET", 2*3600)))},
			expected: "2024-03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.payment.Month())
		})
	}
}

func TestPayoutRequest_Transitions(t *testing.T) {
	tests := []struct {
		status     string
		canApprove bool
		canReject  bool
	}{
		{PayoutStatusRequested, true, true},
		{PayoutStatusApproved, true, false},
		{PayoutStatusFailed, true, false},
		{PayoutStatusProcessing, false, false},
		{PayoutStatusPaid, false, false},
		{PayoutStatusRejected, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			p := &PayoutRequest{Status: tt.status}
			assert.Equal(t, tt.canApprove, p.CanApprove())
			assert.Equal(t, tt.canReject, p.CanReject())
			assert.True(t, IsValidPayoutStatus(tt.status))
		})
	}

	assert.False(t, IsValidPayoutStatus(""))
	assert.False(t, IsValidPayoutStatus("paid"))
}

func TestPayoutRequest_IsOpen(t *testing.T) {
	transfer := "tr_1"
	tests := []struct {
		name     string
		req      PayoutRequest
		expected bool
	}{
		{name: "Requested", req: PayoutRequest{Status: PayoutStatusRequested}, expected: true},
		{name: "Processing", req: PayoutRequest{Status: PayoutStatusProcessing}, expected: true},
		{name: "Failed before transfer", req: PayoutRequest{Status: PayoutStatusFailed}},
		{name: "Failed after transfer", req: PayoutRequest{Status: PayoutStatusFailed, StripeTransferID: &transfer}, expected: true},
		{name: "Paid", req: PayoutRequest{Status: PayoutStatusPaid, StripeTransferID: &transfer}},
		{name: "Rejected", req: PayoutRequest{Status: PayoutStatusRejected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.IsOpen())
		})
	}
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
