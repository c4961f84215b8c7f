package repo

import (
	"testing"

	"github.com/betwise/referrals/internal/pg"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	mockTxManager := pg.NewMockTXManager(ctrl)
	repo := New(mockDB, mockTxManager)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.UserRepo)
	assert.NotNil(t, repo.ReferralRepo)
	assert.NotNil(t, repo.PaymentRepo)
	assert.NotNil(t, repo.CommissionRepo)
	assert.NotNil(t, repo.PayoutRepo)
	assert.NotNil(t, repo.SubscriptionRepo)
	assert.NotNil(t, repo.TxManager)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
