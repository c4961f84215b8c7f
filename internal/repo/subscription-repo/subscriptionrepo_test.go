package subscriptionrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/betwise/referrals/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

var columns = []string{"id", "user_id", "plan", "status", "start_date", "end_date", "external_id"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func TestRepository_Upsert(t *testing.T) {
	repo, mock := NewMock(t)
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	externalID := "sub_1"
	query := regexp.QuoteMeta(`
		INSERT INTO subscriptions (user_id, plan, status, start_date, end_date, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan, status = EXCLUDED.status, start_date = EXCLUDED.start_date,
		    end_date = EXCLUDED.end_date, external_id = EXCLUDED.external_id
		RETURNING id`)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "Stores subscription",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(2, "monthly", domain.SubscriptionStatusActive, start, &end, &externalID).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(5))
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(2, "monthly", domain.SubscriptionStatusActive, start, &end, &externalID).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			sub, err := repo.Upsert(context.Background(), &domain.Subscription{
				UserID:     2,
				Plan:       "monthly",
				Status:     domain.SubscriptionStatusActive,
				StartDate:  start,
				EndDate:    &end,
				ExternalID: &externalID,
			})
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, sub)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 5, sub.ID)
		})
	}
}

func TestRepository_Find(t *testing.T) {
	repo, mock := NewMock(t)
	start := time.Now()
	externalID := "sub_1"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = $1")).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(5, 2, "monthly", domain.SubscriptionStatusActive, start, nil, &externalID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+subscriptionColumns+" FROM subscriptions WHERE external_id = $1")).
		WithArgs("sub_missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+subscriptionColumns+" FROM subscriptions WHERE external_id = $1")).
		WithArgs("sub_1").
		WillReturnError(errors.New("database error"))

	sub, err := repo.FindByUserID(context.Background(), 2)
	assert.NoError(t, err)
	assert.Equal(t, "monthly", sub.Plan)
	assert.Nil(t, sub.EndDate)

	sub, err = repo.FindByExternalID(context.Background(), "sub_missing")
	assert.NoError(t, err)
	assert.Nil(t, sub)

	_, err = repo.FindByExternalID(context.Background(), "sub_1")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateByExternalID(t *testing.T) {
	repo, mock := NewMock(t)
	end := time.Now()
	query := regexp.QuoteMeta(`UPDATE subscriptions SET status = $1, end_date = COALESCE($2, end_date) WHERE external_id = $3`)

	mock.ExpectExec(query).
		WithArgs(domain.SubscriptionStatusCancelled, &end, "sub_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(query).
		WithArgs(domain.SubscriptionStatusCancelled, (*time.Time)(nil), "sub_2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	updated, err := repo.UpdateByExternalID(context.Background(), "sub_1", domain.SubscriptionStatusCancelled, &end)
	assert.NoError(t, err)
	assert.True(t, updated)

	updated, err = repo.UpdateByExternalID(context.Background(), "sub_2", domain.SubscriptionStatusCancelled, nil)
	assert.NoError(t, err)
	assert.False(t, updated)

	assert.NoError(t, mock.ExpectationsWereMet())
}
