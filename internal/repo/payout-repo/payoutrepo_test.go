package payoutrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/betwise/referrals/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var columns = []string{"id", "user_id", "amount", "currency", "status", "admin_note", "processed_at", "stripe_transfer_id", "stripe_payout_id", "attempts", "created_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	createdAt := time.Now()
	amount := decimal.NewFromInt(14)
	query := regexp.QuoteMeta(`INSERT INTO payout_requests (user_id, amount, currency, status) VALUES ($1, $2, $3, $4) RETURNING id, created_at`)

	mock.ExpectQuery(query).
		WithArgs(1, amount, "usd", domain.PayoutStatusRequested).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(9, createdAt))
	mock.ExpectQuery(query).
		WithArgs(1, amount, "usd", domain.PayoutStatusRequested).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payout_requests_open_user_idx"})
	mock.ExpectQuery(query).
		WithArgs(1, amount, "usd", domain.PayoutStatusRequested).
		WillReturnError(errors.New("database error"))

	req, err := repo.Create(context.Background(), &domain.PayoutRequest{UserID: 1, Amount: amount, Currency: "usd", Status: domain.PayoutStatusRequested})
	assert.NoError(t, err)
	assert.Equal(t, 9, req.ID)

	req, err = repo.Create(context.Background(), &domain.PayoutRequest{UserID: 1, Amount: amount, Currency: "usd", Status: domain.PayoutStatusRequested})
	assert.NoError(t, err)
	assert.Nil(t, req)

	req, err = repo.Create(context.Background(), &domain.PayoutRequest{UserID: 1, Amount: amount, Currency: "usd", Status: domain.PayoutStatusRequested})
	assert.Error(t, err)
	assert.Nil(t, req)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock := NewMock(t)
	createdAt := time.Now()
	query := regexp.QuoteMeta("SELECT " + payoutColumns + " FROM payout_requests WHERE id = $1")

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		found     bool
	}{
		{
			name: "Found",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(9).
					WillReturnRows(pgxmock.NewRows(columns).
						AddRow(9, 1, decimal.NewFromInt(14), "usd", domain.PayoutStatusRequested, nil, nil, nil, nil, 0, createdAt))
			},
			found: true,
		},
		{
			name: "Not found",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(9).WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(9).WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			p, err := repo.FindByID(context.Background(), 9)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.found, p != nil)
		})
	}
}

func TestRepository_ListByStatus(t *testing.T) {
	repo, mock := NewMock(t)
	createdAt := time.Now()
	rows := func() *pgxmock.Rows {
		return pgxmock.NewRows(columns).
			AddRow(9, 1, decimal.NewFromInt(14), "usd", domain.PayoutStatusRequested, nil, nil, nil, nil, 0, createdAt)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + payoutColumns + " FROM payout_requests ORDER BY created_at DESC")).
		WillReturnRows(rows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + payoutColumns + " FROM payout_requests WHERE status = $1 ORDER BY created_at DESC")).
		WithArgs(domain.PayoutStatusRequested).
		WillReturnRows(rows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + payoutColumns + " FROM payout_requests WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs(1).
		WillReturnRows(rows())

	all, err := repo.ListByStatus(context.Background(), "")
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	requested, err := repo.ListByStatus(context.Background(), domain.PayoutStatusRequested)
	assert.NoError(t, err)
	assert.Len(t, requested, 1)

	own, err := repo.ListByUser(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 9, own[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_HasOpen(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta(`SELECT EXISTS ( SELECT 1 FROM payout_requests WHERE user_id = $1 AND (status = ANY($2) OR (status = $3 AND stripe_transfer_id IS NOT NULL)) )`)

	mock.ExpectQuery(query).WithArgs(1, domain.OpenStatuses, domain.PayoutStatusFailed).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(query).WithArgs(2, domain.OpenStatuses, domain.PayoutStatusFailed).
		WillReturnError(errors.New("database error"))

	open, err := repo.HasOpen(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, open)

	_, err = repo.HasOpen(context.Background(), 2)
	assert.Error(t, err)
}

func TestRepository_Claim(t *testing.T) {
	repo, mock := NewMock(t)
	createdAt := time.Now()
	query := regexp.QuoteMeta(`UPDATE payout_requests SET status = $1, attempts = attempts + 1 WHERE id = $2 AND status = ANY($3) RETURNING ` + payoutColumns)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		claimed   bool
	}{
		{
			name: "Moves approvable request to processing",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.PayoutStatusProcessing, 9, domain.ApprovableStatuses).
					WillReturnRows(pgxmock.NewRows(columns).
						AddRow(9, 1, decimal.NewFromInt(14), "usd", domain.PayoutStatusProcessing, nil, nil, nil, nil, 1, createdAt))
			},
			claimed: true,
		},
		{
			name: "Request no longer approvable",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.PayoutStatusProcessing, 9, domain.ApprovableStatuses).
					WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "User already has a newer open request",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.PayoutStatusProcessing, 9, domain.ApprovableStatuses).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payout_requests_open_user_idx"})
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.PayoutStatusProcessing, 9, domain.ApprovableStatuses).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			p, err := repo.Claim(context.Background(), 9, domain.ApprovableStatuses)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.claimed, p != nil)
			if tt.claimed {
				assert.Equal(t, domain.PayoutStatusProcessing, p.Status)
				assert.Equal(t, 1, p.Attempts)
			}
		})
	}
}

func TestRepository_RecordStripeIDs(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE payout_requests SET stripe_transfer_id = $1 WHERE id = $2 AND status = $3`)).
		WithArgs("tr_1", 9, domain.PayoutStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE payout_requests SET stripe_payout_id = $1 WHERE id = $2 AND status = $3`)).
		WithArgs("po_1", 9, domain.PayoutStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.RecordTransfer(context.Background(), 9, "tr_1"))
	assert.ErrorIs(t, repo.RecordPayout(context.Background(), 9, "po_1"), pgx.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkPaidAndFailed(t *testing.T) {
	repo, mock := NewMock(t)
	processedAt := time.Now()
	paidQuery := regexp.QuoteMeta(`UPDATE payout_requests SET status = $1, processed_at = $2 WHERE id = $3 AND status = $4`)
	failedQuery := regexp.QuoteMeta(`UPDATE payout_requests SET status = $1, admin_note = $2 WHERE id = $3 AND status = $4`)

	mock.ExpectExec(paidQuery).
		WithArgs(domain.PayoutStatusPaid, processedAt, 9, domain.PayoutStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(paidQuery).
		WithArgs(domain.PayoutStatusPaid, processedAt, 10, domain.PayoutStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(failedQuery).
		WithArgs(domain.PayoutStatusFailed, "card declined", 11, domain.PayoutStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkPaid(context.Background(), 9, processedAt))
	assert.ErrorIs(t, repo.MarkPaid(context.Background(), 10, processedAt), pgx.ErrNoRows)
	assert.NoError(t, repo.MarkFailed(context.Background(), 11, "card declined"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Reject(t *testing.T) {
	repo, mock := NewMock(t)
	createdAt := time.Now()
	processedAt := time.Now()
	note := "duplicate account"
	query := regexp.QuoteMeta(`UPDATE payout_requests SET status = $1, admin_note = $2, processed_at = $3 WHERE id = $4 AND status = $5 RETURNING ` + payoutColumns)

	mock.ExpectQuery(query).
		WithArgs(domain.PayoutStatusRejected, note, processedAt, 9, domain.PayoutStatusRequested).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(9, 1, decimal.NewFromInt(14), "usd", domain.PayoutStatusRejected, &note, &processedAt, nil, nil, 0, createdAt))
	mock.ExpectQuery(query).
		WithArgs(domain.PayoutStatusRejected, note, processedAt, 10, domain.PayoutStatusRequested).
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.Reject(context.Background(), 9, note, processedAt)
	assert.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusRejected, p.Status)
	assert.Equal(t, &note, p.AdminNote)

	p, err = repo.Reject(context.Background(), 10, note, processedAt)
	assert.NoError(t, err)
	assert.Nil(t, p)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SumByStatus(t *testing.T) {
	repo, mock := NewMock(t)
	statuses := []string{domain.PayoutStatusPaid}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0) FROM payout_requests WHERE status = ANY($1)`)).
		WithArgs(statuses).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.NewFromInt(50)))

	total, err := repo.SumByStatus(context.Background(), statuses)
	assert.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(50)))
}
