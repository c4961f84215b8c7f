package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resetQuery = `UPDATE referrals SET earned_amount = 0 WHERE referrer_id = $1`

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestTXManager_Begin(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		fn        func(conn *Conn) TransactionalFn
		expectErr bool
	}{
		{
			name: "Commits on success",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(resetQuery)).
					WithArgs(1).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			fn: func(conn *Conn) TransactionalFn {
				return func(ctx context.Context) error {
					_, err := conn.Exec(ctx, resetQuery, 1)
					return err
				}
			},
		},
		{
			name: "Rolls back on error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(resetQuery)).
					WithArgs(1).
					WillReturnError(errors.New("database error"))
				mock.ExpectRollback()
			},
			fn: func(conn *Conn) TransactionalFn {
				return func(ctx context.Context) error {
					_, err := conn.Exec(ctx, resetQuery, 1)
					return err
				}
			},
			expectErr: true,
		},
		{
			name: "Nested begin joins outer transaction",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(resetQuery)).
					WithArgs(2).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			fn: func(conn *Conn) TransactionalFn {
				inner := NewTXManager(conn.pool)
				return func(ctx context.Context) error {
					return inner.Begin(ctx, func(ctx context.Context) error {
						_, err := conn.Exec(ctx, resetQuery, 2)
						return err
					})
				}
			},
		},
		{
			name: "Begin failure",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("no connection"))
			},
			fn: func(conn *Conn) TransactionalFn {
				return func(ctx context.Context) error { return nil }
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.mockSetup(mock)
			conn := New(mock)
			manager := NewTXManager(mock)

			err := manager.Begin(context.Background(), tt.fn(conn))

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConn_WithoutTransaction(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(regexp.QuoteMeta(resetQuery)).
		WithArgs(3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	_, err := New(mock).Exec(context.Background(), resetQuery, 3)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
