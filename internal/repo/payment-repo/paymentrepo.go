package paymentrepo

import (
	"context"
	"errors"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Create appends a ledger row. It reports false when a row with the same
// external id already exists, which is how redelivered webhooks are dropped.
func (r *Repository) Create(ctx context.Context, payment *domain.Payment) (bool, error) {
	query := `
        INSERT INTO payments (user_id, amount, currency, status, method, external_id, period_start, period_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (external_id) DO NOTHING
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Method,
		payment.ExternalID,
		payment.PeriodStart,
		payment.PeriodEnd,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		zap.L().Error("can't save payment", zap.Error(err))
		return false, err
	}
	return true, nil
}

// CountCompleted counts the user's completed charges other than excludeID.
func (r *Repository) CountCompleted(ctx context.Context, userID, excludeID int) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM payments
        WHERE user_id = $1 AND status = $2 AND amount > 0 AND id <> $3
    `
	var count int
	if err := r.db.QueryRow(ctx, query, userID, domain.PaymentStatusCompleted, excludeID).Scan(&count); err != nil {
		zap.L().Error("can't count completed payments", zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.Payment, error) {
	query := `
        SELECT id, user_id, amount, currency, status, method, external_id, period_start, period_end, created_at
        FROM payments
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get payments", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.Method, &p.ExternalID, &p.PeriodStart, &p.PeriodEnd, &p.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan payment row", zap.Error(err))
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
