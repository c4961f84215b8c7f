package commissionrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/pg"
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

// Create appends an audit row. Commission logs are never updated or deleted.
func (r *Repository) Create(ctx context.Context, log *domain.CommissionLog) (*domain.CommissionLog, error) {
	query := `
		INSERT INTO commission_logs (referrer_id, referred_user_id, payment_id, amount, rate_applied, month)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, log.ReferrerID, log.ReferredUserID, log.PaymentID, log.Amount, log.RateApplied, log.Month).
		Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		zap.L().Error("can't save commission log", zap.Error(err))
		return nil, err
	}
	return log, nil
}

// ListByReferrer returns newest first. limit <= 0 means no limit.
func (r *Repository) ListByReferrer(ctx context.Context, referrerID, limit int) ([]domain.CommissionLog, error) {
	query := `
        SELECT id, referrer_id, referred_user_id, payment_id, amount, rate_applied, month, created_at
        FROM commission_logs
        WHERE referrer_id = $1
        ORDER BY created_at DESC
        LIMIT NULLIF($2, 0)
    `
	if limit < 0 {
		limit = 0
	}
	rows, err := r.db.Query(ctx, query, referrerID, limit)
	if err != nil {
		zap.L().Error("failed to fetch commission logs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var logs []domain.CommissionLog
	for rows.Next() {
		var l domain.CommissionLog
		err := rows.Scan(&l.ID, &l.ReferrerID, &l.ReferredUserID, &l.PaymentID, &l.Amount, &l.RateApplied, &l.Month, &l.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan commission log row", zap.Error(err))
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *Repository) Total(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM commission_logs`).Scan(&total); err != nil {
		zap.L().Error("failed to sum commission logs", zap.Error(err))
		return decimal.Zero, err
	}
	return total, nil
}
