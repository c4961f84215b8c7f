package referralrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

func (r *Repository) Create(ctx context.Context, referrerID, referredUserID int) error {
	query := `
		INSERT INTO referrals (referrer_id, referred_user_id)
		VALUES ($1, $2)
		ON CONFLICT (referrer_id, referred_user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, referrerID, referredUserID)
	if err != nil {
		zap.L().Error("failed to create referral", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, referrerID, referredUserID int) (*domain.Referral, error) {
	query := `
        SELECT id, referrer_id, referred_user_id, earned_amount, created_at
        FROM referrals
        WHERE referrer_id = $1 AND referred_user_id = $2
    `
	var ref domain.Referral
	err := r.db.QueryRow(ctx, query, referrerID, referredUserID).
		Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredUserID, &ref.EarnedAmount, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to get referral", zap.Error(err))
		return nil, err
	}
	return &ref, nil
}

func (r *Repository) ListByReferrer(ctx context.Context, referrerID int) ([]domain.Referral, error) {
	query := `
        SELECT id, referrer_id, referred_user_id, earned_amount, created_at
        FROM referrals
        WHERE referrer_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, referrerID)
	if err != nil {
		zap.L().Error("failed to fetch referrals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var referrals []domain.Referral
	for rows.Next() {
		var ref domain.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredUserID, &ref.EarnedAmount, &ref.CreatedAt); err != nil {
			zap.L().Error("failed to scan referral row", zap.Error(err))
			return nil, err
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// AddEarned increments in SQL so concurrent credits never overwrite each other.
func (r *Repository) AddEarned(ctx context.Context, referralID int, amount decimal.Decimal) error {
	query := `
		UPDATE referrals
		SET earned_amount = earned_amount + $1
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, amount, referralID)
	if err != nil {
		zap.L().Error("failed to credit referral", zap.Int("referralID", referralID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) TotalEarned(ctx context.Context, referrerID int) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(earned_amount), 0)
        FROM referrals
        WHERE referrer_id = $1
    `
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, referrerID).Scan(&total); err != nil {
		zap.L().Error("failed to sum earned amount", zap.Error(err))
		return decimal.Zero, err
	}
	return total, nil
}

func (r *Repository) ResetEarned(ctx context.Context, referrerID int) error {
	query := `
		UPDATE referrals
		SET earned_amount = 0
		WHERE referrer_id = $1
	`
	_, err := r.db.Exec(ctx, query, referrerID)
	if err != nil {
		zap.L().Error("failed to reset earned amount", zap.Int("referrerID", referrerID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM referrals`).Scan(&count); err != nil {
		zap.L().Error("failed to count referrals", zap.Error(err))
		return 0, err
	}
	return count, nil
}
