package subscriptionrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/pg"
	"go.uber.org/zap"
)

const subscriptionColumns = `id, user_id, plan, status, start_date, end_date, external_id`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.StartDate, &s.EndDate, &s.ExternalID); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert keeps one subscription row per user.
func (r *Repository) Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, plan, status, start_date, end_date, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan, status = EXCLUDED.status, start_date = EXCLUDED.start_date,
		    end_date = EXCLUDED.end_date, external_id = EXCLUDED.external_id
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, sub.UserID, sub.Plan, sub.Status, sub.StartDate, sub.EndDate, sub.ExternalID).Scan(&sub.ID)
	if err != nil {
		zap.L().Error("can't upsert subscription", zap.Int("user_id", sub.UserID), zap.Error(err))
		return nil, err
	}
	return sub, nil
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*domain.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE " + where + " = $1"
	s, err := scanSubscription(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find subscription", zap.String("by", where), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID int) (*domain.Subscription, error) {
	return r.findOne(ctx, "user_id", userID)
}

func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	return r.findOne(ctx, "external_id", externalID)
}

// UpdateByExternalID leaves end_date untouched when endDate is nil.
func (r *Repository) UpdateByExternalID(ctx context.Context, externalID, status string, endDate *time.Time) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $1, end_date = COALESCE($2, end_date)
		WHERE external_id = $3
	`
	tag, err := r.db.Exec(ctx, query, status, endDate, externalID)
	if err != nil {
		zap.L().Error("can't update subscription", zap.String("external_id", externalID), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
