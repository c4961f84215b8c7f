package payoutrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/pg"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

const payoutColumns = `id, user_id, amount, currency, status, admin_note, processed_at, stripe_transfer_id, stripe_payout_id, attempts, created_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanPayout(row pgx.Row) (*domain.PayoutRequest, error) {
	var p domain.PayoutRequest
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.AdminNote, &p.ProcessedAt, &p.StripeTransferID, &p.StripePayoutID, &p.Attempts, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create returns nil without error when the user already has an open request.
func (r *Repository) Create(ctx context.Context, req *domain.PayoutRequest) (*domain.PayoutRequest, error) {
	query := `
		INSERT INTO payout_requests (user_id, amount, currency, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, req.UserID, req.Amount, req.Currency, req.Status).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, nil
		}
		zap.L().Error("can't save payout request", zap.Error(err))
		return nil, err
	}
	return req, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.PayoutRequest, error) {
	query := "SELECT " + payoutColumns + " FROM payout_requests WHERE id = $1"
	p, err := scanPayout(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find payout request", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.PayoutRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("failed to fetch payout requests", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payouts []domain.PayoutRequest
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			zap.L().Error("failed to scan payout request row", zap.Error(err))
			return nil, err
		}
		payouts = append(payouts, *p)
	}
	return payouts, rows.Err()
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.PayoutRequest, error) {
	return r.list(ctx, "SELECT "+payoutColumns+" FROM payout_requests WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

// ListByStatus returns every request when status is empty.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]domain.PayoutRequest, error) {
	if status == "" {
		return r.list(ctx, "SELECT "+payoutColumns+" FROM payout_requests ORDER BY created_at DESC")
	}
	return r.list(ctx, "SELECT "+payoutColumns+" FROM payout_requests WHERE status = $1 ORDER BY created_at DESC", status)
}

// HasOpen follows domain.PayoutRequest.IsOpen.
func (r *Repository) HasOpen(ctx context.Context, userID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payout_requests
			WHERE user_id = $1
			AND (status = ANY($2) OR (status = $3 AND stripe_transfer_id IS NOT NULL))
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, domain.OpenStatuses, domain.PayoutStatusFailed).Scan(&exists); err != nil {
		zap.L().Error("can't check open payout requests", zap.Error(err))
		return false, err
	}
	return exists, nil
}

// Claim moves the request to PROCESSING and bumps its attempt counter, but
// only while it is in one of from. It returns nil when nothing matched or
// when a FAILED row is retried while the user already has a newer open one.
func (r *Repository) Claim(ctx context.Context, id int, from []string) (*domain.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $1, attempts = attempts + 1
		WHERE id = $2 AND status = ANY($3)
		RETURNING ` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, domain.PayoutStatusProcessing, id, from))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
			return nil, nil
		}
		zap.L().Error("can't claim payout request", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) RecordTransfer(ctx context.Context, id int, transferID string) error {
	return r.record(ctx, "stripe_transfer_id", id, transferID)
}

func (r *Repository) RecordPayout(ctx context.Context, id int, payoutID string) error {
	return r.record(ctx, "stripe_payout_id", id, payoutID)
}

func (r *Repository) record(ctx context.Context, column string, id int, value string) error {
	query := "UPDATE payout_requests SET " + column + " = $1 WHERE id = $2 AND status = $3"
	tag, err := r.db.Exec(ctx, query, value, id, domain.PayoutStatusProcessing)
	if err != nil {
		zap.L().Error("can't record stripe id", zap.Int("id", id), zap.String("column", column), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) MarkPaid(ctx context.Context, id int, processedAt time.Time) error {
	query := `
		UPDATE payout_requests
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, domain.PayoutStatusPaid, processedAt, id, domain.PayoutStatusProcessing)
	if err != nil {
		zap.L().Error("can't mark payout paid", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id int, note string) error {
	query := `
		UPDATE payout_requests
		SET status = $1, admin_note = $2
		WHERE id = $3 AND status = $4
	`
	_, err := r.db.Exec(ctx, query, domain.PayoutStatusFailed, note, id, domain.PayoutStatusProcessing)
	if err != nil {
		zap.L().Error("can't mark payout failed", zap.Int("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Reject only applies to REQUESTED rows and returns nil otherwise.
func (r *Repository) Reject(ctx context.Context, id int, note string, processedAt time.Time) (*domain.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $1, admin_note = $2, processed_at = $3
		WHERE id = $4 AND status = $5
		RETURNING ` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, domain.PayoutStatusRejected, note, processedAt, id, domain.PayoutStatusRequested))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't reject payout request", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) SumByStatus(ctx context.Context, statuses []string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payout_requests WHERE status = ANY($1)`
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, statuses).Scan(&total); err != nil {
		zap.L().Error("failed to sum payout requests", zap.Error(err))
		return decimal.Zero, err
	}
	return total, nil
}
