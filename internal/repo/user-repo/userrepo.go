package userrepo

import (
	"context"
	"errors"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, email, password_hash, role, referral_code, referred_by, stripe_account_id, created_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.StripeAccountID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *Repository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(repo.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (repo *Repository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	return repo.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (repo *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return repo.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (repo *Repository) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return repo.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE referral_code = $1", code)
}

func (repo *Repository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := repo.db.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Role, user.ReferralCode, user.ReferredBy).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		zap.L().Error("can't save user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (repo *Repository) SetStripeAccount(ctx context.Context, userID int, accountID string) error {
	query := `
		UPDATE users
		SET stripe_account_id = $1
		WHERE id = $2
	`
	_, err := repo.db.Exec(ctx, query, accountID, userID)
	if err != nil {
		zap.L().Error("can't save stripe account", zap.Int("userID", userID), zap.Error(err))
		return err
	}
	return nil
}
