package authservice

//go:generate mockgen -source=authservice.go -destination=mock_authservice.go -package=authservice

import (
	"context"
	"errors"
	"strings"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/internal/pg"
	"github.com/betwise/referrals/pkg/auth"
	"github.com/betwise/referrals/pkg/validate"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer input
	maxPasswordBytes = 72
	codeAttempts      = 5
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrCodeExhausted       = errors.New("can't allocate referral code")
)

type Repo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	SetStripeAccount(ctx context.Context, userID int, accountID string) error
}

type ReferralRepo interface {
	Create(ctx context.Context, referrerID, referredUserID int) error
}

type Service struct {
	userRepo     Repo
	referralRepo ReferralRepo
	txManager    pg.TXManager
	hashService  auth.HashServiceInterface
	jwtService   auth.JWTServiceInterface
	newCode      func() string
}

func New(repo Repo, referralRepo ReferralRepo, txManager pg.TXManager, hashService auth.HashServiceInterface, jwtService auth.JWTServiceInterface) *Service {
	return &Service{
		userRepo:     repo,
		referralRepo: referralRepo,
		txManager:    txManager,
		hashService:  hashService,
		jwtService:   jwtService,
		newCode:      validate.GenerateReferralCode,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user and, when a referral code is given, links the
// new user to its owner in the same transaction.
func (s *Service) Register(ctx context.Context, email, password, referralCode string) (*domain.User, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		zap.L().Error("can't find user: ", zap.Error(err))
		return nil, err
	}
	if existingUser != nil {
		zap.L().Info("user already exists", zap.String("email", email))
		return nil, ErrEmailTaken
	}

	var referrer *domain.User
	if referralCode != "" {
		if !validate.IsReferralCode(referralCode) {
			return nil, ErrInvalidReferralCode
		}
		referrer, err = s.userRepo.FindByReferralCode(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		if referrer == nil {
			zap.L().Info("unknown referral code", zap.String("code", referralCode))
			return nil, ErrInvalidReferralCode
		}
	}

	hashedPassword, err := s.hashService.HashPassword(password)
	if err != nil {
		zap.L().Error("can't hash password: ", zap.Error(err))
		return nil, err
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		ReferralCode: code,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		if referrer == nil {
			return nil
		}
		return s.referralRepo.Create(ctx, referrer.ID, user.ID)
	})
	if err != nil {
		zap.L().Error("can't create user: ", zap.Error(err))
		return nil, err
	}

	zap.L().Info("user successfully registered", zap.String("email", email), zap.Bool("referred", referrer != nil))
	return user, nil
}

func (s *Service) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := s.newCode()
		owner, err := s.userRepo.FindByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if owner == nil {
			return code, nil
		}
	}
	zap.L().Error("referral code collisions exhausted attempts")
	return "", ErrCodeExhausted
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil || user == nil {
		zap.L().Info("invalid credentials", zap.String("email", email), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if ok := s.hashService.ComparePassword(user.PasswordHash, password); !ok {
		zap.L().Info("invalid credentials", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}
	zap.L().Info("user successfully authenticated", zap.Int("user_id", user.ID))
	return user, nil
}

func (s *Service) GenerateToken(userID int) (string, error) {
	token, err := s.jwtService.GenerateJWT(userID)
	if err != nil {
		zap.L().Error("can't generate token: ", zap.Error(err))
		return "", err
	}
	return token, nil
}
