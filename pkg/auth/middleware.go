package auth

//go:generate mockgen -source=middleware.go -destination=mock_middleware.go -package=auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/betwise/referrals/internal/domain"
	"github.com/betwise/referrals/pkg/utils"
	"go.uber.org/zap"
)

type ContextKey string

const (
	UserIDKey ContextKey = "userID"
	RoleKey   ContextKey = "role"
)

type Identity interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// Middleware resolves the bearer token to a live user and stores its id and
// role in the request context.
func Middleware(jwtService JWTServiceInterface, identity Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := identity.FindByID(r.Context(), claims.UserID)
			if err != nil {
				zap.L().Error("can't load user for token", zap.Int("user_id", claims.UserID), zap.Error(err))
				utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if user == nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user.ID, user.Role)))
		})
	}
}

// AdminOnly must be mounted after Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, _ := r.Context().Value(RoleKey).(string); role != domain.RoleAdmin {
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, userID int, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok && userID != 0
}
