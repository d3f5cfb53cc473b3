package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/api/response"
	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/user"
)

// RequireRole returns middleware that rejects principals whose role is not
// in the allowed list.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			p, ok := GetPrincipal(r.Context())
			if !ok {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", requestID)
				return
			}

			if !allowed[p.Role] {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserResolver loads the account behind a verified principal.
type UserResolver interface {
	Resolve(ctx context.Context, p auth.Principal) (*user.User, auth.Principal, error)
}

// RequireActiveUser returns middleware that loads the account named by the
// token. Unknown accounts return 401 and deactivated ones 400. The principal
// in the context is replaced by one carrying the stored role.
func RequireActiveUser(resolver UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			p, ok := GetPrincipal(r.Context())
			if !ok {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", requestID)
				return
			}

			_, resolved, err := resolver.Resolve(r.Context(), p)
			if err != nil {
				switch {
				case errors.Is(err, user.ErrUserNotFound):
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials", requestID)
				case errors.Is(err, user.ErrInactiveUser):
					response.Err(w, http.StatusBadRequest, "INACTIVE_USER", "Inactive user", requestID)
				default:
					logger.Error("Failed to resolve user", zap.String("username", p.Username), zap.Error(err))
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed", requestID)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), resolved)))
		})
	}
}
