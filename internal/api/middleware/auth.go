package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/daap14/taskhub/internal/api/response"
	"github.com/daap14/taskhub/internal/auth"
)

const principalKey contextKey = "principal"

// TokenVerifier turns a raw bearer token into a verified principal.
type TokenVerifier interface {
	Verify(raw string) (auth.Principal, error)
}

// Auth is middleware that verifies the bearer token in the Authorization
// header and stores the resulting principal in the context. Missing or
// invalid tokens return 401.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", requestID)
				return
			}

			p, err := verifier.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials", requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}
