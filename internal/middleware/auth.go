package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// ctxKey is private so only this package can place values in the context
type ctxKey int

const identityKey ctxKey = iota

// TokenVerifier authenticates an opaque bearer token
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// RequireAuth rejects requests without a valid bearer token and stores
// the verified identity in the request context
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the authenticated identity stored by RequireAuth
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}
