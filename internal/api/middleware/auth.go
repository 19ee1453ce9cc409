package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
)

type contextKey string

const userContextKey contextKey = "user"

func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey).(*domain.User)
	return u
}

// WithUser returns a copy of ctx carrying u, as APIKeyAuth does.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// APIKeyUserLookup resolves the owner of a hashed API key.
type APIKeyUserLookup interface {
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.User, error)
}

// APIKeyAuth authenticates "Authorization: Bearer <key>" against the
// SHA-256 hash stored for each user.
func APIKeyAuth(users APIKeyUserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, apiKey, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || apiKey == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			user, err := users.GetByAPIKeyHash(r.Context(), HashAPIKey(apiKey))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			recordUser(r, user.ID.String())
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// HashAPIKey is exported for use when creating users.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
