package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"geoabsensi/internal/util"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	requestIDKey
)

func WithIdentity(ctx context.Context, id util.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (util.Identity, bool) {
	id, ok := ctx.Value(identityKey).(util.Identity)
	return id, ok
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <jwt>"
// and stores the token's identity in the request context.
func RequireAuth(tokens *util.TokenService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		id, err := tokens.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": "unauthorized", "message": msg},
	})
}
