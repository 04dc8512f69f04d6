package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Verifier turns a bearer token into a principal id. *JWT is the production
// implementation; tests may plug in their own.
type Verifier interface {
	Verify(token string) (uint64, error)
}

func UserIDFromContext(ctx context.Context) (uint64, bool) {
	v := ctx.Value(userIDKey)
	id, ok := v.(uint64)
	return id, ok
}

func WithUserID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token. The handler behind it never runs for rejected requests.
func RequireAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, "Authentication credentials were not provided.")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

			uid, err := v.Verify(token)
			if err != nil {
				unauthorized(w, "Given token not valid for any token type")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
