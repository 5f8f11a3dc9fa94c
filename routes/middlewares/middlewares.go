package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/miniforms/miniforms/httpx"
)

// Auth verifies the bearer token and requires an authenticated user id.
func Auth(tokenAuth *jwtauth.JWTAuth) chi.Middlewares {
	return chi.Middlewares{jwtauth.Verifier(tokenAuth), authenticate}
}

func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			httpx.Fail(w, r, http.StatusUnauthorized, "AUTH_TOKEN_INVALID", "missing, invalid or expired token")
			return
		}
		if UserID(r) <= 0 {
			httpx.Fail(w, r, http.StatusUnauthorized, "AUTH_REQUIRED", "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID extracts the authenticated user id from the request token claims.
// Returns 0 when there is no usable token.
func UserID(r *http.Request) int {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0
	}
	switch id := claims["user_id"].(type) {
	case float64:
		return int(id)
	case int64:
		return int(id)
	case int:
		return id
	case json.Number:
		n, _ := id.Int64()
		return int(n)
	}
	return 0
}
