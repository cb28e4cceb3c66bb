package middleware

import (
	"context"
	"net/http"

	"github.com/pdutta/courier/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// AuthMiddleware verifies the signed user_id cookie and puts the caller's
// id into the request context. Identity issuance itself (login) lives in an
// external service; this server only checks the signature.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("user_id")
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := auth.VerifyCookie(cookie.Value)
		if err != nil || userID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated caller's id, or "" if the request did
// not pass through AuthMiddleware.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
