package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const sessionCookie = "puxx_cart"

type contextKey string

const sessionIDKey contextKey = "cart_session_id"

// SessionMiddleware resolves the cart session for a request. Guests get a
// fresh uuid in a long-lived cookie on first contact; the same id then keys
// their cart across visits.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   90 * 24 * 60 * 60, // matches the repository TTL for abandoned carts
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
