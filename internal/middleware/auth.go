// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/altracloud/altrachat/internal/auth"
	"github.com/altracloud/altrachat/internal/domain"
)

// NewSessionMiddleware validates the session cookie and puts the identity in
// the request context. API requests without a valid session get a 401; page
// requests are sent to the sign-in page.
func NewSessionMiddleware(secret []byte, secureCookies bool, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				logger.Debug("missing session cookie", "path", r.URL.Path)
				rejectUnauthenticated(w, r)
				return
			}

			identity, err := auth.ValidateSessionToken(cookie.Value, secret)
			if err != nil {
				logger.Warn("invalid session token", "path", r.URL.Path, "error", err)
				ClearSessionCookie(w, secureCookies)
				rejectUnauthenticated(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity stores the signed-in identity in ctx.
func WithIdentity(ctx context.Context, identity domain.UserIdentity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext returns the identity placed by the session middleware.
func IdentityFromContext(ctx context.Context) (domain.UserIdentity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.UserIdentity)
	return identity, ok && identity.UID != ""
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(auth.SessionTTL),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Sign in required"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
