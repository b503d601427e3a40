// File: internal/handlers/auth_handlers.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/altracloud/altrachat/internal/auth"
	"github.com/altracloud/altrachat/internal/middleware"
	"github.com/altracloud/altrachat/internal/services/identity"
)

// AuthHandler exchanges identity provider credentials for session cookies.
type AuthHandler struct {
	provider      identity.Provider
	sessionSecret []byte
	secureCookies bool
	logger        Logger
	now           func() time.Time
}

func NewAuthHandler(provider identity.Provider, sessionSecret []byte, secureCookies bool, logger Logger) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		sessionSecret: sessionSecret,
		secureCookies: secureCookies,
		logger:        logger,
		now:           time.Now,
	}
}

type signInRequest struct {
	IDToken string `json:"idToken"`
}

// SignIn verifies the ID token from the browser's Google sign-in and starts a session.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		writeError(w, "An ID token is required", http.StatusBadRequest)
		return
	}

	user, err := h.provider.SignIn(r.Context(), req.IDToken)
	if err != nil {
		h.logger.Warn("sign-in failed", "error", err)
		writeError(w, "Authentication failed. Please try again.", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateSessionToken(user, h.sessionSecret, h.now())
	if err != nil {
		h.logger.Error("failed to issue session token", "uid", user.UID, "error", err)
		writeError(w, "Could not start a session", http.StatusInternalServerError)
		return
	}

	middleware.SetSessionCookie(w, token, h.secureCookies, h.now())
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": newUserView(user)})
}

// SignOut ends the session. It succeeds even without a valid session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if user, err := auth.ValidateSessionToken(cookie.Value, h.sessionSecret); err == nil {
			if err := h.provider.SignOut(r.Context(), user); err != nil {
				h.logger.Warn("sign-out notification failed", "uid", user.UID, "error", err)
			}
		}
	}

	middleware.ClearSessionCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}
