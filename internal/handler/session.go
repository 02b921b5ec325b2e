package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
	"blogcristao/internal/transport/http/middleware"
)

// SessionService exchanges ID tokens for sessions.
type SessionService interface {
	Login(ctx context.Context, idToken string) (string, *model.IdentityClaims, error)
	MaxAge() time.Duration
}

type SessionHandler struct {
	sessions SessionService
	secure   bool
}

// NewSessionHandler creates a SessionHandler. secure marks cookies Secure.
func NewSessionHandler(sessions SessionService, secure bool) *SessionHandler {
	return &SessionHandler{sessions: sessions, secure: secure}
}

// Login handles POST /api/sessionLogin
// Verifies the ID token and sets the session cookie.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.SessionLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, claims, err := h.sessions.Login(r.Context(), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrIDTokenRequired):
			httputil.WriteBadRequest(w, "ID token is required")
		case errors.Is(err, model.ErrInvalidIDToken):
			httputil.WriteUnauthorized(w, "Invalid ID token")
		default:
			log.Printf("[ERROR] Session login handler: err=%v", err)
			httputil.WriteInternalError(w, "Failed to create session")
		}
		return
	}

	maxAge := h.sessions.MaxAge()
	http.SetCookie(w, &http.Cookie{
		Name:     model.SessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.WriteJSON(w, http.StatusOK, claims)
}

// Logout handles POST /api/sessionLogout
// Clears the session cookie.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     model.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteSuccess(w)
}

// Me handles GET /api/session
// Returns the claims of the current session.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, model.ErrAuthRequired.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claims)
}
