package model

import (
	"errors"
	"time"
)

const (
	SessionCookieName = "session"
	SessionMaxAge     = 5 * 24 * time.Hour
)

// IdentityClaims is the verified identity behind an ID token or session.
type IdentityClaims struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionLoginRequest is the request body for POST /api/sessionLogin.
type SessionLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// Session errors
var (
	ErrIDTokenRequired = errors.New("id token is required")
	ErrInvalidIDToken  = errors.New("invalid id token")
	ErrInvalidSession  = errors.New("invalid or expired session")
)
