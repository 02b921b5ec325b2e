package service

import (
	"context"
	"log"
	"strings"
	"time"

	"blogcristao/internal/model"
)

// IdentityProvider verifies ID tokens and mints session values.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*model.IdentityClaims, error)
	CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySession(ctx context.Context, session string) (*model.IdentityClaims, error)
}

// SessionService exchanges ID tokens for session cookies.
type SessionService struct {
	identity IdentityProvider
	users    *UserService
	maxAge   time.Duration
}

func NewSessionService(identity IdentityProvider, users *UserService, maxAge time.Duration) *SessionService {
	if maxAge <= 0 {
		maxAge = model.SessionMaxAge
	}
	return &SessionService{identity: identity, users: users, maxAge: maxAge}
}

// MaxAge is the lifetime of minted sessions.
func (s *SessionService) MaxAge() time.Duration {
	return s.maxAge
}

// Login verifies the ID token, refreshes the stored profile and returns a
// session value. A profile write failure does not block the login.
func (s *SessionService) Login(ctx context.Context, idToken string) (string, *model.IdentityClaims, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return "", nil, model.ErrIDTokenRequired
	}

	claims, err := s.identity.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Printf("[SessionService] ID token rejected: %v", err)
		return "", nil, model.ErrInvalidIDToken
	}

	if s.users != nil {
		if _, err := s.users.UpsertProfile(ctx, claims); err != nil {
			log.Printf("[SessionService] Profile upsert failed: uid=%s err=%v", claims.UID, err)
		}
	}

	session, err := s.identity.CreateSession(ctx, idToken, s.maxAge)
	if err != nil {
		// The provider refuses stale tokens here even when they still verify.
		log.Printf("[SessionService] Session mint failed: uid=%s err=%v", claims.UID, err)
		return "", nil, model.ErrInvalidIDToken
	}

	log.Printf("[SessionService] Session created: uid=%s", claims.UID)
	return session, claims, nil
}

// Verify returns the identity behind a session value or model.ErrInvalidSession.
func (s *SessionService) Verify(ctx context.Context, session string) (*model.IdentityClaims, error) {
	if session == "" {
		return nil, model.ErrInvalidSession
	}
	claims, err := s.identity.VerifySession(ctx, session)
	if err != nil {
		return nil, model.ErrInvalidSession
	}
	return claims, nil
}
