package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"blogcristao/internal/model"
)

const (
	localIssuer          = "blogcristao-local"
	localAudienceID      = "id"
	localAudienceSession = "session"
	localIDTokenTTL      = time.Hour
)

type localClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// LocalIdentity signs ID tokens and sessions with a shared HS256 secret.
// It stands in for Firebase in development and tests.
type LocalIdentity struct {
	secret []byte
	now    func() time.Time
}

func NewLocalIdentity(secret string) (*LocalIdentity, error) {
	if secret == "" {
		return nil, errors.New("session secret is required for local auth")
	}
	return &LocalIdentity{secret: []byte(secret), now: time.Now}, nil
}

// IssueIDToken mints an ID token the way a client SDK would after sign-in.
func (l *LocalIdentity) IssueIDToken(user model.IdentityClaims) (string, error) {
	return l.sign(user, localAudienceID, localIDTokenTTL)
}

func (l *LocalIdentity) VerifyIDToken(ctx context.Context, idToken string) (*model.IdentityClaims, error) {
	claims, err := l.parse(idToken, localAudienceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidIDToken, err)
	}
	return claims, nil
}

func (l *LocalIdentity) CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	claims, err := l.parse(idToken, localAudienceID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidIDToken, err)
	}
	return l.sign(*claims, localAudienceSession, expiresIn)
}

func (l *LocalIdentity) VerifySession(ctx context.Context, session string) (*model.IdentityClaims, error) {
	claims, err := l.parse(session, localAudienceSession)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSession, err)
	}
	return claims, nil
}

func (l *LocalIdentity) sign(user model.IdentityClaims, audience string, ttl time.Duration) (string, error) {
	if user.UID == "" {
		return "", errors.New("uid is required")
	}
	now := l.now()
	claims := localClaims{
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			Issuer:    localIssuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(l.secret)
}

func (l *LocalIdentity) parse(raw, audience string) (*model.IdentityClaims, error) {
	var claims localClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(localIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &model.IdentityClaims{
		UID:       claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Picture:   claims.Picture,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
