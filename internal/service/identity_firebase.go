package service

import (
	"context"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"blogcristao/internal/model"
)

// FirebaseIdentity verifies Firebase ID tokens and session cookies.
type FirebaseIdentity struct {
	client *auth.Client
}

// NewFirebaseIdentity initializes the Firebase Admin SDK. With an empty
// credentialsFile the SDK falls back to application default credentials.
func NewFirebaseIdentity(ctx context.Context, credentialsFile, projectID string) (*FirebaseIdentity, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var appCfg *firebase.Config
	if projectID != "" {
		appCfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get auth client: %w", err)
	}

	log.Printf("[Firebase] Auth initialized for project: %s", projectID)
	return &FirebaseIdentity{client: client}, nil
}

func (f *FirebaseIdentity) VerifyIDToken(ctx context.Context, idToken string) (*model.IdentityClaims, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidIDToken, err)
	}
	return claimsFromToken(token), nil
}

func (f *FirebaseIdentity) CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	cookie, err := f.client.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", fmt.Errorf("create session cookie: %w", err)
	}
	return cookie, nil
}

// VerifySession also rejects cookies whose user has revoked their tokens.
func (f *FirebaseIdentity) VerifySession(ctx context.Context, session string) (*model.IdentityClaims, error) {
	token, err := f.client.VerifySessionCookieAndCheckRevoked(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSession, err)
	}
	return claimsFromToken(token), nil
}

func claimsFromToken(token *auth.Token) *model.IdentityClaims {
	claims := &model.IdentityClaims{
		UID:       token.UID,
		ExpiresAt: time.Unix(token.Expires, 0).UTC(),
	}
	if v, ok := token.Claims["name"].(string); ok {
		claims.Name = v
	}
	if v, ok := token.Claims["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := token.Claims["picture"].(string); ok {
		claims.Picture = v
	}
	return claims
}
