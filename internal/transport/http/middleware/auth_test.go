package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"blogcristao/internal/model"
)

type stubVerifier struct {
	valid map[string]string
	seen  []string
}

func (s *stubVerifier) Verify(ctx context.Context, session string) (*model.IdentityClaims, error) {
	s.seen = append(s.seen, session)
	if uid, ok := s.valid[session]; ok {
		return &model.IdentityClaims{UID: uid}, nil
	}
	return nil, errors.New("bad session")
}

func echoUID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserUIDFromContext(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier := &stubVerifier{valid: map[string]string{"good": "u1"}}
	h := AuthMiddleware(verifier)(echoUID())

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"no session", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "u1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: model.SessionCookieName, Value: "good"}) }, http.StatusOK, "u1"},
		{"invalid", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: model.SessionCookieName, Value: "bad"}) }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthMiddleware_HeaderWinsOverCookie(t *testing.T) {
	verifier := &stubVerifier{valid: map[string]string{"header": "u1", "cookie": "u2"}}
	h := AuthMiddleware(verifier)(echoUID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header")
	req.AddCookie(&http.Cookie{Name: model.SessionCookieName, Value: "cookie"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "u1", rec.Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	verifier := &stubVerifier{valid: map[string]string{"good": "u1"}}
	h := OptionalAuthMiddleware(verifier)(echoUID())

	anon := httptest.NewRecorder()
	h.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, anon.Code)
	assert.Empty(t, anon.Body.String())

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer nope")
	badRec := httptest.NewRecorder()
	h.ServeHTTP(badRec, bad)
	assert.Equal(t, http.StatusOK, badRec.Code)
	assert.Empty(t, badRec.Body.String())

	good := httptest.NewRequest(http.MethodGet, "/", nil)
	good.Header.Set("Authorization", "Bearer good")
	goodRec := httptest.NewRecorder()
	h.ServeHTTP(goodRec, good)
	assert.Equal(t, "u1", goodRec.Body.String())
}
