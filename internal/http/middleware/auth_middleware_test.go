package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okhan/userauth/internal/security"
)

func newAuthMiddlewareForTest(t *testing.T) (*security.JWTManager, http.Handler) {
	t.Helper()
	jwtMgr := security.NewJWTManager("userauth-test", "0123456789abcdef0123456789abcdef")
	handler := AuthMiddleware(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context inside protected handler")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Subject", claims.Subject)
		w.WriteHeader(http.StatusOK)
	}))
	return jwtMgr, handler
}

func TestAuthMiddleware(t *testing.T) {
	jwtMgr, handler := newAuthMiddlewareForTest(t)
	token, err := jwtMgr.SignSession(42, "user", time.Hour)
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Header().Get("X-Subject") != "42" {
			t.Fatalf("expected 200 with subject 42, got %d %q", rec.Code, rec.Header().Get("X-Subject"))
		}
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 via bearer token, got %d", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		expired, err := jwtMgr.WithClock(func() time.Time { return past }).SignSession(42, "user", time.Hour)
		if err != nil {
			t.Fatalf("sign expired session: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: expired})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for expired session, got %d", rec.Code)
		}
	})
}

func TestClaimsFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ClaimsFromContext(req.Context()); ok {
		t.Fatal("expected no claims on a bare context")
	}
}
