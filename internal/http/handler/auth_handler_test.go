package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okhan/userauth/internal/domain"
	"github.com/okhan/userauth/internal/security"
	"github.com/okhan/userauth/internal/service"
)

const testStateKey = "state-signing-key-for-tests"

type fakeAuthService struct {
	registerFn   func(name, email, password string) (*domain.User, error)
	verifyFn     func(token string) error
	loginFn      func(email, password string) (*service.LoginResult, error)
	forgotFn     func(email string) error
	resetFn      func(token, password, confirm string) error
	googleURLFn  func(state string) string
	googleCodeFn func(ctx context.Context, code string) (*service.LoginResult, error)
}

func (f *fakeAuthService) Register(name, email, password string) (*domain.User, error) {
	return f.registerFn(name, email, password)
}
func (f *fakeAuthService) Verify(token string) error { return f.verifyFn(token) }
func (f *fakeAuthService) Login(email, password string) (*service.LoginResult, error) {
	return f.loginFn(email, password)
}
func (f *fakeAuthService) ForgotPassword(email string) error { return f.forgotFn(email) }
func (f *fakeAuthService) ResetPassword(token, password, confirm string) error {
	return f.resetFn(token, password, confirm)
}
func (f *fakeAuthService) GoogleLoginURL(state string) string { return f.googleURLFn(state) }
func (f *fakeAuthService) LoginWithGoogleCode(ctx context.Context, code string) (*service.LoginResult, error) {
	return f.googleCodeFn(ctx, code)
}
func (f *fakeAuthService) ParseUserID(subject string) (uint, error) { return 0, nil }

func newAuthTestRouter(svc service.AuthServiceInterface) *chi.Mux {
	h := NewAuthHandler(svc, security.NewCookieManager("", false, "lax"), testStateKey, 24*time.Hour)
	r := chi.NewRouter()
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/signup", h.Register)
		r.Get("/verify/{token}", h.Verify)
		r.Post("/signin", h.Login)
		r.Post("/signout", h.Logout)
		r.Post("/password/forgot", h.ForgotPassword)
		r.Post("/password/reset/{token}", h.ResetPassword)
		r.Get("/auth/google", h.GoogleLogin)
		r.Get("/auth/google/callback", h.GoogleCallback)
	})
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandlerRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &fakeAuthService{
			registerFn: func(name, email, password string) (*domain.User, error) {
				return &domain.User{ID: 1, Email: email, Name: name, Role: domain.RoleUser}, nil
			},
		}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signup",
			`{"name":"Ada","email":"ada@example.com","password":"hunter2!"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
		}
		if !env.Success || env.Error != nil {
			t.Fatalf("expected success envelope, got %+v", env)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := &fakeAuthService{}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signup", `{not json`)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
			t.Fatalf("expected 400 BAD_REQUEST, got %d %+v", rec.Code, env.Error)
		}
	})

	t.Run("duplicate account", func(t *testing.T) {
		svc := &fakeAuthService{
			registerFn: func(string, string, string) (*domain.User, error) {
				return nil, service.ErrDuplicateAccount
			},
		}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signup",
			`{"name":"Ada","email":"ada@example.com","password":"hunter2!"}`)
		if rec.Code != http.StatusConflict || env.Error == nil || env.Error.Code != "DUPLICATE_ACCOUNT" {
			t.Fatalf("expected 409 DUPLICATE_ACCOUNT, got %d %+v", rec.Code, env.Error)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := &fakeAuthService{
			registerFn: func(string, string, string) (*domain.User, error) {
				return nil, fmt.Errorf("%w: email is not valid", service.ErrValidation)
			},
		}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signup",
			`{"name":"Ada","email":"bad","password":"hunter2!"}`)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_FAILED" {
			t.Fatalf("expected 400 VALIDATION_FAILED, got %d %+v", rec.Code, env.Error)
		}
	})

	t.Run("notification failure after commit", func(t *testing.T) {
		svc := &fakeAuthService{
			registerFn: func(name, email, password string) (*domain.User, error) {
				u := &domain.User{ID: 2, Email: email, Name: name}
				return u, fmt.Errorf("%w: smtp unavailable", service.ErrNotificationFailed)
			},
		}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signup",
			`{"name":"Ada","email":"ada@example.com","password":"hunter2!"}`)
		if rec.Code != http.StatusBadGateway || env.Error == nil || env.Error.Code != "NOTIFICATION_FAILED" {
			t.Fatalf("expected 502 NOTIFICATION_FAILED, got %d %+v", rec.Code, env.Error)
		}
	})
}

func TestAuthHandlerVerify(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		var seen string
		svc := &fakeAuthService{verifyFn: func(token string) error {
			seen = token
			return nil
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet, "/api/v1/users/verify/tok-123", "")
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("expected 200 success, got %d %+v", rec.Code, env)
		}
		if seen != "tok-123" {
			t.Fatalf("expected token from url path, got %q", seen)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		svc := &fakeAuthService{verifyFn: func(string) error { return service.ErrInvalidToken }}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet, "/api/v1/users/verify/bogus", "")
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_TOKEN" {
			t.Fatalf("expected 400 INVALID_TOKEN, got %d %+v", rec.Code, env.Error)
		}
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Run("success sets session cookie", func(t *testing.T) {
		expires := time.Now().Add(24 * time.Hour)
		svc := &fakeAuthService{loginFn: func(email, password string) (*service.LoginResult, error) {
			return &service.LoginResult{
				User:         &domain.User{ID: 7, Email: email},
				SessionToken: "signed.jwt.token",
				ExpiresAt:    expires,
			}, nil
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signin",
			`{"email":"ada@example.com","password":"hunter2!"}`)
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("expected 200 success, got %d %+v", rec.Code, env)
		}
		var data struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if data.Token != "signed.jwt.token" {
			t.Fatalf("expected token in body, got %q", data.Token)
		}
		c := responseCookie(rec, security.SessionCookieName)
		if c == nil || c.Value != "signed.jwt.token" || !c.HttpOnly {
			t.Fatalf("expected httponly session cookie, got %+v", c)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := &fakeAuthService{loginFn: func(string, string) (*service.LoginResult, error) {
			return nil, service.ErrInvalidCredentials
		}}
		router := newAuthTestRouter(svc)

		recA, envA := doJSON(t, router, http.MethodPost, "/api/v1/users/signin",
			`{"email":"unknown@example.com","password":"whatever"}`)
		recB, _ := doJSON(t, router, http.MethodPost, "/api/v1/users/signin",
			`{"email":"known@example.com","password":"wrong"}`)

		if recA.Code != http.StatusUnauthorized || envA.Error == nil || envA.Error.Code != "INVALID_CREDENTIALS" {
			t.Fatalf("expected 401 INVALID_CREDENTIALS, got %d %+v", recA.Code, envA.Error)
		}
		// The response must not reveal whether the account exists.
		if recA.Body.String() != recB.Body.String() {
			t.Fatalf("failure bodies differ:\n%s\n%s", recA.Body.String(), recB.Body.String())
		}
		if responseCookie(recA, security.SessionCookieName) != nil {
			t.Fatal("failed login must not set a session cookie")
		}
	})

	t.Run("unverified account", func(t *testing.T) {
		svc := &fakeAuthService{loginFn: func(string, string) (*service.LoginResult, error) {
			return nil, service.ErrUnverifiedAccount
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signin",
			`{"email":"ada@example.com","password":"hunter2!"}`)
		if rec.Code != http.StatusForbidden || env.Error == nil || env.Error.Code != "EMAIL_NOT_VERIFIED" {
			t.Fatalf("expected 403 EMAIL_NOT_VERIFIED, got %d %+v", rec.Code, env.Error)
		}
	})
}

func TestAuthHandlerLogout(t *testing.T) {
	svc := &fakeAuthService{}
	rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/signout", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200 success, got %d %+v", rec.Code, env)
	}
	c := responseCookie(rec, security.SessionCookieName)
	if c == nil || c.Value != "" || c.MaxAge != -1 {
		t.Fatalf("expected cleared session cookie, got %+v", c)
	}
}

func TestAuthHandlerForgotPassword(t *testing.T) {
	var calls []string
	svc := &fakeAuthService{forgotFn: func(email string) error {
		calls = append(calls, email)
		return nil
	}}
	router := newAuthTestRouter(svc)

	recKnown, _ := doJSON(t, router, http.MethodPost, "/api/v1/users/password/forgot",
		`{"email":"known@example.com"}`)
	recUnknown, _ := doJSON(t, router, http.MethodPost, "/api/v1/users/password/forgot",
		`{"email":"unknown@example.com"}`)

	if recKnown.Code != http.StatusOK || recUnknown.Code != http.StatusOK {
		t.Fatalf("expected 200 for both, got %d and %d", recKnown.Code, recUnknown.Code)
	}
	if recKnown.Body.String() != recUnknown.Body.String() {
		t.Fatalf("responses must be indistinguishable:\n%s\n%s", recKnown.Body.String(), recUnknown.Body.String())
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 service calls, got %d", len(calls))
	}
}

func TestAuthHandlerResetPassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotToken, gotPassword string
		svc := &fakeAuthService{resetFn: func(token, password, confirm string) error {
			gotToken, gotPassword = token, password
			return nil
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/password/reset/tok-456",
			`{"password":"NewPass123!","confirm_password":"NewPass123!"}`)
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("expected 200 success, got %d %+v", rec.Code, env)
		}
		if gotToken != "tok-456" || gotPassword != "NewPass123!" {
			t.Fatalf("unexpected args token=%q password=%q", gotToken, gotPassword)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		svc := &fakeAuthService{resetFn: func(string, string, string) error {
			return service.ErrInvalidOrExpiredToken
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodPost, "/api/v1/users/password/reset/stale",
			`{"password":"NewPass123!","confirm_password":"NewPass123!"}`)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_TOKEN" {
			t.Fatalf("expected 400 INVALID_TOKEN, got %d %+v", rec.Code, env.Error)
		}
	})
}

func TestAuthHandlerGoogleLogin(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc := &fakeAuthService{googleURLFn: func(string) string { return "" }}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet, "/api/v1/users/auth/google", "")
		if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
			t.Fatalf("expected 404 NOT_FOUND, got %d %+v", rec.Code, env.Error)
		}
	})

	t.Run("redirects with signed state cookie", func(t *testing.T) {
		svc := &fakeAuthService{googleURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/auth/google", nil)
		rec := httptest.NewRecorder()
		newAuthTestRouter(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		loc := rec.Header().Get("Location")
		if !strings.Contains(loc, "accounts.google.com") {
			t.Fatalf("unexpected redirect target %q", loc)
		}
		c := responseCookie(rec, "oauth_state")
		if c == nil || !c.HttpOnly {
			t.Fatalf("expected httponly state cookie, got %+v", c)
		}
		state, ok := security.VerifySignedState(c.Value, testStateKey)
		if !ok {
			t.Fatal("state cookie must carry a valid signature")
		}
		if !strings.HasSuffix(loc, "state="+state) {
			t.Fatalf("redirect state %q does not match cookie state %q", loc, state)
		}
	})
}

func TestAuthHandlerGoogleCallback(t *testing.T) {
	signedState := security.SignState("xyz", testStateKey)
	stateCookie := &http.Cookie{Name: "oauth_state", Value: signedState}

	t.Run("missing params", func(t *testing.T) {
		svc := &fakeAuthService{}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet, "/api/v1/users/auth/google/callback", "")
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
			t.Fatalf("expected 400 BAD_REQUEST, got %d %+v", rec.Code, env.Error)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		svc := &fakeAuthService{}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet,
			"/api/v1/users/auth/google/callback?state=other&code=abc", "", stateCookie)
		if rec.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
			t.Fatalf("expected 401 UNAUTHORIZED, got %d %+v", rec.Code, env.Error)
		}
	})

	t.Run("unsigned state cookie", func(t *testing.T) {
		svc := &fakeAuthService{}
		rec, _ := doJSON(t, newAuthTestRouter(svc), http.MethodGet,
			"/api/v1/users/auth/google/callback?state=xyz&code=abc", "",
			&http.Cookie{Name: "oauth_state", Value: "xyz"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for unsigned state, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		svc := &fakeAuthService{googleCodeFn: func(ctx context.Context, code string) (*service.LoginResult, error) {
			if code != "abc" {
				return nil, service.ErrInvalidCredentials
			}
			return &service.LoginResult{
				User:         &domain.User{ID: 9, Email: "ada@example.com"},
				SessionToken: "google.jwt.token",
				ExpiresAt:    time.Now().Add(24 * time.Hour),
			}, nil
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet,
			"/api/v1/users/auth/google/callback?state=xyz&code=abc", "", stateCookie)
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("expected 200 success, got %d %+v", rec.Code, env)
		}
		if c := responseCookie(rec, security.SessionCookieName); c == nil || c.Value != "google.jwt.token" {
			t.Fatalf("expected session cookie, got %+v", c)
		}
		if c := responseCookie(rec, "oauth_state"); c == nil || c.MaxAge != -1 {
			t.Fatalf("state cookie must be cleared after use, got %+v", c)
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		svc := &fakeAuthService{googleCodeFn: func(context.Context, string) (*service.LoginResult, error) {
			return nil, fmt.Errorf("provider rejected code")
		}}
		rec, env := doJSON(t, newAuthTestRouter(svc), http.MethodGet,
			"/api/v1/users/auth/google/callback?state=xyz&code=abc", "", stateCookie)
		if rec.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "OAUTH_FAILED" {
			t.Fatalf("expected 401 OAUTH_FAILED, got %d %+v", rec.Code, env.Error)
		}
	})
}
