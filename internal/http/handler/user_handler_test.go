package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okhan/userauth/internal/domain"
	"github.com/okhan/userauth/internal/http/middleware"
	"github.com/okhan/userauth/internal/security"
)

type fakeUserService struct {
	getByIDFn func(id uint) (*domain.User, error)
}

func (f *fakeUserService) GetByID(id uint) (*domain.User, error) { return f.getByIDFn(id) }

func requestWithClaims(subject string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	claims := &security.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	return req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
}

func TestUserHandlerMe(t *testing.T) {
	t.Run("returns current user", func(t *testing.T) {
		h := NewUserHandler(&fakeUserService{getByIDFn: func(id uint) (*domain.User, error) {
			if id != 42 {
				return nil, fmt.Errorf("unexpected id %d", id)
			}
			return &domain.User{ID: 42, Email: "ada@example.com", Name: "Ada"}, nil
		}})
		rec := httptest.NewRecorder()
		h.Me(rec, requestWithClaims("42"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		var env struct {
			Success bool        `json:"success"`
			Data    domain.User `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !env.Success || env.Data.Email != "ada@example.com" {
			t.Fatalf("unexpected envelope %+v", env)
		}
	})

	t.Run("missing claims", func(t *testing.T) {
		h := NewUserHandler(&fakeUserService{})
		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("non-numeric subject", func(t *testing.T) {
		h := NewUserHandler(&fakeUserService{})
		rec := httptest.NewRecorder()
		h.Me(rec, requestWithClaims("not-a-number"))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("user gone", func(t *testing.T) {
		h := NewUserHandler(&fakeUserService{getByIDFn: func(uint) (*domain.User, error) {
			return nil, fmt.Errorf("user not found")
		}})
		rec := httptest.NewRecorder()
		h.Me(rec, requestWithClaims("42"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
