package service

import (
	"context"

	"github.com/okhan/userauth/internal/domain"
)

// AuthServiceInterface is the surface the HTTP layer depends on. Handlers
// take the interface so tests can swap in fakes.
type AuthServiceInterface interface {
	Register(name, email, password string) (*domain.User, error)
	Verify(token string) error
	Login(email, password string) (*LoginResult, error)
	ForgotPassword(email string) error
	ResetPassword(token, password, confirmPassword string) error
	GoogleLoginURL(state string) string
	LoginWithGoogleCode(ctx context.Context, code string) (*LoginResult, error)
	ParseUserID(subject string) (uint, error)
}

type UserServiceInterface interface {
	GetByID(id uint) (*domain.User, error)
}

var (
	_ AuthServiceInterface = (*AuthService)(nil)
	_ UserServiceInterface = (*UserService)(nil)
)
