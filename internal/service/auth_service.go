package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okhan/userauth/internal/config"
	"github.com/okhan/userauth/internal/domain"
	"github.com/okhan/userauth/internal/observability"
	"github.com/okhan/userauth/internal/repository"
	"github.com/okhan/userauth/internal/security"
)

// Error taxonomy returned across the lifecycle-manager boundary. Handlers
// map these to stable response codes; nothing else escapes to clients.
var (
	// ErrValidation wraps missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateAccount means the email is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnverifiedAccount means the password matched but the email was
	// never verified.
	ErrUnverifiedAccount = errors.New("email verification required")
	// ErrInvalidToken covers unknown, consumed and expired verification
	// tokens uniformly.
	ErrInvalidToken = errors.New("invalid verification token")
	// ErrInvalidOrExpiredToken is the reset-token analogue of ErrInvalidToken.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	// ErrNotificationFailed reports a mail delivery failure after the
	// account and token writes already committed.
	ErrNotificationFailed = errors.New("notification delivery failed")
	// ErrGoogleAuthDisabled is returned when Google sign-in is not configured.
	ErrGoogleAuthDisabled = errors.New("google auth is disabled")
)

type LoginResult struct {
	User         *domain.User `json:"user"`
	SessionToken string       `json:"-"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// AuthService is the account lifecycle manager. Each operation is a
// request-scoped unit of work over the credential store; it returns exactly
// one outcome.
type AuthService struct {
	cfg         *config.Config
	hasher      *security.PasswordHasher
	jwtMgr      *security.JWTManager
	oauthSvc    *OAuthService
	userRepo    repository.UserRepository
	credRepo    repository.LocalCredentialRepository
	tokenRepo   repository.PendingTokenRepository
	verifier    EmailVerificationNotifier
	resetMailer PasswordResetNotifier
	now         func() time.Time
}

func NewAuthService(
	cfg *config.Config,
	hasher *security.PasswordHasher,
	jwtMgr *security.JWTManager,
	oauthSvc *OAuthService,
	userRepo repository.UserRepository,
	credRepo repository.LocalCredentialRepository,
	tokenRepo repository.PendingTokenRepository,
	verifier EmailVerificationNotifier,
	resetMailer PasswordResetNotifier,
) *AuthService {
	return &AuthService{
		cfg:         cfg,
		hasher:      hasher,
		jwtMgr:      jwtMgr,
		oauthSvc:    oauthSvc,
		userRepo:    userRepo,
		credRepo:    credRepo,
		tokenRepo:   tokenRepo,
		verifier:    verifier,
		resetMailer: resetMailer,
		now:         time.Now,
	}
}

// Register creates an unverified account with a hashed credential and a
// pending verification token, then notifies the address. Email uniqueness is
// enforced by the store's constraint at insert time, not by a prior read.
// A notification failure leaves the committed account and token in place.
func (s *AuthService) Register(name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user := &domain.User{Name: name, Email: email, Role: domain.RoleUser}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	if err := s.credRepo.Create(&domain.LocalCredential{UserID: user.ID, PasswordHash: hash}); err != nil {
		return nil, err
	}

	rawToken, expiresAt, err := s.issuePendingToken(user.ID, domain.TokenPurposeEmailVerify, s.cfg.VerifyTokenTTL)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	err = s.verifier.SendEmailVerification(ctx, VerificationNotification{
		UserID:          user.ID,
		Email:           email,
		Token:           rawToken,
		ExpiresAt:       expiresAt,
		VerificationURL: buildTokenURL(s.cfg.VerifyBaseURL, rawToken),
	})
	if err != nil {
		observability.RecordNotification(ctx, "email_verify", "failure")
		return user, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	observability.RecordNotification(ctx, "email_verify", "success")
	return user, nil
}

// Verify consumes an outstanding verification token and marks the credential
// verified. The response never reveals whether the underlying email exists.
func (s *AuthService) Verify(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	now := s.now().UTC()
	record, err := s.tokenRepo.FindActiveByHashPurpose(security.HashOpaqueToken(token), domain.TokenPurposeEmailVerify, now)
	if err != nil {
		if errors.Is(err, repository.ErrPendingTokenNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := s.tokenRepo.Consume(record.ID, record.UserID, now); err != nil {
		if errors.Is(err, repository.ErrPendingTokenNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return s.credRepo.MarkEmailVerified(record.UserID)
}

// Login verifies the password and issues a stateless session. Unknown email
// and wrong password yield the same ErrInvalidCredentials.
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	cred, err := s.credRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(cred.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !cred.EmailVerified {
		return nil, ErrUnverifiedAccount
	}
	user, err := s.userRepo.FindByID(cred.UserID)
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// ForgotPassword issues a short-lived reset token. It silently succeeds for
// unknown addresses so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) ForgotPassword(email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	cred, err := s.credRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil
		}
		return err
	}

	now := s.now().UTC()
	if err := s.tokenRepo.InvalidateActiveByUserPurpose(cred.UserID, domain.TokenPurposePasswordReset, now); err != nil {
		return err
	}
	rawToken, expiresAt, err := s.issuePendingToken(cred.UserID, domain.TokenPurposePasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	ctx := context.Background()
	err = s.resetMailer.SendPasswordReset(ctx, PasswordResetNotification{
		UserID:    cred.UserID,
		Email:     email,
		Token:     rawToken,
		ExpiresAt: expiresAt,
		ResetURL:  buildTokenURL(s.cfg.ResetBaseURL, rawToken),
	})
	if err != nil {
		observability.RecordNotification(ctx, "password_reset", "failure")
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	observability.RecordNotification(ctx, "password_reset", "success")
	return nil
}

// ResetPassword consumes an unexpired reset token and installs the new
// credential. Consumption is atomic at the store: of two concurrent calls
// with the same token, exactly one wins; the other sees
// ErrInvalidOrExpiredToken and the stored password reflects only the winner.
func (s *AuthService) ResetPassword(token, password, confirmPassword string) error {
	if password == "" || confirmPassword == "" {
		return fmt.Errorf("%w: password and confirmation are required", ErrValidation)
	}
	if password != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	now := s.now().UTC()
	record, err := s.tokenRepo.FindActiveByHashPurpose(security.HashOpaqueToken(token), domain.TokenPurposePasswordReset, now)
	if err != nil {
		if errors.Is(err, repository.ErrPendingTokenNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	if err := s.tokenRepo.Consume(record.ID, record.UserID, now); err != nil {
		if errors.Is(err, repository.ErrPendingTokenNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.credRepo.UpdatePassword(record.UserID, hash)
}

// GoogleLoginURL returns the provider redirect URL, or "" when disabled.
func (s *AuthService) GoogleLoginURL(state string) string {
	if !s.cfg.AuthGoogleEnabled {
		return ""
	}
	return s.oauthSvc.LoginURL(state)
}

// LoginWithGoogleCode completes the provider round-trip and issues a session
// for the reconciled account. Externally created accounts are verified by
// construction.
func (s *AuthService) LoginWithGoogleCode(ctx context.Context, code string) (*LoginResult, error) {
	if !s.cfg.AuthGoogleEnabled {
		return nil, ErrGoogleAuthDisabled
	}
	user, err := s.oauthSvc.HandleGoogleCallback(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

func (s *AuthService) ParseUserID(subject string) (uint, error) {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user subject")
	}
	return uint(id), nil
}

func (s *AuthService) issueSession(user *domain.User) (*LoginResult, error) {
	token, err := s.jwtMgr.SignSession(user.ID, user.Role, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, SessionToken: token, ExpiresAt: s.now().Add(s.cfg.SessionTTL)}, nil
}

func (s *AuthService) issuePendingToken(userID uint, purpose string, ttl time.Duration) (string, time.Time, error) {
	raw, err := security.NewOpaqueToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().UTC().Add(ttl)
	err = s.tokenRepo.Create(&domain.PendingToken{
		UserID:    userID,
		TokenHash: security.HashOpaqueToken(raw),
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	observability.RecordTokenIssued(context.Background(), purpose)
	return raw, expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return nil
}

func buildTokenURL(base, token string) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
