package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okhan/userauth/internal/config"
	"github.com/okhan/userauth/internal/domain"
	"github.com/okhan/userauth/internal/repository"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const providerGoogle = "google"

// OAuthUserInfo is the verified profile an identity provider hands back once
// its own handshake completes. The core trusts it as already email-verified.
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	EmailVerified  bool
}

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error)
}

type GoogleOAuthProvider struct {
	cfg *oauth2.Config
}

func NewGoogleOAuthProvider(cfg *config.Config) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{cfg: &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}}
}

func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.cfg.Exchange(ctx, code)
}

func (p *GoogleOAuthProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error) {
	client := p.cfg.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://openidconnect.googleapis.com/v1/userinfo", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status: %d", resp.StatusCode)
	}
	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Sub == "" || body.Email == "" {
		return nil, fmt.Errorf("missing required userinfo fields")
	}
	return &OAuthUserInfo{
		ProviderUserID: body.Sub,
		Email:          strings.ToLower(body.Email),
		Name:           body.Name,
		Picture:        body.Picture,
		EmailVerified:  body.EmailVerified,
	}, nil
}

// ReconcileDecision is the outcome of matching an external profile against
// what the store already knows.
type ReconcileDecision struct {
	User         *domain.User
	CreateUser   bool
	LinkIdentity bool
}

// ReconcileExternalProfile decides how an external profile maps onto
// accounts: an identity match wins, then an email match (link the identity
// to that account), otherwise a new verified account is created. Pure
// function; no store or network involved.
func ReconcileExternalProfile(info *OAuthUserInfo, byProviderID, byEmail *domain.User) ReconcileDecision {
	if byProviderID != nil {
		return ReconcileDecision{User: byProviderID}
	}
	if byEmail != nil {
		return ReconcileDecision{User: byEmail, LinkIdentity: true}
	}
	return ReconcileDecision{
		User: &domain.User{
			Email:     info.Email,
			Name:      info.Name,
			AvatarURL: info.Picture,
			Role:      domain.RoleUser,
		},
		CreateUser:   true,
		LinkIdentity: true,
	}
}

type OAuthService struct {
	provider     OAuthProvider
	userRepo     repository.UserRepository
	identityRepo repository.ExternalIdentityRepository
}

func NewOAuthService(provider OAuthProvider, userRepo repository.UserRepository, identityRepo repository.ExternalIdentityRepository) *OAuthService {
	return &OAuthService{provider: provider, userRepo: userRepo, identityRepo: identityRepo}
}

func (s *OAuthService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// HandleGoogleCallback exchanges the code, fetches the verified profile and
// reconciles it into exactly one account.
func (s *OAuthService) HandleGoogleCallback(ctx context.Context, code string) (*domain.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	info, err := s.provider.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if !info.EmailVerified {
		return nil, fmt.Errorf("google email not verified")
	}

	byProviderID, err := s.userByProviderID(info.ProviderUserID)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.userByEmail(info.Email)
	if err != nil {
		return nil, err
	}

	decision := ReconcileExternalProfile(info, byProviderID, byEmail)
	user := decision.User
	if decision.CreateUser {
		if err := s.userRepo.Create(user); err != nil {
			// A concurrent callback created the account first; use it.
			if errors.Is(err, repository.ErrDuplicateEmail) {
				if user, err = s.userRepo.FindByEmail(info.Email); err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
	}
	if decision.LinkIdentity {
		if err := s.identityRepo.Create(&domain.ExternalIdentity{
			UserID:         user.ID,
			Provider:       providerGoogle,
			ProviderUserID: info.ProviderUserID,
		}); err != nil {
			return nil, err
		}
	}

	user.Name = info.Name
	user.AvatarURL = info.Picture
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(user.ID)
}

func (s *OAuthService) userByProviderID(providerUserID string) (*domain.User, error) {
	identity, err := s.identityRepo.FindByProvider(providerGoogle, providerUserID)
	if err != nil {
		if errors.Is(err, repository.ErrExternalIdentityNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.userRepo.FindByID(identity.UserID)
}

func (s *OAuthService) userByEmail(email string) (*domain.User, error) {
	u, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
