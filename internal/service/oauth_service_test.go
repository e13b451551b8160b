package service

import (
	"context"
	"errors"
	"testing"

	"github.com/okhan/userauth/internal/domain"
)

func TestReconcileExternalProfile(t *testing.T) {
	info := &OAuthUserInfo{ProviderUserID: "sub-1", Email: "user@example.com", Name: "User", EmailVerified: true}

	t.Run("identity match wins", func(t *testing.T) {
		known := &domain.User{ID: 7, Email: "user@example.com"}
		d := ReconcileExternalProfile(info, known, &domain.User{ID: 9})
		if d.User != known || d.CreateUser || d.LinkIdentity {
			t.Fatalf("expected plain identity match, got %+v", d)
		}
	})

	t.Run("email match links identity", func(t *testing.T) {
		existing := &domain.User{ID: 9, Email: "user@example.com"}
		d := ReconcileExternalProfile(info, nil, existing)
		if d.User != existing || d.CreateUser || !d.LinkIdentity {
			t.Fatalf("expected email link decision, got %+v", d)
		}
	})

	t.Run("no match creates linked account", func(t *testing.T) {
		d := ReconcileExternalProfile(info, nil, nil)
		if !d.CreateUser || !d.LinkIdentity {
			t.Fatalf("expected create+link decision, got %+v", d)
		}
		if d.User.Email != "user@example.com" || d.User.Role != domain.RoleUser {
			t.Fatalf("unexpected new user: %+v", d.User)
		}
	})
}

func TestOAuthServiceHandleGoogleCallback(t *testing.T) {
	t.Run("rejects unverified provider email", func(t *testing.T) {
		users := newUserRepoState()
		identities := newIdentityRepoState()
		provider := &stubOAuthProvider{info: &OAuthUserInfo{ProviderUserID: "sub", Email: "user@example.com", EmailVerified: false}}
		svc := NewOAuthService(provider, users, identities)

		if _, err := svc.HandleGoogleCallback(context.Background(), "code"); err == nil {
			t.Fatal("expected rejection of unverified provider email")
		}
	})

	t.Run("exchange failure propagates", func(t *testing.T) {
		users := newUserRepoState()
		identities := newIdentityRepoState()
		provider := &stubOAuthProvider{exchangeErr: errors.New("bad code")}
		svc := NewOAuthService(provider, users, identities)

		if _, err := svc.HandleGoogleCallback(context.Background(), "code"); err == nil {
			t.Fatal("expected exchange error to propagate")
		}
	})

	t.Run("repeat sign-in reuses the linked account", func(t *testing.T) {
		users := newUserRepoState()
		identities := newIdentityRepoState()
		provider := &stubOAuthProvider{info: &OAuthUserInfo{ProviderUserID: "sub", Email: "user@example.com", Name: "User", EmailVerified: true}}
		svc := NewOAuthService(provider, users, identities)

		first, err := svc.HandleGoogleCallback(context.Background(), "code")
		if err != nil {
			t.Fatalf("first callback: %v", err)
		}
		second, err := svc.HandleGoogleCallback(context.Background(), "code")
		if err != nil {
			t.Fatalf("second callback: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected same account on repeat sign-in, got %d then %d", first.ID, second.ID)
		}
		all, _ := users.List()
		if len(all) != 1 {
			t.Fatalf("expected exactly one account, got %d", len(all))
		}
	})

	t.Run("profile refresh updates name and avatar", func(t *testing.T) {
		users := newUserRepoState()
		identities := newIdentityRepoState()
		provider := &stubOAuthProvider{info: &OAuthUserInfo{ProviderUserID: "sub", Email: "user@example.com", Name: "Old Name", EmailVerified: true}}
		svc := NewOAuthService(provider, users, identities)

		if _, err := svc.HandleGoogleCallback(context.Background(), "code"); err != nil {
			t.Fatalf("first callback: %v", err)
		}
		provider.info = &OAuthUserInfo{ProviderUserID: "sub", Email: "user@example.com", Name: "New Name", Picture: "https://img.example/p.png", EmailVerified: true}
		u, err := svc.HandleGoogleCallback(context.Background(), "code")
		if err != nil {
			t.Fatalf("second callback: %v", err)
		}
		if u.Name != "New Name" || u.AvatarURL != "https://img.example/p.png" {
			t.Fatalf("expected refreshed profile, got %+v", u)
		}
	})
}
