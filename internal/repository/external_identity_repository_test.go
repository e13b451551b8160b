package repository

import (
	"errors"
	"testing"

	"github.com/okhan/userauth/internal/domain"
)

func TestExternalIdentityRepository(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewExternalIdentityRepository(db)
	u := createUserForTest(t, db, "ada@example.com")

	identity := &domain.ExternalIdentity{UserID: u.ID, Provider: "google", ProviderUserID: "sub-123"}
	if err := repo.Create(identity); err != nil {
		t.Fatalf("create identity: %v", err)
	}

	found, err := repo.FindByProvider("google", "sub-123")
	if err != nil {
		t.Fatalf("find by provider: %v", err)
	}
	if found.UserID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, found.UserID)
	}

	if _, err := repo.FindByProvider("google", "sub-999"); !errors.Is(err, ErrExternalIdentityNotFound) {
		t.Fatalf("expected ErrExternalIdentityNotFound, got %v", err)
	}
	if _, err := repo.FindByProvider("github", "sub-123"); !errors.Is(err, ErrExternalIdentityNotFound) {
		t.Fatalf("expected ErrExternalIdentityNotFound for other provider, got %v", err)
	}

	// One row per provider subject.
	dup := &domain.ExternalIdentity{UserID: u.ID, Provider: "google", ProviderUserID: "sub-123"}
	if err := repo.Create(dup); err == nil {
		t.Fatal("duplicate provider subject must be rejected")
	}
}
