package repository

import (
	"errors"
	"testing"

	"github.com/okhan/userauth/internal/domain"
)

func TestUserRepositoryCreateAndFind(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	u := createUserForTest(t, db, "ada@example.com")
	if u.ID == 0 {
		t.Fatal("expected assigned id")
	}

	byID, err := repo.FindByID(u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != "ada@example.com" {
		t.Fatalf("unexpected email %q", byID.Email)
	}

	byEmail, err := repo.FindByEmail("  Ada@Example.COM ")
	if err != nil {
		t.Fatalf("find by email with mixed case: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected id %d, got %d", u.ID, byEmail.ID)
	}

	if _, err := repo.FindByID(9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByEmail("nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	createUserForTest(t, db, "dup@example.com")
	err := repo.Create(&domain.User{Email: "dup@example.com", Name: "Other", Role: domain.RoleUser})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail from unique constraint, got %v", err)
	}
}

func TestUserRepositoryUpdateAndList(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	a := createUserForTest(t, db, "a@example.com")
	createUserForTest(t, db, "b@example.com")

	a.Name = "Renamed"
	if err := repo.Update(a); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, err := repo.FindByID(a.ID)
	if err != nil {
		t.Fatalf("find renamed: %v", err)
	}
	if reloaded.Name != "Renamed" {
		t.Fatalf("expected rename to persist, got %q", reloaded.Name)
	}

	users, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].ID > users[1].ID {
		t.Fatalf("expected 2 users ordered by id, got %+v", users)
	}
}
