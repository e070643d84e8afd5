package members

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/chapterhub/chapterhub/internal/models"
)

// fake repo for testing
type fakeRepo struct {
	byID    map[string]*models.Member
	byEmail map[string]*models.Member
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*models.Member, error) {
	return f.byID[id], nil
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	return f.byEmail[email], nil
}

func seeded(t *testing.T, password string) (*Service, *models.Member) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	m := &models.Member{ID: "m1", Email: "a@b.com", Name: "Alice", Active: true, PasswordHash: string(hash)}
	repo := &fakeRepo{
		byID:    map[string]*models.Member{m.ID: m},
		byEmail: map[string]*models.Member{m.Email: m},
	}
	return NewService(repo), m
}

func TestGetByID(t *testing.T) {
	svc, m := seeded(t, "pw")
	got, err := svc.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got == nil || got.Email != m.Email {
		t.Fatalf("unexpected member: %+v", got)
	}

	missing, err := svc.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := seeded(t, "correct-horse")

	got, err := svc.Authenticate(context.Background(), "a@b.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if got == nil || got.ID != "m1" {
		t.Fatalf("expected member m1, got %+v", got)
	}
}

func TestAuthenticate_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc, _ := seeded(t, "correct-horse")
	ctx := context.Background()

	wrongPw, err1 := svc.Authenticate(ctx, "a@b.com", "battery-staple")
	noUser, err2 := svc.Authenticate(ctx, "nobody@b.com", "correct-horse")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if wrongPw != nil || noUser != nil {
		t.Fatalf("expected nil member for both failure modes")
	}
}
