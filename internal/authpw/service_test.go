package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"handbook/api/internal/store"
)

type fakeUserStore struct {
	users map[string]store.User
}

func (f *fakeUserStore) GetUserByLogin(_ context.Context, login string) (store.User, error) {
	user, ok := f.users[login]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	svc := New(&fakeUserStore{users: map[string]store.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hash, Role: "editor"},
	}})
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("expected user 1, got %d", user.ID)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown login, got %v", err)
	}
}
