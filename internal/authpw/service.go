// Package authpw verifies user credentials against stored bcrypt hashes.
package authpw

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"handbook/api/internal/store"
)

// ErrInvalidCredentials covers both unknown logins and bad passwords so
// callers cannot distinguish the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

type userStore interface {
	GetUserByLogin(ctx context.Context, login string) (store.User, error)
}

type Service struct {
	users userStore
}

func New(users userStore) *Service {
	return &Service{users: users}
}

// Authenticate resolves the login (username or email) and checks the
// password.
func (s *Service) Authenticate(ctx context.Context, login, password string) (store.User, error) {
	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword produces a bcrypt hash at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
