// Package session stores refresh-token sessions, keyed by token hash.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, expired, or revoked tokens.
var ErrNotFound = errors.New("session not found")

// Data is what a refresh token resolves to.
type Data struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the refresh-session backend; Redis when configured,
// Postgres otherwise.
type Store interface {
	Save(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (Data, error)
	Revoke(ctx context.Context, tokenHash string) error
}
