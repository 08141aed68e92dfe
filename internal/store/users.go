package store

import (
	"context"
	"fmt"
)

const userColumns = `id, username, email, display_name, password_hash, role, created_at`

// GetUserByLogin looks a user up by username or email, both
// case-insensitively.
func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
	`, userColumns)
	var user User
	err := s.db.QueryRowContext(ctx, query, login).Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName,
		&user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName,
		&user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
