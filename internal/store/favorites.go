package store

import (
	"context"
	"fmt"
)

// ToggleFavorite flips the favorite flag for (user, item) and reports
// the resulting state.
func (s *PostgresStore) ToggleFavorite(ctx context.Context, userID, navigationItemID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin favorite tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND navigation_item_id = $2
	`, userID, navigationItemID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}

	favorited := false
	if removed == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO favorites (user_id, navigation_item_id)
			VALUES ($1, $2)
		`, userID, navigationItemID); err != nil {
			return false, fmt.Errorf("add favorite: %w", err)
		}
		favorited = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit favorite tx: %w", err)
	}
	return favorited, nil
}

func (s *PostgresStore) ListFavorites(ctx context.Context, userID int64) ([]NavigationItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM favorites f
		JOIN navigation_items n ON n.id = f.navigation_item_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, prefixColumns("n", navigationColumns))
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	items := make([]NavigationItem, 0)
	for rows.Next() {
		item, err := scanNavigationItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
