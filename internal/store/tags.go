package store

import (
	"context"
	"fmt"
	"strings"
)

func (s *PostgresStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) ListItemTags(ctx context.Context, navigationItemID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM navigation_item_tags nit
		JOIN tags t ON t.id = nit.tag_id
		WHERE nit.navigation_item_id = $1
		ORDER BY t.name ASC
	`, navigationItemID)
	if err != nil {
		return nil, fmt.Errorf("list item tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan item tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ReplaceItemTags swaps the item's tag set for the given names in one
// transaction. Unknown names are created; blank names are dropped;
// names differing only by case collapse to the first spelling.
// Removing a tag the item never had is a no-op.
func (s *PostgresStore) ReplaceItemTags(ctx context.Context, navigationItemID int64, names []string) ([]Tag, error) {
	seen := make(map[string]bool, len(names))
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tags tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM navigation_item_tags WHERE navigation_item_id = $1
	`, navigationItemID); err != nil {
		return nil, fmt.Errorf("clear item tags: %w", err)
	}

	tags := make([]Tag, 0, len(cleaned))
	for _, name := range cleaned {
		var tag Tag
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name
		`, name).Scan(&tag.ID, &tag.Name)
		if err != nil {
			return nil, fmt.Errorf("ensure tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO navigation_item_tags (navigation_item_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, navigationItemID, tag.ID); err != nil {
			return nil, fmt.Errorf("attach tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tags tx: %w", err)
	}
	return tags, nil
}
