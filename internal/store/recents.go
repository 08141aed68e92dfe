package store

import (
	"context"
	"fmt"
)

// RecordVisit appends one visit event for (user, item).
func (s *PostgresStore) RecordVisit(ctx context.Context, userID, navigationItemID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recents (user_id, navigation_item_id)
		VALUES ($1, $2)
	`, userID, navigationItemID)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// ListRecents groups the user's visit events by item, most recent
// first.
func (s *PostgresStore) ListRecents(ctx context.Context, userID int64, limit int) ([]RecentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.navigation_item_id, n.title, n.type, n.icon,
			COUNT(*) AS visits, MAX(r.visited_at) AS last_visited_at
		FROM recents r
		JOIN navigation_items n ON n.id = r.navigation_item_id
		WHERE r.user_id = $1
		GROUP BY r.navigation_item_id, n.title, n.type, n.icon
		ORDER BY last_visited_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recents: %w", err)
	}
	defer rows.Close()

	items := make([]RecentItem, 0)
	for rows.Next() {
		var item RecentItem
		if err := rows.Scan(&item.NavigationItemID, &item.Title, &item.Type, &item.Icon, &item.Visits, &item.LastVisitedAt); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
