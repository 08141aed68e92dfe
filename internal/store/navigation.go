package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const navigationColumns = `id, parent_id, title, type, status, icon, sort_order, created_by, updated_by, created_at, updated_at`

func scanNavigationItem(row interface{ Scan(...any) error }) (NavigationItem, error) {
	var item NavigationItem
	err := row.Scan(
		&item.ID, &item.ParentID, &item.Title, &item.Type, &item.Status,
		&item.Icon, &item.SortOrder, &item.CreatedBy, &item.UpdatedBy,
		&item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) GetNavigationItem(ctx context.Context, id int64) (NavigationItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM navigation_items WHERE id = $1`, navigationColumns)
	return scanNavigationItem(s.db.QueryRowContext(ctx, query, id))
}

// ListNavigationItems returns the whole forest ordered for stable
// client-side tree assembly.
func (s *PostgresStore) ListNavigationItems(ctx context.Context) ([]NavigationItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM navigation_items
		ORDER BY parent_id NULLS FIRST, sort_order ASC, title ASC
	`, navigationColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list navigation items: %w", err)
	}
	defer rows.Close()

	items := make([]NavigationItem, 0)
	for rows.Next() {
		item, err := scanNavigationItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan navigation item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListChildren returns the direct children of parentID (nil for roots),
// sorted by sort_order then title.
func (s *PostgresStore) ListChildren(ctx context.Context, parentID *int64) ([]NavigationItem, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		query := fmt.Sprintf(`
			SELECT %s FROM navigation_items
			WHERE parent_id IS NULL
			ORDER BY sort_order ASC, title ASC
		`, navigationColumns)
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		query := fmt.Sprintf(`
			SELECT %s FROM navigation_items
			WHERE parent_id = $1
			ORDER BY sort_order ASC, title ASC
		`, navigationColumns)
		rows, err = s.db.QueryContext(ctx, query, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	items := make([]NavigationItem, 0)
	for rows.Next() {
		item, err := scanNavigationItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) InsertNavigationItem(ctx context.Context, item NavigationItem) (NavigationItem, error) {
	query := fmt.Sprintf(`
		INSERT INTO navigation_items (parent_id, title, type, status, icon, sort_order, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING %s
	`, navigationColumns)
	created, err := scanNavigationItem(s.db.QueryRowContext(ctx, query,
		item.ParentID, item.Title, item.Type, item.Status, item.Icon, item.SortOrder, item.CreatedBy,
	))
	if err != nil {
		return NavigationItem{}, fmt.Errorf("insert navigation item: %w", err)
	}
	return created, nil
}

// UpdateNavigationItem applies only the fields set in the patch and
// always refreshes updated_at. Returns sql.ErrNoRows for a missing id.
func (s *PostgresStore) UpdateNavigationItem(ctx context.Context, id int64, patch NavigationItemPatch) (NavigationItem, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if patch.ParentID != nil {
		add("parent_id", *patch.ParentID)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Icon != nil {
		add("icon", *patch.Icon)
	}
	if patch.SortOrder != nil {
		add("sort_order", *patch.SortOrder)
	}
	if patch.UpdatedBy != nil {
		add("updated_by", *patch.UpdatedBy)
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE navigation_items SET %s WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), n, navigationColumns)
	return scanNavigationItem(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) CountChildren(ctx context.Context, id int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM navigation_items WHERE parent_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

// DeleteNavigationItem removes the row; dependent ownership rows
// cascade via foreign keys. Returns sql.ErrNoRows for a missing id.
func (s *PostgresStore) DeleteNavigationItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM navigation_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete navigation item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete navigation item: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReorderNavigationItems applies a batch of parent/position moves in a
// single transaction. Entries referencing missing ids are skipped; the
// returned count covers only rows actually moved.
func (s *PostgresStore) ReorderNavigationItems(ctx context.Context, entries []ReorderEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := 0
	for _, entry := range entries {
		result, err := tx.ExecContext(ctx, `
			UPDATE navigation_items
			SET parent_id = $1, sort_order = $2, updated_at = NOW()
			WHERE id = $3
		`, entry.ParentID, entry.SortOrder, entry.ID)
		if err != nil {
			return 0, fmt.Errorf("reorder item %d: %w", entry.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reorder item %d: %w", entry.ID, err)
		}
		updated += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reorder tx: %w", err)
	}
	return updated, nil
}
