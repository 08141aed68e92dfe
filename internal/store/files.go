package store

import (
	"context"
	"database/sql"
	"fmt"
)

const fileColumns = `id, navigation_item_id, stored_name, original_name, mime_type, size, created_by, created_at`

func scanFile(row interface{ Scan(...any) error }) (File, error) {
	var f File
	err := row.Scan(
		&f.ID, &f.NavigationItemID, &f.StoredName, &f.OriginalName,
		&f.MimeType, &f.Size, &f.CreatedBy, &f.CreatedAt,
	)
	return f, err
}

func (s *PostgresStore) GetFile(ctx context.Context, id int64) (File, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)
	return scanFile(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) ListFiles(ctx context.Context, navigationItemID *int64) ([]File, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if navigationItemID == nil {
		query := fmt.Sprintf(`SELECT %s FROM files ORDER BY created_at DESC`, fileColumns)
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM files WHERE navigation_item_id = $1 ORDER BY created_at DESC`, fileColumns)
		rows, err = s.db.QueryContext(ctx, query, *navigationItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *PostgresStore) InsertFile(ctx context.Context, f File) (File, error) {
	query := fmt.Sprintf(`
		INSERT INTO files (navigation_item_id, stored_name, original_name, mime_type, size, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, fileColumns)
	created, err := scanFile(s.db.QueryRowContext(ctx, query,
		f.NavigationItemID, f.StoredName, f.OriginalName, f.MimeType, f.Size, f.CreatedBy,
	))
	if err != nil {
		return File{}, fmt.Errorf("insert file: %w", err)
	}
	return created, nil
}

// DeleteFile removes the metadata row and returns it so the caller can
// drop the stored object afterwards. Returns sql.ErrNoRows for a
// missing id.
func (s *PostgresStore) DeleteFile(ctx context.Context, id int64) (File, error) {
	query := fmt.Sprintf(`DELETE FROM files WHERE id = $1 RETURNING %s`, fileColumns)
	return scanFile(s.db.QueryRowContext(ctx, query, id))
}
