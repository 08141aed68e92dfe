package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"handbook/api/internal/links"
)

const documentColumns = `id, navigation_item_id, content, content_text, updated_by, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.NavigationItemID, &doc.Content, &doc.ContentText,
		&doc.UpdatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	return doc, err
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	return scanDocument(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetDocumentByNavigationItem(ctx context.Context, navigationItemID int64) (Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE navigation_item_id = $1`, documentColumns)
	return scanDocument(s.db.QueryRowContext(ctx, query, navigationItemID))
}

func (s *PostgresStore) ListDocuments(ctx context.Context, navigationItemID *int64) ([]Document, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if navigationItemID == nil {
		query := fmt.Sprintf(`SELECT %s FROM documents ORDER BY updated_at DESC`, documentColumns)
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM documents WHERE navigation_item_id = $1 ORDER BY updated_at DESC`, documentColumns)
		rows, err = s.db.QueryContext(ctx, query, *navigationItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) InsertDocument(ctx context.Context, navigationItemID int64, content []byte, contentText string, createdBy int64) (Document, error) {
	query := fmt.Sprintf(`
		INSERT INTO documents (navigation_item_id, content, content_text, updated_by)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, documentColumns)
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, navigationItemID, content, contentText, createdBy))
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// SaveDocumentContent writes the new content and reconciles the
// document's outgoing wiki-link edges in one transaction. Titles that
// resolve to no navigation item are dropped; ambiguous titles resolve
// to the lowest matching id. Unchanged edges are never rewritten.
func (s *PostgresStore) SaveDocumentContent(ctx context.Context, documentID int64, content []byte, contentText string, linkTitles []string, updatedBy int64) (Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		UPDATE documents
		SET content = $1, content_text = $2, updated_by = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING %s
	`, documentColumns)
	doc, err := scanDocument(tx.QueryRowContext(ctx, query, content, contentText, updatedBy, documentID))
	if err != nil {
		return Document{}, err
	}

	desired := make([]int64, 0, len(linkTitles))
	for _, title := range linkTitles {
		var targetID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM navigation_items
			WHERE LOWER(title) = LOWER($1)
			ORDER BY id ASC
			LIMIT 1
		`, title).Scan(&targetID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Document{}, fmt.Errorf("resolve link title %q: %w", title, err)
		}
		desired = append(desired, targetID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT to_navigation_item_id FROM wiki_links WHERE from_navigation_item_id = $1
	`, doc.NavigationItemID)
	if err != nil {
		return Document{}, fmt.Errorf("load outgoing links: %w", err)
	}
	var existing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Document{}, fmt.Errorf("scan outgoing link: %w", err)
		}
		existing = append(existing, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Document{}, fmt.Errorf("iterate outgoing links: %w", err)
	}

	toInsert, toDelete := links.Diff(existing, desired)
	for _, targetID := range toInsert {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wiki_links (from_navigation_item_id, to_navigation_item_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, doc.NavigationItemID, targetID); err != nil {
			return Document{}, fmt.Errorf("insert wiki link: %w", err)
		}
	}
	for _, targetID := range toDelete {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM wiki_links
			WHERE from_navigation_item_id = $1 AND to_navigation_item_id = $2
		`, doc.NavigationItemID, targetID); err != nil {
			return Document{}, fmt.Errorf("delete wiki link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("commit save tx: %w", err)
	}
	return doc, nil
}

// ListOutgoingLinks returns the items this navigation item links to.
func (s *PostgresStore) ListOutgoingLinks(ctx context.Context, navigationItemID int64) ([]LinkedItem, error) {
	return s.queryLinkedItems(ctx, `
		SELECT n.id, n.title, n.type, n.icon
		FROM wiki_links wl
		JOIN navigation_items n ON n.id = wl.to_navigation_item_id
		WHERE wl.from_navigation_item_id = $1
		ORDER BY n.title ASC
	`, navigationItemID)
}

// ListBacklinks returns the items linking to this navigation item.
func (s *PostgresStore) ListBacklinks(ctx context.Context, navigationItemID int64) ([]LinkedItem, error) {
	return s.queryLinkedItems(ctx, `
		SELECT n.id, n.title, n.type, n.icon
		FROM wiki_links wl
		JOIN navigation_items n ON n.id = wl.from_navigation_item_id
		WHERE wl.to_navigation_item_id = $1
		ORDER BY n.title ASC
	`, navigationItemID)
}

func (s *PostgresStore) queryLinkedItems(ctx context.Context, query string, navigationItemID int64) ([]LinkedItem, error) {
	rows, err := s.db.QueryContext(ctx, query, navigationItemID)
	if err != nil {
		return nil, fmt.Errorf("query linked items: %w", err)
	}
	defer rows.Close()

	items := make([]LinkedItem, 0)
	for rows.Next() {
		var item LinkedItem
		if err := rows.Scan(&item.NavigationItemID, &item.Title, &item.Type, &item.Icon); err != nil {
			return nil, fmt.Errorf("scan linked item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
