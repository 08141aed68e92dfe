package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgLike is the fallback backend: every whitespace token must match
// with ILIKE. Good enough for handbook-sized data.
type PgLike struct {
	db *sql.DB
}

func NewPgLike(db *sql.DB) *PgLike {
	return &PgLike{db: db}
}

// Healthy always reports true; if Postgres is down the whole app is.
func (p *PgLike) Healthy() bool {
	return true
}

func (p *PgLike) Search(ctx context.Context, q Query) (Response, error) {
	tokens := strings.Fields(q.Text)
	if len(tokens) == 0 {
		return emptyResponse(q.Text), nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	patterns := make([]any, 0, len(tokens))
	for _, token := range tokens {
		patterns = append(patterns, "%"+escapeLike(token)+"%")
	}

	out := emptyResponse(q.Text)

	navWhere := andClauses("n.title", 1, len(tokens))
	navQuery := fmt.Sprintf(`
		SELECT n.id, n.title, n.icon
		FROM navigation_items n
		WHERE %s
		ORDER BY n.title ASC
		LIMIT %d OFFSET %d
	`, navWhere, limit, offset)
	if err := p.queryHits(ctx, navQuery, patterns, func(h *Hit) []any {
		return []any{&h.ID, &h.Title, &h.Icon}
	}, &out.Navigation); err != nil {
		return Response{}, fmt.Errorf("search navigation: %w", err)
	}
	for i := range out.Navigation {
		out.Navigation[i].NavigationItemID = out.Navigation[i].ID
	}

	docWhere := andClauses("n.title || ' ' || d.content_text", 1, len(tokens))
	docQuery := fmt.Sprintf(`
		SELECT d.id, d.navigation_item_id, n.title, LEFT(d.content_text, 160)
		FROM documents d
		JOIN navigation_items n ON n.id = d.navigation_item_id
		WHERE %s
		ORDER BY d.updated_at DESC
		LIMIT %d OFFSET %d
	`, docWhere, limit, offset)
	if err := p.queryHits(ctx, docQuery, patterns, func(h *Hit) []any {
		return []any{&h.ID, &h.NavigationItemID, &h.Title, &h.Snippet}
	}, &out.Documents); err != nil {
		return Response{}, fmt.Errorf("search documents: %w", err)
	}

	procWhere := andClauses("n.title", 1, len(tokens))
	procQuery := fmt.Sprintf(`
		SELECT p.id, p.navigation_item_id, n.title
		FROM processes p
		JOIN navigation_items n ON n.id = p.navigation_item_id
		WHERE %s
		ORDER BY p.updated_at DESC
		LIMIT %d OFFSET %d
	`, procWhere, limit, offset)
	if err := p.queryHits(ctx, procQuery, patterns, func(h *Hit) []any {
		return []any{&h.ID, &h.NavigationItemID, &h.Title}
	}, &out.Processes); err != nil {
		return Response{}, fmt.Errorf("search processes: %w", err)
	}

	return out, nil
}

func (p *PgLike) queryHits(ctx context.Context, query string, args []any, fields func(*Hit) []any, dst *[]Hit) error {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var h Hit
		if err := rows.Scan(fields(&h)...); err != nil {
			return err
		}
		*dst = append(*dst, h)
	}
	return rows.Err()
}

// andClauses builds "expr ILIKE $1 AND expr ILIKE $2 ..." starting at
// the given placeholder index.
func andClauses(expr string, firstArg, count int) string {
	clauses := make([]string, 0, count)
	for i := 0; i < count; i++ {
		clauses = append(clauses, fmt.Sprintf("(%s) ILIKE $%d", expr, firstArg+i))
	}
	return strings.Join(clauses, " AND ")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// LoadAllRecords reads everything searchable for a full reindex.
func (p *PgLike) LoadAllRecords(ctx context.Context) ([]NavigationRecord, []DocumentRecord, []ProcessRecord, error) {
	navRows, err := p.db.QueryContext(ctx, `SELECT id, title, type, icon FROM navigation_items`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load navigation: %w", err)
	}
	defer navRows.Close()

	navigation := make([]NavigationRecord, 0)
	for navRows.Next() {
		var rec NavigationRecord
		if err := navRows.Scan(&rec.ID, &rec.Title, &rec.Type, &rec.Icon); err != nil {
			return nil, nil, nil, fmt.Errorf("scan navigation record: %w", err)
		}
		navigation = append(navigation, rec)
	}
	if err := navRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate navigation records: %w", err)
	}

	docRows, err := p.db.QueryContext(ctx, `
		SELECT d.id, d.navigation_item_id, n.title, d.content_text
		FROM documents d
		JOIN navigation_items n ON n.id = d.navigation_item_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	documents := make([]DocumentRecord, 0)
	for docRows.Next() {
		var rec DocumentRecord
		if err := docRows.Scan(&rec.ID, &rec.NavigationItemID, &rec.Title, &rec.Text); err != nil {
			return nil, nil, nil, fmt.Errorf("scan document record: %w", err)
		}
		documents = append(documents, rec)
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate document records: %w", err)
	}

	procRows, err := p.db.QueryContext(ctx, `
		SELECT p.id, p.navigation_item_id, n.title, p.version
		FROM processes p
		JOIN navigation_items n ON n.id = p.navigation_item_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load processes: %w", err)
	}
	defer procRows.Close()

	processes := make([]ProcessRecord, 0)
	for procRows.Next() {
		var rec ProcessRecord
		if err := procRows.Scan(&rec.ID, &rec.NavigationItemID, &rec.Title, &rec.Version); err != nil {
			return nil, nil, nil, fmt.Errorf("scan process record: %w", err)
		}
		processes = append(processes, rec)
	}
	if err := procRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate process records: %w", err)
	}

	return navigation, documents, processes, nil
}
