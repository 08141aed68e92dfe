package store

import (
	"context"
	"database/sql"
	"fmt"
)

const processColumns = `id, navigation_item_id, bpmn_xml, version, updated_by, created_at, updated_at`

func scanProcess(row interface{ Scan(...any) error }) (Process, error) {
	var proc Process
	err := row.Scan(
		&proc.ID, &proc.NavigationItemID, &proc.BpmnXML, &proc.Version,
		&proc.UpdatedBy, &proc.CreatedAt, &proc.UpdatedAt,
	)
	return proc, err
}

func (s *PostgresStore) GetProcess(ctx context.Context, id int64) (Process, error) {
	query := fmt.Sprintf(`SELECT %s FROM processes WHERE id = $1`, processColumns)
	return scanProcess(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetProcessByNavigationItem(ctx context.Context, navigationItemID int64) (Process, error) {
	query := fmt.Sprintf(`SELECT %s FROM processes WHERE navigation_item_id = $1`, processColumns)
	return scanProcess(s.db.QueryRowContext(ctx, query, navigationItemID))
}

func (s *PostgresStore) ListProcesses(ctx context.Context, navigationItemID *int64) ([]Process, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if navigationItemID == nil {
		query := fmt.Sprintf(`SELECT %s FROM processes ORDER BY updated_at DESC`, processColumns)
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM processes WHERE navigation_item_id = $1 ORDER BY updated_at DESC`, processColumns)
		rows, err = s.db.QueryContext(ctx, query, *navigationItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	procs := make([]Process, 0)
	for rows.Next() {
		proc, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		procs = append(procs, proc)
	}
	return procs, rows.Err()
}

func (s *PostgresStore) InsertProcess(ctx context.Context, navigationItemID int64, bpmnXML string, createdBy int64) (Process, error) {
	query := fmt.Sprintf(`
		INSERT INTO processes (navigation_item_id, bpmn_xml, version, updated_by)
		VALUES ($1, $2, 1, $3)
		RETURNING %s
	`, processColumns)
	proc, err := scanProcess(s.db.QueryRowContext(ctx, query, navigationItemID, bpmnXML, createdBy))
	if err != nil {
		return Process{}, fmt.Errorf("insert process: %w", err)
	}
	return proc, nil
}

// UpdateProcess replaces the diagram and bumps the version. Returns
// sql.ErrNoRows for a missing id.
func (s *PostgresStore) UpdateProcess(ctx context.Context, id int64, bpmnXML string, updatedBy int64) (Process, error) {
	query := fmt.Sprintf(`
		UPDATE processes
		SET bpmn_xml = $1, version = version + 1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING %s
	`, processColumns)
	return scanProcess(s.db.QueryRowContext(ctx, query, bpmnXML, updatedBy, id))
}
