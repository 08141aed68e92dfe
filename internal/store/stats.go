package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CountStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM processes),
			(SELECT COUNT(*) FROM files)
	`).Scan(&stats.Documents, &stats.Processes, &stats.Files)
	if err != nil {
		return Stats{}, fmt.Errorf("count stats: %w", err)
	}
	return stats, nil
}
