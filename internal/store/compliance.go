package store

import (
	"context"
	"fmt"
)

// UpsertReview stamps the item as reviewed, replacing any earlier
// review.
func (s *PostgresStore) UpsertReview(ctx context.Context, navigationItemID int64, reviewedBy int64, reviewerName, note string) (Review, error) {
	var review Review
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (navigation_item_id, reviewed_by, reviewer_name, note, reviewed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (navigation_item_id) DO UPDATE
		SET reviewed_by = EXCLUDED.reviewed_by,
			reviewer_name = EXCLUDED.reviewer_name,
			note = EXCLUDED.note,
			reviewed_at = NOW()
		RETURNING navigation_item_id, reviewed_by, reviewer_name, note, reviewed_at
	`, navigationItemID, reviewedBy, reviewerName, note).Scan(
		&review.NavigationItemID, &review.ReviewedBy, &review.ReviewerName, &review.Note, &review.ReviewedAt,
	)
	if err != nil {
		return Review{}, fmt.Errorf("upsert review: %w", err)
	}
	return review, nil
}

// InsertApproval appends one approval; earlier approvals are never
// touched.
func (s *PostgresStore) InsertApproval(ctx context.Context, navigationItemID int64, approvedBy int64, approverName, note string) (Approval, error) {
	var approval Approval
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO approvals (navigation_item_id, approved_by, approver_name, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, navigation_item_id, approved_by, approver_name, note, created_at
	`, navigationItemID, approvedBy, approverName, note).Scan(
		&approval.ID, &approval.NavigationItemID, &approval.ApprovedBy,
		&approval.ApproverName, &approval.Note, &approval.CreatedAt,
	)
	if err != nil {
		return Approval{}, fmt.Errorf("insert approval: %w", err)
	}
	return approval, nil
}

// InsertAcknowledgement appends one acknowledgement.
func (s *PostgresStore) InsertAcknowledgement(ctx context.Context, navigationItemID int64, acknowledgedBy int64, userName string) (Acknowledgement, error) {
	var ack Acknowledgement
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO acknowledgements (navigation_item_id, acknowledged_by, user_name)
		VALUES ($1, $2, $3)
		RETURNING id, navigation_item_id, acknowledged_by, user_name, created_at
	`, navigationItemID, acknowledgedBy, userName).Scan(
		&ack.ID, &ack.NavigationItemID, &ack.AcknowledgedBy, &ack.UserName, &ack.CreatedAt,
	)
	if err != nil {
		return Acknowledgement{}, fmt.Errorf("insert acknowledgement: %w", err)
	}
	return ack, nil
}

// ComplianceOverview returns the per-item rollup of review state and
// approval/acknowledgement counts.
func (s *PostgresStore) ComplianceOverview(ctx context.Context) ([]ComplianceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.title, n.status, rv.reviewed_at,
			(SELECT COUNT(*) FROM approvals a WHERE a.navigation_item_id = n.id),
			(SELECT COUNT(*) FROM acknowledgements k WHERE k.navigation_item_id = n.id)
		FROM navigation_items n
		LEFT JOIN reviews rv ON rv.navigation_item_id = n.id
		ORDER BY n.title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("compliance overview: %w", err)
	}
	defer rows.Close()

	overview := make([]ComplianceRow, 0)
	for rows.Next() {
		var row ComplianceRow
		if err := rows.Scan(&row.NavigationItemID, &row.Title, &row.Status, &row.LastReviewedAt, &row.Approvals, &row.Acknowledgements); err != nil {
			return nil, fmt.Errorf("scan compliance row: %w", err)
		}
		overview = append(overview, row)
	}
	return overview, rows.Err()
}
