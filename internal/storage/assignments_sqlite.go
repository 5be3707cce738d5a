package storage

import (
	"context"
	"fmt"

	"github.com/matsen/cslcite/internal/access"
)

// ensureAssignmentsSchema ensures the stage assignments schema exists (idempotent via CREATE IF NOT EXISTS).
func (d *DB) ensureAssignmentsSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS stage_assignments (
			submission_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY (submission_id, user_id, role)
		);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("creating stage assignments schema: %w", err)
	}
	return nil
}

// AddAssignment records a stage assignment. Adding an existing assignment is a no-op.
func (d *DB) AddAssignment(ctx context.Context, a access.Assignment) error {
	if err := d.ensureAssignmentsSchema(); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO stage_assignments (submission_id, user_id, role)
		VALUES (?, ?, ?)
	`, a.SubmissionID, a.UserID, string(a.Role))
	if err != nil {
		return fmt.Errorf("inserting assignment for submission %d: %w", a.SubmissionID, err)
	}
	return nil
}

// Assignments lists the stage assignments of a submission.
func (d *DB) Assignments(ctx context.Context, submissionID int64) ([]access.Assignment, error) {
	if err := d.ensureAssignmentsSchema(); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT submission_id, user_id, role
		FROM stage_assignments
		WHERE submission_id = ?
		ORDER BY user_id, role
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var out []access.Assignment
	for rows.Next() {
		var a access.Assignment
		var role string
		if err := rows.Scan(&a.SubmissionID, &a.UserID, &role); err != nil {
			return nil, err
		}
		a.Role = access.Role(role)
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ access.AssignmentLister = (*DB)(nil)
