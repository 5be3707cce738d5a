package storage

import (
	"context"
	"fmt"

	"github.com/matsen/cslcite/internal/reference"
)

func putContext(ctx context.Context, e execer, c reference.Context) error {
	err := putJSON(ctx, e, `INSERT OR REPLACE INTO contexts (id, path, data_json) VALUES (?, ?, ?)`,
		c, c.ID, c.Path)
	if err != nil {
		return fmt.Errorf("inserting context %d: %w", c.ID, err)
	}
	return nil
}

func putSubmission(ctx context.Context, e execer, s reference.Submission) error {
	err := putJSON(ctx, e, `INSERT OR REPLACE INTO submissions (id, context_id, status, data_json) VALUES (?, ?, ?, ?)`,
		s, s.ID, s.ContextID, int(s.Status))
	if err != nil {
		return fmt.Errorf("inserting submission %d: %w", s.ID, err)
	}
	return nil
}

func putIssue(ctx context.Context, e execer, i reference.Issue) error {
	err := putJSON(ctx, e, `INSERT OR REPLACE INTO issues (id, context_id, published, data_json) VALUES (?, ?, ?, ?)`,
		i, i.ID, i.ContextID, boolInt(i.Published))
	if err != nil {
		return fmt.Errorf("inserting issue %d: %w", i.ID, err)
	}
	return nil
}

func putSection(ctx context.Context, e execer, s reference.Section) error {
	err := putJSON(ctx, e, `INSERT OR REPLACE INTO sections (id, context_id, data_json) VALUES (?, ?, ?)`,
		s, s.ID, s.ContextID)
	if err != nil {
		return fmt.Errorf("inserting section %d: %w", s.ID, err)
	}
	return nil
}

// PutContext inserts or replaces a context.
func (d *DB) PutContext(ctx context.Context, c reference.Context) error {
	return putContext(ctx, d.db, c)
}

// PutSubmission inserts or replaces a submission with its publications.
func (d *DB) PutSubmission(ctx context.Context, s reference.Submission) error {
	return putSubmission(ctx, d.db, s)
}

// PutIssue inserts or replaces an issue.
func (d *DB) PutIssue(ctx context.Context, i reference.Issue) error {
	return putIssue(ctx, d.db, i)
}

// PutSection inserts or replaces a section or series.
func (d *DB) PutSection(ctx context.Context, s reference.Section) error {
	return putSection(ctx, d.db, s)
}

// ContextByPath retrieves a context by its URL path.
func (d *DB) ContextByPath(ctx context.Context, path string) (*reference.Context, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data_json FROM contexts WHERE path = ?`, path)
	return scanJSON[reference.Context](row, "context", path)
}

// Context retrieves a context by id.
func (d *DB) Context(ctx context.Context, id int64) (*reference.Context, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data_json FROM contexts WHERE id = ?`, id)
	return scanJSON[reference.Context](row, "context", id)
}

// Contexts lists all contexts ordered by id.
func (d *DB) Contexts(ctx context.Context) ([]reference.Context, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT data_json FROM contexts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing contexts: %w", err)
	}
	defer rows.Close()

	var out []reference.Context
	for rows.Next() {
		c, err := scanJSON[reference.Context](rows, "context", "row")
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Submission retrieves a submission of a context. Submissions of other contexts are not found.
func (d *DB) Submission(ctx context.Context, contextID, id int64) (*reference.Submission, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data_json FROM submissions WHERE id = ? AND context_id = ?`, id, contextID)
	return scanJSON[reference.Submission](row, "submission", id)
}

// Submissions lists the submissions of a context ordered by id.
func (d *DB) Submissions(ctx context.Context, contextID int64) ([]reference.Submission, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT data_json FROM submissions WHERE context_id = ? ORDER BY id`, contextID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var out []reference.Submission
	for rows.Next() {
		s, err := scanJSON[reference.Submission](rows, "submission", "row")
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Issue retrieves an issue by id.
func (d *DB) Issue(ctx context.Context, id int64) (*reference.Issue, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data_json FROM issues WHERE id = ?`, id)
	return scanJSON[reference.Issue](row, "issue", id)
}

// Section retrieves a journal section or press series by id.
func (d *DB) Section(ctx context.Context, id int64) (*reference.Section, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data_json FROM sections WHERE id = ?`, id)
	return scanJSON[reference.Section](row, "section", id)
}

// Counts returns the number of rows per host-data table.
func (d *DB) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"contexts", "submissions", "issues", "sections"} {
		var n int
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
