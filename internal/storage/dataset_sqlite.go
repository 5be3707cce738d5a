package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/reference"
)

// Dataset reads the whole database back into a dataset, ordered by id, so it can
// be written out with WriteAll.
func (d *DB) Dataset(ctx context.Context) (*Dataset, error) {
	if err := d.ensureAssignmentsSchema(); err != nil {
		return nil, err
	}
	if err := d.ensureSettingsSchema(); err != nil {
		return nil, err
	}

	ds := &Dataset{}
	var err error
	if ds.Contexts, err = listJSON[reference.Context](ctx, d, "contexts"); err != nil {
		return nil, err
	}
	if ds.Sections, err = listJSON[reference.Section](ctx, d, "sections"); err != nil {
		return nil, err
	}
	if ds.Issues, err = listJSON[reference.Issue](ctx, d, "issues"); err != nil {
		return nil, err
	}
	if ds.Submissions, err = listJSON[reference.Submission](ctx, d, "submissions"); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT submission_id, user_id, role FROM stage_assignments
		ORDER BY submission_id, user_id, role
	`)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a access.Assignment
		var role string
		if err := rows.Scan(&a.SubmissionID, &a.UserID, &role); err != nil {
			return nil, err
		}
		a.Role = access.Role(role)
		ds.Assignments = append(ds.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := d.db.QueryContext(ctx, `
		SELECT context_id, setting_name, setting_value FROM plugin_settings
		ORDER BY context_id, setting_name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var s SettingRow
		var value string
		if err := srows.Scan(&s.ContextID, &s.Name, &value); err != nil {
			return nil, err
		}
		s.Value = json.RawMessage(value)
		ds.Settings = append(ds.Settings, s)
	}
	return ds, srows.Err()
}

func listJSON[T any](ctx context.Context, d *DB, table string) ([]T, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT data_json FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scanJSON[T](rows, table, "row")
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
