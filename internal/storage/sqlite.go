package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matsen/cslcite/internal/reference"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = reference.ErrNotFound

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path and removes
// legacy settings left by older installations.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	d := &DB{db: db}
	if _, err := d.DeleteLegacyGroupSettings(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
// Host objects are stored as JSON next to the columns they are looked up by.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS contexts (
			id INTEGER PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			data_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY,
			context_id INTEGER NOT NULL,
			status INTEGER NOT NULL,
			data_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_submissions_context ON submissions(context_id);

		CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY,
			context_id INTEGER NOT NULL,
			published INTEGER NOT NULL,
			data_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sections (
			id INTEGER PRIMARY KEY,
			context_id INTEGER NOT NULL,
			data_json TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
// It returns the number of entries loaded.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	ds, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	if err := d.Replace(context.Background(), ds); err != nil {
		return 0, err
	}
	return ds.Len(), nil
}

// Replace replaces the database content with ds.
func (d *DB) Replace(ctx context.Context, ds *Dataset) error {
	if err := d.ensureAssignmentsSchema(); err != nil {
		return err
	}
	if err := d.ensureSettingsSchema(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"contexts", "submissions", "issues", "sections", "stage_assignments", "plugin_settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	for _, c := range ds.Contexts {
		if err := putContext(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, s := range ds.Submissions {
		if err := putSubmission(ctx, tx, s); err != nil {
			return err
		}
	}
	for _, i := range ds.Issues {
		if err := putIssue(ctx, tx, i); err != nil {
			return err
		}
	}
	for _, s := range ds.Sections {
		if err := putSection(ctx, tx, s); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stage_assignments (submission_id, user_id, role)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing assignments insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range ds.Assignments {
		if _, err := stmt.ExecContext(ctx, a.SubmissionID, a.UserID, string(a.Role)); err != nil {
			return fmt.Errorf("inserting assignment for submission %d: %w", a.SubmissionID, err)
		}
	}

	for _, s := range ds.Settings {
		if err := putSetting(ctx, tx, s.ContextID, s.Name, string(s.Value)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}

	_, err = d.DeleteLegacyGroupSettings(ctx)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanJSON[T any](s scanner, what string, id any) (*T, error) {
	var data string
	if err := s.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s %v: %w", what, id, err)
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("parsing %s %v: %w", what, id, err)
	}
	return &v, nil
}

func putJSON(ctx context.Context, e execer, query string, v any, args ...any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, query, append(args, string(data))...)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
