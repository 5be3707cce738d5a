package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/cslcite/internal/settings"
)

// ensureSettingsSchema ensures the plugin settings schema exists (idempotent via CREATE IF NOT EXISTS).
// Values are JSON encoded, one row per setting name.
func (d *DB) ensureSettingsSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS plugin_settings (
			context_id INTEGER NOT NULL,
			setting_name TEXT NOT NULL,
			setting_value TEXT NOT NULL,
			PRIMARY KEY (context_id, setting_name)
		);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("creating plugin settings schema: %w", err)
	}
	return nil
}

func putSetting(ctx context.Context, e execer, contextID int64, name, value string) error {
	_, err := e.ExecContext(ctx, `
		INSERT OR REPLACE INTO plugin_settings (context_id, setting_name, setting_value)
		VALUES (?, ?, ?)
	`, contextID, name, value)
	if err != nil {
		return fmt.Errorf("saving setting %s for context %d: %w", name, contextID, err)
	}
	return nil
}

// Load returns the plugin settings of a context. Unset lists stay nil.
func (d *DB) Load(ctx context.Context, contextID int64) (settings.Settings, error) {
	var s settings.Settings
	if err := d.ensureSettingsSchema(); err != nil {
		return s, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT setting_name, setting_value FROM plugin_settings WHERE context_id = ?
	`, contextID)
	if err != nil {
		return s, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return s, err
		}
		var target any
		switch name {
		case settings.KeyPrimaryCitationStyle:
			target = &s.PrimaryCitationStyle
		case settings.KeyEnabledCitationStyles:
			target = &s.EnabledCitationStyles
		case settings.KeyEnabledCitationDownloads:
			target = &s.EnabledCitationDownloads
		case settings.KeyPublisherLocation:
			target = &s.PublisherLocation
		default:
			continue
		}
		if err := json.Unmarshal([]byte(value), target); err != nil {
			return s, fmt.Errorf("parsing setting %s for context %d: %w", name, contextID, err)
		}
	}
	return s, rows.Err()
}

// Save replaces the plugin settings of a context. A nil list removes the setting,
// returning it to "not configured".
func (d *DB) Save(ctx context.Context, contextID int64, s settings.Settings) error {
	if err := d.ensureSettingsSchema(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting settings update: %w", err)
	}
	defer tx.Rollback()

	values := []struct {
		name  string
		value any
		unset bool
	}{
		{settings.KeyPrimaryCitationStyle, s.PrimaryCitationStyle, s.PrimaryCitationStyle == ""},
		{settings.KeyEnabledCitationStyles, s.EnabledCitationStyles, s.EnabledCitationStyles == nil},
		{settings.KeyEnabledCitationDownloads, s.EnabledCitationDownloads, s.EnabledCitationDownloads == nil},
		{settings.KeyPublisherLocation, s.PublisherLocation, s.PublisherLocation == ""},
	}
	for _, v := range values {
		if v.unset {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM plugin_settings WHERE context_id = ? AND setting_name = ?`, contextID, v.name); err != nil {
				return fmt.Errorf("removing setting %s: %w", v.name, err)
			}
			continue
		}
		data, err := json.Marshal(v.value)
		if err != nil {
			return fmt.Errorf("encoding setting %s: %w", v.name, err)
		}
		if err := putSetting(ctx, tx, contextID, v.name, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteLegacyGroupSettings removes the contributor group-id mappings that older
// installations stored. It returns the number of rows removed.
func (d *DB) DeleteLegacyGroupSettings(ctx context.Context) (int64, error) {
	if err := d.ensureSettingsSchema(); err != nil {
		return 0, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(settings.LegacyGroupKeys)), ", ")
	args := make([]any, len(settings.LegacyGroupKeys))
	for i, k := range settings.LegacyGroupKeys {
		args[i] = k
	}
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM plugin_settings WHERE setting_name IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting legacy group settings: %w", err)
	}
	return res.RowsAffected()
}

var _ settings.Store = (*DB)(nil)
