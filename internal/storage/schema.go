// ABOUTME: SQL schema definition and initialization.
// ABOUTME: Defines tables for users, samples, profiles and reports.
package storage

import (
	"context"
	"strings"
)

// Timestamps are fixed-width UTC TEXT in both dialects; only the numeric
// column type differs.
const schemaTemplate = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS samples (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		metric TEXT NOT NULL,
		value_num {{REAL}},
		value_text TEXT,
		logged_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		report_type TEXT NOT NULL,
		object_key TEXT NOT NULL,
		url TEXT,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		biomarkers TEXT,
		insight TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_user_logged ON samples(user_id, logged_at DESC);
	CREATE INDEX IF NOT EXISTS idx_samples_user_metric_logged ON samples(user_id, metric, logged_at DESC);
	CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports(user_id, created_at DESC);
`

// initSchema creates or updates the database schema.
func (d *DB) initSchema(ctx context.Context) error {
	numType := "REAL"
	if d.dialect == dialectPostgres {
		numType = "DOUBLE PRECISION"
	}
	schema := strings.ReplaceAll(schemaTemplate, "{{REAL}}", numType)

	if d.dialect == dialectSQLite {
		_, err := d.db.ExecContext(ctx, schema)
		return err
	}

	// One statement per Exec for Postgres.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
