package db

import "fmt"

// schemaStatements bootstrap the two tables this service needs. Kept
// inline rather than behind a migration runner; the DDL is portable
// between sqlite and postgres.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app_state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_events (
		id            TEXT PRIMARY KEY,
		channel       TEXT NOT NULL,
		new_count     INTEGER NOT NULL,
		total_pending INTEGER NOT NULL,
		fired_at      BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_events_fired_at
		ON alert_events (fired_at)`,
}

// EnsureSchema creates the tables if they do not exist. Safe to call on
// every startup.
func (db *DB) EnsureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
