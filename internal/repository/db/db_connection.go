package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// one writer; readings arrive concurrently and SQLite serializes them anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaReadings = `
CREATE TABLE IF NOT EXISTS water_readings (
    id TEXT PRIMARY KEY,
    level REAL NOT NULL,
    unit TEXT NOT NULL,
    observed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_water_readings_observed_at ON water_readings(observed_at);
`

const schemaThresholds = `
CREATE TABLE IF NOT EXISTS threshold_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    warning_level REAL NOT NULL,
    danger_level REAL NOT NULL,
    min_level REAL NOT NULL,
    max_level REAL NOT NULL,
    pump_activation_level REAL NOT NULL,
    pump_deactivation_level REAL NOT NULL,
    unit TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaNotifications = `
CREATE TABLE IF NOT EXISTS notification_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    email_enabled BOOLEAN NOT NULL,
    email_address TEXT NOT NULL,
    notify_on_warning BOOLEAN NOT NULL,
    notify_on_danger BOOLEAN NOT NULL,
    notify_on_pump_activation BOOLEAN NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaPumpMode = `
CREATE TABLE IF NOT EXISTS pump_mode (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    level REAL NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    acknowledged BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_open ON alerts(type, acknowledged, created_at);
`

const schemaPumpLogs = `
CREATE TABLE IF NOT EXISTS pump_logs (
    id TEXT PRIMARY KEY,
    is_active BOOLEAN NOT NULL,
    start_time TIMESTAMP,
    end_time TIMESTAMP,
    duration REAL,
    activated_by TEXT NOT NULL,
    water_level_at_activation REAL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pump_logs_created_at ON pump_logs(created_at);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaReadings,
		schemaThresholds,
		schemaNotifications,
		schemaPumpMode,
		schemaAlerts,
		schemaPumpLogs,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
