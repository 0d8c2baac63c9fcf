package store

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS fetch_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    kind TEXT NOT NULL,
    location TEXT NOT NULL,
    url TEXT NOT NULL,
    http_status INTEGER,
    response_size_bytes INTEGER,
    days_parsed INTEGER,
    days_stored INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_fetch_runs_started ON fetch_runs(started_at);

CREATE TABLE IF NOT EXISTS raw_payloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fetch_run_id INTEGER REFERENCES fetch_runs(id),
    fetched_at DATETIME NOT NULL,
    kind TEXT NOT NULL,
    location TEXT NOT NULL,
    payload_compressed BLOB NOT NULL,
    payload_hash TEXT NOT NULL UNIQUE,
    schema_version INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS days (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fetch_run_id INTEGER NOT NULL REFERENCES fetch_runs(id),
    location TEXT NOT NULL,
    date TEXT NOT NULL,
    datetime_epoch INTEGER,
    temp_max REAL,
    temp_min REAL,
    temp REAL,
    humidity REAL,
    precip REAL,
    precip_prob REAL,
    preciptype TEXT,
    snow REAL,
    wind_gust REAL,
    wind_speed REAL,
    wind_dir REAL,
    pressure REAL,
    cloud_cover REAL,
    uv_index REAL,
    conditions TEXT,
    description TEXT,
    icon TEXT,
    stations TEXT,
    source TEXT,
    quality_flags TEXT,
    record_json TEXT NOT NULL,
    UNIQUE(fetch_run_id, date)
);

CREATE INDEX IF NOT EXISTS idx_days_location_date ON days(location, date);

CREATE TABLE IF NOT EXISTS hours (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    day_id INTEGER NOT NULL REFERENCES days(id),
    time TEXT NOT NULL,
    datetime_epoch INTEGER,
    temp REAL,
    humidity REAL,
    precip REAL,
    precip_prob REAL,
    preciptype TEXT,
    wind_speed REAL,
    wind_dir REAL,
    pressure REAL,
    cloud_cover REAL,
    conditions TEXT,
    source TEXT,
    quality_flags TEXT,
    UNIQUE(day_id, time)
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    day_id INTEGER NOT NULL REFERENCES days(id),
    date TEXT NOT NULL,
    datetime_epoch INTEGER,
    type TEXT,
    latitude REAL,
    longitude REAL,
    distance REAL,
    description TEXT,
    size REAL
);

CREATE TABLE IF NOT EXISTS stations (
    fetch_run_id INTEGER NOT NULL REFERENCES fetch_runs(id),
    station_key TEXT NOT NULL,
    station_id TEXT,
    name TEXT,
    distance REAL,
    latitude REAL,
    longitude REAL,
    use_count INTEGER,
    quality INTEGER,
    contribution REAL,
    PRIMARY KEY (fetch_run_id, station_key)
);
`,
	},
	{
		Version:     2,
		Description: "Add resolved query metadata to fetch runs",
		SQL: `
ALTER TABLE fetch_runs ADD COLUMN query_cost INTEGER;
ALTER TABLE fetch_runs ADD COLUMN resolved_address TEXT;
ALTER TABLE fetch_runs ADD COLUMN timezone TEXT;
ALTER TABLE fetch_runs ADD COLUMN latitude REAL;
ALTER TABLE fetch_runs ADD COLUMN longitude REAL;
ALTER TABLE fetch_runs ADD COLUMN payload_hash TEXT;
`,
	},
}

// Migrate brings the schema up to the newest version. Versions are applied
// in order, each in its own transaction, starting after the highest version
// recorded in schema_migrations.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(createSchemaMigrations); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := s.MigrationVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	pending := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		pending++
	}
	if pending > 0 {
		s.log.Info("archive schema migrated", "from", current, "to", current+pending)
	}
	return nil
}

const createSchemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`

func (s *Store) applyMigration(m migration) (err error) {
	s.log.Debug("applying migration", "version", m.Version, "description", m.Description)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err = tx.Exec(
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// MigrationVersion reports the highest applied schema version, 0 for an
// empty database.
func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
