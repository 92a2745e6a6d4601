package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Migration represents a single database migration
type Migration struct {
	Version     string
	Description string
	UpSQL       string
}

// MigrationRunner handles database migrations
type MigrationRunner struct {
	store *SQLiteStore
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(store *SQLiteStore) *MigrationRunner {
	return &MigrationRunner{
		store: store,
	}
}

// Initialize runs all pending migrations
func (mr *MigrationRunner) Initialize(ctx context.Context, migrations []Migration) error {
	// Create schema_migrations table if it doesn't exist
	_, err := mr.store.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT NOT NULL UNIQUE,
			description TEXT,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Sort migrations by version
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	// Get applied migrations
	applied, err := mr.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	// Run pending migrations
	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; !ok {
			fmt.Printf("Applying migration: %s (%s)\n", migration.Version, migration.Description)

			if err := mr.runMigration(ctx, &migration); err != nil {
				return fmt.Errorf("migration %s failed: %w", migration.Version, err)
			}

			applied[migration.Version] = true
		}
	}

	return nil
}

// RunFromDirectory loads and runs migrations from a directory
func (mr *MigrationRunner) RunFromDirectory(ctx context.Context, dirPath string) error {
	// Read migration files
	entries, err := fs.ReadDir(nil, dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	var migrations []Migration

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Only process .sql files
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// Extract version from filename (e.g., 001_initial_schema.sql)
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}

		version := parts[0]
		description := strings.TrimSuffix(strings.Join(parts[1:], "_"), ".sql")

		// Read migration SQL
		filePath := filepath.Join(dirPath, entry.Name())
		sqlBytes, err := fs.ReadFile(nil, filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filePath, err)
		}

		sql := string(sqlBytes)

		migrations = append(migrations, Migration{
			Version:     version,
			Description: description,
			UpSQL:       sql,
		})
	}

	// Run migrations
	return mr.Initialize(ctx, migrations)
}

// runMigration executes a single migration within a transaction
func (mr *MigrationRunner) runMigration(ctx context.Context, migration *Migration) error {
	return mr.store.Transaction(ctx, func(tx *sql.Tx) error {
		// Execute migration SQL
		// Split by semicolon to execute multiple statements
		statements := strings.Split(migration.UpSQL, ";")

		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute statement: %w", err)
			}
		}

		// Record migration
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description)

		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}

		return nil
	})
}

// getAppliedMigrations returns a map of applied migration versions
func (mr *MigrationRunner) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := mr.store.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		// Table might not exist yet
		if strings.Contains(err.Error(), "no such table") {
			return make(map[string]bool), nil
		}
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading migrations: %w", err)
	}

	return applied, nil
}

// GetMigrationStatus returns the status of all migrations
func (mr *MigrationRunner) GetMigrationStatus(ctx context.Context) ([]map[string]interface{}, error) {
	rows, err := mr.store.Query(ctx,
		`SELECT id, version, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration status: %w", err)
	}
	defer rows.Close()

	var status []map[string]interface{}

	for rows.Next() {
		var id int64
		var version string
		var description string
		var appliedAt string

		if err := rows.Scan(&id, &version, &description, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration status: %w", err)
		}

		status = append(status, map[string]interface{}{
			"id":         id,
			"version":    version,
			"description": description,
			"applied_at": appliedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading migration status: %w", err)
	}

	return status, nil
}

// VerifySchema checks that every required table exists. It does not check
// for the practice_list_joined / practice_list_staged views.
func (mr *MigrationRunner) VerifySchema(ctx context.Context) error {
	// Check that all required tables exist
	requiredTables := []string{
		"tune",
		"playlist",
		"playlist_tune",
		"practice_record",
		"table_transient_data",
		"daily_practice_queue",
		"prefs_scheduling_options",
		"prefs_spaced_repetition",
		"schema_migrations",
	}

	for _, table := range requiredTables {
		row := mr.store.QueryRow(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)

		var name string
		if err := row.Scan(&name); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("required table not found: %s", table)
			}
			return fmt.Errorf("failed to verify table %s: %w", table, err)
		}
	}

	return nil
}

// CreateDefaultMigrations returns the default set of migrations
func CreateDefaultMigrations() []Migration {
	return []Migration{
		{
			Version:     "001",
			Description: "initial_schema",
			UpSQL: `
-- Tune catalog (read-only from this module's perspective)
CREATE TABLE IF NOT EXISTS tune (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	type TEXT,
	structure TEXT,
	mode TEXT,
	incipit TEXT,
	genre TEXT,
	deleted INTEGER NOT NULL DEFAULT 0,
	private_for TEXT
);

-- Playlists
CREATE TABLE IF NOT EXISTS playlist (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_ref TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0
);

-- Playlist membership, carrying the authoritative scheduled override
CREATE TABLE IF NOT EXISTS playlist_tune (
	playlist_ref INTEGER NOT NULL,
	tune_ref INTEGER NOT NULL,
	learned TIMESTAMP,
	scheduled TIMESTAMP,
	goal TEXT,
	technique TEXT,
	tags TEXT,
	notes TEXT,
	favorite_url TEXT,
	has_override INTEGER NOT NULL DEFAULT 0,
	recall_eval TEXT,
	deleted INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (playlist_ref, tune_ref)
);

-- Append-only practice history
CREATE TABLE IF NOT EXISTS practice_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_ref INTEGER NOT NULL,
	tune_ref INTEGER NOT NULL,
	practiced TIMESTAMP NOT NULL,
	quality INTEGER NOT NULL,
	easiness REAL,
	interval INTEGER,
	repetitions INTEGER,
	review_date TIMESTAMP NOT NULL,
	stability REAL,
	difficulty REAL,
	step INTEGER,
	lapses INTEGER,
	state INTEGER,
	goal TEXT,
	technique TEXT,
	UNIQUE (tune_ref, playlist_ref, practiced)
);

-- Staged, uncommitted feedback: at most one row per (user, playlist, tune, purpose)
CREATE TABLE IF NOT EXISTS table_transient_data (
	user_ref TEXT NOT NULL,
	playlist_ref INTEGER NOT NULL,
	tune_ref INTEGER NOT NULL,
	purpose TEXT NOT NULL DEFAULT 'practice',
	quality INTEGER,
	practiced TIMESTAMP,
	due TIMESTAMP,
	easiness REAL,
	difficulty REAL,
	interval INTEGER,
	step INTEGER,
	repetitions INTEGER,
	stability REAL,
	goal TEXT,
	technique TEXT,
	PRIMARY KEY (user_ref, playlist_ref, tune_ref, purpose)
);

-- Persisted daily queue snapshots
CREATE TABLE IF NOT EXISTS daily_practice_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_ref TEXT NOT NULL,
	playlist_ref INTEGER NOT NULL,
	mode TEXT NOT NULL DEFAULT 'per_day',
	queue_date TIMESTAMP NOT NULL,
	window_start_utc TIMESTAMP NOT NULL,
	window_end_utc TIMESTAMP NOT NULL,
	tune_ref INTEGER NOT NULL,
	bucket INTEGER NOT NULL,
	order_index INTEGER NOT NULL,
	snapshot_coalesced_ts TIMESTAMP NOT NULL,
	scheduled_snapshot TIMESTAMP,
	latest_review_date_snapshot TIMESTAMP,
	acceptable_delinquency_window_snapshot INTEGER NOT NULL,
	tz_offset_minutes_snapshot INTEGER,
	generated_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	exposures_required INTEGER,
	exposures_completed INTEGER NOT NULL DEFAULT 0,
	outcome TEXT,
	active INTEGER NOT NULL DEFAULT 1
);

-- Per-user capacity/delinquency preferences
CREATE TABLE IF NOT EXISTS prefs_scheduling_options (
	user_ref TEXT PRIMARY KEY,
	acceptable_delinquency_window INTEGER,
	min_reviews_per_day INTEGER,
	max_reviews_per_day INTEGER,
	days_per_week INTEGER,
	weekly_rules TEXT,
	exceptions TEXT
);

-- Per-user x algorithm scheduler configuration
CREATE TABLE IF NOT EXISTS prefs_spaced_repetition (
	user_ref TEXT NOT NULL,
	alg_type TEXT NOT NULL,
	fsrs_weights TEXT,
	request_retention REAL,
	maximum_interval INTEGER,
	learning_steps TEXT,
	relearning_steps TEXT,
	enable_fuzzing INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_ref, alg_type)
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_practice_record_tune_playlist ON practice_record(tune_ref, playlist_ref);
CREATE INDEX IF NOT EXISTS idx_playlist_tune_playlist ON playlist_tune(playlist_ref);
CREATE INDEX IF NOT EXISTS idx_daily_queue_active ON daily_practice_queue(user_ref, playlist_ref, window_start_utc, active);
			`,
		},
	}
}
