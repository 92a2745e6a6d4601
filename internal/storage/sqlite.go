package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Config holds SQLite configuration
type Config struct {
	DatabasePath    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	LogQueries      bool
}

// SQLiteStore manages SQLite database connections with pooling. WAL mode
// plus a single-writer serialization mutex keeps the practice-scheduling
// writer discipline from spec §5: reads proceed concurrently, writes take
// turns.
type SQLiteStore struct {
	db     *sql.DB
	config Config
	mu     sync.RWMutex
}

// NewSQLiteStore creates a new SQLite store with connection pooling
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 25
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = time.Hour
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 30 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=%d",
		config.DatabasePath,
		int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		config: config,
	}, nil
}

// Initialize creates the practice-scheduling schema: the catalog and
// preference tables, the append-only practice_record table, the staging
// table, the daily queue snapshot table, and the two read-optimized join
// views named in spec §6.3.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS tune (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			type TEXT,
			structure TEXT,
			mode TEXT,
			incipit TEXT,
			genre TEXT,
			deleted INTEGER NOT NULL DEFAULT 0,
			private_for TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS playlist (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_ref TEXT NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS playlist_tune (
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
			PRIMARY KEY (playlist_ref, tune_ref),
			FOREIGN KEY (playlist_ref) REFERENCES playlist(id),
			FOREIGN KEY (tune_ref) REFERENCES tune(id)
		)`,

		`CREATE TABLE IF NOT EXISTS practice_record (
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
		)`,

		`CREATE TABLE IF NOT EXISTS table_transient_data (
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
		)`,

		`CREATE TABLE IF NOT EXISTS daily_practice_queue (
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
		)`,

		`CREATE TABLE IF NOT EXISTS prefs_scheduling_options (
			user_ref TEXT PRIMARY KEY,
			acceptable_delinquency_window INTEGER,
			min_reviews_per_day INTEGER,
			max_reviews_per_day INTEGER,
			days_per_week INTEGER,
			weekly_rules TEXT,
			exceptions TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS prefs_spaced_repetition (
			user_ref TEXT NOT NULL,
			alg_type TEXT NOT NULL,
			fsrs_weights TEXT,
			request_retention REAL,
			maximum_interval INTEGER,
			learning_steps TEXT,
			relearning_steps TEXT,
			enable_fuzzing INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_ref, alg_type)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_practice_record_tune_playlist ON practice_record(tune_ref, playlist_ref)`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_tune_playlist ON playlist_tune(playlist_ref)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_queue_active ON daily_practice_queue(user_ref, playlist_ref, window_start_utc, active)`,

		// practice_list_joined: one row per (playlist_tune), overlaid with
		// the latest practice_record by max(id) (spec §6.3, §4.J).
		`CREATE VIEW IF NOT EXISTS practice_list_joined AS
		SELECT
			t.id AS id,
			t.title AS title,
			t.type AS type,
			t.structure AS structure,
			t.mode AS mode,
			t.incipit AS incipit,
			t.genre AS genre,
			t.deleted AS deleted,
			t.private_for AS private_for,
			pt.playlist_ref AS playlist_ref,
			p.user_ref AS user_ref,
			p.deleted AS playlist_deleted,
			pt.learned AS learned,
			pt.scheduled AS scheduled,
			pr.practiced AS latest_practiced,
			pr.quality AS latest_quality,
			pr.easiness AS latest_easiness,
			pr.difficulty AS latest_difficulty,
			pr.interval AS latest_interval,
			pr.step AS latest_step,
			pr.repetitions AS latest_repetitions,
			pr.review_date AS latest_review_date,
			pr.goal AS latest_goal,
			pr.technique AS latest_technique,
			pt.tags AS tags,
			pt.notes AS notes,
			pt.favorite_url AS favorite_url,
			pt.has_override AS has_override,
			pt.recall_eval AS recall_eval,
			0 AS has_staged
		FROM playlist_tune pt
		JOIN tune t ON t.id = pt.tune_ref
		JOIN playlist p ON p.id = pt.playlist_ref
		LEFT JOIN practice_record pr ON pr.id = (
			SELECT MAX(id) FROM practice_record
			WHERE tune_ref = pt.tune_ref AND playlist_ref = pt.playlist_ref
		)`,

		// practice_list_staged: practice_list_joined with the active
		// table_transient_data row (if any) overlaying latest_* and
		// flipping has_staged on.
		`CREATE VIEW IF NOT EXISTS practice_list_staged AS
		SELECT
			j.id, j.title, j.type, j.structure, j.mode, j.incipit, j.genre,
			j.deleted, j.private_for, j.playlist_ref, j.user_ref, j.playlist_deleted,
			j.learned, j.scheduled,
			COALESCE(ttd.practiced, j.latest_practiced) AS latest_practiced,
			COALESCE(ttd.quality, j.latest_quality) AS latest_quality,
			COALESCE(ttd.easiness, j.latest_easiness) AS latest_easiness,
			COALESCE(ttd.difficulty, j.latest_difficulty) AS latest_difficulty,
			COALESCE(ttd.interval, j.latest_interval) AS latest_interval,
			COALESCE(ttd.step, j.latest_step) AS latest_step,
			COALESCE(ttd.repetitions, j.latest_repetitions) AS latest_repetitions,
			COALESCE(ttd.due, j.latest_review_date) AS latest_review_date,
			COALESCE(ttd.goal, j.latest_goal) AS latest_goal,
			COALESCE(ttd.technique, j.latest_technique) AS latest_technique,
			j.tags, j.notes, j.favorite_url, j.has_override, j.recall_eval,
			CASE WHEN ttd.quality IS NULL THEN 0 ELSE 1 END AS has_staged
		FROM practice_list_joined j
		LEFT JOIN table_transient_data ttd
			ON ttd.tune_ref = j.id
			AND ttd.playlist_ref = j.playlist_ref
			AND ttd.user_ref = j.user_ref
			AND ttd.purpose = 'practice'`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Query executes a SELECT query and returns rows
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config.LogQueries {
		fmt.Printf("[QUERY] %s (args: %v)\n", query, args)
	}

	return s.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a SELECT query and returns a single row
func (s *SQLiteStore) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config.LogQueries {
		fmt.Printf("[QUERY] %s (args: %v)\n", query, args)
	}

	return s.db.QueryRowContext(ctx, query, args...)
}

// Exec executes an INSERT/UPDATE/DELETE query
func (s *SQLiteStore) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config.LogQueries {
		fmt.Printf("[EXEC] %s (args: %v)\n", query, args)
	}

	return s.db.ExecContext(ctx, query, args...)
}

// Transaction executes a function within a database transaction. The
// store-wide write mutex is held for the duration, implementing the
// per-request single-writer discipline spec §5 asks for without requiring
// SELECT...FOR UPDATE support from the driver.
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("transaction failed with error %v and rollback failed with %v", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection pool
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health checks the health of the database connection
func (s *SQLiteStore) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.PingContext(ctx)
}

// Stats returns connection pool statistics
func (s *SQLiteStore) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Stats()
}
