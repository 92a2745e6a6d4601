package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/storage"
)

// StagingRepository is the storage side of table_transient_data: at most
// one ephemeral row per (user, playlist, tune, purpose), overlaid onto the
// join view until committed or cleared (spec §4.H).
type StagingRepository interface {
	Get(ctx context.Context, userRef string, playlistRef, tuneRef int64, purpose string) (models.StagedFeedback, bool, error)
	Upsert(ctx context.Context, tx *sql.Tx, s models.StagedFeedback) error
	Clear(ctx context.Context, tx *sql.Tx, userRef string, playlistRef, tuneRef int64, purpose string) error
	ListForCommit(ctx context.Context, userRef string, playlistRef int64, purpose string) ([]models.StagedFeedback, error)
}

type stagingRepository struct {
	store *storage.SQLiteStore
}

// NewStagingRepository creates a new staging repository.
func NewStagingRepository(store *storage.SQLiteStore) StagingRepository {
	return &stagingRepository{store: store}
}

const stagingColumns = `user_ref, playlist_ref, tune_ref, purpose, quality, practiced, due,
	easiness, difficulty, interval, step, repetitions, stability, goal, technique`

func scanStaged(row interface{ Scan(...interface{}) error }) (models.StagedFeedback, error) {
	var s models.StagedFeedback
	err := row.Scan(
		&s.UserRef, &s.PlaylistRef, &s.TuneRef, &s.Purpose, &s.Quality, &s.Practiced, &s.Due,
		&s.Easiness, &s.Difficulty, &s.Interval, &s.Step, &s.Repetitions, &s.Stability, &s.Goal, &s.Technique,
	)
	return s, err
}

func (r *stagingRepository) Get(ctx context.Context, userRef string, playlistRef, tuneRef int64, purpose string) (models.StagedFeedback, bool, error) {
	row := r.store.QueryRow(ctx,
		`SELECT `+stagingColumns+` FROM table_transient_data
		 WHERE user_ref = ? AND playlist_ref = ? AND tune_ref = ? AND purpose = ?`,
		userRef, playlistRef, tuneRef, purpose)

	s, err := scanStaged(row)
	if err == sql.ErrNoRows {
		return models.StagedFeedback{}, false, nil
	}
	if err != nil {
		return models.StagedFeedback{}, false, fmt.Errorf("failed to get staged feedback: %w", err)
	}
	return s, true, nil
}

func (r *stagingRepository) Upsert(ctx context.Context, tx *sql.Tx, s models.StagedFeedback) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO table_transient_data
			(user_ref, playlist_ref, tune_ref, purpose, quality, practiced, due,
			 easiness, difficulty, interval, step, repetitions, stability, goal, technique)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_ref, playlist_ref, tune_ref, purpose) DO UPDATE SET
			quality = excluded.quality,
			practiced = excluded.practiced,
			due = excluded.due,
			easiness = excluded.easiness,
			difficulty = excluded.difficulty,
			interval = excluded.interval,
			step = excluded.step,
			repetitions = excluded.repetitions,
			stability = excluded.stability,
			goal = excluded.goal,
			technique = excluded.technique`,
		s.UserRef, s.PlaylistRef, s.TuneRef, s.Purpose, s.Quality, s.Practiced, s.Due,
		s.Easiness, s.Difficulty, s.Interval, s.Step, s.Repetitions, s.Stability, s.Goal, s.Technique,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert staged feedback: %w", err)
	}
	return nil
}

func (r *stagingRepository) Clear(ctx context.Context, tx *sql.Tx, userRef string, playlistRef, tuneRef int64, purpose string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE table_transient_data SET
			quality = NULL, practiced = NULL, due = NULL, easiness = NULL, difficulty = NULL,
			interval = NULL, step = NULL, repetitions = NULL, stability = NULL, goal = NULL, technique = NULL
		 WHERE user_ref = ? AND playlist_ref = ? AND tune_ref = ? AND purpose = ?`,
		userRef, playlistRef, tuneRef, purpose)
	if err != nil {
		return fmt.Errorf("failed to clear staged feedback: %w", err)
	}
	return nil
}

func (r *stagingRepository) ListForCommit(ctx context.Context, userRef string, playlistRef int64, purpose string) ([]models.StagedFeedback, error) {
	rows, err := r.store.Query(ctx,
		`SELECT `+stagingColumns+` FROM table_transient_data
		 WHERE user_ref = ? AND playlist_ref = ? AND purpose = ? AND quality IS NOT NULL`,
		userRef, playlistRef, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged feedback: %w", err)
	}
	defer rows.Close()

	var out []models.StagedFeedback
	for rows.Next() {
		s, err := scanStaged(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staged feedback: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
