// Package repository defines data access interfaces and implementations
// for the practice-scheduling catalog, the staged/committed history join
// view, and the write paths that mutate it (spec §4.J Tune/History
// Repository).
//
// Grounded on the teacher's repository.go Manager/interface split and
// task_repository.go's query-building idiom, generalized from a single
// flat `tasks` table to the practice_list_joined / practice_list_staged
// overlay views described in spec §6.3.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/storage"
)

// TuneFilter narrows a ListJoined query. Zero values are "no filter"
// except UserRef and PlaylistRef, which are always required.
type TuneFilter struct {
	UserRef          string
	PlaylistRef      int64
	IncludeDeleted   bool
	IncludePlaylistDeleted bool
}

// TuneRepository exposes the staged join view plus the narrow write
// surface the Feedback Pipeline and Queue Store need.
type TuneRepository interface {
	// ListJoined returns every practice_list_staged row visible for the
	// given filter, used by the Queue Generator's candidate universe.
	ListJoined(ctx context.Context, filter TuneFilter) ([]models.JoinedTune, error)

	// GetJoined returns a single row by (playlist_ref, tune_ref), or
	// sql.ErrNoRows if no PlaylistTune exists for that pair.
	GetJoined(ctx context.Context, playlistRef, tuneRef int64) (models.JoinedTune, error)

	// GetPlaylistTune returns the raw membership row (not the overlay
	// view), used to validate a tune belongs to a playlist before
	// accepting a manual-add or feedback submit.
	GetPlaylistTune(ctx context.Context, playlistRef, tuneRef int64) (models.PlaylistTune, error)

	// GetPlaylist resolves a playlist_ref to its owning user_ref.
	GetPlaylist(ctx context.Context, playlistRef int64) (models.Playlist, error)

	// AppendPracticeRecord inserts one append-only history row within tx.
	AppendPracticeRecord(ctx context.Context, tx *sql.Tx, rec models.PracticeRecord) (int64, error)

	// ExistsPracticedAt reports whether a PracticeRecord already occupies
	// (tune_ref, playlist_ref, practiced), for U1 enforcement.
	ExistsPracticedAt(ctx context.Context, tx *sql.Tx, tuneRef, playlistRef int64, practiced string) (bool, error)

	// ExistsPracticedAtReadOnly is the same check outside any transaction,
	// used by the staging path's preview computation where a dirty read is
	// acceptable (the real adjustment is redone transactionally on commit).
	ExistsPracticedAtReadOnly(ctx context.Context, tuneRef, playlistRef int64, practiced string) (bool, error)

	// UpdateScheduled sets PlaylistTune.scheduled within tx.
	UpdateScheduled(ctx context.Context, tx *sql.Tx, playlistRef, tuneRef int64, scheduled string) error

	// WithTransaction runs fn within a single database transaction.
	WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type tuneRepository struct {
	store *storage.SQLiteStore
}

// NewTuneRepository creates a new tune/history repository.
func NewTuneRepository(store *storage.SQLiteStore) TuneRepository {
	return &tuneRepository{store: store}
}

const joinedColumns = `
	id, title, type, structure, mode, incipit, genre, deleted, private_for,
	playlist_ref, user_ref, playlist_deleted, learned, scheduled,
	latest_practiced, latest_quality, latest_easiness, latest_difficulty,
	latest_interval, latest_step, latest_repetitions, latest_review_date,
	latest_goal, latest_technique, tags, notes, favorite_url, has_override,
	recall_eval, has_staged`

func scanJoined(row interface{ Scan(...interface{}) error }) (models.JoinedTune, error) {
	var j models.JoinedTune
	err := row.Scan(
		&j.ID, &j.Title, &j.Type, &j.Structure, &j.Mode, &j.Incipit, &j.Genre, &j.Deleted, &j.PrivateFor,
		&j.PlaylistRef, &j.UserRef, &j.PlaylistDeleted, &j.Learned, &j.Scheduled,
		&j.LatestPracticed, &j.LatestQuality, &j.LatestEasiness, &j.LatestDifficulty,
		&j.LatestInterval, &j.LatestStep, &j.LatestRepetitions, &j.LatestReviewDate,
		&j.LatestGoal, &j.LatestTechnique, &j.Tags, &j.Notes, &j.FavoriteURL, &j.HasOverride,
		&j.RecallEval, &j.HasStaged,
	)
	return j, err
}

func (r *tuneRepository) ListJoined(ctx context.Context, filter TuneFilter) ([]models.JoinedTune, error) {
	query := `SELECT ` + joinedColumns + ` FROM practice_list_staged WHERE user_ref = ? AND playlist_ref = ?`
	args := []interface{}{filter.UserRef, filter.PlaylistRef}

	if !filter.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	if !filter.IncludePlaylistDeleted {
		query += ` AND playlist_deleted = 0`
	}

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined tunes: %w", err)
	}
	defer rows.Close()

	var out []models.JoinedTune
	for rows.Next() {
		j, err := scanJoined(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan joined tune: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *tuneRepository) GetJoined(ctx context.Context, playlistRef, tuneRef int64) (models.JoinedTune, error) {
	row := r.store.QueryRow(ctx,
		`SELECT `+joinedColumns+` FROM practice_list_staged WHERE playlist_ref = ? AND id = ?`,
		playlistRef, tuneRef)
	j, err := scanJoined(row)
	if err != nil {
		return models.JoinedTune{}, err
	}
	return j, nil
}

func (r *tuneRepository) GetPlaylistTune(ctx context.Context, playlistRef, tuneRef int64) (models.PlaylistTune, error) {
	row := r.store.QueryRow(ctx,
		`SELECT playlist_ref, tune_ref, learned, deleted, scheduled, goal, technique
		 FROM playlist_tune WHERE playlist_ref = ? AND tune_ref = ?`,
		playlistRef, tuneRef)

	var pt models.PlaylistTune
	err := row.Scan(&pt.PlaylistRef, &pt.TuneRef, &pt.Learned, &pt.Deleted, &pt.Scheduled, &pt.Goal, &pt.Technique)
	if err != nil {
		return models.PlaylistTune{}, err
	}
	return pt, nil
}

func (r *tuneRepository) GetPlaylist(ctx context.Context, playlistRef int64) (models.Playlist, error) {
	row := r.store.QueryRow(ctx, `SELECT id, user_ref, deleted FROM playlist WHERE id = ?`, playlistRef)
	var p models.Playlist
	if err := row.Scan(&p.ID, &p.UserRef, &p.Deleted); err != nil {
		return models.Playlist{}, err
	}
	return p, nil
}

func (r *tuneRepository) AppendPracticeRecord(ctx context.Context, tx *sql.Tx, rec models.PracticeRecord) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO practice_record
			(playlist_ref, tune_ref, practiced, quality, easiness, interval, repetitions,
			 review_date, stability, difficulty, step, lapses, state, goal, technique)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PlaylistRef, rec.TuneRef, rec.Practiced, rec.Quality, rec.Easiness, rec.Interval, rec.Repetitions,
		rec.ReviewDate, rec.Stability, rec.Difficulty, rec.Step, rec.Lapses, rec.State, string(rec.Goal), string(rec.Technique),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append practice record: %w", err)
	}
	return result.LastInsertId()
}

func (r *tuneRepository) ExistsPracticedAt(ctx context.Context, tx *sql.Tx, tuneRef, playlistRef int64, practiced string) (bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT 1 FROM practice_record WHERE tune_ref = ? AND playlist_ref = ? AND practiced = ?`,
		tuneRef, playlistRef, practiced)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check practiced-timestamp uniqueness: %w", err)
	}
	return true, nil
}

func (r *tuneRepository) ExistsPracticedAtReadOnly(ctx context.Context, tuneRef, playlistRef int64, practiced string) (bool, error) {
	row := r.store.QueryRow(ctx,
		`SELECT 1 FROM practice_record WHERE tune_ref = ? AND playlist_ref = ? AND practiced = ?`,
		tuneRef, playlistRef, practiced)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check practiced-timestamp uniqueness: %w", err)
	}
	return true, nil
}

func (r *tuneRepository) UpdateScheduled(ctx context.Context, tx *sql.Tx, playlistRef, tuneRef int64, scheduled string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE playlist_tune SET scheduled = ?, has_override = 1 WHERE playlist_ref = ? AND tune_ref = ?`,
		scheduled, playlistRef, tuneRef)
	if err != nil {
		return fmt.Errorf("failed to update scheduled: %w", err)
	}
	return nil
}

func (r *tuneRepository) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return r.store.Transaction(ctx, fn)
}
