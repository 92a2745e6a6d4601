package queue

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/prefs"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/schedwindow"
	"github.com/sboagy/tunetrees-go/internal/storage"
)

// Store implements the Queue Store (spec §4.G): persistence, snapshotting,
// refill, and manual priority-insert on top of the Queue Generator.
//
// Grounded on the teacher's lock_repository.go transaction-per-mutation
// discipline, generalized to the daily_practice_queue snapshot table.
type Store struct {
	db    *storage.SQLiteStore
	tunes repository.TuneRepository
	prefs *prefs.Store
}

// NewStore creates a new Queue Store.
func NewStore(db *storage.SQLiteStore, tunes repository.TuneRepository, prefsStore *prefs.Store) *Store {
	return &Store{db: db, tunes: tunes, prefs: prefsStore}
}

const queueColumns = `id, user_ref, playlist_ref, mode, queue_date, window_start_utc, window_end_utc,
	tune_ref, bucket, order_index, snapshot_coalesced_ts, scheduled_snapshot, latest_review_date_snapshot,
	acceptable_delinquency_window_snapshot, tz_offset_minutes_snapshot, generated_at, completed_at,
	exposures_required, exposures_completed, outcome, active`

func scanQueueRow(row interface{ Scan(...interface{}) error }) (models.DailyPracticeQueue, error) {
	var q models.DailyPracticeQueue
	var mode string
	var bucket int
	var active int
	err := row.Scan(
		&q.ID, &q.UserRef, &q.PlaylistRef, &mode, &q.QueueDate, &q.WindowStartUTC, &q.WindowEndUTC,
		&q.TuneRef, &bucket, &q.OrderIndex, &q.SnapshotCoalescedTS, &q.ScheduledSnapshot, &q.LatestReviewDateSnapshot,
		&q.AcceptableDelinquencyWindowSnap, &q.TZOffsetMinutesSnapshot, &q.GeneratedAt, &q.CompletedAt,
		&q.ExposuresRequired, &q.ExposuresCompleted, &q.Outcome, &active,
	)
	q.Mode = models.QueueMode(mode)
	q.Bucket = models.Bucket(bucket)
	q.Active = active != 0
	return q, err
}

// FetchActive returns every active row for (userRef, playlistRef,
// windowStartUTC), sorted by order_index.
func (s *Store) FetchActive(ctx context.Context, userRef string, playlistRef int64, windowStartUTC time.Time) ([]models.DailyPracticeQueue, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+queueColumns+` FROM daily_practice_queue
		 WHERE user_ref = ? AND playlist_ref = ? AND window_start_utc = ? AND active = 1
		 ORDER BY order_index`,
		userRef, playlistRef, windowStartUTC)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active queue: %w", err)
	}
	defer rows.Close()

	var out []models.DailyPracticeQueue
	for rows.Next() {
		q, err := scanQueueRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) effectivePrefs(ctx context.Context, userRef string) (models.SchedulingPrefs, error) {
	return s.prefs.SchedulingPrefsOrDefault(ctx, userRef)
}

// GenerateOrGet is spec §4.G step 2: return the existing active snapshot
// for this window unless force_regen is set, in which case deactivate the
// old rows (never delete) and build a fresh one.
func (s *Store) GenerateOrGet(ctx context.Context, userRef string, playlistRef int64, sitDown time.Time, tzOffsetMinutes *int, forceRegen bool) ([]models.DailyPracticeQueue, error) {
	prefs, err := s.effectivePrefs(ctx, userRef)
	if err != nil {
		return nil, err
	}
	w := schedwindow.Compute(sitDown, tzOffsetMinutes, prefs.AcceptableDelinquencyWindow)

	existing, err := s.FetchActive(ctx, userRef, playlistRef, w.StartOfDayUTC)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !forceRegen {
		return existing, nil
	}

	var result []models.DailyPracticeQueue
	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if len(existing) > 0 && forceRegen {
			if _, err := tx.ExecContext(ctx,
				`UPDATE daily_practice_queue SET active = 0
				 WHERE user_ref = ? AND playlist_ref = ? AND window_start_utc = ? AND active = 1`,
				userRef, playlistRef, w.StartOfDayUTC); err != nil {
				return fmt.Errorf("failed to deactivate prior snapshot: %w", err)
			}
		}

		candidates, err := s.tunes.ListJoined(ctx, repository.TuneFilter{UserRef: userRef, PlaylistRef: playlistRef})
		if err != nil {
			return fmt.Errorf("failed to list candidates: %w", err)
		}

		selected := Generate(candidates, Params{
			Windows:          w,
			MinReviewsPerDay: prefs.MinReviewsPerDay,
			MaxReviewsPerDay: prefs.MaxReviewsPerDay,
			EnableBackfill:   false,
		})

		now := sitDown.UTC()
		var tzSnap sql.NullInt64
		if tzOffsetMinutes != nil {
			tzSnap = sql.NullInt64{Int64: int64(*tzOffsetMinutes), Valid: true}
		}

		for i, c := range selected {
			row := models.DailyPracticeQueue{
				UserRef:                         userRef,
				PlaylistRef:                     playlistRef,
				Mode:                            models.QueueModePerDay,
				QueueDate:                       w.StartOfDayUTC,
				WindowStartUTC:                  w.StartOfDayUTC,
				WindowEndUTC:                    w.EndOfDayUTC,
				TuneRef:                         c.Tune.ID,
				Bucket:                          c.Bucket,
				OrderIndex:                      i,
				SnapshotCoalescedTS:             c.Ts,
				ScheduledSnapshot:               c.Tune.Scheduled,
				LatestReviewDateSnapshot:        c.Tune.LatestReviewDate,
				AcceptableDelinquencyWindowSnap: prefs.AcceptableDelinquencyWindow,
				TZOffsetMinutesSnapshot:         tzSnap,
				GeneratedAt:                     now,
				Active:                          true,
			}
			id, err := insertQueueRow(ctx, tx, row)
			if err != nil {
				return err
			}
			row.ID = id
			result = append(result, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func insertQueueRow(ctx context.Context, tx *sql.Tx, row models.DailyPracticeQueue) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO daily_practice_queue
			(user_ref, playlist_ref, mode, queue_date, window_start_utc, window_end_utc,
			 tune_ref, bucket, order_index, snapshot_coalesced_ts, scheduled_snapshot,
			 latest_review_date_snapshot, acceptable_delinquency_window_snapshot,
			 tz_offset_minutes_snapshot, generated_at, completed_at, exposures_required,
			 exposures_completed, outcome, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.UserRef, row.PlaylistRef, string(row.Mode), row.QueueDate, row.WindowStartUTC, row.WindowEndUTC,
		row.TuneRef, int(row.Bucket), row.OrderIndex, row.SnapshotCoalescedTS, row.ScheduledSnapshot,
		row.LatestReviewDateSnapshot, row.AcceptableDelinquencyWindowSnap,
		row.TZOffsetMinutesSnapshot, row.GeneratedAt, row.CompletedAt, row.ExposuresRequired,
		row.ExposuresCompleted, row.Outcome, boolToInt(row.Active),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert queue row: %w", err)
	}
	return res.LastInsertId()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Reset deactivates every currently-active row for (userRef, playlistRef)
// across all windows, and is idempotent: a second call reports 0.
func (s *Store) Reset(ctx context.Context, userRef string, playlistRef int64) (int, error) {
	var deactivated int
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE daily_practice_queue SET active = 0 WHERE user_ref = ? AND playlist_ref = ? AND active = 1`,
			userRef, playlistRef)
		if err != nil {
			return fmt.Errorf("failed to reset queue: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deactivated = int(n)
		return nil
	})
	return deactivated, err
}

// Refill appends up to count Q3 (older backlog) candidates to the active
// snapshot for the window derived from sitDown. Capacity is not enforced
// (spec §9 open question (b), resolved: no).
func (s *Store) Refill(ctx context.Context, userRef string, playlistRef int64, sitDown time.Time, tzOffsetMinutes *int, count int) ([]models.DailyPracticeQueue, error) {
	prefs, err := s.effectivePrefs(ctx, userRef)
	if err != nil {
		return nil, err
	}
	w := schedwindow.Compute(sitDown, tzOffsetMinutes, prefs.AcceptableDelinquencyWindow)

	existing, err := s.FetchActive(ctx, userRef, playlistRef, w.StartOfDayUTC)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	present := make(map[int64]bool, len(existing))
	maxOrder := -1
	for _, row := range existing {
		present[row.TuneRef] = true
		if row.OrderIndex > maxOrder {
			maxOrder = row.OrderIndex
		}
	}

	candidates, err := s.tunes.ListJoined(ctx, repository.TuneFilter{UserRef: userRef, PlaylistRef: playlistRef})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	_, _, q3 := bucketize(candidates, w)
	sort.SliceStable(q3, func(i, j int) bool { return q3[i].Ts.After(q3[j].Ts) })

	var toAdd []Candidate
	for _, c := range q3 {
		if present[c.Tune.ID] {
			continue
		}
		toAdd = append(toAdd, c)
		if len(toAdd) == count {
			break
		}
	}

	var result []models.DailyPracticeQueue
	var tzSnap sql.NullInt64
	if tzOffsetMinutes != nil {
		tzSnap = sql.NullInt64{Int64: int64(*tzOffsetMinutes), Valid: true}
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		for i, c := range toAdd {
			row := models.DailyPracticeQueue{
				UserRef:                         userRef,
				PlaylistRef:                     playlistRef,
				Mode:                            models.QueueModePerDay,
				QueueDate:                       w.StartOfDayUTC,
				WindowStartUTC:                  w.StartOfDayUTC,
				WindowEndUTC:                    w.EndOfDayUTC,
				TuneRef:                         c.Tune.ID,
				Bucket:                          c.Bucket,
				OrderIndex:                      maxOrder + 1 + i,
				SnapshotCoalescedTS:             c.Ts,
				ScheduledSnapshot:               c.Tune.Scheduled,
				LatestReviewDateSnapshot:        c.Tune.LatestReviewDate,
				AcceptableDelinquencyWindowSnap: prefs.AcceptableDelinquencyWindow,
				TZOffsetMinutesSnapshot:         tzSnap,
				GeneratedAt:                     sitDown.UTC(),
				Active:                          true,
			}
			id, err := insertQueueRow(ctx, tx, row)
			if err != nil {
				return err
			}
			row.ID = id
			result = append(result, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddManualResult is the response shape of add_manual (spec §4.G step 6).
type AddManualResult struct {
	Added                 []int64
	SkippedExisting       []int64
	Missing               []int64
	DuplicateRequestIgnored []int64
}

// AddManual implements the manual priority-insert path. Incoming tune ids
// are deduplicated preserving order; tunes already present in the active
// snapshot are skipped; tunes absent from (or deleted in) the playlist are
// reported missing. Newly added tunes are always prepended at the front of
// the order, shifting every existing row up by len(added). Capacity is not
// enforced (spec §9 open question (c), resolved: yes, allow overflow).
func (s *Store) AddManual(ctx context.Context, userRef string, playlistRef int64, tuneIDs []int64, sitDown time.Time, tzOffsetMinutes *int) (AddManualResult, error) {
	var result AddManualResult

	seenInput := make(map[int64]bool)
	var deduped []int64
	for _, id := range tuneIDs {
		if seenInput[id] {
			result.DuplicateRequestIgnored = append(result.DuplicateRequestIgnored, id)
			continue
		}
		seenInput[id] = true
		deduped = append(deduped, id)
	}

	existing, err := s.GenerateOrGet(ctx, userRef, playlistRef, sitDown, tzOffsetMinutes, false)
	if err != nil {
		return result, err
	}

	present := make(map[int64]bool, len(existing))
	for _, row := range existing {
		present[row.TuneRef] = true
	}

	prefs, err := s.effectivePrefs(ctx, userRef)
	if err != nil {
		return result, err
	}
	w := schedwindow.Compute(sitDown, tzOffsetMinutes, prefs.AcceptableDelinquencyWindow)

	var toAdd []int64
	for _, id := range deduped {
		if present[id] {
			result.SkippedExisting = append(result.SkippedExisting, id)
			continue
		}
		pt, err := s.tunes.GetPlaylistTune(ctx, playlistRef, id)
		if err == sql.ErrNoRows || pt.Deleted {
			result.Missing = append(result.Missing, id)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to look up playlist tune %d: %w", id, err)
		}
		toAdd = append(toAdd, id)
	}

	if len(toAdd) == 0 {
		return result, nil
	}

	var tzSnap sql.NullInt64
	if tzOffsetMinutes != nil {
		tzSnap = sql.NullInt64{Int64: int64(*tzOffsetMinutes), Valid: true}
	}
	sitDownTS := sitDown.UTC()

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE daily_practice_queue SET order_index = order_index + ?
			 WHERE user_ref = ? AND playlist_ref = ? AND window_start_utc = ? AND active = 1`,
			len(toAdd), userRef, playlistRef, w.StartOfDayUTC); err != nil {
			return fmt.Errorf("failed to shift existing order: %w", err)
		}

		for i, id := range toAdd {
			if err := s.tunes.UpdateScheduled(ctx, tx, playlistRef, id, schedwindow.FormatTimestamp(sitDownTS)); err != nil {
				return err
			}
			row := models.DailyPracticeQueue{
				UserRef:                         userRef,
				PlaylistRef:                     playlistRef,
				Mode:                            models.QueueModePerDay,
				QueueDate:                       w.StartOfDayUTC,
				WindowStartUTC:                  w.StartOfDayUTC,
				WindowEndUTC:                    w.EndOfDayUTC,
				TuneRef:                         id,
				Bucket:                          ClassifyBucket(sitDownTS, w),
				OrderIndex:                      i,
				SnapshotCoalescedTS:             sitDownTS,
				ScheduledSnapshot:               sql.NullTime{Time: sitDownTS, Valid: true},
				AcceptableDelinquencyWindowSnap: prefs.AcceptableDelinquencyWindow,
				TZOffsetMinutesSnapshot:         tzSnap,
				GeneratedAt:                     sitDownTS,
				Active:                          true,
			}
			if _, err := insertQueueRow(ctx, tx, row); err != nil {
				return err
			}
			result.Added = append(result.Added, id)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
