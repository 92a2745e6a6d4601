// Package feedback implements the Feedback Pipeline (spec §4.H): the
// stage/commit two-phase flow that turns a symbolic quality label into a
// scheduler invocation, enforces U1 (unique practiced timestamp), and
// applies partial-failure semantics across a batch of tunes.
//
// Grounded on the teacher's task_repository.go status-transition-plus-log
// idiom, generalized from a single task's state machine to a per-tune
// stage/commit/clear cycle backed by table_transient_data.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/prefs"
	"github.com/sboagy/tunetrees-go/internal/quality"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/schedwindow"
	"github.com/sboagy/tunetrees-go/internal/scheduler"
)

const purposePractice = "practice"

// ItemInput is one tune's feedback within a request.
type ItemInput struct {
	TuneRef   int64
	Label     string
	Goal      models.Goal      // optional; defaults to "recall" on commit
	Technique models.Technique // optional; resolved via the Scheduler Facade
}

// Request is one feedback submission spanning any number of tunes.
type Request struct {
	UserRef     string
	PlaylistRef int64
	SitDownUTC  time.Time
	Stage       bool
	Items       []ItemInput
}

// PerTuneError records a partial failure for one tune within a request;
// other tunes in the same request still commit (spec §4.H Errors).
type PerTuneError struct {
	TuneRef int64
	Message string
}

func (e PerTuneError) Error() string {
	return fmt.Sprintf("tune %d: %s", e.TuneRef, e.Message)
}

// Result is the outcome of one Submit call.
type Result struct {
	Committed []int64
	Staged    []int64
	Cleared   []int64
	Errors    []PerTuneError
}

// Pipeline wires the Quality Codec and Scheduler Facade to the tune,
// staging, and preferences repositories.
type Pipeline struct {
	tunes   repository.TuneRepository
	staging repository.StagingRepository
	prefs   *prefs.Store
}

// NewPipeline creates a new Feedback Pipeline.
func NewPipeline(tunes repository.TuneRepository, staging repository.StagingRepository, prefsStore *prefs.Store) *Pipeline {
	return &Pipeline{tunes: tunes, staging: staging, prefs: prefsStore}
}

// Submit runs either the staging or commit path across every item in req.
// An unknown feedback label on any item is fatal for the whole request
// (spec §4.H Errors); every other failure (missing PlaylistTune, scheduler
// error) is scoped to that one tune.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Result, error) {
	effectiveTechniques := make(map[int64]string, len(req.Items))
	resolvedQualities := make(map[int64]int, len(req.Items))

	userAlg, err := p.userAlgorithm(ctx, req.UserRef)
	if err != nil {
		return Result{}, err
	}

	for _, item := range req.Items {
		technique := scheduler.EffectiveTechnique(item.Technique, userAlg)
		q, err := quality.LabelToQuality(item.Label, string(technique))
		if err != nil {
			return Result{}, fmt.Errorf("feedback: %w", err)
		}
		effectiveTechniques[item.TuneRef] = string(technique)
		resolvedQualities[item.TuneRef] = q
	}

	fsrsCfg, err := p.prefs.FSRSConfigOrDefault(ctx, req.UserRef)
	if err != nil {
		return Result{}, fmt.Errorf("feedback: %w", err)
	}

	if req.Stage {
		return p.stage(ctx, req, effectiveTechniques, resolvedQualities, fsrsCfg), nil
	}
	return p.commit(ctx, req, effectiveTechniques, resolvedQualities, fsrsCfg), nil
}

// userAlgorithm resolves the user's algorithm preference: if they have a
// configured FSRS SRPrefs row, that signals an FSRS preference; otherwise
// SM-2 is the default (spec §4.D).
func (p *Pipeline) userAlgorithm(ctx context.Context, userRef string) (models.AlgorithmType, error) {
	srPrefs, found, err := p.prefs.SRPrefsOrDefault(ctx, userRef, models.AlgorithmFSRS)
	if err != nil {
		return models.AlgorithmSM2, err
	}
	if found {
		return srPrefs.AlgType, nil
	}
	return models.AlgorithmSM2, nil
}

func (p *Pipeline) stage(ctx context.Context, req Request, techniques map[int64]string, qualities map[int64]int, fsrsCfg scheduler.FSRSConfig) Result {
	var res Result

	for _, item := range req.Items {
		q := qualities[item.TuneRef]

		if quality.IsClearLabel(item.Label) || q == quality.NotSet {
			if err := p.clearStaged(ctx, req.UserRef, req.PlaylistRef, item.TuneRef); err != nil {
				res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
				continue
			}
			res.Cleared = append(res.Cleared, item.TuneRef)
			continue
		}

		joined, err := p.tunes.GetJoined(ctx, req.PlaylistRef, item.TuneRef)
		if err == sql.ErrNoRows {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, "no PlaylistTune for this (playlist, tune)"})
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
			continue
		}

		technique := models.Technique(techniques[item.TuneRef])
		practiced, err := p.uniquePracticedTimestamp(ctx, item.TuneRef, req.PlaylistRef, req.SitDownUTC)
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
			continue
		}

		result, err := p.review(joined, technique, q, req.SitDownUTC, practiced, fsrsCfg)
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
			continue
		}

		goal := item.Goal
		if goal == "" {
			goal = models.GoalRecall
		}

		staged := models.StagedFeedback{
			UserRef: req.UserRef, PlaylistRef: req.PlaylistRef, TuneRef: item.TuneRef, Purpose: purposePractice,
			Quality:     sql.NullInt64{Int64: int64(q), Valid: true},
			Practiced:   sql.NullTime{Time: practiced, Valid: true},
			Due:         sql.NullTime{Time: result.Due, Valid: true},
			Interval:    sql.NullInt64{Int64: int64(result.IntervalDays), Valid: true},
			Repetitions: sql.NullInt64{Int64: int64(result.Repetitions), Valid: true},
			Goal:        sql.NullString{String: string(goal), Valid: true},
			Technique:   sql.NullString{String: string(technique), Valid: true},
		}
		if result.Easiness != nil {
			staged.Easiness = sql.NullFloat64{Float64: *result.Easiness, Valid: true}
		}
		if result.Difficulty != nil {
			staged.Difficulty = sql.NullFloat64{Float64: *result.Difficulty, Valid: true}
		}
		if result.Stability != nil {
			staged.Stability = sql.NullFloat64{Float64: *result.Stability, Valid: true}
		}
		if result.Step != nil {
			staged.Step = sql.NullInt64{Int64: int64(*result.Step), Valid: true}
		}

		err = p.tunes.WithTransaction(ctx, func(tx *sql.Tx) error {
			return p.staging.Upsert(ctx, tx, staged)
		})
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
			continue
		}
		res.Staged = append(res.Staged, item.TuneRef)
	}

	return res
}

func (p *Pipeline) clearStaged(ctx context.Context, userRef string, playlistRef, tuneRef int64) error {
	return p.tunes.WithTransaction(ctx, func(tx *sql.Tx) error {
		return p.staging.Clear(ctx, tx, userRef, playlistRef, tuneRef, purposePractice)
	})
}

// CommitStaged promotes every staged row for (userRef, playlistRef) to an
// authoritative PracticeRecord without re-invoking the scheduler: stage
// already ran it and recorded the full result, so commit_staged only needs
// to replay those already-computed fields into history and clear the
// staged row, one tune per transaction so a single failure doesn't roll
// back the rest of the batch.
func (p *Pipeline) CommitStaged(ctx context.Context, userRef string, playlistRef int64) (Result, error) {
	staged, err := p.staging.ListForCommit(ctx, userRef, playlistRef, purposePractice)
	if err != nil {
		return Result{}, fmt.Errorf("feedback: %w", err)
	}

	var res Result
	for _, s := range staged {
		if !s.Quality.Valid || !s.Practiced.Valid || !s.Due.Valid {
			res.Errors = append(res.Errors, PerTuneError{s.TuneRef, "staged row missing required scheduler fields"})
			continue
		}

		goal := models.GoalRecall
		if s.Goal.Valid {
			goal = models.Goal(s.Goal.String)
		}
		technique := models.Technique(s.Technique.String)

		rec := models.PracticeRecord{
			PlaylistRef: playlistRef,
			TuneRef:     s.TuneRef,
			Practiced:   s.Practiced.Time,
			Quality:     int(s.Quality.Int64),
			ReviewDate:  s.Due.Time,
			Interval:    s.Interval,
			Repetitions: s.Repetitions,
			Easiness:    s.Easiness,
			Difficulty:  s.Difficulty,
			Stability:   s.Stability,
			Step:        s.Step,
			Goal:        goal,
			Technique:   technique,
		}

		err := p.tunes.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := p.tunes.AppendPracticeRecord(ctx, tx, rec); err != nil {
				return err
			}
			if err := p.tunes.UpdateScheduled(ctx, tx, playlistRef, s.TuneRef, schedwindow.FormatTimestamp(s.Due.Time)); err != nil {
				return err
			}
			return p.staging.Clear(ctx, tx, userRef, playlistRef, s.TuneRef, purposePractice)
		})
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{s.TuneRef, err.Error()})
			continue
		}
		res.Committed = append(res.Committed, s.TuneRef)
	}

	return res, nil
}

// commit runs the authoritative scheduler invocation for every item with a
// resolved quality, appends a PracticeRecord inside its own transaction
// (so one tune's failure never rolls back another's success), and clears
// that tune's staged row on success.
func (p *Pipeline) commit(ctx context.Context, req Request, techniques map[int64]string, qualities map[int64]int, fsrsCfg scheduler.FSRSConfig) Result {
	var res Result

	for _, item := range req.Items {
		q := qualities[item.TuneRef]

		if quality.IsClearLabel(item.Label) || q == quality.NotSet {
			if err := p.clearStaged(ctx, req.UserRef, req.PlaylistRef, item.TuneRef); err != nil {
				res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
				continue
			}
			res.Cleared = append(res.Cleared, item.TuneRef)
			continue
		}

		joined, err := p.tunes.GetJoined(ctx, req.PlaylistRef, item.TuneRef)
		if err == sql.ErrNoRows {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, "no PlaylistTune for this (playlist, tune)"})
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
			continue
		}

		technique := models.Technique(techniques[item.TuneRef])

		goal := item.Goal
		if goal == "" {
			goal = models.GoalRecall
		}

		err = p.tunes.WithTransaction(ctx, func(tx *sql.Tx) error {
			practiced, err := p.uniquePracticedTimestampTx(ctx, tx, item.TuneRef, req.PlaylistRef, req.SitDownUTC)
			if err != nil {
				return err
			}

			result, err := p.review(joined, technique, q, req.SitDownUTC, practiced, fsrsCfg)
			if err != nil {
				return fmt.Errorf("scheduler error: %w", err)
			}

			rec := models.PracticeRecord{
				PlaylistRef: req.PlaylistRef,
				TuneRef:     item.TuneRef,
				Practiced:   practiced,
				Quality:     q,
				ReviewDate:  result.Due,
				Interval:    sql.NullInt64{Int64: int64(result.IntervalDays), Valid: true},
				Repetitions: sql.NullInt64{Int64: int64(result.Repetitions), Valid: true},
				Goal:        goal,
				Technique:   technique,
			}
			if result.Easiness != nil {
				rec.Easiness = sql.NullFloat64{Float64: *result.Easiness, Valid: true}
			}
			if result.Difficulty != nil {
				rec.Difficulty = sql.NullFloat64{Float64: *result.Difficulty, Valid: true}
			}
			if result.Stability != nil {
				rec.Stability = sql.NullFloat64{Float64: *result.Stability, Valid: true}
			}
			if result.Step != nil {
				rec.Step = sql.NullInt64{Int64: int64(*result.Step), Valid: true}
			}

			if _, err := p.tunes.AppendPracticeRecord(ctx, tx, rec); err != nil {
				return err
			}
			if err := p.tunes.UpdateScheduled(ctx, tx, req.PlaylistRef, item.TuneRef, schedwindow.FormatTimestamp(result.Due)); err != nil {
				return err
			}
			return p.staging.Clear(ctx, tx, req.UserRef, req.PlaylistRef, item.TuneRef, purposePractice)
		})
		if err != nil {
			res.Errors = append(res.Errors, PerTuneError{item.TuneRef, err.Error()})
			continue
		}
		res.Committed = append(res.Committed, item.TuneRef)
	}

	return res
}

// review dispatches to the Scheduler Facade using joined as the prior.
func (p *Pipeline) review(joined models.JoinedTune, technique models.Technique, q int, sitDown, practiced time.Time, fsrsCfg scheduler.FSRSConfig) (scheduler.ReviewResult, error) {
	hasPrior := joined.LatestPracticed.Valid
	prior := scheduler.PriorReview{}
	label := ""
	if !hasPrior {
		label = "new"
	}
	if joined.LatestEasiness.Valid {
		prior.Easiness = joined.LatestEasiness.Float64
	}
	if joined.LatestInterval.Valid {
		prior.IntervalDays = int(joined.LatestInterval.Int64)
	}
	if joined.LatestRepetitions.Valid {
		prior.Repetitions = int(joined.LatestRepetitions.Int64)
	}
	if joined.LatestDifficulty.Valid {
		prior.Difficulty = joined.LatestDifficulty.Float64
	}
	if joined.LatestReviewDate.Valid {
		t := joined.LatestReviewDate.Time
		prior.LastReview = &t
	}

	return scheduler.Review(technique, q, label, hasPrior, prior, practiced, fsrsCfg, joined.ID)
}

// uniquePracticedTimestamp applies U1 read-only (staging preview path).
func (p *Pipeline) uniquePracticedTimestamp(ctx context.Context, tuneRef, playlistRef int64, desired time.Time) (time.Time, error) {
	ts := desired.UTC().Truncate(time.Second)
	for {
		exists, err := p.tunes.ExistsPracticedAtReadOnly(ctx, tuneRef, playlistRef, schedwindow.FormatTimestamp(ts))
		if err != nil {
			return time.Time{}, err
		}
		if !exists {
			return ts, nil
		}
		ts = ts.Add(time.Second)
	}
}

// uniquePracticedTimestampTx applies U1 (spec §4.H step 2) transactionally:
// starting from sit_down_utc truncated to seconds, add 1 second and retry
// while a PracticeRecord already occupies that (tune_ref, playlist_ref,
// practiced).
func (p *Pipeline) uniquePracticedTimestampTx(ctx context.Context, tx *sql.Tx, tuneRef, playlistRef int64, desired time.Time) (time.Time, error) {
	ts := desired.UTC().Truncate(time.Second)
	for {
		exists, err := p.tunes.ExistsPracticedAt(ctx, tx, tuneRef, playlistRef, schedwindow.FormatTimestamp(ts))
		if err != nil {
			return time.Time{}, err
		}
		if !exists {
			return ts, nil
		}
		ts = ts.Add(time.Second)
	}
}
