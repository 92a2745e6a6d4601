package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/storage"
)

// PrefsRepository is the storage side of the Preferences Store (spec
// §4.I): per-user capacity/delinquency settings and per-(user, algorithm)
// scheduler configuration.
type PrefsRepository interface {
	GetSchedulingPrefs(ctx context.Context, userRef string) (models.SchedulingPrefs, bool, error)
	UpsertSchedulingPrefs(ctx context.Context, prefs models.SchedulingPrefs) error

	GetSRPrefs(ctx context.Context, userRef string, alg models.AlgorithmType) (models.SRPrefs, bool, error)
	UpsertSRPrefs(ctx context.Context, prefs models.SRPrefs) error
}

type prefsRepository struct {
	store *storage.SQLiteStore
}

// NewPrefsRepository creates a new preferences repository.
func NewPrefsRepository(store *storage.SQLiteStore) PrefsRepository {
	return &prefsRepository{store: store}
}

func (r *prefsRepository) GetSchedulingPrefs(ctx context.Context, userRef string) (models.SchedulingPrefs, bool, error) {
	row := r.store.QueryRow(ctx,
		`SELECT user_ref, acceptable_delinquency_window, min_reviews_per_day, max_reviews_per_day,
		        days_per_week, weekly_rules, exceptions
		 FROM prefs_scheduling_options WHERE user_ref = ?`, userRef)

	var p models.SchedulingPrefs
	var adw, minR, maxR, dpw sql.NullInt64
	var weeklyRules, exceptions sql.NullString
	err := row.Scan(&p.UserRef, &adw, &minR, &maxR, &dpw, &weeklyRules, &exceptions)
	if err == sql.ErrNoRows {
		return models.SchedulingPrefs{}, false, nil
	}
	if err != nil {
		return models.SchedulingPrefs{}, false, fmt.Errorf("failed to get scheduling prefs: %w", err)
	}
	p.AcceptableDelinquencyWindow = int(adw.Int64)
	p.MinReviewsPerDay = int(minR.Int64)
	p.MaxReviewsPerDay = int(maxR.Int64)
	p.DaysPerWeek = int(dpw.Int64)
	p.WeeklyRules = weeklyRules.String
	p.Exceptions = exceptions.String
	return p, true, nil
}

func (r *prefsRepository) UpsertSchedulingPrefs(ctx context.Context, prefs models.SchedulingPrefs) error {
	_, err := r.store.Exec(ctx,
		`INSERT INTO prefs_scheduling_options
			(user_ref, acceptable_delinquency_window, min_reviews_per_day, max_reviews_per_day,
			 days_per_week, weekly_rules, exceptions)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_ref) DO UPDATE SET
			acceptable_delinquency_window = excluded.acceptable_delinquency_window,
			min_reviews_per_day = excluded.min_reviews_per_day,
			max_reviews_per_day = excluded.max_reviews_per_day,
			days_per_week = excluded.days_per_week,
			weekly_rules = excluded.weekly_rules,
			exceptions = excluded.exceptions`,
		prefs.UserRef, prefs.AcceptableDelinquencyWindow, prefs.MinReviewsPerDay, prefs.MaxReviewsPerDay,
		prefs.DaysPerWeek, prefs.WeeklyRules, prefs.Exceptions,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert scheduling prefs: %w", err)
	}
	return nil
}

func (r *prefsRepository) GetSRPrefs(ctx context.Context, userRef string, alg models.AlgorithmType) (models.SRPrefs, bool, error) {
	row := r.store.QueryRow(ctx,
		`SELECT user_ref, alg_type, fsrs_weights, request_retention, maximum_interval,
		        learning_steps, relearning_steps, enable_fuzzing
		 FROM prefs_spaced_repetition WHERE user_ref = ? AND alg_type = ?`, userRef, string(alg))

	var p models.SRPrefs
	var weightsJSON, learningJSON, relearningJSON sql.NullString
	var retention sql.NullFloat64
	var maxInterval sql.NullInt64
	var fuzzing sql.NullBool
	err := row.Scan(&p.UserRef, (*string)(&p.AlgType), &weightsJSON, &retention, &maxInterval,
		&learningJSON, &relearningJSON, &fuzzing)
	if err == sql.ErrNoRows {
		return models.SRPrefs{}, false, nil
	}
	if err != nil {
		return models.SRPrefs{}, false, fmt.Errorf("failed to get sr prefs: %w", err)
	}

	if weightsJSON.Valid && weightsJSON.String != "" {
		if err := json.Unmarshal([]byte(weightsJSON.String), &p.FSRSWeights); err != nil {
			return models.SRPrefs{}, false, fmt.Errorf("failed to decode fsrs_weights: %w", err)
		}
	}
	p.RequestRetention = retention.Float64
	p.MaximumInterval = int(maxInterval.Int64)
	p.EnableFuzzing = fuzzing.Bool

	if learningJSON.Valid && learningJSON.String != "" {
		var msteps []int64
		if err := json.Unmarshal([]byte(learningJSON.String), &msteps); err != nil {
			return models.SRPrefs{}, false, fmt.Errorf("failed to decode learning_steps: %w", err)
		}
		for _, ms := range msteps {
			p.LearningSteps = append(p.LearningSteps, time.Duration(ms)*time.Minute)
		}
	}
	if relearningJSON.Valid && relearningJSON.String != "" {
		var msteps []int64
		if err := json.Unmarshal([]byte(relearningJSON.String), &msteps); err != nil {
			return models.SRPrefs{}, false, fmt.Errorf("failed to decode relearning_steps: %w", err)
		}
		for _, ms := range msteps {
			p.RelearningSteps = append(p.RelearningSteps, time.Duration(ms)*time.Minute)
		}
	}

	return p, true, nil
}

func (r *prefsRepository) UpsertSRPrefs(ctx context.Context, prefs models.SRPrefs) error {
	weightsJSON, err := json.Marshal(prefs.FSRSWeights)
	if err != nil {
		return fmt.Errorf("failed to encode fsrs_weights: %w", err)
	}

	learningMinutes := make([]int64, len(prefs.LearningSteps))
	for i, d := range prefs.LearningSteps {
		learningMinutes[i] = int64(d / time.Minute)
	}
	learningJSON, err := json.Marshal(learningMinutes)
	if err != nil {
		return fmt.Errorf("failed to encode learning_steps: %w", err)
	}

	relearningMinutes := make([]int64, len(prefs.RelearningSteps))
	for i, d := range prefs.RelearningSteps {
		relearningMinutes[i] = int64(d / time.Minute)
	}
	relearningJSON, err := json.Marshal(relearningMinutes)
	if err != nil {
		return fmt.Errorf("failed to encode relearning_steps: %w", err)
	}

	_, err = r.store.Exec(ctx,
		`INSERT INTO prefs_spaced_repetition
			(user_ref, alg_type, fsrs_weights, request_retention, maximum_interval,
			 learning_steps, relearning_steps, enable_fuzzing)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_ref, alg_type) DO UPDATE SET
			fsrs_weights = excluded.fsrs_weights,
			request_retention = excluded.request_retention,
			maximum_interval = excluded.maximum_interval,
			learning_steps = excluded.learning_steps,
			relearning_steps = excluded.relearning_steps,
			enable_fuzzing = excluded.enable_fuzzing`,
		prefs.UserRef, string(prefs.AlgType), string(weightsJSON), prefs.RequestRetention, prefs.MaximumInterval,
		string(learningJSON), string(relearningJSON), prefs.EnableFuzzing,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sr prefs: %w", err)
	}
	return nil
}
