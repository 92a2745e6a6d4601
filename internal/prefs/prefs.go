// Package prefs implements the Preferences Store (spec §4.I): a
// read-through cache over prefs_scheduling_options and
// prefs_spaced_repetition that fabricates a transient default when no row
// exists, without silently persisting it.
//
// Grounded on the teacher's cache.go usage pattern in its service layer
// (TTL-cached reads in front of a repository), generalized from the
// teacher's single moods-list/playlist cache keys to per-user preference
// keys.
package prefs

import (
	"context"
	"fmt"

	"github.com/sboagy/tunetrees-go/internal/cache"
	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/scheduler"
)

func schedulingKey(userRef string) string { return "scheduling:" + userRef }
func srKey(userRef string, alg models.AlgorithmType) string { return "sr:" + userRef + ":" + string(alg) }

// Store is the read-through preferences layer the Queue Store, Queue
// Generator, and Feedback Pipeline all read from.
type Store struct {
	repo  repository.PrefsRepository
	cache *cache.Cache
}

// New creates a new Preferences Store.
func New(repo repository.PrefsRepository, c *cache.Cache) *Store {
	return &Store{repo: repo, cache: c}
}

// Close stops the underlying cache's background eviction goroutine.
func (s *Store) Close() error {
	return s.cache.Close()
}

// SchedulingPrefsOrDefault returns the user's stored capacity/delinquency
// settings, or a fabricated (not persisted) set of documented defaults if
// none exist. A row that does exist is returned verbatim, including any
// explicit zero (min_reviews_per_day=0 and max_reviews_per_day=0 are both
// meaningful sentinels the Queue Generator interprets, not "unset").
func (s *Store) SchedulingPrefsOrDefault(ctx context.Context, userRef string) (models.SchedulingPrefs, error) {
	key := schedulingKey(userRef)
	if v, ok := s.cache.Get(key); ok {
		return v.(models.SchedulingPrefs), nil
	}

	p, found, err := s.repo.GetSchedulingPrefs(ctx, userRef)
	if err != nil {
		return models.SchedulingPrefs{}, fmt.Errorf("prefs: %w", err)
	}
	if !found {
		p = models.SchedulingPrefs{UserRef: userRef}.WithDefaults()
	}
	s.cache.Set(key, p)
	return p, nil
}

// UpsertSchedulingPrefs writes through to storage and invalidates the
// cached entry so the next read reflects it.
func (s *Store) UpsertSchedulingPrefs(ctx context.Context, p models.SchedulingPrefs) error {
	if err := s.repo.UpsertSchedulingPrefs(ctx, p); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	s.cache.Invalidate(schedulingKey(p.UserRef))
	return nil
}

// SRPrefsOrDefault returns the user's stored scheduler configuration for
// alg, or a fabricated (not persisted) zero-value set if none exists.
func (s *Store) SRPrefsOrDefault(ctx context.Context, userRef string, alg models.AlgorithmType) (models.SRPrefs, bool, error) {
	key := srKey(userRef, alg)
	if v, ok := s.cache.Get(key); ok {
		cached := v.(cachedSRPrefs)
		return cached.prefs, cached.found, nil
	}

	p, found, err := s.repo.GetSRPrefs(ctx, userRef, alg)
	if err != nil {
		return models.SRPrefs{}, false, fmt.Errorf("prefs: %w", err)
	}
	if !found {
		p = models.SRPrefs{UserRef: userRef, AlgType: alg}
	}
	s.cache.Set(key, cachedSRPrefs{prefs: p, found: found})
	return p, found, nil
}

type cachedSRPrefs struct {
	prefs models.SRPrefs
	found bool
}

// UpsertSRPrefs writes through to storage and invalidates the cached entry.
func (s *Store) UpsertSRPrefs(ctx context.Context, p models.SRPrefs) error {
	if err := s.repo.UpsertSRPrefs(ctx, p); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	s.cache.Invalidate(srKey(p.UserRef, p.AlgType))
	return nil
}

// FSRSConfigOrDefault resolves a user's FSRS SRPrefs row into a
// scheduler.FSRSConfig, falling back to the published defaults for any
// field the row leaves at its zero value (spec §6.2: "Missing record ⇒
// defaults ... FSRS uses the published default parameters").
func (s *Store) FSRSConfigOrDefault(ctx context.Context, userRef string) (scheduler.FSRSConfig, error) {
	p, found, err := s.SRPrefsOrDefault(ctx, userRef, models.AlgorithmFSRS)
	if err != nil {
		return scheduler.FSRSConfig{}, err
	}
	cfg := scheduler.DefaultFSRSConfig()
	if !found {
		return cfg, nil
	}
	if len(p.FSRSWeights) == 17 {
		copy(cfg.Weights[:], p.FSRSWeights)
	}
	if p.RequestRetention > 0 {
		cfg.DesiredRetention = p.RequestRetention
	}
	if p.MaximumInterval > 0 {
		cfg.MaximumInterval = p.MaximumInterval
	}
	if len(p.LearningSteps) > 0 {
		cfg.LearningSteps = p.LearningSteps
	}
	if len(p.RelearningSteps) > 0 {
		cfg.RelearningSteps = p.RelearningSteps
	}
	cfg.EnableFuzzing = p.EnableFuzzing
	return cfg, nil
}
