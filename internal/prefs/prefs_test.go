package prefs

import (
	"context"
	"testing"

	"github.com/sboagy/tunetrees-go/internal/cache"
	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/testutil"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.NewTestStore(t)
	repo := repository.NewPrefsRepository(db)
	s := New(repo, cache.New())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSchedulingPrefsOrDefault_FabricatesWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	p, err := s.SchedulingPrefsOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("SchedulingPrefsOrDefault: %v", err)
	}
	if p.MinReviewsPerDay != models.DefaultMinReviewsPerDay || p.MaxReviewsPerDay != models.DefaultMaxReviewsPerDay {
		t.Errorf("fabricated prefs = %+v, want documented defaults", p)
	}

	// The fabricated default must not have been persisted.
	_, found, err := s.repo.GetSchedulingPrefs(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSchedulingPrefs: %v", err)
	}
	if found {
		t.Error("fabricated default should not be silently persisted")
	}
}

func TestSchedulingPrefsOrDefault_PreservesExplicitZero(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	stored := models.SchedulingPrefs{
		UserRef: "user-1", AcceptableDelinquencyWindow: 7,
		MinReviewsPerDay: 0, MaxReviewsPerDay: 0, DaysPerWeek: 7,
	}
	if err := s.UpsertSchedulingPrefs(ctx, stored); err != nil {
		t.Fatalf("UpsertSchedulingPrefs: %v", err)
	}

	p, err := s.SchedulingPrefsOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("SchedulingPrefsOrDefault: %v", err)
	}
	if p.MinReviewsPerDay != 0 || p.MaxReviewsPerDay != 0 {
		t.Errorf("explicit zero min/max must survive the read-through, got %+v", p)
	}
}

func TestSchedulingPrefsOrDefault_CachesReads(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	stored := models.SchedulingPrefs{UserRef: "user-1", AcceptableDelinquencyWindow: 14, MinReviewsPerDay: 1, MaxReviewsPerDay: 2, DaysPerWeek: 5}
	if err := s.UpsertSchedulingPrefs(ctx, stored); err != nil {
		t.Fatalf("UpsertSchedulingPrefs: %v", err)
	}

	first, err := s.SchedulingPrefsOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}

	// Mutate storage directly, bypassing the cache; the cached read should
	// still see the stale (pre-mutation) value until invalidated.
	if err := s.repo.UpsertSchedulingPrefs(ctx, models.SchedulingPrefs{UserRef: "user-1", AcceptableDelinquencyWindow: 99, MinReviewsPerDay: 1, MaxReviewsPerDay: 2, DaysPerWeek: 5}); err != nil {
		t.Fatalf("direct upsert: %v", err)
	}

	cached, err := s.SchedulingPrefsOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if cached.AcceptableDelinquencyWindow != first.AcceptableDelinquencyWindow {
		t.Errorf("expected cached read to ignore the bypassed write, got window=%d", cached.AcceptableDelinquencyWindow)
	}

	// Going through UpsertSchedulingPrefs invalidates the cache.
	if err := s.UpsertSchedulingPrefs(ctx, models.SchedulingPrefs{UserRef: "user-1", AcceptableDelinquencyWindow: 21, MinReviewsPerDay: 1, MaxReviewsPerDay: 2, DaysPerWeek: 5}); err != nil {
		t.Fatalf("UpsertSchedulingPrefs: %v", err)
	}
	fresh, err := s.SchedulingPrefsOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if fresh.AcceptableDelinquencyWindow != 21 {
		t.Errorf("expected invalidation to surface the new write, got window=%d", fresh.AcceptableDelinquencyWindow)
	}
}

func TestFSRSConfigOrDefault_FallsBackToPublishedDefaults(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	cfg, err := s.FSRSConfigOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("FSRSConfigOrDefault: %v", err)
	}
	if cfg.DesiredRetention != 0.9 {
		t.Errorf("DesiredRetention = %v, want published default 0.9", cfg.DesiredRetention)
	}
}

func TestFSRSConfigOrDefault_UsesStoredWeights(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	weights := make([]float64, 17)
	for i := range weights {
		weights[i] = float64(i) + 0.5
	}
	if err := s.UpsertSRPrefs(ctx, models.SRPrefs{
		UserRef: "user-1", AlgType: models.AlgorithmFSRS,
		FSRSWeights: weights, RequestRetention: 0.85, MaximumInterval: 365,
	}); err != nil {
		t.Fatalf("UpsertSRPrefs: %v", err)
	}

	cfg, err := s.FSRSConfigOrDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("FSRSConfigOrDefault: %v", err)
	}
	if cfg.DesiredRetention != 0.85 {
		t.Errorf("DesiredRetention = %v, want 0.85", cfg.DesiredRetention)
	}
	if cfg.MaximumInterval != 365 {
		t.Errorf("MaximumInterval = %v, want 365", cfg.MaximumInterval)
	}
	for i, w := range cfg.Weights {
		if w != weights[i] {
			t.Errorf("Weights[%d] = %v, want %v", i, w, weights[i])
			break
		}
	}
}
