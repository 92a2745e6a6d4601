package queue

import (
	"database/sql"
	"testing"
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/schedwindow"
)

func tuneWithTS(id int64, ts time.Time) models.JoinedTune {
	return models.JoinedTune{
		ID:               id,
		LatestReviewDate: sql.NullTime{Time: ts, Valid: true},
	}
}

// TestGenerate_CapacityScenario is spec scenario 3: min=3, max=5,
// delinquency=7. 2 due today, 1 recently lapsed, 10 older; Q3 opt-out.
func TestGenerate_CapacityScenario(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 7)

	var candidates []models.JoinedTune
	candidates = append(candidates,
		tuneWithTS(1, w.StartOfDayUTC.Add(1*time.Hour)),
		tuneWithTS(2, w.StartOfDayUTC.Add(2*time.Hour)),
		tuneWithTS(3, w.StartOfDayUTC.Add(-2*24*time.Hour)),
	)
	for i := int64(10); i < 20; i++ {
		candidates = append(candidates, tuneWithTS(i, w.WindowFloorUTC.Add(-24*time.Hour)))
	}

	out := Generate(candidates, Params{
		Windows:          w,
		MinReviewsPerDay: 3,
		MaxReviewsPerDay: 5,
		EnableBackfill:   false,
	})

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].Bucket != models.BucketDueToday || out[1].Bucket != models.BucketDueToday {
		t.Errorf("first two rows should be bucket 1, got %v %v", out[0].Bucket, out[1].Bucket)
	}
	if out[0].Tune.ID != 1 || out[1].Tune.ID != 2 {
		t.Errorf("bucket 1 rows should be ordered ascending by ts, got %d then %d", out[0].Tune.ID, out[1].Tune.ID)
	}
	if out[2].Bucket != models.BucketRecentlyLapsed || out[2].Tune.ID != 3 {
		t.Errorf("third row should be the recently-lapsed tune, got id=%d bucket=%v", out[2].Tune.ID, out[2].Bucket)
	}
}

func TestGenerate_MaxZeroNeverCaps(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 7)

	var candidates []models.JoinedTune
	for i := int64(1); i <= 20; i++ {
		candidates = append(candidates, tuneWithTS(i, w.StartOfDayUTC.Add(time.Duration(i)*time.Minute)))
	}

	out := Generate(candidates, Params{Windows: w, MaxReviewsPerDay: 0})
	if len(out) != 20 {
		t.Errorf("len = %d, want 20 (uncapped)", len(out))
	}
}

func TestGenerate_MinZeroNeverTriggersBackfill(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 7)

	candidates := []models.JoinedTune{
		tuneWithTS(1, w.WindowFloorUTC.Add(-24*time.Hour)), // backlog only
	}

	out := Generate(candidates, Params{Windows: w, MinReviewsPerDay: 0, EnableBackfill: true})
	if len(out) != 0 {
		t.Errorf("len = %d, want 0: min=0 must never trigger Q3 backfill", len(out))
	}
}

func TestGenerate_ZeroDelinquencyWindowEmptiesQ2(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 0)

	candidates := []models.JoinedTune{
		tuneWithTS(1, w.StartOfDayUTC.Add(-1*time.Hour)),
	}

	out := Generate(candidates, Params{Windows: w, MaxReviewsPerDay: 10})
	for _, c := range out {
		if c.Bucket == models.BucketRecentlyLapsed {
			t.Errorf("delinquency window of 0 days must leave Q2 empty, got candidate %d", c.Tune.ID)
		}
	}
}

func TestGenerate_DeduplicatesAcrossPhases(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 7)

	candidates := []models.JoinedTune{
		tuneWithTS(1, w.StartOfDayUTC.Add(1*time.Hour)),
	}
	out := Generate(candidates, Params{Windows: w, MaxReviewsPerDay: 0})
	seen := map[int64]int{}
	for _, c := range out {
		seen[c.Tune.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("tune %d appeared %d times", id, n)
		}
	}
}

func TestGenerate_MissingTimestampDefaultsToBucketOne(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 7)

	candidates := []models.JoinedTune{{ID: 99}}
	out := Generate(candidates, Params{Windows: w, MaxReviewsPerDay: 0})
	if len(out) != 1 || out[0].Bucket != models.BucketDueToday {
		t.Errorf("candidate with no coalesced timestamp should default to bucket 1, got %+v", out)
	}
}

func TestClassifyBucket_MatchesGenerate(t *testing.T) {
	sitDown := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	w := schedwindow.Compute(sitDown, nil, 7)

	if b := ClassifyBucket(w.StartOfDayUTC, w); b != models.BucketDueToday {
		t.Errorf("start of day should classify as bucket 1, got %v", b)
	}
	if b := ClassifyBucket(w.WindowFloorUTC.Add(-time.Second), w); b != models.BucketOlderBacklog {
		t.Errorf("before window floor should classify as bucket 3, got %v", b)
	}
}
