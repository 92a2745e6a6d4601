package scheduler

import (
	"testing"
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
)

func TestEffectiveTechnique_DefaultsToSM2(t *testing.T) {
	got := EffectiveTechnique("", "")
	if got != models.TechniqueSM2 {
		t.Errorf("got %v, want sm2 default", got)
	}
}

func TestEffectiveTechnique_FollowsUserPreference(t *testing.T) {
	got := EffectiveTechnique("", models.AlgorithmFSRS)
	if got != models.TechniqueFSRS {
		t.Errorf("got %v, want fsrs", got)
	}
}

func TestEffectiveTechnique_ExplicitWins(t *testing.T) {
	got := EffectiveTechnique(models.TechniqueMotorSkills, models.AlgorithmFSRS)
	if got != models.TechniqueMotorSkills {
		t.Errorf("got %v, want explicit motor_skills", got)
	}
}

func TestReview_SM2FirstReview(t *testing.T) {
	practiced := time.Date(2024, 12, 31, 11, 47, 57, 0, time.UTC)
	res, err := Review(models.TechniqueSM2, 3, "", false, PriorReview{}, practiced, DefaultFSRSConfig(), 634)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Repetitions != 1 || res.IntervalDays != 1 {
		t.Errorf("got %+v, want repetitions=1 interval=1", res)
	}
	if res.Easiness == nil || *res.Easiness < 2.36 || *res.Easiness > 2.46 {
		t.Errorf("easiness = %v, want in [2.36,2.46]", res.Easiness)
	}
}

func TestReview_FSRSFirstReview(t *testing.T) {
	practiced := time.Now().UTC()
	res, err := Review(models.TechniqueFSRS, 0, "new", false, PriorReview{}, practiced, DefaultFSRSConfig(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State == nil || *res.State != StateLearning {
		t.Errorf("state = %v, want Learning", res.State)
	}
	if res.Stability == nil || *res.Stability <= 0 {
		t.Errorf("stability must be set and positive, got %v", res.Stability)
	}
	if res.Easiness == nil {
		t.Error("FSRS reviews must also populate easiness (cross-derived from difficulty) so PracticeRecord.easiness stays consistent across algorithms")
	}
}

func TestReview_UnknownTechniqueRoutesToFSRS(t *testing.T) {
	practiced := time.Now().UTC()
	res, err := Review(models.TechniqueMetronome, 2, "", false, PriorReview{}, practiced, DefaultFSRSConfig(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stability == nil {
		t.Errorf("metronome technique must dispatch to FSRS, got SM-2 shaped result %+v", res)
	}
}
