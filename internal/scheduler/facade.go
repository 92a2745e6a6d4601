package scheduler

import (
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/quality"
)

// ReviewResult is the unified outcome of a scheduler invocation regardless
// of which algorithm produced it (spec §4.D).
type ReviewResult struct {
	Quality     int
	Easiness    *float64
	Difficulty  *float64
	Stability   *float64
	IntervalDays int
	Step        *int
	Repetitions int
	Due         time.Time
	State       *State
}

// PriorReview carries whichever scheduler state a caller has on hand for a
// (tune, playlist) pair; zero values mean "no prior review".
type PriorReview struct {
	Easiness    float64
	IntervalDays int
	Repetitions int

	Stability  float64
	Difficulty float64
	Step       *int
	LastReview *time.Time
}

// EffectiveTechnique resolves the technique to schedule with: the explicit
// value if non-empty, else the user's algorithm preference, else SM-2
// (spec §4.D: "If no user algorithm preference exists, SM-2 is the
// default").
func EffectiveTechnique(explicit models.Technique, userPref models.AlgorithmType) models.Technique {
	if explicit != "" {
		return explicit
	}
	if userPref == models.AlgorithmFSRS {
		return models.TechniqueFSRS
	}
	return models.TechniqueSM2
}

// Review dispatches to SM-2 or FSRS based on technique and returns a
// unified ReviewResult. hasPrior distinguishes first review from
// subsequent review. cardID seeds FSRS fuzzing; label carries the
// synthetic new/rescheduled/"" hint for an FSRS first review.
func Review(technique models.Technique, q int, label string, hasPrior bool, prior PriorReview, practiced time.Time, cfg FSRSConfig, cardID int64) (ReviewResult, error) {
	if technique.IsSM2Scale() {
		return reviewSM2(q, hasPrior, prior, practiced)
	}
	return reviewFSRS(q, label, hasPrior, prior, practiced, cfg, cardID)
}

func reviewSM2(q int, hasPrior bool, prior PriorReview, practiced time.Time) (ReviewResult, error) {
	if !hasPrior {
		res, err := SM2FirstReview(q, practiced)
		if err != nil {
			return ReviewResult{}, err
		}
		return sm2ToReviewResult(q, res), nil
	}
	res, err := SM2Review(q, SM2State{
		Easiness:     prior.Easiness,
		IntervalDays: prior.IntervalDays,
		Repetitions:  prior.Repetitions,
	}, practiced)
	if err != nil {
		return ReviewResult{}, err
	}
	return sm2ToReviewResult(q, res), nil
}

func sm2ToReviewResult(q int, res SM2Result) ReviewResult {
	easiness := res.Easiness
	return ReviewResult{
		Quality:      q,
		Easiness:     &easiness,
		IntervalDays: res.IntervalDays,
		Repetitions:  res.Repetitions,
		Due:          res.Due,
	}
}

func reviewFSRS(q int, label string, hasPrior bool, prior PriorReview, practiced time.Time, cfg FSRSConfig, cardID int64) (ReviewResult, error) {
	rating, err := quality.QualityToFSRSRatingDirect(q)
	if err != nil {
		return ReviewResult{}, err
	}

	var card Card
	if !hasPrior {
		card, err = FSRSFirstReview(cardID, rating, label, practiced, cfg)
	} else {
		difficulty := prior.Difficulty
		if difficulty <= 0 && prior.Easiness > 0 {
			difficulty = DifficultyFromEasiness(prior.Easiness)
		}
		card, err = FSRSReview(cardID, rating, Card{
			State:      StateReview,
			Step:       prior.Step,
			Stability:  prior.Stability,
			Difficulty: difficulty,
			LastReview: prior.LastReview,
		}, practiced, cfg)
	}
	if err != nil {
		return ReviewResult{}, err
	}

	difficulty := card.Difficulty
	stability := card.Stability
	state := card.State
	easiness := DifficultyToEasiness(difficulty)
	return ReviewResult{
		Quality:      q,
		Easiness:     &easiness,
		Difficulty:   &difficulty,
		Stability:    &stability,
		IntervalDays: int(card.Due.Sub(practiced).Hours() / 24),
		Step:         card.Step,
		Due:          card.Due,
		State:        &state,
	}, nil
}
