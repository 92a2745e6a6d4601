package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sboagy/tunetrees-go/internal/quality"
)

// State is the FSRS card lifecycle state (spec §4.C).
type State int

const (
	StateNew State = iota
	StateLearning
	StateReview
	StateRelearning
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateReview:
		return "review"
	case StateRelearning:
		return "relearning"
	default:
		return "unknown"
	}
}

// decay and factor are the published FSRS forgetting-curve constants: the
// retrievability curve is R(t,S) = (1 + factor*t/S)^decay, and solving for
// t at a target retention gives the interval formula in nextIntervalDays.
const (
	fsrsDecay  = -0.5
	fsrsFactor = 19.0 / 81.0
)

// DefaultWeights are the published FSRS-4.5 default parameters, used when a
// user has no SRPrefs.FSRSWeights recorded.
var DefaultWeights = [17]float64{
	0.4072, 1.1829, 3.1262, 15.4722, 7.2102, 0.5316, 1.0651, 0.0234,
	1.616, 0.1544, 1.0824, 1.9813, 0.0953, 0.2975, 2.2042, 0.2407, 2.9466,
}

// FSRSConfig bundles the per-user knobs the FSRS scheduler reads (spec
// §4.C Config; backed by SRPrefs).
type FSRSConfig struct {
	Weights          [17]float64
	DesiredRetention float64
	MaximumInterval  int
	LearningSteps    []time.Duration
	RelearningSteps  []time.Duration
	EnableFuzzing    bool
}

// DefaultFSRSConfig returns the published defaults (spec §6.2: "Missing
// record ⇒ defaults ... FSRS uses the published default parameters").
func DefaultFSRSConfig() FSRSConfig {
	return FSRSConfig{
		Weights:          DefaultWeights,
		DesiredRetention: 0.9,
		MaximumInterval:  36500,
	}
}

// Card is the FSRS scheduling state of one tune x playlist pairing (spec
// §4.C State in).
type Card struct {
	State      State
	Step       *int
	Stability  float64
	Difficulty float64
	Due        time.Time
	LastReview *time.Time
}

// clampDifficulty keeps difficulty within the published [1,10] range.
func clampDifficulty(d float64) float64 {
	if d < 1 {
		return 1
	}
	if d > 10 {
		return 10
	}
	return math.Round(d*100) / 100
}

// DifficultyFromEasiness converts a legacy SM-2 easiness factor into an
// FSRS difficulty, for a record that predates FSRS adoption (spec §4.C:
// "if the legacy record only has SM-2 easiness, derive difficulty").
// Grounded on FSRScheduler._e_factor_to_difficulty in schedulers.py.
func DifficultyFromEasiness(easiness float64) float64 {
	normalized := (easiness - minEasiness) / (freshEasiness - minEasiness)
	inverted := 1 - normalized
	return clampDifficulty(math.Round(1 + inverted*9))
}

// DifficultyToEasiness is the inverse of DifficultyFromEasiness: it derives
// a legacy-compatible easiness factor from an FSRS difficulty, so
// PracticeRecord.easiness stays populated even when technique=fsrs and the
// UI can show one consistent "easiness" column regardless of algorithm.
// Grounded on FSRScheduler._difficulty_to_e_factor in schedulers.py.
func DifficultyToEasiness(difficulty float64) float64 {
	normalized := 1 - (difficulty-1)/9
	easiness := normalized*(freshEasiness-minEasiness) + minEasiness
	if easiness < minEasiness {
		return minEasiness
	}
	if easiness > freshEasiness {
		return freshEasiness
	}
	return math.Round(easiness*100) / 100
}

// stateForLabel resolves the synthetic feedback label into the FSRS state
// a first review should start in (spec §4.C first-review semantics).
func stateForLabel(label string) State {
	switch label {
	case "new":
		return StateLearning
	case "rescheduled":
		return StateRelearning
	default:
		return StateReview
	}
}

// initialDifficulty is D0(rating): the published first-rating difficulty
// curve, before mean reversion.
func initialDifficulty(w [17]float64, r quality.Rating) float64 {
	g := float64(r) + 1 // Again=1, Hard=2, Good=3, Easy=4
	return clampDifficulty(w[4] - math.Exp(w[5]*(g-1)) + 1)
}

// initialStability is S0(rating): w0..w3 indexed by rating.
func initialStability(w [17]float64, r quality.Rating) float64 {
	return w[int(r)]
}

// retrievability estimates recall probability given elapsed days since
// last review and current stability.
func retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	return math.Pow(1+fsrsFactor*elapsedDays/stability, fsrsDecay)
}

// nextIntervalDays inverts the retrievability curve for the desired
// retention, then clamps to maximumInterval.
func nextIntervalDays(stability, desiredRetention float64, maximumInterval int) int {
	if desiredRetention <= 0 || desiredRetention >= 1 {
		desiredRetention = 0.9
	}
	interval := (stability / fsrsFactor) * (math.Pow(desiredRetention, 1/fsrsDecay) - 1)
	days := int(math.Round(interval))
	if days < 1 {
		days = 1
	}
	if maximumInterval > 0 && days > maximumInterval {
		days = maximumInterval
	}
	return days
}

// fuzzDays applies a deterministic +/-5% jitter seeded from cardID xor the
// review instant's unix time, so repeated runs over the same inputs are
// reproducible (spec §9 Numeric determinism).
func fuzzDays(days int, cardID int64, reviewTime time.Time) int {
	if days < 3 {
		return days
	}
	seed := cardID ^ int64(math.Floor(float64(reviewTime.Unix())))
	r := rand.New(rand.NewSource(seed))
	factor := 0.95 + r.Float64()*0.10
	fuzzed := int(math.Round(float64(days) * factor))
	if fuzzed < 1 {
		fuzzed = 1
	}
	return fuzzed
}

func learningStep(state State) *int {
	zero := 0
	switch state {
	case StateLearning, StateRelearning:
		return &zero
	default:
		return nil
	}
}

// FSRSFirstReview implements the no-prior-card path (spec §4.C First
// review / re-schedule semantics).
func FSRSFirstReview(cardID int64, rating quality.Rating, label string, practiced time.Time, cfg FSRSConfig) (Card, error) {
	if rating < quality.Again || rating > quality.Easy {
		return Card{}, fmt.Errorf("scheduler: fsrs rating %d out of range", rating)
	}
	state := stateForLabel(label)
	difficulty := initialDifficulty(cfg.Weights, rating)
	stability := initialStability(cfg.Weights, rating)

	days := nextIntervalDays(stability, cfg.DesiredRetention, cfg.MaximumInterval)
	if cfg.EnableFuzzing {
		days = fuzzDays(days, cardID, practiced)
	}

	lastReview := practiced
	return Card{
		State:      state,
		Step:       learningStep(state),
		Stability:  stability,
		Difficulty: difficulty,
		Due:        practiced.AddDate(0, 0, days),
		LastReview: &lastReview,
	}, nil
}

// FSRSReview implements the has-prior-card path (spec §4.C). A missing
// LastReview or non-positive Stability degrades to the first-review code
// path rather than failing, per spec §4.C Error handling.
func FSRSReview(cardID int64, rating quality.Rating, prior Card, practiced time.Time, cfg FSRSConfig) (Card, error) {
	if rating < quality.Again || rating > quality.Easy {
		return Card{}, fmt.Errorf("scheduler: fsrs rating %d out of range", rating)
	}
	if prior.LastReview == nil || prior.Stability <= 0 {
		return FSRSFirstReview(cardID, rating, "", practiced, cfg)
	}

	difficulty := prior.Difficulty
	if difficulty <= 0 {
		difficulty = 1.0
	}

	elapsedDays := practiced.Sub(*prior.LastReview).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	r := retrievability(elapsedDays, prior.Stability)

	w := cfg.Weights
	g := float64(rating) + 1
	deltaD := w[6] * (g - 3)
	dPrime := difficulty - deltaD
	dPrime = w[7]*initialDifficulty(w, quality.Easy) + (1-w[7])*dPrime
	nextDifficulty := clampDifficulty(dPrime)

	var nextStability float64
	if rating == quality.Again {
		nextStability = w[11] * math.Pow(difficulty, -w[12]) * (math.Pow(prior.Stability+1, w[13]) - 1) * math.Exp(w[14]*(1-r))
	} else {
		hardPenalty := 1.0
		if rating == quality.Hard {
			hardPenalty = w[15]
		}
		easyBonus := 1.0
		if rating == quality.Easy {
			easyBonus = w[16]
		}
		nextStability = prior.Stability * (1 + math.Exp(w[8])*(11-difficulty)*math.Pow(prior.Stability, -w[9])*(math.Exp(w[10]*(1-r))-1)*hardPenalty*easyBonus)
	}
	if nextStability <= 0 {
		nextStability = prior.Stability
	}

	days := nextIntervalDays(nextStability, cfg.DesiredRetention, cfg.MaximumInterval)
	if cfg.EnableFuzzing {
		days = fuzzDays(days, cardID, practiced)
	}

	lastReview := practiced
	return Card{
		State:      StateReview,
		Step:       nil,
		Stability:  nextStability,
		Difficulty: nextDifficulty,
		Due:        practiced.AddDate(0, 0, days),
		LastReview: &lastReview,
	}, nil
}
