// Package quality implements the Quality Codec (spec §4.A): conversion
// between the 6-value SM-2 quality scale, the 4-value FSRS rating scale,
// and the symbolic feedback labels a client submits.
//
// Grounded on _examples/original_source/tunetrees/models/quality.py
// (quality_lookup_sm2 / quality_lookup_fsrs) and
// _examples/original_source/tunetrees/app/schedulers.py
// (FSRScheduler._quality_to_fsrs_rating).
package quality

import "fmt"

// Rating is the 4-value FSRS rating scale.
type Rating int

const (
	Again Rating = 0
	Hard  Rating = 1
	Good  Rating = 2
	Easy  Rating = 3
)

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return "unknown"
	}
}

// NotSet is the sentinel LabelToQuality returns for a "clear this review"
// label ("not_set" / "clear"). It is not a valid scheduler input; callers
// must check for it before invoking a Scheduler.
const NotSet = -1

// baseCode is the label -> conceptual 6-value code table. It intentionally
// mixes SM-2 vocabulary ("perfect", "struggled") with FSRS vocabulary
// ("good", "again", "easy") because real clients submit whichever the UI
// widget was labeled with; the alg-specific scale is derived from this one
// table rather than maintained as two independent tables that could drift.
var baseCode = map[string]int{
	"blackout": 0,
	"failed":   0,
	"again":    0,

	"barely": 1,

	"struggled": 2,
	"hard":      2,

	"recalled": 3,
	"good":     3,

	"trivial": 4,

	"perfect": 5,
	"easy":    5,

	// Synthetic labels: treated as a fresh/relearned card, always the
	// lowest code on either scale.
	"new":         0,
	"rescheduled": 0,
}

// IsClearLabel reports whether label means "erase the staged feedback"
// rather than "apply this quality".
func IsClearLabel(label string) bool {
	return label == "not_set" || label == "clear"
}

// BoundsFor returns the valid inclusive quality range for technique: SM-2
// uses 0..5, every other technique uses the 4-value FSRS range 0..3.
func BoundsFor(technique string) (lo, hi int) {
	if IsSM2Scale(technique) {
		return 0, 5
	}
	return 0, 3
}

// IsSM2Scale reports whether technique stores its quality on the 6-value
// SM-2 scale. Every other technique (fsrs, motor_skills, metronome,
// daily_practice, custom) stores the 4-value FSRS scale.
func IsSM2Scale(technique string) bool {
	return technique == "sm2" || technique == "SM2"
}

// Is4Value is the complement of IsSM2Scale, named to match spec §4.A.
func Is4Value(technique string) bool {
	return !IsSM2Scale(technique)
}

// LabelToQuality resolves a symbolic feedback label into a numeric quality
// on the scale named by technique, or returns NotSet for a clear label.
// An unrecognized label is a fatal input-validation error (spec §7).
func LabelToQuality(label, technique string) (int, error) {
	if IsClearLabel(label) {
		return NotSet, nil
	}
	code, ok := baseCode[label]
	if !ok {
		return 0, fmt.Errorf("quality: unknown feedback label %q", label)
	}

	var q int
	if IsSM2Scale(technique) {
		q = code
	} else {
		q = int(QualityToFSRSRatingSM2(code))
	}

	lo, hi := BoundsFor(technique)
	if q < lo || q > hi {
		return 0, fmt.Errorf("quality: resolved quality %d out of bounds [%d,%d] for technique %q", q, lo, hi, technique)
	}
	return q, nil
}

// QualityToFSRSRatingSM2 maps a 6-value SM-2 quality (0..5) to its FSRS
// rating group: 0,1 -> Again; 2 -> Hard; 3 -> Good; 4,5 -> Easy.
func QualityToFSRSRatingSM2(q int) Rating {
	switch {
	case q <= 1:
		return Again
	case q == 2:
		return Hard
	case q == 3:
		return Good
	default:
		return Easy
	}
}

// QualityToFSRSRatingDirect is the identity conversion for a quality
// already expressed on the 4-value FSRS scale (0..3).
func QualityToFSRSRatingDirect(q int) (Rating, error) {
	if q < 0 || q > 3 {
		return 0, fmt.Errorf("quality: %d out of FSRS range 0..3", q)
	}
	return Rating(q), nil
}

// FSRSRatingToQualitySM2 inverts an FSRS rating back onto the 6-value
// SM-2 scale, using the representative choices Again->0, Hard->2,
// Good->3, Easy->5 (spec §4.A).
func FSRSRatingToQualitySM2(r Rating) int {
	switch r {
	case Again:
		return 0
	case Hard:
		return 2
	case Good:
		return 3
	case Easy:
		return 5
	default:
		return 0
	}
}

// Validate checks that quality lies within the valid range for technique,
// rejecting the programmer error of an out-of-range value reaching the
// scheduler boundary (spec §4.A Errors).
func Validate(quality int, technique string) error {
	lo, hi := BoundsFor(technique)
	if quality < lo || quality > hi {
		return fmt.Errorf("quality: %d out of bounds [%d,%d] for technique %q", quality, lo, hi, technique)
	}
	return nil
}
