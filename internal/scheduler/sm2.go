// Package scheduler implements the two spaced-repetition algorithms (SM-2
// and FSRS) and the facade that dispatches between them by technique.
//
// Grounded on _examples/original_source/tunetrees/app/schedulers.py
// (SM2Scheduler, FSRScheduler) and the supermemo2.sm_two module it wraps.
package scheduler

import (
	"fmt"
	"math"
	"time"
)

// minEasiness is the SM-2 minimum easiness factor, matching every published SM-2
// description and the supermemo2 reference implementation.
const minEasiness = 1.3

// freshEasiness is used when a record has no prior easiness recorded.
const freshEasiness = 2.5

// SM2State is the subset of a PracticeRecord the SM-2 scheduler reads and
// writes (spec §4.B).
type SM2State struct {
	Easiness    float64
	IntervalDays int
	Repetitions int
}

// SM2Result is the outcome of one SM-2 review.
type SM2Result struct {
	Easiness     float64
	IntervalDays int
	Repetitions  int
	Due          time.Time
}

// SM2FirstReview implements the repetitions==0 path (spec §4.B). Quality
// outside 0..5 is a fatal input error. A record with no prior easiness
// starts from the fresh default (2.5) before the easiness formula runs, so
// the very first review already reflects the submitted quality.
func SM2FirstReview(quality int, practiced time.Time) (SM2Result, error) {
	if quality < 0 || quality > 5 {
		return SM2Result{}, fmt.Errorf("scheduler: sm2 quality %d out of range 0..5", quality)
	}

	easiness := freshEasiness
	if quality >= 3 {
		delta := 5 - quality
		easiness = math.Max(minEasiness, easiness+0.1-float64(delta)*(0.08+float64(delta)*0.02))
	}

	return SM2Result{
		Easiness:     easiness,
		IntervalDays: 1,
		Repetitions:  1,
		Due:          practiced.AddDate(0, 0, 1),
	}, nil
}

// SM2Review implements the subsequent-review path (spec §4.B).
func SM2Review(quality int, prior SM2State, practiced time.Time) (SM2Result, error) {
	if quality < 0 || quality > 5 {
		return SM2Result{}, fmt.Errorf("scheduler: sm2 quality %d out of range 0..5", quality)
	}
	easiness := prior.Easiness
	if easiness <= 0 {
		easiness = freshEasiness
	}

	if quality < 3 {
		return SM2Result{
			Easiness:     math.Max(minEasiness, easiness),
			IntervalDays: 1,
			Repetitions:  0,
			Due:          practiced.AddDate(0, 0, 1),
		}, nil
	}

	delta := 5 - quality
	easiness = math.Max(minEasiness, easiness+0.1-float64(delta)*(0.08+float64(delta)*0.02))

	repetitions := prior.Repetitions + 1
	var interval int
	if prior.Repetitions == 1 {
		interval = 6
	} else {
		interval = int(math.Round(float64(prior.IntervalDays) * easiness))
	}
	if interval < 1 {
		interval = 1
	}

	return SM2Result{
		Easiness:     easiness,
		IntervalDays: interval,
		Repetitions:  repetitions,
		Due:          practiced.AddDate(0, 0, interval),
	}, nil
}
