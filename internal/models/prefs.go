package models

import (
	"encoding/json"
	"time"
)

// Documented defaults for SchedulingPrefs, backfilled onto any null legacy
// column by the Preferences Store (§4.I).
const (
	DefaultAcceptableDelinquencyWindow = 7
	DefaultMinReviewsPerDay            = 3
	DefaultMaxReviewsPerDay            = 10
	DefaultDaysPerWeek                 = 7
)

// AlgorithmType selects which Scheduler the facade dispatches to.
type AlgorithmType string

const (
	AlgorithmSM2  AlgorithmType = "SM2"
	AlgorithmFSRS AlgorithmType = "FSRS"
)

// MarshalJSON converts AlgorithmType to its JSON string form.
func (a AlgorithmType) MarshalJSON() ([]byte, error) { return json.Marshal(string(a)) }

// UnmarshalJSON converts a JSON string to AlgorithmType.
func (a *AlgorithmType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = AlgorithmType(s)
	return nil
}

// SchedulingPrefs holds per-user capacity and delinquency preferences that
// govern the Queue Generator (§4.F).
type SchedulingPrefs struct {
	UserRef                     string `json:"user_ref"`
	AcceptableDelinquencyWindow int    `json:"acceptable_delinquency_window"`
	MinReviewsPerDay            int    `json:"min_reviews_per_day"`
	MaxReviewsPerDay            int    `json:"max_reviews_per_day"` // 0 == uncapped
	DaysPerWeek                 int    `json:"days_per_week"`
	WeeklyRules                 string `json:"weekly_rules"`  // opaque JSON/TOML blob
	Exceptions                  string `json:"exceptions"`    // opaque JSON/TOML blob
}

// WithDefaults backfills any zero-valued legacy field with the documented
// default, without persisting anything; callers decide whether to save.
func (p SchedulingPrefs) WithDefaults() SchedulingPrefs {
	out := p
	if out.AcceptableDelinquencyWindow == 0 {
		out.AcceptableDelinquencyWindow = DefaultAcceptableDelinquencyWindow
	}
	if out.MinReviewsPerDay == 0 {
		out.MinReviewsPerDay = DefaultMinReviewsPerDay
	}
	if out.MaxReviewsPerDay == 0 {
		out.MaxReviewsPerDay = DefaultMaxReviewsPerDay
	}
	if out.DaysPerWeek == 0 {
		out.DaysPerWeek = DefaultDaysPerWeek
	}
	if out.WeeklyRules == "" {
		out.WeeklyRules = "{}"
	}
	if out.Exceptions == "" {
		out.Exceptions = "[]"
	}
	return out
}

// SRPrefs holds per-user x algorithm scheduler configuration.
type SRPrefs struct {
	UserRef          string          `json:"user_ref"`
	AlgType          AlgorithmType   `json:"alg_type"`
	FSRSWeights      []float64       `json:"fsrs_weights,omitempty"`
	RequestRetention float64         `json:"request_retention,omitempty"`
	MaximumInterval  int             `json:"maximum_interval,omitempty"`
	LearningSteps    []time.Duration `json:"learning_steps,omitempty"`
	RelearningSteps  []time.Duration `json:"relearning_steps,omitempty"`
	EnableFuzzing    bool            `json:"enable_fuzzing"`
}
