package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Goal is a high-level practice intent recorded alongside every
// PracticeRecord. The scheduler only consults it to pick a default
// Technique when none is supplied.
type Goal string

const (
	GoalInitialLearn     Goal = "initial_learn"
	GoalRecall           Goal = "recall"
	GoalFluency          Goal = "fluency"
	GoalSessionReady     Goal = "session_ready"
	GoalPerformancePolish Goal = "performance_polish"
)

// DefaultTechnique returns the technique the Scheduler Facade should use
// when a PracticeRecord names this goal but no explicit technique.
func (g Goal) DefaultTechnique() Technique {
	switch g {
	case GoalInitialLearn:
		return TechniqueFSRS
	case GoalFluency:
		return TechniqueMotorSkills
	case GoalSessionReady:
		return TechniqueDailyPractice
	case GoalPerformancePolish:
		return TechniqueMetronome
	default:
		return TechniqueSM2
	}
}

// MarshalJSON converts Goal to its JSON string form.
func (g Goal) MarshalJSON() ([]byte, error) { return json.Marshal(string(g)) }

// UnmarshalJSON converts a JSON string to Goal.
func (g *Goal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = Goal(s)
	return nil
}

// Technique identifies the algorithm used for one particular review, and
// therefore which quality scale the stored `quality` column uses.
type Technique string

const (
	TechniqueSM2          Technique = "sm2"
	TechniqueFSRS         Technique = "fsrs"
	TechniqueMotorSkills  Technique = "motor_skills"
	TechniqueMetronome    Technique = "metronome"
	TechniqueDailyPractice Technique = "daily_practice"
	TechniqueCustom       Technique = "custom"
)

// IsSM2Scale reports whether this technique stores quality on the 6-value
// SM-2 scale (0..5) rather than the 4-value FSRS scale (0..3).
func (t Technique) IsSM2Scale() bool {
	return t == TechniqueSM2
}

// MarshalJSON converts Technique to its JSON string form.
func (t Technique) MarshalJSON() ([]byte, error) { return json.Marshal(string(t)) }

// UnmarshalJSON converts a JSON string to Technique.
func (t *Technique) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Technique(s)
	return nil
}

// PracticeRecord is one append-only row of practice history. Invariant U1:
// (tune_ref, playlist_ref, practiced) is unique. Invariant U2: "latest" for
// a (tune_ref, playlist_ref) pair is the row with the maximum ID, not the
// maximum Practiced timestamp.
type PracticeRecord struct {
	ID          int64     `json:"id"`
	PlaylistRef int64     `json:"playlist_ref"`
	TuneRef     int64     `json:"tune_ref"`
	Practiced   time.Time `json:"practiced"`
	Quality     int       `json:"quality"`

	Easiness    sql.NullFloat64 `json:"easiness"`
	Interval    sql.NullInt64   `json:"interval"`
	Repetitions sql.NullInt64   `json:"repetitions"`
	ReviewDate  time.Time       `json:"review_date"`

	Stability  sql.NullFloat64 `json:"stability"`
	Difficulty sql.NullFloat64 `json:"difficulty"`
	Step       sql.NullInt64   `json:"step"`
	Lapses     sql.NullInt64   `json:"lapses"`
	State      sql.NullInt64   `json:"state"`

	Goal      Goal      `json:"goal"`
	Technique Technique `json:"technique"`
}

// StagedFeedback is at most one ephemeral row per (user, playlist, tune,
// purpose="practice"). All scheduler-derived fields are cleared together
// on commit, on an explicit clear, or when the label resolves to NotSet.
type StagedFeedback struct {
	UserRef     string
	PlaylistRef int64
	TuneRef     int64
	Purpose     string

	Quality     sql.NullInt64
	Practiced   sql.NullTime
	Due         sql.NullTime
	Easiness    sql.NullFloat64
	Difficulty  sql.NullFloat64
	Interval    sql.NullInt64
	Step        sql.NullInt64
	Repetitions sql.NullInt64
	Stability   sql.NullFloat64
	Goal        sql.NullString
	Technique   sql.NullString
}

// IsEmpty reports whether every scheduler-derived field is cleared; an
// empty staged row is equivalent to no staged row existing.
func (s StagedFeedback) IsEmpty() bool {
	return !s.Quality.Valid && !s.Practiced.Valid && !s.Due.Valid
}
