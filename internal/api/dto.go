package api

import "time"

// ============================================================================
// SCHEDULING/QUEUE API DTOS (spec §6.1)
// ============================================================================

// GetQueueRequest is the query for get_queue.
type GetQueueRequest struct {
	UserRef          string `form:"user_ref" binding:"required"`
	PlaylistRef      int64  `form:"playlist_ref" binding:"required"`
	SitDownUTC       string `form:"sit_down_utc" binding:"required"`
	TZOffsetMinutes  *int   `form:"tz_offset_minutes"`
	ForceRegen       bool   `form:"force_regen"`
}

// ResetQueueRequest is the body for reset_queue.
type ResetQueueRequest struct {
	UserRef     string `json:"user_ref" binding:"required"`
	PlaylistRef int64  `json:"playlist_ref" binding:"required"`
}

// ResetQueueResponse reports how many rows were deactivated.
type ResetQueueResponse struct {
	Deactivated int `json:"deactivated"`
}

// RefillQueueRequest is the body for refill_queue.
type RefillQueueRequest struct {
	UserRef         string `json:"user_ref" binding:"required"`
	PlaylistRef     int64  `json:"playlist_ref" binding:"required"`
	SitDownUTC      string `json:"sit_down_utc" binding:"required"`
	TZOffsetMinutes *int   `json:"tz_offset_minutes"`
	Count           int    `json:"count" binding:"required,min=1"`
}

// AddTunesToQueueRequest is the body for add_tunes_to_queue.
type AddTunesToQueueRequest struct {
	UserRef         string  `json:"user_ref" binding:"required"`
	PlaylistRef     int64   `json:"playlist_ref" binding:"required"`
	TuneIDs         []int64 `json:"tune_ids" binding:"required,min=1"`
	SitDownUTC      string  `json:"sit_down_utc" binding:"required"`
	TZOffsetMinutes *int    `json:"tz_offset_minutes"`
}

// AddTunesToQueueResponse reports the disposition of each requested tune.
type AddTunesToQueueResponse struct {
	Added                   []int64 `json:"added"`
	SkippedExisting         []int64 `json:"skipped_existing"`
	Missing                 []int64 `json:"missing"`
	DuplicateRequestIgnored []int64 `json:"duplicate_request_ignored"`
}

// QueueEntryDTO is the wire shape of one daily_practice_queue row joined
// against practice_list_joined/practice_list_staged (spec §6.1 minimum
// fields).
type QueueEntryDTO struct {
	TuneRef                  int64      `json:"tune_ref"`
	Bucket                   int        `json:"bucket"`
	OrderIndex               int        `json:"order_index"`
	SnapshotCoalescedTS      string     `json:"snapshot_coalesced_ts"`
	ScheduledSnapshot        *string    `json:"scheduled_snapshot,omitempty"`
	LatestReviewDateSnapshot *string    `json:"latest_review_date_snapshot,omitempty"`
	WindowStartUTC           string     `json:"window_start_utc"`
	WindowEndUTC             string     `json:"window_end_utc"`
	GeneratedAt              time.Time  `json:"generated_at"`
	Active                   bool       `json:"active"`
	HasStaged                bool       `json:"has_staged"`

	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Structure  *string `json:"structure,omitempty"`
	Mode       *string `json:"mode,omitempty"`
	Incipit    *string `json:"incipit,omitempty"`
	Genre      *string `json:"genre,omitempty"`
	Learned    *string `json:"learned,omitempty"`
	Goal       *string `json:"goal,omitempty"`
	LatestGoal *string `json:"latest_goal,omitempty"`
}

// ============================================================================
// FEEDBACK PIPELINE DTOS (spec §6.1, §4.H)
// ============================================================================

// FeedbackUpdate is one tune's entry in submit_feedback's updates map.
type FeedbackUpdate struct {
	Feedback  string `json:"feedback" binding:"required"`
	Goal      string `json:"goal,omitempty"`
	Technique string `json:"technique,omitempty"`
}

// SubmitFeedbackRequest is the body for submit_feedback.
type SubmitFeedbackRequest struct {
	PlaylistRef int64                     `json:"playlist_ref" binding:"required"`
	UserRef     string                    `json:"user_ref" binding:"required"`
	SitDownUTC  string                    `json:"sit_down_utc" binding:"required"`
	Updates     map[int64]FeedbackUpdate `json:"updates" binding:"required"`
	Stage       bool                      `json:"stage"`
}

// SubmitFeedbackResponse carries successes and per-tune failures together
// (spec §7 propagation policy: per-tune errors accumulate alongside
// successes rather than aborting the whole request).
type SubmitFeedbackResponse struct {
	Committed     []int64        `json:"committed,omitempty"`
	Staged        []int64        `json:"staged,omitempty"`
	Cleared       []int64        `json:"cleared,omitempty"`
	PerTuneErrors []PerTuneError `json:"per_tune_errors,omitempty"`
}

// CommitStagedRequest is the body for commit_staged.
type CommitStagedRequest struct {
	PlaylistRef int64  `json:"playlist_ref" binding:"required"`
	UserRef     string `json:"user_ref" binding:"required"`
}

// CommitStagedResponse reports how many staged rows were committed.
type CommitStagedResponse struct {
	Count int `json:"count"`
}

// ============================================================================
// PREFERENCES API DTOS (spec §6.2)
// ============================================================================

// SchedulingPrefsDTO mirrors models.SchedulingPrefs for get/set_scheduling_prefs.
type SchedulingPrefsDTO struct {
	UserRef                    string `json:"user_ref"`
	AcceptableDelinquencyWindow int    `json:"acceptable_delinquency_window"`
	MinReviewsPerDay           int    `json:"min_reviews_per_day"`
	MaxReviewsPerDay           int    `json:"max_reviews_per_day"`
	DaysPerWeek                int    `json:"days_per_week"`
	WeeklyRules                string `json:"weekly_rules"`
	Exceptions                 string `json:"exceptions"`
}

// SRPrefsDTO mirrors models.SRPrefs for get/set_sr_prefs.
type SRPrefsDTO struct {
	UserRef          string     `json:"user_ref"`
	AlgType          string     `json:"alg_type"`
	FSRSWeights      *[17]float64 `json:"fsrs_weights,omitempty"`
	RequestRetention *float64   `json:"request_retention,omitempty"`
	MaximumInterval  *int       `json:"maximum_interval,omitempty"`
	LearningSteps    []string   `json:"learning_steps,omitempty"`
	RelearningSteps  []string   `json:"relearning_steps,omitempty"`
	EnableFuzzing    *bool      `json:"enable_fuzzing,omitempty"`
}
