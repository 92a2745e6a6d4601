package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Bucket classifies a candidate tune's coalesced timestamp relative to the
// sit-down instant: 1 = due today, 2 = recently lapsed, 3 = older backlog.
type Bucket int

const (
	BucketDueToday      Bucket = 1
	BucketRecentlyLapsed Bucket = 2
	BucketOlderBacklog  Bucket = 3
)

// MarshalJSON keeps Bucket as a plain JSON number.
func (b Bucket) MarshalJSON() ([]byte, error) { return json.Marshal(int(b)) }

// UnmarshalJSON reads a plain JSON number into Bucket.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = Bucket(n)
	return nil
}

// QueueMode is the generation mode of a DailyPracticeQueue snapshot. The
// spec names only one mode today; the field exists so a future per-session
// or per-week mode can be added without a schema migration.
type QueueMode string

const (
	QueueModePerDay QueueMode = "per_day"
)

// DailyPracticeQueue is one persisted row of an ordered daily queue
// snapshot (§3 DailyPracticeQueue, §4.G Queue Store).
type DailyPracticeQueue struct {
	ID     int64     `json:"id"`
	UserRef string    `json:"user_ref"`
	PlaylistRef int64 `json:"playlist_ref"`
	Mode   QueueMode  `json:"mode"`

	QueueDate      time.Time `json:"queue_date"`
	WindowStartUTC time.Time `json:"window_start_utc"`
	WindowEndUTC   time.Time `json:"window_end_utc"`

	TuneRef    int64  `json:"tune_ref"`
	Bucket     Bucket `json:"bucket"`
	OrderIndex int    `json:"order_index"`

	SnapshotCoalescedTS             time.Time    `json:"snapshot_coalesced_ts"`
	ScheduledSnapshot                sql.NullTime `json:"scheduled_snapshot"`
	LatestReviewDateSnapshot         sql.NullTime `json:"latest_review_date_snapshot"`
	AcceptableDelinquencyWindowSnap  int          `json:"acceptable_delinquency_window_snapshot"`
	TZOffsetMinutesSnapshot          sql.NullInt64 `json:"tz_offset_minutes_snapshot"`

	GeneratedAt time.Time  `json:"generated_at"`
	CompletedAt sql.NullTime `json:"completed_at"`

	ExposuresRequired  sql.NullInt64 `json:"exposures_required"`
	ExposuresCompleted int           `json:"exposures_completed"`
	Outcome            sql.NullString `json:"outcome"`

	Active bool `json:"active"`
}
