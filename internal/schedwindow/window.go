// Package schedwindow computes the sit-down day's UTC boundaries that the
// queue generator and feedback pipeline both key off of (spec §4.E Window
// Computer).
//
// Grounded on _examples/original_source/tunetrees (window boundaries
// mirror the practice-scheduling day computation used to pick candidate
// tunes) and the teacher's time-handling idiom of formatting fixed layouts
// with time.Time.Format rather than hand-built strings.
package schedwindow

import "time"

// timestampLayout is the lexicographic-safe wire format used throughout
// the scheduling API (spec §6.4).
const timestampLayout = "2006-01-02 15:04:05"

// sitDownDateLegacyOffset records a rejected design: an earlier revision
// of the original system nudged review_sitdown_date forward by one day to
// paper over a timezone-boundary mismatch in its own window math. That
// mismatch doesn't exist here, since Compute already folds the caller's
// tzOffsetMinutes into the window boundary itself, so no compensating
// offset is applied. Kept at zero rather than removed so the rejection is
// on record rather than silently absent.
const sitDownDateLegacyOffset = 0

// Windows is the output of one Window Computer invocation (spec §4.E).
type Windows struct {
	StartOfDayUTC time.Time
	EndOfDayUTC   time.Time
	WindowFloorUTC time.Time

	StartOfDayUTCStr string
	EndOfDayUTCStr   string
	WindowFloorUTCStr string

	LocalTZOffsetMinutes int
	HasOffset            bool
}

// Compute derives the half-open [WindowFloorUTC, EndOfDayUTC) window around
// sitDownUTC. When tzOffsetMinutes is non-nil, the sit-down day boundary is
// the caller's local midnight mapped back to UTC; otherwise it is the UTC
// calendar day of sitDownUTC.
func Compute(sitDownUTC time.Time, tzOffsetMinutes *int, acceptableDelinquencyWindowDays int) Windows {
	sitDownUTC = sitDownUTC.UTC()

	var startOfDay time.Time
	if tzOffsetMinutes != nil {
		local := sitDownUTC.Add(time.Duration(*tzOffsetMinutes) * time.Minute)
		localMidnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		startOfDay = localMidnight.Add(-time.Duration(*tzOffsetMinutes) * time.Minute)
	} else {
		startOfDay = time.Date(sitDownUTC.Year(), sitDownUTC.Month(), sitDownUTC.Day(), 0, 0, 0, 0, time.UTC)
	}

	endOfDay := startOfDay.AddDate(0, 0, 1)
	windowFloor := startOfDay.AddDate(0, 0, -acceptableDelinquencyWindowDays)

	w := Windows{
		StartOfDayUTC:  startOfDay,
		EndOfDayUTC:    endOfDay,
		WindowFloorUTC: windowFloor,

		StartOfDayUTCStr:  startOfDay.Format(timestampLayout),
		EndOfDayUTCStr:    endOfDay.Format(timestampLayout),
		WindowFloorUTCStr: windowFloor.Format(timestampLayout),
	}
	if tzOffsetMinutes != nil {
		w.LocalTZOffsetMinutes = *tzOffsetMinutes
		w.HasOffset = true
	}
	return w
}

// Contains reports whether ts falls within the half-open window
// [WindowFloorUTC, EndOfDayUTC), the boundary invariant spec §4.E names.
func (w Windows) Contains(ts time.Time) bool {
	ts = ts.UTC()
	return !ts.Before(w.WindowFloorUTC) && ts.Before(w.EndOfDayUTC)
}

// FormatTimestamp renders ts in the wire format shared by every timestamp
// field in the scheduling API (spec §6.4).
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
