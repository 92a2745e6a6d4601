// Package queue implements the Queue Generator and Queue Store (spec §4.F,
// §4.G): the candidate-selection algorithm that turns the tune/history join
// view into an ordered, capacity-bounded practice list, and the persistence
// layer that snapshots, refills, and manually edits that list.
//
// Grounded on the teacher's task_repository.go query-and-filter idiom,
// generalized from a single priority queue to the three-bucket
// due/lapsed/backlog selection in spec §4.F.
package queue

import (
	"sort"
	"time"

	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/schedwindow"
)

// Candidate is one tune selected by the generator, annotated with its
// coalesced timestamp and bucket.
type Candidate struct {
	Tune   models.JoinedTune
	Ts     time.Time
	Bucket models.Bucket
}

// Params controls one Queue Generator invocation.
type Params struct {
	Windows          schedwindow.Windows
	MinReviewsPerDay int // 0 == no minimum
	MaxReviewsPerDay int // 0 == uncapped
	EnableBackfill   bool
}

// Generate runs the phased Q1/Q2/Q3 candidate selection over candidates,
// which must already be filtered to the target (user_ref, playlist_ref)
// and non-deleted per the caller's deleted/playlist_deleted choice. It is a
// pure function: no I/O, no clock reads beyond what Params.Windows already
// fixed.
func Generate(candidates []models.JoinedTune, p Params) []Candidate {
	q1, q2, q3 := bucketize(candidates, p.Windows)

	sort.SliceStable(q1, func(i, j int) bool { return q1[i].Ts.Before(q1[j].Ts) })
	sort.SliceStable(q2, func(i, j int) bool { return q2[i].Ts.After(q2[j].Ts) })
	sort.SliceStable(q3, func(i, j int) bool { return q3[i].Ts.After(q3[j].Ts) })

	max := p.MaxReviewsPerDay
	min := p.MinReviewsPerDay
	seen := make(map[int64]bool)
	var out []Candidate

	remaining := func() int {
		if max <= 0 {
			return -1 // uncapped
		}
		return max - len(out)
	}

	take := func(pool []Candidate, limit int) {
		for _, c := range pool {
			if limit == 0 {
				return
			}
			if seen[c.Tune.ID] {
				continue
			}
			seen[c.Tune.ID] = true
			out = append(out, c)
			if limit > 0 {
				limit--
			}
		}
	}

	take(q1, remaining())
	if max > 0 && len(out) >= max {
		return out
	}

	take(q2, remaining())
	if max > 0 && len(out) >= max {
		return out
	}

	if !p.EnableBackfill || min <= 0 || len(out) >= min {
		return out
	}

	limit := min - len(out)
	if max > 0 {
		if r := remaining(); r < limit {
			limit = r
		}
	}
	take(q3, limit)

	return out
}

// bucketize classifies every candidate into Q1/Q2/Q3 by its coalesced
// timestamp. A candidate with no coalesced timestamp at all (never
// practiced, never overridden) is treated the way spec §4.F treats any
// other parse failure: the lenient default, bucket 1, timestamped at the
// window start so it sorts alongside the rest of today's due tunes.
func bucketize(candidates []models.JoinedTune, w schedwindow.Windows) (q1, q2, q3 []Candidate) {
	for _, c := range candidates {
		coalesced, ok := c.CoalescedTimestamp()
		ts := w.StartOfDayUTC
		if ok {
			ts = coalesced.Time.UTC()
		}

		switch {
		case !ok:
			q1 = append(q1, Candidate{Tune: c, Ts: ts, Bucket: models.BucketDueToday})
		case !ts.Before(w.StartOfDayUTC) && ts.Before(w.EndOfDayUTC):
			q1 = append(q1, Candidate{Tune: c, Ts: ts, Bucket: models.BucketDueToday})
		case !ts.Before(w.WindowFloorUTC) && ts.Before(w.StartOfDayUTC):
			q2 = append(q2, Candidate{Tune: c, Ts: ts, Bucket: models.BucketRecentlyLapsed})
		default:
			q3 = append(q3, Candidate{Tune: c, Ts: ts, Bucket: models.BucketOlderBacklog})
		}
	}
	return q1, q2, q3
}

// ClassifyBucket is the standalone classification rule named in spec §4.F,
// exposed separately because the Queue Store's refill/add_manual paths
// re-derive a bucket for a single timestamp rather than re-running the
// full phase split.
func ClassifyBucket(ts time.Time, w schedwindow.Windows) models.Bucket {
	switch {
	case !ts.Before(w.StartOfDayUTC) && ts.Before(w.EndOfDayUTC):
		return models.BucketDueToday
	case !ts.Before(w.WindowFloorUTC) && ts.Before(w.StartOfDayUTC):
		return models.BucketRecentlyLapsed
	default:
		return models.BucketOlderBacklog
	}
}
