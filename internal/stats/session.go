package stats

import (
	"sort"
	"time"

	"deepFocusAPI/internal/apperrors"

	"github.com/google/uuid"
)

// DayOf truncates t to its UTC calendar date. All streak arithmetic runs on
// UTC days; the boundary is never user-local time.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ApplyResult reports what a single ApplySession changed, so the storage
// layer can write just the touched bucket and session row.
type ApplyResult struct {
	Day           time.Time
	Bucket        DailyBucket
	Detail        SessionDetail
	StreakChanged bool
}

// ApplySession folds one completed focus session into the record: lifetime
// totals, the day's bucket and the streak. Multiple sessions per day are the
// normal case; the streak moves at most once per UTC day.
func (r *StatsRecord) ApplySession(minutes int, taskCompleted bool, taskID *uuid.UUID, occurredAt time.Time) (*ApplyResult, error) {
	if minutes < 0 {
		return nil, apperrors.Validation("negative_minutes", "session minutes must not be negative")
	}

	today := DayOf(occurredAt)
	now := time.Now().UTC()

	r.TotalSessions++
	r.TotalMinutes += minutes
	if taskCompleted {
		r.TotalTasks++
	}

	bucket := r.BucketFor(today)
	if bucket == nil {
		r.Buckets = append(r.Buckets, DailyBucket{Date: today})
		bucket = &r.Buckets[len(r.Buckets)-1]
	}
	bucket.Sessions++
	bucket.Minutes += minutes
	if taskCompleted {
		bucket.Tasks++
	}

	streakChanged := r.applyStreak(today)

	r.pruneBuckets(today)
	sort.Slice(r.Buckets, func(i, j int) bool {
		return r.Buckets[i].Date.After(r.Buckets[j].Date)
	})

	r.UpdatedAt = now

	// The sort above may have moved the bucket; re-resolve before copying.
	return &ApplyResult{
		Day:    today,
		Bucket: *r.BucketFor(today),
		Detail: SessionDetail{
			TaskID:        taskID,
			Minutes:       minutes,
			TaskCompleted: taskCompleted,
			OccurredAt:    occurredAt.UTC(),
		},
		StreakChanged: streakChanged,
	}, nil
}

// applyStreak advances the streak for activity on today (a UTC day).
// Same-day re-entry is a no-op, a one-day gap extends the streak, anything
// wider resets it to 1. LastActiveDate moves in every branch but "same day".
func (r *StatsRecord) applyStreak(today time.Time) bool {
	if r.LastActiveDate == nil {
		r.CurrentStreak = 1
		r.LongestStreak = 1
		d := today
		r.LastActiveDate = &d
		return true
	}

	last := DayOf(*r.LastActiveDate)
	switch gap := int(today.Sub(last).Hours() / 24); {
	case gap <= 0:
		// Same day, or a backdated session; counters moved but the streak holds.
		return false
	case gap == 1:
		r.CurrentStreak++
		if r.CurrentStreak > r.LongestStreak {
			r.LongestStreak = r.CurrentStreak
		}
	default:
		r.CurrentStreak = 1
	}

	d := today
	r.LastActiveDate = &d
	return true
}

func (r *StatsRecord) pruneBuckets(today time.Time) {
	cutoff := today.AddDate(0, 0, -RetentionDays)
	kept := r.Buckets[:0]
	for _, b := range r.Buckets {
		if !b.Date.Before(cutoff) {
			kept = append(kept, b)
		}
	}
	r.Buckets = kept
}
