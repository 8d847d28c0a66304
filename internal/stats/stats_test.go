package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestApplySessionTotals(t *testing.T) {
	rec := NewRecord("user_1")

	res, err := rec.ApplySession(25, true, nil, day(2026, 3, 10).Add(9*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, rec.TotalSessions)
	assert.Equal(t, 25, rec.TotalMinutes)
	assert.Equal(t, 1, rec.TotalTasks)
	assert.Equal(t, day(2026, 3, 10), res.Day)
	assert.Equal(t, 1, res.Bucket.Sessions)
	assert.True(t, res.StreakChanged)

	_, err = rec.ApplySession(50, false, nil, day(2026, 3, 10).Add(14*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, rec.TotalSessions)
	assert.Equal(t, 75, rec.TotalMinutes)
	assert.Equal(t, 1, rec.TotalTasks)
	require.Len(t, rec.Buckets, 1)
	assert.Equal(t, 2, rec.Buckets[0].Sessions)
	assert.Equal(t, 75, rec.Buckets[0].Minutes)
}

func TestApplySessionRejectsNegativeMinutes(t *testing.T) {
	rec := NewRecord("user_1")

	_, err := rec.ApplySession(-5, false, nil, time.Now())
	require.Error(t, err)
	assert.Equal(t, 0, rec.TotalSessions)
}

func TestStreakProgression(t *testing.T) {
	rec := NewRecord("user_1")

	// Day 1 starts the streak.
	_, err := rec.ApplySession(25, false, nil, day(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 1, rec.LongestStreak)

	// Second session on the same day does not move it.
	res, err := rec.ApplySession(25, false, nil, day(2026, 3, 10).Add(20*time.Hour))
	require.NoError(t, err)
	assert.False(t, res.StreakChanged)
	assert.Equal(t, 1, rec.CurrentStreak)

	// The next consecutive day extends it.
	_, err = rec.ApplySession(25, false, nil, day(2026, 3, 11))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 2, rec.LongestStreak)

	_, err = rec.ApplySession(25, false, nil, day(2026, 3, 12))
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CurrentStreak)

	// A two-day gap resets the current streak but keeps the longest.
	_, err = rec.ApplySession(25, false, nil, day(2026, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 3, rec.LongestStreak)
}

func TestStreakBackdatedSessionHolds(t *testing.T) {
	rec := NewRecord("user_1")

	_, err := rec.ApplySession(25, false, nil, day(2026, 3, 10))
	require.NoError(t, err)
	_, err = rec.ApplySession(25, false, nil, day(2026, 3, 11))
	require.NoError(t, err)

	// A late sync delivering an older session must not disturb the streak.
	res, err := rec.ApplySession(25, false, nil, day(2026, 3, 9))
	require.NoError(t, err)
	assert.False(t, res.StreakChanged)
	assert.Equal(t, 2, rec.CurrentStreak)
	require.NotNil(t, rec.LastActiveDate)
	assert.Equal(t, day(2026, 3, 11), DayOf(*rec.LastActiveDate))
}

func TestStreakCrossesUTCMidnight(t *testing.T) {
	rec := NewRecord("user_1")

	// 23:50 and 00:10 UTC fall on consecutive days.
	_, err := rec.ApplySession(25, false, nil, day(2026, 3, 10).Add(23*time.Hour+50*time.Minute))
	require.NoError(t, err)
	_, err = rec.ApplySession(25, false, nil, day(2026, 3, 11).Add(10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 2, rec.CurrentStreak)
}

func TestBucketRetention(t *testing.T) {
	rec := NewRecord("user_1")

	old := day(2026, 1, 1)
	_, err := rec.ApplySession(25, false, nil, old)
	require.NoError(t, err)

	// A session more than the retention window later prunes the old bucket.
	recent := old.AddDate(0, 0, RetentionDays+1)
	_, err = rec.ApplySession(25, false, nil, recent)
	require.NoError(t, err)

	require.Len(t, rec.Buckets, 1)
	assert.Equal(t, DayOf(recent), rec.Buckets[0].Date)
	// Lifetime totals survive pruning.
	assert.Equal(t, 2, rec.TotalSessions)
}

func TestBucketsSortedDescending(t *testing.T) {
	rec := NewRecord("user_1")

	for _, d := range []time.Time{day(2026, 3, 12), day(2026, 3, 10), day(2026, 3, 11)} {
		_, err := rec.ApplySession(25, false, nil, d)
		require.NoError(t, err)
	}

	require.Len(t, rec.Buckets, 3)
	assert.Equal(t, day(2026, 3, 12), rec.Buckets[0].Date)
	assert.Equal(t, day(2026, 3, 11), rec.Buckets[1].Date)
	assert.Equal(t, day(2026, 3, 10), rec.Buckets[2].Date)
}

func TestStatsForWeekMondayStart(t *testing.T) {
	rec := NewRecord("user_1")

	// 2026-03-11 is a Wednesday; the containing week is Mar 9 to Mar 15.
	_, err := rec.ApplySession(25, true, nil, day(2026, 3, 9))
	require.NoError(t, err)
	_, err = rec.ApplySession(30, false, nil, day(2026, 3, 15))
	require.NoError(t, err)
	_, err = rec.ApplySession(30, false, nil, day(2026, 3, 16)) // next week
	require.NoError(t, err)

	week := rec.StatsForWeek(day(2026, 3, 11))
	assert.Equal(t, day(2026, 3, 9), week.From)
	assert.Equal(t, day(2026, 3, 15), week.To)
	assert.Equal(t, 2, week.Sessions)
	assert.Equal(t, 55, week.Minutes)
	assert.Equal(t, 1, week.Tasks)
	assert.Equal(t, 2, week.ActiveDays)
}

func TestStatsForMonth(t *testing.T) {
	rec := NewRecord("user_1")

	_, err := rec.ApplySession(25, false, nil, day(2026, 2, 28))
	require.NoError(t, err)
	_, err = rec.ApplySession(25, false, nil, day(2026, 3, 1))
	require.NoError(t, err)

	month := rec.StatsForMonth(day(2026, 3, 14))
	assert.Equal(t, day(2026, 3, 1), month.From)
	assert.Equal(t, day(2026, 3, 31), month.To)
	assert.Equal(t, 1, month.Sessions)
}

func TestStatsForDateEmptyDay(t *testing.T) {
	rec := NewRecord("user_1")

	got := rec.StatsForDate(day(2026, 3, 10))
	assert.Zero(t, got.Sessions)
	assert.Zero(t, got.ActiveDays)
}

// Property: after any sequence of sessions, lifetime totals equal the sum of
// the surviving buckets plus whatever was pruned, and the streak never
// exceeds the longest streak.
func TestApplySessionInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := NewRecord("user_1")
		base := day(2026, 1, 1)

		sessions := rapid.IntRange(1, 40).Draw(t, "sessions")
		offset := 0
		for i := 0; i < sessions; i++ {
			offset += rapid.IntRange(0, 3).Draw(t, "gap")
			minutes := rapid.IntRange(0, 120).Draw(t, "minutes")
			_, err := rec.ApplySession(minutes, rapid.Bool().Draw(t, "task"), nil, base.AddDate(0, 0, offset))
			if err != nil {
				t.Fatalf("ApplySession: %v", err)
			}
		}

		if rec.CurrentStreak > rec.LongestStreak {
			t.Fatalf("current streak %d exceeds longest %d", rec.CurrentStreak, rec.LongestStreak)
		}
		if rec.TotalSessions != sessions {
			t.Fatalf("expected %d total sessions, got %d", sessions, rec.TotalSessions)
		}

		bucketSessions := 0
		for i, b := range rec.Buckets {
			bucketSessions += b.Sessions
			if i > 0 && !rec.Buckets[i-1].Date.After(b.Date) {
				t.Fatalf("buckets not sorted descending at %d", i)
			}
		}
		if bucketSessions > rec.TotalSessions {
			t.Fatalf("bucket sessions %d exceed lifetime total %d", bucketSessions, rec.TotalSessions)
		}
	})
}
