package stats

import (
	"time"

	"github.com/google/uuid"
)

// RetentionDays is the rolling window of daily buckets kept per user.
// Older buckets are pruned after every write.
const RetentionDays = 90

type SessionDetail struct {
	TaskID        *uuid.UUID `json:"task_id,omitempty" db:"task_id"`
	Minutes       int        `json:"minutes" db:"minutes"`
	TaskCompleted bool       `json:"task_completed" db:"task_completed"`
	OccurredAt    time.Time  `json:"occurred_at" db:"occurred_at"`
}

// DailyBucket aggregates one UTC calendar day of activity.
// At most one bucket exists per date.
type DailyBucket struct {
	Date     time.Time `json:"date" db:"date"`
	Sessions int       `json:"sessions" db:"sessions"`
	Minutes  int       `json:"minutes" db:"minutes"`
	Tasks    int       `json:"tasks" db:"tasks"`
}

// StatsRecord holds one user's lifetime counters, streak state and the
// trailing window of daily buckets. Buckets are kept sorted descending by
// date. Mutated only through ApplySession; created lazily on first session.
type StatsRecord struct {
	UserID          string        `json:"user_id" db:"user_id"`
	TotalSessions   int           `json:"total_sessions" db:"total_sessions"`
	TotalMinutes    int           `json:"total_minutes" db:"total_minutes"`
	TotalTasks      int           `json:"total_tasks" db:"total_tasks"`
	CompetitionsWon int           `json:"competitions_won" db:"competitions_won"`
	RewardPoints    int           `json:"reward_points" db:"reward_points"`
	CurrentStreak   int           `json:"current_streak" db:"current_streak"`
	LongestStreak   int           `json:"longest_streak" db:"longest_streak"`
	LastActiveDate  *time.Time    `json:"last_active_date" db:"last_active_date"`
	Buckets         []DailyBucket `json:"buckets"`

	// Version backs the optimistic compare-and-swap on writes.
	Version   int       `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewRecord(userID string) *StatsRecord {
	now := time.Now().UTC()
	return &StatsRecord{
		UserID:    userID,
		Buckets:   []DailyBucket{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot is the read-only view handed to the achievement evaluator and
// competition trackers after a session is recorded.
type Snapshot struct {
	UserID            string     `json:"user_id"`
	SessionsCompleted int        `json:"sessions_completed"`
	TotalMinutes      int        `json:"total_minutes"`
	TasksCompleted    int        `json:"tasks_completed"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	CompetitionsWon   int        `json:"competitions_won"`
	RewardPoints      int        `json:"reward_points"`
	LastActiveDate    *time.Time `json:"last_active_date"`
}

func (r *StatsRecord) Snapshot() Snapshot {
	return Snapshot{
		UserID:            r.UserID,
		SessionsCompleted: r.TotalSessions,
		TotalMinutes:      r.TotalMinutes,
		TasksCompleted:    r.TotalTasks,
		CurrentStreak:     r.CurrentStreak,
		LongestStreak:     r.LongestStreak,
		CompetitionsWon:   r.CompetitionsWon,
		RewardPoints:      r.RewardPoints,
		LastActiveDate:    r.LastActiveDate,
	}
}

// BucketFor returns the bucket for the given UTC day, or nil.
func (r *StatsRecord) BucketFor(day time.Time) *DailyBucket {
	for i := range r.Buckets {
		if r.Buckets[i].Date.Equal(day) {
			return &r.Buckets[i]
		}
	}
	return nil
}

func (r *StatsRecord) Clone() *StatsRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Buckets = make([]DailyBucket, len(r.Buckets))
	copy(clone.Buckets, r.Buckets)
	if r.LastActiveDate != nil {
		d := *r.LastActiveDate
		clone.LastActiveDate = &d
	}
	return &clone
}
