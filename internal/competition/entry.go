package competition

import (
	"time"

	"deepFocusAPI/internal/apperrors"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryStatusActive       EntryStatus = "active"
	EntryStatusInactive     EntryStatus = "inactive" // pending approval
	EntryStatusWithdrawn    EntryStatus = "withdrawn"
	EntryStatusDisqualified EntryStatus = "disqualified"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSame Trend = "same"
	TrendNew  Trend = "new"
)

// MilestoneValues are the progress percentages recorded once per entry.
var MilestoneValues = [4]int{25, 50, 75, 100}

type Milestone struct {
	Value     int       `json:"value" db:"value"`
	ReachedAt time.Time `json:"reached_at" db:"reached_at"`
}

type EntryProgress struct {
	CurrentValue int     `json:"current_value" db:"current_value"`
	Target       int     `json:"target" db:"target"` // copied from the goal at join time
	Percent      float64 `json:"percent" db:"percent"`
}

// RankInfo is rank state persisted per entry; zero means unranked.
type RankInfo struct {
	Current  int   `json:"current" db:"rank_current"`
	Previous int   `json:"previous" db:"rank_previous"`
	Best     int   `json:"best" db:"rank_best"`
	Trend    Trend `json:"trend" db:"rank_trend"`
}

// EntryStats is activity denormalized from the entrant's stats record for
// this competition's window.
type EntryStats struct {
	Sessions          int     `json:"sessions" db:"stat_sessions"`
	FocusMinutes      int     `json:"focus_minutes" db:"stat_focus_minutes"`
	StreakDays        int     `json:"streak_days" db:"stat_streak_days"`
	AvgSessionMinutes float64 `json:"avg_session_minutes" db:"stat_avg_session_minutes"`
}

type AwardedPrize struct {
	Rank      int        `json:"rank" db:"prize_rank"`
	Title     string     `json:"title" db:"prize_title"`
	Points    int        `json:"points" db:"prize_points"`
	Badge     string     `json:"badge" db:"prize_badge"`
	Claimed   bool       `json:"claimed" db:"prize_claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty" db:"prize_claimed_at"`
	AwardedAt time.Time  `json:"awarded_at" db:"prize_awarded_at"`
}

// Entry is one user's enrollment in one competition, unique per pair.
type Entry struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	CompetitionID  uuid.UUID     `json:"competition_id" db:"competition_id"`
	UserID         string        `json:"user_id" db:"user_id"`
	TeamID         *string       `json:"team_id,omitempty" db:"team_id"`
	Progress       EntryProgress `json:"progress"`
	Rank           RankInfo      `json:"rank"`
	Stats          EntryStats    `json:"statistics"`
	Milestones     []Milestone   `json:"milestones"`
	Status         EntryStatus   `json:"status" db:"status"`
	Prize          *AwardedPrize `json:"prize,omitempty"`
	JoinedAt       time.Time     `json:"joined_at" db:"joined_at"`
	LastActiveAt   time.Time     `json:"last_active_at" db:"last_active_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	WithdrawnAt    *time.Time    `json:"withdrawn_at,omitempty" db:"withdrawn_at"`
	WithdrawReason string        `json:"withdraw_reason,omitempty" db:"withdraw_reason"`
}

// NewEntry creates an entry with the target copied from the competition's
// goal, so later goal edits never retroactively move a joined entrant's bar.
func NewEntry(c *Competition, userID string, teamID *string, now time.Time) *Entry {
	status := EntryStatusActive
	if c.Rules.RequiresApproval && userID != c.CreatorID {
		status = EntryStatusInactive
	}
	return &Entry{
		ID:            uuid.New(),
		CompetitionID: c.ID,
		UserID:        userID,
		TeamID:        teamID,
		Progress:      EntryProgress{Target: c.Goal.Target},
		Milestones:    []Milestone{},
		Status:        status,
		JoinedAt:      now,
		LastActiveAt:  now,
		UpdatedAt:     now,
	}
}

// ApplyProgress sets the new progress value, recomputes the capped percent
// and records any newly crossed milestones. Idempotent under repeated calls
// with the same or higher value; returns the milestones added by this call.
func (e *Entry) ApplyProgress(newValue int, delta *EntryStats, now time.Time) ([]Milestone, error) {
	if e.Status != EntryStatusActive {
		return nil, apperrors.StateConflict("entry_not_active", "progress updates are only accepted for active entries")
	}
	if newValue < 0 {
		return nil, apperrors.Validation("negative_progress", "progress value must not be negative")
	}

	e.Progress.CurrentValue = newValue
	e.Progress.Percent = progressPercent(newValue, e.Progress.Target)
	if delta != nil {
		e.Stats = *delta
	}

	var added []Milestone
	for _, value := range MilestoneValues {
		if e.Progress.Percent >= float64(value) && !e.hasMilestone(value) {
			m := Milestone{Value: value, ReachedAt: now}
			e.Milestones = append(e.Milestones, m)
			added = append(added, m)
		}
	}

	e.LastActiveAt = now
	e.UpdatedAt = now
	return added, nil
}

func (e *Entry) hasMilestone(value int) bool {
	for _, m := range e.Milestones {
		if m.Value == value {
			return true
		}
	}
	return false
}

// Withdraw is terminal and user-initiated; history is kept.
func (e *Entry) Withdraw(reason string, now time.Time) error {
	if e.Status == EntryStatusWithdrawn {
		return apperrors.StateConflict("already_withdrawn", "entry is already withdrawn")
	}
	e.Status = EntryStatusWithdrawn
	e.WithdrawnAt = &now
	e.WithdrawReason = reason
	e.UpdatedAt = now
	return nil
}

func progressPercent(value, target int) float64 {
	if target <= 0 {
		return 100
	}
	pct := float64(value) / float64(target) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
