package achievement

import (
	"time"

	"github.com/google/uuid"
)

// Metric is the closed set of stat values an unlock criterion can target.
type Metric string

const (
	MetricPomodorosCompleted Metric = "pomodoros_completed"
	MetricStreakDays         Metric = "streak_days"
	MetricFocusHours         Metric = "focus_hours"
	MetricTasksCompleted     Metric = "tasks_completed"
	MetricCompetitionsWon    Metric = "competitions_won"
)

func (m Metric) IsValid() bool {
	switch m {
	case MetricPomodorosCompleted, MetricStreakDays, MetricFocusHours,
		MetricTasksCompleted, MetricCompetitionsWon:
		return true
	default:
		return false
	}
}

// Timeframe scopes an unlock criterion. Only lifetime criteria are evaluated
// today; windowed ones load fine but report as not yet unlockable.
type Timeframe string

const (
	TimeframeLifetime Timeframe = "lifetime"
	TimeframeDaily    Timeframe = "daily"
	TimeframeWeekly   Timeframe = "weekly"
	TimeframeMonthly  Timeframe = "monthly"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Order gives rarities a sortable weight, highest first in listings.
func (r Rarity) Order() int {
	switch r {
	case RarityLegendary:
		return 3
	case RarityEpic:
		return 2
	case RarityRare:
		return 1
	default:
		return 0
	}
}

// Definition is a catalog entry. Effectively immutable at runtime; only the
// TotalUnlocked counter moves, via atomic increments.
type Definition struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	Name           string      `json:"name" db:"name"`
	Description    string      `json:"description" db:"description"`
	Icon           string      `json:"icon" db:"icon"`
	Metric         Metric      `json:"metric" db:"metric"`
	Threshold      int         `json:"threshold" db:"threshold"`
	Timeframe      Timeframe   `json:"timeframe" db:"timeframe"`
	Prerequisites  []uuid.UUID `json:"prerequisites" db:"prerequisites"`
	Rarity         Rarity      `json:"rarity" db:"rarity"`
	RewardPoints   int         `json:"reward_points" db:"reward_points"`
	IsActive       bool        `json:"is_active" db:"is_active"`
	IsHidden       bool        `json:"is_hidden" db:"is_hidden"`
	AvailableFrom  *time.Time  `json:"available_from,omitempty" db:"available_from"`
	AvailableUntil *time.Time  `json:"available_until,omitempty" db:"available_until"`
	TotalUnlocked  int         `json:"total_unlocked" db:"total_unlocked"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// AvailableAt reports whether the optional availability window covers now.
func (d *Definition) AvailableAt(now time.Time) bool {
	if d.AvailableFrom != nil && now.Before(*d.AvailableFrom) {
		return false
	}
	if d.AvailableUntil != nil && now.After(*d.AvailableUntil) {
		return false
	}
	return true
}

// Progress is one user's state against one achievement. Created lazily on
// the first progress check or detail view. UnlockedAt, once set, never
// changes.
type Progress struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        string     `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID  `json:"achievement_id" db:"achievement_id"`
	CurrentValue  int        `json:"current_value" db:"current_value"`
	Threshold     int        `json:"threshold" db:"threshold"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
	IsFavorite    bool       `json:"is_favorite" db:"is_favorite"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty" db:"viewed_at"`
	SharedCount   int        `json:"shared_count" db:"shared_count"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

func NewProgress(userID string, def *Definition) *Progress {
	now := time.Now().UTC()
	return &Progress{
		ID:            uuid.New(),
		UserID:        userID,
		AchievementID: def.ID,
		Threshold:     def.Threshold,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (p *Progress) Unlocked() bool {
	return p != nil && p.UnlockedAt != nil
}

// ProgressPercent clamps at 100 so an unlocked achievement never regresses
// in the UI even if the backing metric later shrinks.
func ProgressPercent(value, threshold int) float64 {
	if threshold <= 0 {
		return 100
	}
	pct := float64(value) / float64(threshold) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// AchievementWithStatus is the listing view: the catalog entry merged with
// the caller's progress, if any.
type AchievementWithStatus struct {
	Definition
	Unlocked        bool       `json:"unlocked"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`
	CurrentValue    int        `json:"current_value"`
	ProgressPercent float64    `json:"progress_percent"`
	IsFavorite      bool       `json:"is_favorite"`
}
