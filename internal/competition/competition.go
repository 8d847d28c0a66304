package competition

import (
	"strings"
	"time"

	"deepFocusAPI/internal/apperrors"

	"github.com/google/uuid"
)

type Type string

const (
	TypeIndividual Type = "individual"
	TypeTeam       Type = "team"
)

type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeClass   Scope = "class"
	ScopePrivate Scope = "private"
)

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityInviteOnly Visibility = "invite_only"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// GoalMetric is what entrants compete on; values come from the entrant's
// recorded focus sessions inside the competition window.
type GoalMetric string

const (
	GoalSessions     GoalMetric = "sessions"
	GoalFocusMinutes GoalMetric = "focus_minutes"
	GoalTasks        GoalMetric = "tasks"
	GoalStreakDays   GoalMetric = "streak_days"
)

func (m GoalMetric) IsValid() bool {
	switch m {
	case GoalSessions, GoalFocusMinutes, GoalTasks, GoalStreakDays:
		return true
	default:
		return false
	}
}

type Goal struct {
	Metric GoalMetric `json:"metric" db:"goal_metric"`
	Target int        `json:"target" db:"goal_target"`
	Unit   string     `json:"unit" db:"goal_unit"`
}

type Timing struct {
	StartDate            time.Time  `json:"start_date" db:"start_date"`
	EndDate              time.Time  `json:"end_date" db:"end_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty" db:"registration_deadline"`
}

type Rules struct {
	MaxParticipants  int        `json:"max_participants" db:"max_participants"` // 0 = unlimited
	MinParticipants  int        `json:"min_participants" db:"min_participants"`
	TeamSize         int        `json:"team_size" db:"team_size"`
	AllowLateJoin    bool       `json:"allow_late_join" db:"allow_late_join"`
	LateJoinDeadline *time.Time `json:"late_join_deadline,omitempty" db:"late_join_deadline"`
	RequiresApproval bool       `json:"requires_approval" db:"requires_approval"`
}

// Prize is a configured reward for a final rank, ordered by rank.
type Prize struct {
	Rank   int    `json:"rank" db:"rank"`
	Title  string `json:"title" db:"title"`
	Points int    `json:"points" db:"points"`
	Badge  string `json:"badge" db:"badge"`
}

// Competition is owned by its creator and mutable only by the creator until
// settlement. Status is derived from timing except for the sticky
// draft/cancelled/completed overrides.
type Competition struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	CreatorID      string     `json:"creator_id" db:"creator_id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Type           Type       `json:"type" db:"type"`
	Scope          Scope      `json:"scope" db:"scope"`
	ClassID        *string    `json:"class_id,omitempty" db:"class_id"`
	Visibility     Visibility `json:"visibility" db:"visibility"`
	Goal           Goal       `json:"goal"`
	Timing         Timing     `json:"timing"`
	Rules          Rules      `json:"rules"`
	Prizes         []Prize    `json:"prizes"`
	Status         Status     `json:"status" db:"status"`
	InvitedUserIDs []string   `json:"invited_user_ids,omitempty"`
	SettledAt      *time.Time `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate rejects malformed competitions before anything is written.
func (c *Competition) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return apperrors.Validation("missing_title", "competition title is required")
	}
	if !c.Goal.Metric.IsValid() {
		return apperrors.Validation("invalid_goal_metric", "unknown goal metric")
	}
	if c.Goal.Target <= 0 {
		return apperrors.Validation("invalid_goal_target", "goal target must be positive")
	}
	if c.Timing.StartDate.IsZero() || c.Timing.EndDate.IsZero() {
		return apperrors.Validation("missing_timing", "start and end dates are required")
	}
	if !c.Timing.EndDate.After(c.Timing.StartDate) {
		return apperrors.Validation("invalid_timing", "end date must be after start date")
	}
	if c.Type == TypeTeam && c.Rules.TeamSize <= 0 {
		return apperrors.Validation("invalid_team_size", "team competitions need a positive team size")
	}
	seen := make(map[int]bool, len(c.Prizes))
	for _, p := range c.Prizes {
		if p.Rank <= 0 {
			return apperrors.Validation("invalid_prize_rank", "prize ranks must be positive")
		}
		if seen[p.Rank] {
			return apperrors.Validation("duplicate_prize_rank", "each rank can carry at most one prize")
		}
		seen[p.Rank] = true
	}
	return nil
}

// PrizeForRank returns the configured prize for a final rank, or nil.
func (c *Competition) PrizeForRank(rank int) *Prize {
	for i := range c.Prizes {
		if c.Prizes[i].Rank == rank {
			return &c.Prizes[i]
		}
	}
	return nil
}

func (c *Competition) IsInvited(userID string) bool {
	if userID == c.CreatorID {
		return true
	}
	for _, id := range c.InvitedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Competition) Settled() bool {
	return c.SettledAt != nil
}
