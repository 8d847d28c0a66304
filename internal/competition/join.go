package competition

import "time"

// Join-rejection reasons, surfaced verbatim to clients.
const (
	ReasonJoinable                   = "joinable"
	ReasonCompetitionNotOpen         = "competition_not_open"
	ReasonLateJoinNotAllowed         = "late_join_not_allowed"
	ReasonLateJoinDeadlinePassed     = "late_join_deadline_passed"
	ReasonRegistrationDeadlinePassed = "registration_deadline_passed"
	ReasonCompetitionFull            = "competition_full"
	ReasonInviteOnly                 = "invite_only"
	ReasonAlreadyJoined              = "already_joined"
)

type JoinDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func deny(reason string) JoinDecision {
	return JoinDecision{Reason: reason}
}

// CanJoin runs the eligibility checks in order and short-circuits on the
// first failure with its specific reason. entryCount is the current number
// of non-withdrawn entries; existing is the caller's entry, if any.
func CanJoin(c *Competition, userID string, entryCount int, existing *Entry, now time.Time) JoinDecision {
	switch c.StatusAt(now) {
	case StatusCompleted, StatusCancelled, StatusDraft:
		return deny(ReasonCompetitionNotOpen)
	}

	if !now.Before(c.Timing.StartDate) {
		if !c.Rules.AllowLateJoin {
			return deny(ReasonLateJoinNotAllowed)
		}
		if c.Rules.LateJoinDeadline != nil && now.After(*c.Rules.LateJoinDeadline) {
			return deny(ReasonLateJoinDeadlinePassed)
		}
	}

	if c.Timing.RegistrationDeadline != nil && now.After(*c.Timing.RegistrationDeadline) {
		return deny(ReasonRegistrationDeadlinePassed)
	}

	if c.Rules.MaxParticipants > 0 && entryCount >= c.Rules.MaxParticipants {
		return deny(ReasonCompetitionFull)
	}

	if c.Visibility == VisibilityInviteOnly && !c.IsInvited(userID) {
		return deny(ReasonInviteOnly)
	}

	if existing != nil && existing.Status != EntryStatusWithdrawn {
		return deny(ReasonAlreadyJoined)
	}

	return JoinDecision{Allowed: true, Reason: ReasonJoinable}
}
