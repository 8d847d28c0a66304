package competition

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Filter struct {
	Status    *Status
	Scope     *Scope
	ClassID   *string
	CreatorID *string
	Limit     int
	Offset    int
}

// Repository persists competitions. MarkSettled is the settle-once guard:
// two schedulers racing to settle the same competition see exactly one true.
type Repository interface {
	Create(ctx context.Context, c *Competition) error
	Get(ctx context.Context, id uuid.UUID) (*Competition, error)
	Update(ctx context.Context, c *Competition) error
	List(ctx context.Context, f Filter) ([]*Competition, error)

	// ListEndedUnsettled returns competitions whose end date has passed,
	// that are neither cancelled nor settled. Used by the settlement worker.
	ListEndedUnsettled(ctx context.Context, now time.Time) ([]*Competition, error)

	// MarkSettled sets the settled timestamp only when it is currently
	// null. Returns false when the competition was already settled.
	MarkSettled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// EntryRepository persists entries, one per (competition, user). Progress,
// milestone, prize and withdrawal writes are all conditional so that
// concurrent retries stay idempotent.
type EntryRepository interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, competitionID uuid.UUID, userID string) (*Entry, error)
	ListByCompetition(ctx context.Context, competitionID uuid.UUID) ([]*Entry, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*Entry, error)
	CountByCompetition(ctx context.Context, competitionID uuid.UUID) (int, error)

	// UpdateProgress writes progress/stats/timestamps only while the row's
	// status is still active. Returns false otherwise.
	UpdateProgress(ctx context.Context, e *Entry) (bool, error)

	// AddMilestone is a set-insert keyed on (entry, value); a duplicate
	// value is a no-op returning false.
	AddMilestone(ctx context.Context, entryID uuid.UUID, m Milestone) (bool, error)

	SaveRank(ctx context.Context, entryID uuid.UUID, rank RankInfo) error

	// Withdraw flips status to withdrawn unless it already is; false on
	// a repeat.
	Withdraw(ctx context.Context, competitionID uuid.UUID, userID, reason string, at time.Time) (bool, error)

	// Reactivate returns a withdrawn entry to active with a fresh target,
	// used when a user re-joins. False when the entry is not withdrawn.
	Reactivate(ctx context.Context, competitionID uuid.UUID, userID string, target int, at time.Time) (bool, error)

	// SetStatus moves an entry between active/inactive/disqualified.
	SetStatus(ctx context.Context, competitionID uuid.UUID, userID string, status EntryStatus) error

	// AssignPrize attaches the prize only when none is assigned yet.
	AssignPrize(ctx context.Context, entryID uuid.UUID, prize AwardedPrize) (bool, error)

	// ClaimPrize flips claimed false→true and returns the prize. Errors:
	// not_found when no prize is assigned, state_conflict when already
	// claimed.
	ClaimPrize(ctx context.Context, competitionID uuid.UUID, userID string, at time.Time) (*AwardedPrize, error)
}
